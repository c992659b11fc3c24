package rbac

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/shipdesk/shipdesk/internal/shared"
)

const decideTimeout = 5 * time.Second

// Service is the permission gate.
type Service struct {
	repo   Repository
	cache  DecisionCache
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache DecisionCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IsAuthorized reports whether staffID holds the (panel, module, action)
// permission. It fails closed: blank arguments, an unknown panel, a missing
// definition or a missing grant all yield false. Store failures are returned
// alongside false.
func (s *Service) IsAuthorized(ctx context.Context, panel, module, action string, staffID shared.ID) (bool, error) {
	module, action = normalizeName(module), normalizeName(action)
	if module == "" || action == "" || staffID <= 0 {
		return false, nil
	}
	p, ok := ParsePanel(panel)
	if !ok {
		return false, nil
	}
	field := decisionField(p, module, action)

	var (
		gen     int64
		cacheOK bool
	)
	if s.cache != nil {
		allowed, found, err := s.cache.Get(ctx, staffID, field)
		if err != nil {
			s.logger.Warn("rbac cache read", slog.Any("error", err), slog.String("staff_id", staffID.String()))
		} else if found {
			return allowed, nil
		}
		// The generation must be read before the grant so a revocation
		// landing in between keeps the decision out of the cache.
		if gen, err = s.cache.Generation(ctx, staffID); err != nil {
			s.logger.Warn("rbac cache generation", slog.Any("error", err), slog.String("staff_id", staffID.String()))
		} else {
			cacheOK = true
		}
	}

	key := staffID.String() + "|" + field + "|" + strconv.FormatInt(gen, 10)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Joined callers share this call, so it must outlive the first caller.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), decideTimeout)
		defer cancel()
		allowed, err := s.decide(ctx, p, module, action, staffID)
		if err != nil {
			return false, err
		}
		if cacheOK {
			if err := s.cache.Put(ctx, staffID, gen, field, allowed); err != nil {
				s.logger.Warn("rbac cache write", slog.Any("error", err), slog.String("staff_id", staffID.String()))
			}
		}
		return allowed, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Service) decide(ctx context.Context, panel Panel, module, action string, staffID shared.ID) (bool, error) {
	perm, err := s.repo.FindPermission(ctx, panel, module, action)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.repo.StaffHasGrant(ctx, staffID, perm.ID)
}

// ListPermissions returns the definitions matching filter, most recent first.
func (s *Service) ListPermissions(ctx context.Context, filter Filter) ([]Permission, error) {
	f, err := filter.normalize()
	if err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(ctx, f.Panel, f.Module, f.Action)
}

// ListGrantsForStaff returns the grants staffID holds among the definitions
// matching filter.
func (s *Service) ListGrantsForStaff(ctx context.Context, filter Filter, staffID shared.ID) ([]Grant, error) {
	const op = "rbac list staff grants"
	if staffID <= 0 {
		return nil, shared.Validation(op, "Invalid staff id")
	}
	perms, err := s.ListPermissions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, shared.NotFound(op, "No permissions match the filter")
	}
	ids := lo.Map(perms, func(p Permission, _ int) shared.ID { return p.ID })
	grants, err := s.repo.ListStaffGrants(ctx, staffID, ids)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, shared.NotFound(op, "No permissions granted to this staff member")
	}
	return grants, nil
}

// ReplaceRoleGrants makes the role hold exactly the desired permissions that
// are valid for panel.
func (s *Service) ReplaceRoleGrants(ctx context.Context, actor shared.Actor, roleID shared.ID, desired []shared.ID, panel string) (ReplaceResult, error) {
	return s.replace(ctx, actor, SubjectRole, roleID, desired, panel)
}

// ReplaceStaffGrants makes the staff principal hold exactly the desired
// permissions that are valid for panel and drops its cached decisions.
func (s *Service) ReplaceStaffGrants(ctx context.Context, actor shared.Actor, staffID shared.ID, desired []shared.ID, panel string) (ReplaceResult, error) {
	res, err := s.replace(ctx, actor, SubjectStaff, staffID, desired, panel)
	if err != nil {
		return res, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, staffID); err != nil {
			s.logger.Error("rbac cache invalidate", slog.Any("error", err), slog.String("staff_id", staffID.String()))
		}
	}
	return res, nil
}

func (s *Service) replace(ctx context.Context, actor shared.Actor, subject Subject, subjectID shared.ID, desired []shared.ID, panel string) (ReplaceResult, error) {
	op := "rbac replace " + subject.String() + " grants"
	if err := actor.Validate(); err != nil {
		return ReplaceResult{}, err
	}
	if subjectID <= 0 {
		return ReplaceResult{}, shared.Validation(op, "Invalid "+subject.String()+" id")
	}
	p, ok := ParsePanel(panel)
	if !ok {
		return ReplaceResult{}, shared.Validation(op, "Invalid panel")
	}
	wanted := lo.Uniq(desired)

	var res ReplaceResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		valid, err := tx.ValidPermissionIDs(ctx, p, wanted)
		if err != nil {
			return err
		}
		held, err := tx.HeldPermissionIDs(ctx, subject, subjectID)
		if err != nil {
			return err
		}
		res = diffGrants(wanted, valid, held)
		if err := tx.RevokeGrants(ctx, subject, subjectID, res.Removed); err != nil {
			return err
		}
		return tx.InsertGrants(ctx, subject, subjectID, res.Assigned, actor, s.now())
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	s.logger.Info("rbac grants replaced",
		slog.String("subject", subject.String()),
		slog.String("subject_id", subjectID.String()),
		slog.String("panel", string(p)),
		slog.Int("assigned", len(res.Assigned)),
		slog.Int("removed", len(res.Removed)),
	)
	return res, nil
}

// diffGrants computes the replacement plan. Held ids outside the valid
// desired set are removed regardless of panel.
func diffGrants(desired, valid, held []shared.ID) ReplaceResult {
	valid = lo.Intersect(desired, valid)
	return ReplaceResult{
		Assigned: sortedIDs(lo.Without(valid, held...)),
		Removed:  sortedIDs(lo.Without(held, valid...)),
		Skipped:  sortedIDs(lo.Intersect(valid, held)),
		Invalid:  sortedIDs(lo.Without(desired, valid...)),
	}
}

func sortedIDs(ids []shared.ID) []shared.ID {
	out := append([]shared.ID{}, ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// decisionField names the cached decision inside a staff hash.
func decisionField(panel Panel, module, action string) string {
	return strings.Join([]string{string(panel), module, action}, ":")
}
