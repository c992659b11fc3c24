package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/shipdesk/shipdesk/internal/shared"
)

// Observer receives the outcome of every lifecycle operation.
type Observer interface {
	ObserveLifecycle(entity, op string, err error)
}

// ServiceConfig carries optional collaborators; zero values are replaced
// with defaults.
type ServiceConfig struct {
	Validator *validator.Validate
	Clock     func() time.Time
	Observer  Observer
}

// Service implements the lifecycle contract for one entity type.
type Service[E any] struct {
	schema   Schema[E]
	store    Store[E]
	validate *validator.Validate
	now      func() time.Time
	observer Observer
}

// NewService builds a Service over store.
func NewService[E any](schema Schema[E], store Store[E], cfg ServiceConfig) *Service[E] {
	svc := &Service[E]{
		schema:   schema,
		store:    store,
		validate: cfg.Validator,
		now:      cfg.Clock,
		observer: cfg.Observer,
	}
	if svc.validate == nil {
		svc.validate = NewValidator()
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc
}

// Schema exposes the entity declaration.
func (s *Service[E]) Schema() Schema[E] {
	return s.schema
}

// Create stamps the create columns and persists payload.
func (s *Service[E]) Create(ctx context.Context, actor shared.Actor, payload E) (out E, err error) {
	defer s.observe("create", &err)
	op := s.op("create")
	if err = actor.Validate(); err != nil {
		return out, err
	}
	if err = s.prepare(op, &payload); err != nil {
		return out, err
	}
	meta := s.schema.Meta(&payload)
	*meta = Record{Status: meta.Status}
	meta.stampCreate(actor, s.now())
	return s.store.Insert(ctx, payload)
}

// Update writes the mutable columns of payload onto record id.
func (s *Service[E]) Update(ctx context.Context, actor shared.Actor, id shared.ID, payload E) (out E, err error) {
	defer s.observe("update", &err)
	op := s.op("update")
	if err = actor.Validate(); err != nil {
		return out, err
	}
	if err = s.checkID(op, id); err != nil {
		return out, err
	}
	if s.schema.CheckUpdate != nil {
		if cerr := s.schema.CheckUpdate(payload); cerr != nil {
			err = shared.Validation(op, cerr.Error())
			return out, err
		}
	}
	if err = s.prepare(op, &payload); err != nil {
		return out, err
	}
	meta := s.schema.Meta(&payload)
	*meta = Record{ID: id, Status: meta.Status}
	meta.stampUpdate(actor, s.now())
	return s.store.Update(ctx, id, payload)
}

// GetByID returns record id, deleted or not.
func (s *Service[E]) GetByID(ctx context.Context, id shared.ID) (out E, err error) {
	defer s.observe("get", &err)
	if err = s.checkID(s.op("get"), id); err != nil {
		return out, err
	}
	return s.store.Get(ctx, id)
}

// List returns every record, most recent first.
func (s *Service[E]) List(ctx context.Context) (out []E, err error) {
	defer s.observe("list", &err)
	return s.store.List(ctx, 0)
}

// ListByStatus returns the records inside mode, most recent first. An
// unrecognised mode fails before the store is consulted.
func (s *Service[E]) ListByStatus(ctx context.Context, mode StatusMode) (out []E, err error) {
	defer s.observe("list_by_status", &err)
	if !mode.Valid() {
		return nil, shared.Validation(s.op("list by status"), "Invalid status")
	}
	return s.store.List(ctx, mode)
}

// SoftDelete stamps the deletion columns of a non-deleted record.
func (s *Service[E]) SoftDelete(ctx context.Context, actor shared.Actor, id shared.ID) (out E, err error) {
	defer s.observe("soft_delete", &err)
	op := s.op("soft delete")
	if err = actor.Validate(); err != nil {
		return out, err
	}
	if err = s.checkID(op, id); err != nil {
		return out, err
	}
	return s.store.MarkDeleted(ctx, id, actor, s.now())
}

// Restore clears the deletion columns of a deleted record and stamps the
// update columns with the restoring actor.
func (s *Service[E]) Restore(ctx context.Context, actor shared.Actor, id shared.ID) (out E, err error) {
	defer s.observe("restore", &err)
	op := s.op("restore")
	if err = actor.Validate(); err != nil {
		return out, err
	}
	if err = s.checkID(op, id); err != nil {
		return out, err
	}
	return s.store.Restore(ctx, id, actor, s.now())
}

// HardDelete removes record id permanently.
func (s *Service[E]) HardDelete(ctx context.Context, id shared.ID) (err error) {
	defer s.observe("hard_delete", &err)
	if err = s.checkID(s.op("hard delete"), id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// CheckUniqueness reports whether value is free in field among non-deleted
// records other than excludeID.
func (s *Service[E]) CheckUniqueness(ctx context.Context, field, value string, excludeID *shared.ID) (out Availability, err error) {
	defer s.observe("check_uniqueness", &err)
	op := s.op("check uniqueness")
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)
	if !s.schema.isUnique(field) {
		return out, shared.Validation(op, fmt.Sprintf("%s is not a unique field of %s", field, strings.ToLower(s.schema.Entity)))
	}
	if value == "" {
		return out, shared.Validation(op, s.schema.label(field)+" is required")
	}
	value = s.normalizeValue(field, value)
	n, err := s.store.CountValue(ctx, field, value, excludeID)
	if err != nil {
		return out, err
	}
	if n > 0 {
		return Availability{Available: false, Message: s.schema.label(field) + " is already in use"}, nil
	}
	return Availability{Available: true, Message: s.schema.label(field) + " is available"}, nil
}

// BulkImport inserts the rows whose key is non-blank and not yet held by a
// non-deleted record. Blank, invalid and duplicate rows are skipped.
func (s *Service[E]) BulkImport(ctx context.Context, actor shared.Actor, rows []E) (out ImportResult, err error) {
	defer s.observe("bulk_import", &err)
	op := s.op("bulk import")
	if err = actor.Validate(); err != nil {
		return out, err
	}
	if s.schema.KeyField == "" {
		return out, shared.Validation(op, "bulk import is not supported for "+s.schema.plural())
	}
	now := s.now()
	seen := make(map[string]struct{}, len(rows))
	candidates := make([]E, 0, len(rows))
	for _, row := range rows {
		if s.schema.Prepare != nil {
			if perr := s.schema.Prepare(&row); perr != nil {
				continue
			}
		}
		key := s.schema.keyOf(row)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if verr := s.validate.Struct(row); verr != nil {
			continue
		}
		seen[key] = struct{}{}
		meta := s.schema.Meta(&row)
		*meta = Record{Status: true}
		meta.stampCreate(actor, now)
		candidates = append(candidates, row)
	}
	if len(candidates) == 0 {
		return ImportResult{Message: "No valid " + s.schema.plural() + " found"}, nil
	}

	existing, err := s.store.ExistingKeys(ctx, s.schema.KeyField, lo.Keys(seen))
	if err != nil {
		return out, err
	}
	fresh := lo.Filter(candidates, func(row E, _ int) bool {
		_, taken := existing[s.schema.keyOf(row)]
		return !taken
	})
	if len(fresh) == 0 {
		return ImportResult{Message: "All " + s.schema.plural() + " already exist"}, nil
	}
	n, err := s.store.InsertMany(ctx, fresh)
	if err != nil {
		return out, err
	}
	if n == 0 {
		return ImportResult{Message: "All " + s.schema.plural() + " already exist"}, nil
	}
	noun := s.schema.plural()
	if n == 1 {
		noun = s.schema.singular()
	}
	return ImportResult{
		ImportedCount: n,
		Message:       fmt.Sprintf("%d %s imported successfully", n, noun),
	}, nil
}

func (s *Service[E]) prepare(op string, payload *E) error {
	if s.schema.Prepare != nil {
		if err := s.schema.Prepare(payload); err != nil {
			return shared.Validation(op, err.Error())
		}
	}
	if err := s.validate.Struct(*payload); err != nil {
		return s.schema.validationError(op, err)
	}
	return nil
}

// normalizeValue passes value through Prepare as the field of an otherwise
// empty entity, so it compares the way Create would store it.
func (s *Service[E]) normalizeValue(field, value string) string {
	if s.schema.Prepare == nil {
		return value
	}
	var draft E
	if !setColumn(&draft, field, value) {
		return value
	}
	if err := s.schema.Prepare(&draft); err != nil {
		return value
	}
	if v := s.schema.valueOf(draft, field); v != "" {
		return v
	}
	return value
}

func (s *Service[E]) checkID(op string, id shared.ID) error {
	if id <= 0 {
		return shared.Validation(op, "invalid "+strings.ToLower(s.schema.Entity)+" id")
	}
	return nil
}

func (s *Service[E]) op(name string) string {
	return s.schema.Table + " " + name
}

func (s *Service[E]) observe(op string, err *error) {
	if s.observer != nil {
		s.observer.ObserveLifecycle(s.schema.Table, op, *err)
	}
}
