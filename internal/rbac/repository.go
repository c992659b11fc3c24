package rbac

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shipdesk/shipdesk/internal/platform/db"
	"github.com/shipdesk/shipdesk/internal/shared"
)

// Repository exposes the permission catalogue and grants.
type Repository interface {
	// ListPermissions returns definitions matching the non-empty arguments
	// ordered by id descending.
	ListPermissions(ctx context.Context, panel Panel, module, action string) ([]Permission, error)
	// FindPermission returns the definition for the exact triple or ErrNotFound.
	FindPermission(ctx context.Context, panel Panel, module, action string) (Permission, error)
	StaffHasGrant(ctx context.Context, staffID, permissionID shared.ID) (bool, error)
	// ListStaffGrants returns the staff grants among permissionIDs ordered by
	// permission id descending.
	ListStaffGrants(ctx context.Context, staffID shared.ID, permissionIDs []shared.ID) ([]Grant, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the grant replacement surface, bound to one transaction.
type TxRepository interface {
	// ValidPermissionIDs returns the subset of ids defined for panel.
	ValidPermissionIDs(ctx context.Context, panel Panel, ids []shared.ID) ([]shared.ID, error)
	// HeldPermissionIDs returns and locks the ids currently granted to the subject.
	HeldPermissionIDs(ctx context.Context, subject Subject, subjectID shared.ID) ([]shared.ID, error)
	RevokeGrants(ctx context.Context, subject Subject, subjectID shared.ID, ids []shared.ID) error
	InsertGrants(ctx context.Context, subject Subject, subjectID shared.ID, ids []shared.ID, actor shared.Actor, at time.Time) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository is the PostgreSQL Repository.
type PGRepository struct {
	pool *pgxpool.Pool
	q    queries
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, q: queries{db: pool}}
}

type queries struct {
	db dbtx
}

const permissionColumns = "id, panel, module, action, description, created_at"

func (r *PGRepository) ListPermissions(ctx context.Context, panel Panel, module, action string) ([]Permission, error) {
	query, args := listPermissionsSQL(panel, module, action)
	rows, err := r.q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Persistence("rbac list permissions", err)
	}
	perms, err := pgx.CollectRows(rows, pgx.RowToStructByName[Permission])
	if err != nil {
		return nil, shared.Persistence("rbac list permissions", err)
	}
	return perms, nil
}

func listPermissionsSQL(panel Panel, module, action string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, col+" = $"+strconv.Itoa(len(args)))
	}
	if panel != "" {
		add("panel", string(panel))
	}
	if module != "" {
		add("module", module)
	}
	if action != "" {
		add("action", action)
	}
	query := "SELECT " + permissionColumns + " FROM permissions"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY id DESC", args
}

func (r *PGRepository) FindPermission(ctx context.Context, panel Panel, module, action string) (Permission, error) {
	rows, err := r.q.db.Query(ctx,
		"SELECT "+permissionColumns+" FROM permissions WHERE panel = $1 AND module = $2 AND action = $3",
		string(panel), module, action)
	if err != nil {
		return Permission{}, shared.Persistence("rbac find permission", err)
	}
	perm, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Permission])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.NotFound("rbac find permission", "Permission not found")
		}
		return Permission{}, shared.Persistence("rbac find permission", err)
	}
	return perm, nil
}

func (r *PGRepository) StaffHasGrant(ctx context.Context, staffID, permissionID shared.ID) (bool, error) {
	var ok bool
	err := r.q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff_permissions WHERE staff_id = $1 AND permission_id = $2)`,
		staffID, permissionID).Scan(&ok)
	if err != nil {
		return false, shared.Persistence("rbac staff grant", err)
	}
	return ok, nil
}

func (r *PGRepository) ListStaffGrants(ctx context.Context, staffID shared.ID, permissionIDs []shared.ID) ([]Grant, error) {
	if len(permissionIDs) == 0 {
		return []Grant{}, nil
	}
	rows, err := r.q.db.Query(ctx, `
		SELECT sp.staff_id, sp.permission_id, p.panel, p.module, p.action,
		       sp.created_by, sp.created_by_role, sp.created_at
		FROM staff_permissions sp
		JOIN permissions p ON p.id = sp.permission_id
		WHERE sp.staff_id = $1 AND sp.permission_id = ANY($2)
		ORDER BY sp.permission_id DESC`, staffID, toInt64s(permissionIDs))
	if err != nil {
		return nil, shared.Persistence("rbac list staff grants", err)
	}
	grants, err := pgx.CollectRows(rows, pgx.RowToStructByName[Grant])
	if err != nil {
		return nil, shared.Persistence("rbac list staff grants", err)
	}
	return grants, nil
}

// WithTx runs fn inside a repeatable read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, queries{db: tx})
	})
	if err == nil {
		return nil
	}
	var kind *shared.Error
	if errors.As(err, &kind) {
		return err
	}
	return shared.Persistence("rbac replace grants", err)
}

func (q queries) ValidPermissionIDs(ctx context.Context, panel Panel, ids []shared.ID) ([]shared.ID, error) {
	if len(ids) == 0 {
		return []shared.ID{}, nil
	}
	rows, err := q.db.Query(ctx, `SELECT id FROM permissions WHERE panel = $1 AND id = ANY($2)`, string(panel), toInt64s(ids))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[shared.ID])
}

func (q queries) HeldPermissionIDs(ctx context.Context, subject Subject, subjectID shared.ID) ([]shared.ID, error) {
	query := fmt.Sprintf(`SELECT permission_id FROM %s WHERE %s = $1 FOR UPDATE`, subject.table(), subject.column())
	rows, err := q.db.Query(ctx, query, subjectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[shared.ID])
}

func (q queries) RevokeGrants(ctx context.Context, subject Subject, subjectID shared.ID, ids []shared.ID) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND permission_id = ANY($2)`, subject.table(), subject.column())
	_, err := q.db.Exec(ctx, query, subjectID, toInt64s(ids))
	return err
}

func (q queries) InsertGrants(ctx context.Context, subject Subject, subjectID shared.ID, ids []shared.ID, actor shared.Actor, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, permission_id, created_by, created_by_role, created_at)
		SELECT $1, unnest($2::bigint[]), $3, $4, $5
		ON CONFLICT DO NOTHING`, subject.table(), subject.column())
	_, err := q.db.Exec(ctx, query, subjectID, toInt64s(ids), actor.ID, actor.Role, at)
	return err
}

func toInt64s(ids []shared.ID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// EnsurePermissions inserts the definitions not yet in the catalogue and
// reports how many were added.
func (r *PGRepository) EnsurePermissions(ctx context.Context, defs []Permission) (int, error) {
	if len(defs) == 0 {
		return 0, nil
	}
	var added int
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, d := range defs {
			batch.Queue(`
				INSERT INTO permissions (panel, module, action, description)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (panel, module, action) DO NOTHING`,
				string(d.Panel), normalizeName(d.Module), normalizeName(d.Action), d.Description)
		}
		n, err := db.ExecBatch(ctx, tx, batch)
		if err != nil {
			return err
		}
		added = n
		return nil
	})
	if err != nil {
		return 0, shared.Persistence("rbac ensure permissions", err)
	}
	return added, nil
}
