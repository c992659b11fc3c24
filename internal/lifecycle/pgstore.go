package lifecycle

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

const uniqueViolation = "23505"

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGStore is the PostgreSQL Store. All SQL is derived from the schema.
type PGStore[E any] struct {
	schema Schema[E]
	pool   *pgxpool.Pool
	db     dbtx
}

// NewPGStore constructs a PGStore backed by pool.
func NewPGStore[E any](schema Schema[E], pool *pgxpool.Pool) *PGStore[E] {
	return &PGStore[E]{schema: schema, pool: pool, db: pool}
}

func (s *PGStore[E]) Insert(ctx context.Context, e E) (E, error) {
	query, args := s.insertSQL(e, false)
	return s.one(ctx, "insert", query, args)
}

func (s *PGStore[E]) Update(ctx context.Context, id shared.ID, e E) (E, error) {
	query, args := s.updateSQL(id, e)
	return s.one(ctx, "update", query, args)
}

func (s *PGStore[E]) Get(ctx context.Context, id shared.ID) (E, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.schema.selectList(), s.schema.table())
	return s.one(ctx, "get", query, []any{id})
}

func (s *PGStore[E]) List(ctx context.Context, mode StatusMode) ([]E, error) {
	query, err := s.listSQL(mode)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, s.classify("list", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[E])
	if err != nil {
		return nil, s.classify("list", err)
	}
	return items, nil
}

func (s *PGStore[E]) MarkDeleted(ctx context.Context, id shared.ID, actor shared.Actor, at time.Time) (E, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET deleted_at = $1, deleted_by = $2, deleted_by_role = $3 WHERE id = $4 AND deleted_at IS NULL RETURNING %s",
		s.schema.table(), s.schema.selectList())
	return s.one(ctx, "soft delete", query, []any{at, actor.ID, actor.Role, id})
}

func (s *PGStore[E]) Restore(ctx context.Context, id shared.ID, actor shared.Actor, at time.Time) (E, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET deleted_at = NULL, deleted_by = NULL, deleted_by_role = NULL, updated_at = $1, updated_by = $2, updated_by_role = $3 WHERE id = $4 AND deleted_at IS NOT NULL RETURNING %s",
		s.schema.table(), s.schema.selectList())
	return s.one(ctx, "restore", query, []any{at, actor.ID, actor.Role, id})
}

func (s *PGStore[E]) Delete(ctx context.Context, id shared.ID) error {
	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.schema.table()), id)
	if err != nil {
		return s.classify("hard delete", err)
	}
	if tag.RowsAffected() == 0 {
		return s.notFound("hard delete", id)
	}
	return nil
}

func (s *PGStore[E]) CountValue(ctx context.Context, field, value string, excludeID *shared.ID) (int, error) {
	query, args := s.countSQL(field, value, excludeID)
	var n int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, s.classify("check uniqueness", err)
	}
	return n, nil
}

func (s *PGStore[E]) ExistingKeys(ctx context.Context, field string, keys []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(keys) == 0 {
		return found, nil
	}
	query := fmt.Sprintf("SELECT %[1]s::text FROM %[2]s WHERE deleted_at IS NULL AND %[1]s::text = ANY($1)", ident(field), s.schema.table())
	rows, err := s.db.Query(ctx, query, keys)
	if err != nil {
		return nil, s.classify("existing keys", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, s.classify("existing keys", err)
	}
	for _, v := range values {
		found[strings.TrimSpace(v)] = struct{}{}
	}
	return found, nil
}

func (s *PGStore[E]) InsertMany(ctx context.Context, items []E) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		query, args := s.insertSQL(item, true)
		batch.Queue(query, args...)
	}
	var inserted int
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		n, err := db.ExecBatch(ctx, tx, batch)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, s.classify("bulk import", err)
	}
	return inserted, nil
}

func (s *PGStore[E]) one(ctx context.Context, op, query string, args []any) (E, error) {
	var zero E
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return zero, s.classify(op, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[E])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, s.notFound(op, idArg(args))
		}
		return zero, s.classify(op, err)
	}
	return item, nil
}

func (s *PGStore[E]) notFound(op string, id shared.ID) error {
	return shared.NotFound(s.schema.Table+" "+op, fmt.Sprintf("%s with id %s not found", s.schema.Entity, id))
}

func (s *PGStore[E]) classify(op string, err error) error {
	op = s.schema.Table + " " + op
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field := constraintField(pgErr.ConstraintName, s.schema.Unique)
		msg := s.schema.Entity + " already exists"
		if field != "" {
			msg = s.schema.label(field) + " is already in use"
		}
		return shared.Conflict(op, msg, err)
	}
	return shared.Persistence(op, err)
}

// constraintField guesses the unique column from a constraint name such as
// bad_pincodes_pincode_active_key.
func constraintField(constraint string, unique []string) string {
	for _, field := range unique {
		if strings.Contains(constraint, "_"+field+"_") || strings.HasSuffix(constraint, "_"+field) {
			return field
		}
	}
	if len(unique) == 1 {
		return unique[0]
	}
	return ""
}

// idArg picks the id argument out of single-row statements; it is always
// the last shared.ID in the list.
func idArg(args []any) shared.ID {
	for i := len(args) - 1; i >= 0; i-- {
		if id, ok := args[i].(shared.ID); ok {
			return id
		}
	}
	return 0
}

// ============================================================================
// SQL BUILDERS
// ============================================================================

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (s *PGStore[E]) insertSQL(e E, skipConflicts bool) (string, []any) {
	meta := s.schema.Meta(&e)
	values := s.schema.Values(e)
	cols := []string{"status", "created_by", "created_by_role", "created_at"}
	args := []any{meta.Status, meta.CreatedBy, meta.CreatedByRole, meta.CreatedAt}
	for _, c := range s.schema.Columns {
		cols = append(cols, c)
		args = append(args, values[c])
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
		marks[i] = placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.schema.table(), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if skipConflicts {
		return query + " ON CONFLICT DO NOTHING", args
	}
	return query + " RETURNING " + s.schema.selectList(), args
}

func (s *PGStore[E]) updateSQL(id shared.ID, e E) (string, []any) {
	meta := s.schema.Meta(&e)
	values := s.schema.Values(e)
	sets := make([]string, 0, len(s.schema.Mutable)+3)
	args := make([]any, 0, len(s.schema.Mutable)+4)
	for _, c := range s.schema.Mutable {
		if c == "status" {
			args = append(args, meta.Status)
		} else {
			args = append(args, values[c])
		}
		sets = append(sets, ident(c)+" = "+placeholder(len(args)))
	}
	args = append(args, meta.UpdatedBy, meta.UpdatedByRole, meta.UpdatedAt)
	n := len(args)
	sets = append(sets,
		"updated_by = "+placeholder(n-2),
		"updated_by_role = "+placeholder(n-1),
		"updated_at = "+placeholder(n),
	)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s RETURNING %s",
		s.schema.table(), strings.Join(sets, ", "), placeholder(len(args)), s.schema.selectList())
	return query, args
}

func (s *PGStore[E]) listSQL(mode StatusMode) (string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", s.schema.selectList(), s.schema.table())
	if mode != 0 {
		clause, err := mode.Clause()
		if err != nil {
			return "", err
		}
		query += " WHERE " + clause
	}
	return query + " ORDER BY id DESC", nil
}

func (s *PGStore[E]) countSQL(field, value string, excludeID *shared.ID) (string, []any) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL AND %s = $1", s.schema.table(), ident(field))
	args := []any{value}
	if excludeID != nil {
		query += " AND id <> $2"
		args = append(args, *excludeID)
	}
	return query, args
}
