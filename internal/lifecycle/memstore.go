package lifecycle

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/shipdesk/shipdesk/internal/shared"
)

// MemStore is an in-process Store with the same semantics as PGStore,
// including partial unique indexes over non-deleted rows. It backs the
// memory store driver and the service tests.
type MemStore[E any] struct {
	schema Schema[E]

	mu     sync.RWMutex
	rows   map[shared.ID]E
	nextID shared.ID
}

// NewMemStore constructs an empty MemStore.
func NewMemStore[E any](schema Schema[E]) *MemStore[E] {
	return &MemStore[E]{schema: schema, rows: make(map[shared.ID]E), nextID: 1}
}

func (s *MemStore[E]) Insert(ctx context.Context, e E) (E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero E
	if err := s.checkUnique(e, 0, "insert"); err != nil {
		return zero, err
	}
	meta := s.schema.Meta(&e)
	meta.ID = s.nextID
	meta.UpdatedBy, meta.UpdatedByRole, meta.UpdatedAt = nil, nil, nil
	meta.clearDelete()
	s.nextID++
	s.rows[meta.ID] = e
	return e, nil
}

func (s *MemStore[E]) Update(ctx context.Context, id shared.ID, e E) (E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero E
	merged, ok := s.rows[id]
	if !ok {
		return zero, s.notFound("update", id)
	}
	copyColumns(&merged, e, s.schema.Mutable)
	stamp := s.schema.Meta(&e)
	meta := s.schema.Meta(&merged)
	if lo.Contains(s.schema.Mutable, "status") {
		meta.Status = stamp.Status
	}
	meta.UpdatedBy, meta.UpdatedByRole, meta.UpdatedAt = stamp.UpdatedBy, stamp.UpdatedByRole, stamp.UpdatedAt
	if err := s.checkUnique(merged, id, "update"); err != nil {
		return zero, err
	}
	s.rows[id] = merged
	return merged, nil
}

func (s *MemStore[E]) Get(ctx context.Context, id shared.ID) (E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rows[id]
	if !ok {
		var zero E
		return zero, s.notFound("get", id)
	}
	return e, nil
}

func (s *MemStore[E]) List(ctx context.Context, mode StatusMode) ([]E, error) {
	if mode != 0 && !mode.Valid() {
		return nil, shared.Validation(s.schema.Table+" list", "Invalid status")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]shared.ID, 0, len(s.rows))
	for id, e := range s.rows {
		if mode != 0 && !mode.Matches(*s.schema.Meta(&e)) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	items := make([]E, 0, len(ids))
	for _, id := range ids {
		items = append(items, s.rows[id])
	}
	return items, nil
}

func (s *MemStore[E]) MarkDeleted(ctx context.Context, id shared.ID, actor shared.Actor, at time.Time) (E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero E
	e, ok := s.rows[id]
	if !ok || s.schema.Meta(&e).IsDeleted() {
		return zero, s.notFound("soft delete", id)
	}
	s.schema.Meta(&e).stampDelete(actor, at)
	s.rows[id] = e
	return e, nil
}

func (s *MemStore[E]) Restore(ctx context.Context, id shared.ID, actor shared.Actor, at time.Time) (E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero E
	e, ok := s.rows[id]
	if !ok || !s.schema.Meta(&e).IsDeleted() {
		return zero, s.notFound("restore", id)
	}
	meta := s.schema.Meta(&e)
	meta.clearDelete()
	if err := s.checkUnique(e, id, "restore"); err != nil {
		return zero, err
	}
	meta.stampUpdate(actor, at)
	s.rows[id] = e
	return e, nil
}

func (s *MemStore[E]) Delete(ctx context.Context, id shared.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return s.notFound("hard delete", id)
	}
	delete(s.rows, id)
	return nil
}

func (s *MemStore[E]) CountValue(ctx context.Context, field, value string, excludeID *shared.ID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for id, e := range s.rows {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if s.schema.Meta(&e).IsDeleted() {
			continue
		}
		if s.schema.valueOf(e, field) == value {
			n++
		}
	}
	return n, nil
}

func (s *MemStore[E]) ExistingKeys(ctx context.Context, field string, keys []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	found := make(map[string]struct{})
	for _, e := range s.rows {
		if s.schema.Meta(&e).IsDeleted() {
			continue
		}
		v := s.schema.valueOf(e, field)
		if _, ok := wanted[v]; ok {
			found[v] = struct{}{}
		}
	}
	return found, nil
}

func (s *MemStore[E]) InsertMany(ctx context.Context, items []E) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, e := range items {
		if err := s.checkUnique(e, 0, "bulk import"); err != nil {
			continue
		}
		meta := s.schema.Meta(&e)
		meta.ID = s.nextID
		s.nextID++
		s.rows[meta.ID] = e
		inserted++
	}
	return inserted, nil
}

// checkUnique must be called with the lock held.
func (s *MemStore[E]) checkUnique(e E, self shared.ID, op string) error {
	if s.schema.Meta(&e).IsDeleted() {
		return nil
	}
	for _, field := range s.schema.Unique {
		value := s.schema.valueOf(e, field)
		if value == "" {
			continue
		}
		for id, other := range s.rows {
			if id == self || s.schema.Meta(&other).IsDeleted() {
				continue
			}
			if s.schema.valueOf(other, field) == value {
				return shared.Conflict(s.schema.Table+" "+op, s.schema.label(field)+" is already in use", nil)
			}
		}
	}
	return nil
}

func (s *MemStore[E]) notFound(op string, id shared.ID) error {
	return shared.NotFound(s.schema.Table+" "+op, fmt.Sprintf("%s with id %s not found", s.schema.Entity, id))
}

// copyColumns copies the struct fields tagged with the given db columns
// from src onto dst, descending into embedded structs.
func copyColumns[E any](dst *E, src E, cols []string) {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src)
	for _, col := range cols {
		if col == "status" {
			continue
		}
		df, ok := fieldByColumn(dv, col)
		if !ok {
			continue
		}
		sf, _ := fieldByColumn(sv, col)
		df.Set(sf)
	}
}

// setColumn assigns raw to the string field tagged col and reports whether
// such a field exists.
func setColumn[E any](e *E, col, raw string) bool {
	fv, ok := fieldByColumn(reflect.ValueOf(e).Elem(), col)
	if !ok || !fv.CanSet() {
		return false
	}
	switch {
	case fv.Kind() == reflect.String:
		fv.SetString(raw)
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.String:
		ptr := reflect.New(fv.Type().Elem())
		ptr.Elem().SetString(raw)
		fv.Set(ptr)
	default:
		return false
	}
	return true
}

func fieldByColumn(v reflect.Value, col string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if fv, ok := fieldByColumn(v.Field(i), col); ok {
				return fv, true
			}
			continue
		}
		if name, _, _ := strings.Cut(f.Tag.Get("db"), ","); name == col {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
