package lifecycle

import (
	"context"
	"time"

	"github.com/shipdesk/shipdesk/internal/shared"
)

// Store persists entities of one schema. Implementations return shared
// kind errors: ErrNotFound for a missing target, ErrConflict for a unique
// violation and ErrPersistence for anything else.
type Store[E any] interface {
	// Insert writes e, whose create stamp is already set, and returns the stored row.
	Insert(ctx context.Context, e E) (E, error)
	// Update writes the mutable columns and the update stamp of e onto row id.
	Update(ctx context.Context, id shared.ID, e E) (E, error)
	Get(ctx context.Context, id shared.ID) (E, error)
	// List returns rows ordered by id descending; a zero mode returns every row.
	List(ctx context.Context, mode StatusMode) ([]E, error)
	// MarkDeleted stamps deletion on a row that is not yet deleted.
	MarkDeleted(ctx context.Context, id shared.ID, actor shared.Actor, at time.Time) (E, error)
	// Restore clears deletion on a deleted row and stamps the update columns.
	Restore(ctx context.Context, id shared.ID, actor shared.Actor, at time.Time) (E, error)
	Delete(ctx context.Context, id shared.ID) error
	// CountValue counts non-deleted rows holding value in field, skipping excludeID.
	CountValue(ctx context.Context, field, value string, excludeID *shared.ID) (int, error)
	// ExistingKeys returns which of keys are already held by non-deleted rows.
	ExistingKeys(ctx context.Context, field string, keys []string) (map[string]struct{}, error)
	// InsertMany writes rows atomically, silently skipping unique violations,
	// and returns how many rows were written.
	InsertMany(ctx context.Context, rows []E) (int, error)
}
