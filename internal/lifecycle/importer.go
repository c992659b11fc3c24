package lifecycle

import (
	"context"
	"encoding/json"

	"github.com/shipdesk/shipdesk/internal/shared"
)

// Importer runs a bulk import from JSON encoded rows. It lets the job
// worker dispatch imports without knowing entity types.
type Importer interface {
	Table() string
	ImportJSON(ctx context.Context, actor shared.Actor, rows json.RawMessage) (ImportResult, error)
}

// Table returns the entity table, which doubles as the import registry key.
func (s *Service[E]) Table() string {
	return s.schema.Table
}

// ImportJSON decodes rows as a JSON array of entities and bulk imports them.
func (s *Service[E]) ImportJSON(ctx context.Context, actor shared.Actor, rows json.RawMessage) (ImportResult, error) {
	var items []E
	if err := json.Unmarshal(rows, &items); err != nil {
		return ImportResult{}, shared.Validation(s.op("bulk import"), "Invalid import rows")
	}
	return s.BulkImport(ctx, actor, items)
}
