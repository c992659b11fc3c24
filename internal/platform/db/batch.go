package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// BatchSender is satisfied by pgx.Tx and *pgxpool.Pool.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// ExecBatch sends batch and returns the rows its statements affected. A
// failed batch reports zero rows, so inside WithTx the count of a rolled
// back attempt never leaks into the next one.
func ExecBatch(ctx context.Context, sender BatchSender, batch *pgx.Batch) (int, error) {
	results := sender.SendBatch(ctx, batch)
	affected := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, err
		}
		affected += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	return affected, nil
}
