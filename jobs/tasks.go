package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/shipdesk/shipdesk/internal/jobs"
	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBulkImport is the task type for queued bulk imports.
	TaskBulkImport = "lifecycle:bulk_import"

	maxImportRetry = 3
)

// BulkImportPayload carries one queued import.
type BulkImportPayload struct {
	Table     string          `json:"table"`
	ActorID   shared.ID       `json:"actor_id"`
	ActorRole string          `json:"actor_role"`
	StaffID   shared.ID       `json:"staff_id,omitempty"`
	Rows      json.RawMessage `json:"rows"`
}

func (p BulkImportPayload) actor() shared.Actor {
	return shared.Actor{ID: p.ActorID, Role: p.ActorRole, StaffID: p.StaffID}
}

// NewBulkImportTask constructs an Asynq task with a fresh task id.
func NewBulkImportTask(payload BulkImportPayload) (*asynq.Task, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	id := uuid.NewString()
	task := asynq.NewTask(TaskBulkImport, data,
		asynq.TaskID(id),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxImportRetry),
	)
	return task, id, nil
}

// ImportHandler runs queued imports against the registered importers.
type ImportHandler struct {
	importers map[string]lifecycle.Importer
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewImportHandler builds an ImportHandler over importers keyed by table.
func NewImportHandler(importers map[string]lifecycle.Importer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{importers: importers, logger: logger, metrics: metrics}
}

// TaskHandler exposes the handler for worker registration.
func (h *ImportHandler) TaskHandler() TaskHandler {
	return TaskHandler{Type: TaskBulkImport, Handler: h.Handle}
}

// Handle processes TaskBulkImport tasks. Malformed payloads, unknown tables
// and rejected rows are not retried.
func (h *ImportHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BulkImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode bulk import: %v: %w", err, asynq.SkipRetry)
	}
	importer, ok := h.importers[payload.Table]
	if !ok {
		return fmt.Errorf("bulk import: unknown table %q: %w", payload.Table, asynq.SkipRetry)
	}

	tracker := h.metrics.Track(TaskBulkImport)
	res, err := importer.ImportJSON(ctx, payload.actor(), payload.Rows)
	if err != nil {
		_ = tracker.End(err)
		h.logger.Error("bulk import failed",
			slog.String("table", payload.Table),
			slog.Any("error", err),
		)
		if errors.Is(err, shared.ErrValidation) {
			return fmt.Errorf("bulk import %s: %w: %w", payload.Table, err, asynq.SkipRetry)
		}
		return err
	}
	_ = tracker.End(nil)
	h.metrics.AddImported(payload.Table, res.ImportedCount)
	h.logger.Info("bulk import finished",
		slog.String("table", payload.Table),
		slog.Int("imported", res.ImportedCount),
		slog.String("message", res.Message),
	)
	return nil
}
