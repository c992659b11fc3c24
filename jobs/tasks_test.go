package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/shared"
)

type stubImporter struct {
	actor  shared.Actor
	rows   json.RawMessage
	result lifecycle.ImportResult
	err    error
}

func (s *stubImporter) Table() string { return "bad_pincodes" }

func (s *stubImporter) ImportJSON(ctx context.Context, actor shared.Actor, rows json.RawMessage) (lifecycle.ImportResult, error) {
	s.actor, s.rows = actor, rows
	return s.result, s.err
}

type recordingEnqueuer struct {
	task *asynq.Task
	err  error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.task = task
	if r.err != nil {
		return nil, r.err
	}
	return &asynq.TaskInfo{ID: "ignored", Queue: QueueDefault}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

func TestEnqueueImportBuildsTask(t *testing.T) {
	rec := &recordingEnqueuer{}
	client := &Client{client: rec}
	actor := shared.Actor{ID: 7, Role: "Admin", StaffID: 12}

	id, err := client.EnqueueImport(context.Background(), "bad_pincodes", actor, json.RawMessage(`[{"pincode":"110001"}]`))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, TaskBulkImport, rec.task.Type())

	var payload BulkImportPayload
	require.NoError(t, json.Unmarshal(rec.task.Payload(), &payload))
	require.Equal(t, "bad_pincodes", payload.Table)
	require.Equal(t, actor, payload.actor())
	require.JSONEq(t, `[{"pincode":"110001"}]`, string(payload.Rows))

	rec.err = errors.New("redis down")
	_, err = client.EnqueueImport(context.Background(), "bad_pincodes", actor, json.RawMessage(`[]`))
	require.ErrorIs(t, err, shared.ErrPersistence)
}

func TestImportHandlerRunsImporter(t *testing.T) {
	imp := &stubImporter{result: lifecycle.ImportResult{ImportedCount: 2, Message: "2 bad pincodes imported successfully"}}
	h := NewImportHandler(map[string]lifecycle.Importer{"bad_pincodes": imp}, nil, nil)

	task, _, err := NewBulkImportTask(BulkImportPayload{
		Table: "bad_pincodes", ActorID: 7, ActorRole: "Admin",
		Rows: json.RawMessage(`[{"pincode":"110001"},{"pincode":"110002"}]`),
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), task))
	require.Equal(t, shared.Actor{ID: 7, Role: "Admin"}, imp.actor)
}

func TestImportHandlerSkipsRetryOnPermanentFailures(t *testing.T) {
	imp := &stubImporter{}
	h := NewImportHandler(map[string]lifecycle.Importer{"bad_pincodes": imp}, nil, nil)
	ctx := context.Background()

	err := h.Handle(ctx, asynq.NewTask(TaskBulkImport, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, _, err := NewBulkImportTask(BulkImportPayload{Table: "unknown", ActorID: 1, ActorRole: "Admin"})
	require.NoError(t, err)
	require.ErrorIs(t, h.Handle(ctx, task), asynq.SkipRetry)

	imp.err = shared.Validation("bad_pincodes bulk import", "Invalid import rows")
	task, _, err = NewBulkImportTask(BulkImportPayload{Table: "bad_pincodes", ActorID: 1, ActorRole: "Admin"})
	require.NoError(t, err)
	err = h.Handle(ctx, task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, shared.ErrValidation)

	imp.err = shared.Persistence("bad_pincodes bulk import", errors.New("conn reset"))
	err = h.Handle(ctx, task)
	require.ErrorIs(t, err, shared.ErrPersistence)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueue(t *testing.T) {
	h := &Handler{inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Active: 1}}}
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":true,"queue":{"queue":"default","pending":4,"active":1,"failed":0}}`, rec.Body.String())

	h = NewHandler(nil, nil)
	r = chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
