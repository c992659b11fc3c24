package lifecycle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shipdesk/shipdesk/internal/shared"
)

type pincode struct {
	Record
	Pincode string `db:"pincode" json:"pincode" validate:"required,pincode"`
	City    string `db:"city" json:"city"`
}

func pincodeSchema(mutable ...string) Schema[pincode] {
	if len(mutable) == 0 {
		mutable = []string{"pincode", "city", "status"}
	}
	return Schema[pincode]{
		Entity:   "Pincode",
		Table:    "bad_pincodes",
		Columns:  []string{"pincode", "city"},
		Mutable:  mutable,
		Unique:   []string{"pincode"},
		KeyField: "pincode",
		Values: func(p pincode) map[string]any {
			return map[string]any{"pincode": p.Pincode, "city": p.City}
		},
		Meta: func(p *pincode) *Record { return &p.Record },
		Prepare: func(p *pincode) error {
			p.Pincode = strings.Join(strings.Fields(p.Pincode), "")
			return nil
		},
	}.MustCheck()
}

var (
	owner    = shared.Actor{ID: 7, Role: "Admin"}
	operator = shared.Actor{ID: 9, Role: "Supplier"}
	fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

func newPin(code string, active bool) pincode {
	return pincode{Record: Record{Status: active}, Pincode: code}
}

type observation struct {
	entity string
	op     string
	err    error
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveLifecycle(entity, op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{entity: entity, op: op, err: err})
}

// countingStore wraps a MemStore and counts List calls.
type countingStore struct {
	*MemStore[pincode]
	lists int
}

func (s *countingStore) List(ctx context.Context, mode StatusMode) ([]pincode, error) {
	s.lists++
	return s.MemStore.List(ctx, mode)
}

func newTestService(schema Schema[pincode]) (*Service[pincode], *countingStore, *recordingObserver) {
	store := &countingStore{MemStore: NewMemStore(schema)}
	obs := &recordingObserver{}
	svc := NewService[pincode](schema, store, ServiceConfig{
		Clock:    func() time.Time { return fixedNow },
		Observer: obs,
	})
	return svc, store, obs
}
