package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memoryStore struct {
	mu      sync.Mutex
	records []Record
	err     error
	panics  bool
	lastCtx context.Context
}

func (m *memoryStore) Insert(ctx context.Context, rec Record) error {
	if m.panics {
		panic("boom")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCtx = ctx
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryStore) List(_ context.Context, f Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Record{}
	for i := len(m.records) - 1; i >= 0; i-- {
		if f.EntityType != "" && m.records[i].EntityType != f.EntityType {
			continue
		}
		out = append(out, m.records[i])
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func TestRecordPersistsEntry(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store, zap.NewNop())
	actor := Actor{UserID: uuid.New(), IPAddress: "10.0.0.1", UserAgent: "curl/8"}

	rec.Record(context.Background(), Entry{
		Actor:      actor,
		Action:     ActionCreate,
		EntityType: EntityProducts,
		EntityID:   "p-1",
		NewData:    map[string]any{"code": "B-001"},
	})

	if len(store.records) != 1 {
		t.Fatalf("expected one record, got %d", len(store.records))
	}
	got := store.records[0]
	if got.ID == uuid.Nil || got.UserID != actor.UserID {
		t.Fatalf("unexpected identifiers %+v", got)
	}
	if got.OldData != nil || got.NewData["code"] != "B-001" {
		t.Fatalf("unexpected snapshots %+v", got)
	}
	if got.EntityID == nil || *got.EntityID != "p-1" {
		t.Fatalf("unexpected entity id %v", got.EntityID)
	}
	if got.IPAddress == nil || *got.IPAddress != "10.0.0.1" || got.UserAgent == nil {
		t.Fatalf("missing request metadata %+v", got)
	}
	if !got.CreatedAt.IsZero() {
		t.Fatalf("created_at belongs to the store clock, got %s", got.CreatedAt)
	}
}

func TestRecordSessionEventHasNoEntityID(t *testing.T) {
	store := &memoryStore{}
	NewRecorder(store, nil).Record(context.Background(), Entry{
		Actor:      Actor{UserID: uuid.New()},
		Action:     ActionLogin,
		EntityType: EntityUsers,
	})
	if len(store.records) != 1 {
		t.Fatalf("expected record")
	}
	if store.records[0].EntityID != nil || store.records[0].IPAddress != nil {
		t.Fatalf("expected absent optional fields, got %+v", store.records[0])
	}
}

func TestRecordDropsInvalidEntries(t *testing.T) {
	cases := map[string]Entry{
		"missing actor":  {Action: ActionCreate, EntityType: EntityProducts},
		"unknown action": {Actor: Actor{UserID: uuid.New()}, Action: "ARCHIVE", EntityType: EntityProducts},
		"unknown entity": {Actor: Actor{UserID: uuid.New()}, Action: ActionCreate, EntityType: "widgets"},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			store := &memoryStore{}
			NewRecorder(store, zap.NewNop()).Record(context.Background(), entry)
			if len(store.records) != 0 {
				t.Fatalf("expected entry to be dropped")
			}
		})
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := &memoryStore{err: errors.New("connection refused")}
	rec := NewRecorder(store, zap.New(core))

	rec.Record(context.Background(), Entry{
		Actor:      Actor{UserID: uuid.New()},
		Action:     ActionDelete,
		EntityType: EntityStock,
		EntityID:   "s-1",
	})

	if logs.FilterMessage("failed to persist audit log").Len() != 1 {
		t.Fatalf("expected failure to be logged, got %v", logs.All())
	}
}

func TestRecordSwallowsPanics(t *testing.T) {
	store := &memoryStore{panics: true}
	NewRecorder(store, zap.NewNop()).Record(context.Background(), Entry{
		Actor:      Actor{UserID: uuid.New()},
		Action:     ActionUpdate,
		EntityType: EntityOrders,
	})
}

func TestRecordSurvivesCanceledRequest(t *testing.T) {
	store := &memoryStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRecorder(store, zap.NewNop()).Record(ctx, Entry{
		Actor:      Actor{UserID: uuid.New()},
		Action:     ActionCreate,
		EntityType: EntityIgrejas,
	})

	if len(store.records) != 1 {
		t.Fatalf("expected record despite canceled request")
	}
	if err := store.lastCtx.Err(); err != nil {
		t.Fatalf("store context should not inherit cancellation: %v", err)
	}
}

func TestListNormalizesPagination(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store, zap.NewNop())
	actor := Actor{UserID: uuid.New()}
	for i := 0; i < 3; i++ {
		rec.Record(context.Background(), Entry{Actor: actor, Action: ActionCreate, EntityType: EntityProducts})
	}
	rec.Record(context.Background(), Entry{Actor: actor, Action: ActionCreate, EntityType: EntityStock})

	got, err := rec.List(context.Background(), Filter{EntityType: EntityProducts})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 product records, got %d", len(got))
	}
}

func TestFilterNormalize(t *testing.T) {
	cases := []struct {
		in         Filter
		limit, off int
	}{
		{Filter{}, DefaultLimit, 0},
		{Filter{Limit: 10, Offset: 5}, 10, 5},
		{Filter{Limit: 5000, Offset: -1}, MaxLimit, 0},
	}
	for _, tc := range cases {
		got := tc.in.Normalize()
		if got.Limit != tc.limit || got.Offset != tc.off {
			t.Fatalf("normalize(%+v) = %+v", tc.in, got)
		}
	}
}
