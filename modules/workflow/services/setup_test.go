package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/pkg/eventbus"
)

var (
	testActor = record.Actor{ID: uuid.MustParse("0b6f3c1e-8f9a-4d7b-a8b4-3c2d1e0f9a8b"), Name: "checker"}
	testNow   = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return testNow }

type recordKey struct {
	entity record.EntityType
	id     string
}

// memStore is an in-memory Store and history.Repository.
type memStore struct {
	mu         sync.Mutex
	records    map[recordKey]*record.Record
	history    []history.Entry
	writes     int
	failWrites error
	failReads  error
	optimistic bool
}

func newMemStore(records ...*record.Record) *memStore {
	s := &memStore{records: map[recordKey]*record.Record{}}
	for _, r := range records {
		s.records[recordKey{r.Entity, r.ID}] = r.Clone()
	}
	return s
}

func (s *memStore) ReadRecord(_ context.Context, entity record.EntityType, id string) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	r, ok := s.records[recordKey{entity, id}]
	if !ok {
		return nil, record.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *memStore) WriteRecord(_ context.Context, w Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	key := recordKey{w.Record.Entity, w.Record.ID}
	current, exists := s.records[key]
	switch {
	case w.Create && exists:
		return record.ErrVersionConflict
	case !w.Create && !exists:
		return record.ErrNotFound
	case s.optimistic && exists && current.Version != w.ExpectedVersion:
		return record.ErrVersionConflict
	}
	s.records[key] = w.Record.Clone()
	s.history = append(s.history, w.History)
	s.writes++
	return nil
}

func (s *memStore) List(_ context.Context, entity record.EntityType, id string) ([]history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []history.Entry
	for _, e := range s.history {
		if e.Entity == entity && e.RecordID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) Find(_ context.Context, params record.FindParams) ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*record.Record
	for key, r := range s.records {
		if key.entity != params.Entity {
			continue
		}
		if params.RequestStatus != record.RequestNone && r.RequestStatus != params.RequestStatus {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if params.Offset > 0 {
		out = out[min(params.Offset, len(out)):]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *memStore) get(entity record.EntityType, id string) *record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[recordKey{entity, id}].Clone()
}

// flakyStore fails the write of selected ids.
type flakyStore struct {
	*memStore
	failIDs map[string]error
}

func (s *flakyStore) WriteRecord(ctx context.Context, w Write) error {
	if err, ok := s.failIDs[w.Record.ID]; ok {
		return err
	}
	return s.memStore.WriteRecord(ctx, w)
}

type progressRecorder struct {
	mu     sync.Mutex
	events []Progress
	err    error
}

func (p *progressRecorder) Report(_ context.Context, pr Progress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pr)
	return p.err
}

func newTestDeps(store Store) (Dependencies, eventbus.EventBusWithError) {
	bus := eventbus.NewEventPublisher(nil)
	deps := Dependencies{
		Store:     store,
		Publisher: bus,
		Clock:     fixedClock,
		Batch:     NewBatchProcessor(5, WithBatchClock(fixedClock)),
	}
	if h, ok := store.(history.Repository); ok {
		deps.History = h
	}
	return deps, bus
}

var errDiskFull = errors.New("disk full")
