package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/kiosk/services/kiosk/internal/changestream"
)

const watchBuffer = 256

// MemoryStore keeps sessions in process and feeds its own writes to open
// change streams, standing in for a database change feed.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	watchers map[int]chan changestream.Change[Record]
	nextID   int
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		watchers: make(map[int]chan changestream.Change[Record]),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	r, ok := m.records[id]
	m.mu.RUnlock()
	if !ok || r.Expired(m.now()) {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) Put(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op := changestream.OpInsert
	if _, ok := m.records[r.ID]; ok {
		op = changestream.OpUpdate
	}
	m.records[r.ID] = *r
	doc := *r
	m.publish(changestream.Change[Record]{Operation: op, Key: r.ID, Document: &doc})
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	m.publish(changestream.Change[Record]{Operation: changestream.OpDelete, Key: id})
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		if r.Expired(now) {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Open implements changestream.Source.
func (m *MemoryStore) Open(ctx context.Context) (changestream.Stream[Record], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan changestream.Change[Record], watchBuffer)
	m.watchers[id] = ch
	return &memoryStream{store: m, id: id, ch: ch}, nil
}

func (m *MemoryStore) publish(c changestream.Change[Record]) {
	for _, ch := range m.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}

type memoryStream struct {
	store   *MemoryStore
	id      int
	ch      chan changestream.Change[Record]
	current changestream.Change[Record]
}

func (s *memoryStream) Next(ctx context.Context) bool {
	select {
	case c := <-s.ch:
		s.current = c
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *memoryStream) Change() changestream.Change[Record] { return s.current }

func (s *memoryStream) Err() error { return nil }

func (s *memoryStream) Close(ctx context.Context) error {
	s.store.mu.Lock()
	delete(s.store.watchers, s.id)
	s.store.mu.Unlock()
	return nil
}
