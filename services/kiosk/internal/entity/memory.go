package entity

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryBackend keeps documents as BSON in insertion order. Filters are
// evaluated against the encoded form so field names and value encodings
// match what the Mongo backend sees.
type MemoryBackend[E any] struct {
	mu    sync.RWMutex
	docs  map[uuid.UUID]bson.Raw
	order []uuid.UUID
}

func NewMemoryBackend[E any]() *MemoryBackend[E] {
	return &MemoryBackend[E]{docs: make(map[uuid.UUID]bson.Raw)}
}

func (m *MemoryBackend[E]) Insert(ctx context.Context, e *E) error {
	id := any(e).(Identifiable).GetID()
	raw, err := bson.Marshal(e)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return ErrDuplicate
	}
	m.docs[id] = raw
	m.order = append(m.order, id)
	return nil
}

func (m *MemoryBackend[E]) Find(ctx context.Context, id uuid.UUID) (*E, error) {
	m.mu.RLock()
	raw, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decode[E](raw)
}

func (m *MemoryBackend[E]) FindOne(ctx context.Context, filter Fields) (*E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		doc, err := toMap(m.docs[id])
		if err != nil {
			return nil, err
		}
		if matches(doc, filter) {
			return decode[E](m.docs[id])
		}
	}
	return nil, nil
}

func (m *MemoryBackend[E]) List(ctx context.Context, filter Fields) ([]*E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*E, 0)
	for _, id := range m.order {
		doc, err := toMap(m.docs[id])
		if err != nil {
			return nil, err
		}
		if !matches(doc, filter) {
			continue
		}
		e, err := decode[E](m.docs[id])
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

func (m *MemoryBackend[E]) Replace(ctx context.Context, id uuid.UUID, e *E) error {
	raw, err := bson.Marshal(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	m.docs[id] = raw
	return nil
}

func (m *MemoryBackend[E]) Remove(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	m.drop(id)
	return nil
}

func (m *MemoryBackend[E]) UpdateWhere(ctx context.Context, id uuid.UUID, where, set Fields) (*E, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	doc, err := toMap(raw)
	if err != nil {
		return nil, err
	}
	if !matches(doc, where) {
		return nil, nil
	}
	updated, err := apply(doc, set)
	if err != nil {
		return nil, err
	}
	m.docs[id] = updated
	return decode[E](updated)
}

func (m *MemoryBackend[E]) UpdateMany(ctx context.Context, filter, set Fields) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range m.order {
		doc, err := toMap(m.docs[id])
		if err != nil {
			return n, err
		}
		if !matches(doc, filter) {
			continue
		}
		updated, err := apply(doc, set)
		if err != nil {
			return n, err
		}
		m.docs[id] = updated
		n++
	}
	return n, nil
}

func (m *MemoryBackend[E]) DeleteMany(ctx context.Context, filter Fields) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hit []uuid.UUID
	for _, id := range m.order {
		doc, err := toMap(m.docs[id])
		if err != nil {
			return 0, err
		}
		if matches(doc, filter) {
			hit = append(hit, id)
		}
	}
	for _, id := range hit {
		m.drop(id)
	}
	return int64(len(hit)), nil
}

func (m *MemoryBackend[E]) drop(id uuid.UUID) {
	delete(m.docs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func decode[E any](raw bson.Raw) (*E, error) {
	e := new(E)
	if err := bson.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	return e, nil
}

func toMap(raw bson.Raw) (bson.M, error) {
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func apply(doc bson.M, set Fields) (bson.Raw, error) {
	for path, v := range set {
		keys := strings.Split(path, ".")
		parent := doc
		for _, k := range keys[:len(keys)-1] {
			child, ok := asMap(parent[k])
			if !ok {
				child = bson.M{}
			}
			parent[k] = child
			parent = child
		}
		parent[keys[len(keys)-1]] = normalize(v)
	}
	return bson.Marshal(doc)
}

func matches(doc bson.M, filter Fields) bool {
	for path, want := range filter {
		got := lookup(doc, path)
		if c, ok := want.(Cond); ok {
			if !eval(got, c) {
				return false
			}
			continue
		}
		if !equal(got, normalize(want)) {
			return false
		}
	}
	return true
}

func eval(got interface{}, c Cond) bool {
	switch c.Op {
	case "$in":
		values, _ := c.Value.([]interface{})
		for _, v := range values {
			if equal(got, normalize(v)) {
				return true
			}
		}
		return false
	case "$ne":
		return !equal(got, normalize(c.Value))
	case "$lt", "$lte", "$gt", "$gte":
		cmp, ok := compare(got, normalize(c.Value))
		if !ok {
			return false
		}
		switch c.Op {
		case "$lt":
			return cmp < 0
		case "$lte":
			return cmp <= 0
		case "$gt":
			return cmp > 0
		default:
			return cmp >= 0
		}
	default:
		panic(fmt.Sprintf("entity: unsupported operator %q", c.Op))
	}
}

func lookup(doc bson.M, path string) interface{} {
	var cur interface{} = doc
	for _, k := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

func asMap(v interface{}) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]interface{}:
		return bson.M(t), true
	case primitive.D:
		m := bson.M{}
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	default:
		return nil, false
	}
}

// normalize gives v the representation it has after a BSON round trip.
func normalize(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return v
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out["v"]
}

func equal(a, b interface{}) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b interface{}) (int, bool) {
	if x, ok := a.(primitive.DateTime); ok {
		y, ok := b.(primitive.DateTime)
		if !ok {
			return 0, false
		}
		return order(int64(x), int64(y)), true
	}
	if x, ok := a.(string); ok {
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	x, okA := number(a)
	y, okB := number(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func order(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
