package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store for tests and local dev.
type Memory struct {
	mu   sync.Mutex
	docs map[string]map[string]*memDoc
	seq  int64
	now  func() time.Time
}

type memDoc struct {
	data      map[string]any
	seq       int64
	createdAt time.Time
	updatedAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]map[string]*memDoc),
		now:  time.Now,
	}
}

func (m *Memory) Get(_ context.Context, collection, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.record(id)
}

func (m *Memory) Create(_ context.Context, collection string, data any) (string, error) {
	fields, err := toFields(data)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]*memDoc)
	}
	id := uuid.NewString()
	now := m.now()
	m.seq++
	m.docs[collection][id] = &memDoc{data: fields, seq: m.seq, createdAt: now, updatedAt: now}
	return id, nil
}

// Put stores data under a caller-chosen id, replacing any existing document.
func (m *Memory) Put(collection, id string, data any) error {
	fields, err := toFields(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]*memDoc)
	}
	now := m.now()
	m.seq++
	m.docs[collection][id] = &memDoc{data: fields, seq: m.seq, createdAt: now, updatedAt: now}
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mergeLocked(collection, id, fields)
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.docs[collection], id)
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, preds ...Predicate) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type hit struct {
		id string
		d  *memDoc
	}
	var hits []hit
	for id, d := range m.docs[collection] {
		ok, err := matchAll(d.data, preds)
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, hit{id: id, d: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d.seq < hits[j].d.seq })

	out := make([]Record, 0, len(hits))
	for _, h := range hits {
		rec, err := h.d.record(h.id)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Mutate holds the store lock for the whole callback.
func (m *Memory) Mutate(_ context.Context, collection, id string, fn MutateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	rec, err := d.record(id)
	if err != nil {
		return err
	}
	fields, err := fn(*rec)
	if err != nil {
		return err
	}
	if fields == nil {
		return nil
	}
	return m.mergeLocked(collection, id, fields)
}

func (m *Memory) mergeLocked(collection, id string, fields map[string]any) error {
	d, ok := m.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	// Round-trip through JSON so stored values look the same as in Postgres.
	normalized, err := toFields(fields)
	if err != nil {
		return fmt.Errorf("encode %s fields: %w", collection, err)
	}
	for k, v := range normalized {
		d.data[k] = v
	}
	d.updatedAt = m.now()
	return nil
}

func (d *memDoc) record(id string) (*Record, error) {
	b, err := json.Marshal(d.data)
	if err != nil {
		return nil, err
	}
	return &Record{ID: id, Data: b, CreatedAt: d.createdAt, UpdatedAt: d.updatedAt}, nil
}

func toFields(data any) (map[string]any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func matchAll(data map[string]any, preds []Predicate) (bool, error) {
	for _, p := range preds {
		ok, err := match(data[p.Field], p)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(field any, p Predicate) (bool, error) {
	if field == nil {
		return false, nil
	}
	var cmp int
	switch want := p.Value.(type) {
	case time.Time:
		s, ok := field.(string)
		if !ok {
			return false, nil
		}
		got, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return false, nil
		}
		cmp = got.Compare(want)
	case bool:
		got, ok := field.(bool)
		if !ok {
			return false, nil
		}
		if p.Op != OpEq {
			return false, fmt.Errorf("operator %q not supported for bool", p.Op)
		}
		return got == want, nil
	default:
		got, w := fmt.Sprint(field), fmt.Sprint(p.Value)
		switch {
		case got < w:
			cmp = -1
		case got > w:
			cmp = 1
		}
	}

	switch p.Op {
	case OpEq:
		return cmp == 0, nil
	case OpGte:
		return cmp >= 0, nil
	case OpLte:
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", p.Op)
	}
}
