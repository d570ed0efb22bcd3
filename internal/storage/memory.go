package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore keeps records in process. Records are scored in insertion
// order, so ties resolve to the record that was inserted first.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if _, ok := m.records[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.records[r.ID] = cloneRecord(r)
	}
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		records = append(records, m.records[id])
	}
	matches := rank(embedding, records, topK, filter)
	for i := range matches {
		matches[i].Record = cloneRecord(matches[i].Record)
	}
	return matches, nil
}

func (m *MemoryStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.records, id)
	}
	m.compact()
	return nil
}

func (m *MemoryStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.records {
		if filter.Matches(r.Metadata) {
			delete(m.records, id)
		}
	}
	m.compact()
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) Close() error {
	return nil
}

// compact drops order entries whose record is gone. Caller holds the lock.
func (m *MemoryStore) compact() {
	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		_, ok := m.records[id]
		return !ok
	})
}

func cloneRecord(r Record) Record {
	r.Embedding = slices.Clone(r.Embedding)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}
