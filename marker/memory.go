package marker

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	puts    []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Done(_ context.Context, stage string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[stage]
	return ok, nil
}

func (m *MemoryStore) Get(_ context.Context, stage string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[stage]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	if _, err := Encode(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Stage] = rec
	m.puts = append(m.puts, rec.Stage)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, stage)
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.records)
	return nil
}

func (m *MemoryStore) Location() string { return "memory" }

// Stages returns the stages that currently have markers, sorted.
func (m *MemoryStore) Stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.records))
}

// Puts returns every stage passed to Put, in call order.
func (m *MemoryStore) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.puts)
}

var _ Store = (*MemoryStore)(nil)
