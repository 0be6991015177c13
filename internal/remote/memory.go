package remote

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryDocumentStore is an in-process DocumentStore intended for tests and
// offline demos. Failures can be injected per operation.
type MemoryDocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]json.RawMessage
	getErr error
	setErr error
	gets   int
	sets   int
}

// NewMemoryDocumentStore returns an empty store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]map[string]json.RawMessage)}
}

// FailGets makes every GetDocument return err until cleared with nil.
func (m *MemoryDocumentStore) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailSets makes every SetDocument return err until cleared with nil.
func (m *MemoryDocumentStore) FailSets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// GetDocument implements DocumentStore.
func (m *MemoryDocumentStore) GetDocument(_ context.Context, id string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}

	out := make(map[string]json.RawMessage, len(m.docs[id]))
	for k, v := range m.docs[id] {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out, nil
}

// SetDocument implements DocumentStore.
func (m *MemoryDocumentStore) SetDocument(_ context.Context, id string, fields map[string]json.RawMessage, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets++
	if m.setErr != nil {
		return m.setErr
	}

	doc := m.docs[id]
	if doc == nil || !merge {
		doc = make(map[string]json.RawMessage, len(fields))
		m.docs[id] = doc
	}
	for k, v := range fields {
		doc[k] = append(json.RawMessage(nil), v...)
	}
	return nil
}

// Field returns the raw value of one field, if present.
func (m *MemoryDocumentStore) Field(id, field string) (json.RawMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.docs[id][field]
	return v, ok
}

// Calls returns how many gets and sets were attempted.
func (m *MemoryDocumentStore) Calls() (gets, sets int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets, m.sets
}
