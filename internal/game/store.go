package game

import (
	"errors"
	"sync"
)

var ErrTableExists = errors.New("table id already in use")

// TableStore keeps the live tables of one process. Tables are never
// persisted; a process restart drops them.
type TableStore interface {
	// Create registers t under tableID and fails with ErrTableExists when
	// the id is taken.
	Create(tableID string, t *Table) error
	Get(tableID string) (*Table, bool)
	Delete(tableID string) (*Table, bool)
	List() []*Table
	Len() int
}

type InMemoryTableStore struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

func NewInMemoryTableStore() *InMemoryTableStore {
	return &InMemoryTableStore{tables: make(map[string]*Table)}
}

func (s *InMemoryTableStore) Create(tableID string, t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.tables[tableID]; taken {
		return ErrTableExists
	}
	s.tables[tableID] = t
	return nil
}

func (s *InMemoryTableStore) Get(tableID string) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[tableID]
	return t, ok
}

// Delete removes the table and hands it back so the caller can close it.
func (s *InMemoryTableStore) Delete(tableID string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	delete(s.tables, tableID)
	return t, ok
}

func (s *InMemoryTableStore) List() []*Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out
}

func (s *InMemoryTableStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}
