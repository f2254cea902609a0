package backends

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/orglens/orgsync/audit"
)

// MemoryStore keeps records in memory for tests and short-lived hosts
type MemoryStore struct {
	records map[string]*audit.Record
	mutex   sync.RWMutex
}

// NewMemoryStore creates a new memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*audit.Record),
	}
}

// Put stores a record by id
func (s *MemoryStore) Put(ctx context.Context, record *audit.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Store a copy to prevent mutations
	s.records[record.ID] = copyRecord(record)
	return nil
}

// Get retrieves a record by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*audit.Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("record '%s' not found", id)
	}

	// Return a copy to prevent mutations
	return copyRecord(record), nil
}

// List lists all stored record ids in lexicographic order
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a record by id
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.records, id)
	return nil
}

// copyRecord creates a deep copy of a record
func copyRecord(original *audit.Record) *audit.Record {
	if original == nil {
		return nil
	}

	record := &audit.Record{
		ID:          original.ID,
		Kind:        original.Kind,
		Subject:     original.Subject,
		SourceLabel: original.SourceLabel,
		TargetLabel: original.TargetLabel,
		CreatedAt:   original.CreatedAt,
	}

	if original.Payload != nil {
		record.Payload = make([]byte, len(original.Payload))
		copy(record.Payload, original.Payload)
	}

	return record
}
