package client

import (
	"context"
	"maps"
	"sync"
	"time"
)

// EntryState is the cached attendance state of one employee.
type EntryState struct {
	CurrentlyIn bool      `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// LocalStore persists the cache on the client machine so a restart starts
// from the last observed state.
type LocalStore interface {
	Load(ctx context.Context) (map[string]EntryState, error)
	Save(ctx context.Context, entries map[string]EntryState) error
	Put(ctx context.Context, employeeID string, state EntryState) error
}

type MemoryLocalStore struct {
	mu      sync.Mutex
	entries map[string]EntryState
}

func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{entries: make(map[string]EntryState)}
}

func (s *MemoryLocalStore) Load(_ context.Context) (map[string]EntryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries), nil
}

func (s *MemoryLocalStore) Save(_ context.Context, entries map[string]EntryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]EntryState, len(entries))
	maps.Copy(s.entries, entries)
	return nil
}

func (s *MemoryLocalStore) Put(_ context.Context, employeeID string, state EntryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[employeeID] = state
	return nil
}
