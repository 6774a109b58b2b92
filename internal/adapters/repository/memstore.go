package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/scout/internal/domain/snapshot"
)

type memEntry struct {
	sum  Summary
	data []byte
}

// MemorySnapshotStore keeps encoded snapshots in a map. Records are stored
// encoded so callers never share state with the store.
type MemorySnapshotStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemorySnapshotStore returns an empty store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{entries: make(map[string]memEntry)}
}

// Save implements SnapshotStore.
func (s *MemorySnapshotStore) Save(ctx context.Context, sum Summary, rec *snapshot.Record) error {
	if sum.Key == "" {
		return ErrInvalidKey
	}
	data, err := snapshot.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sum.Key] = memEntry{sum: sum, data: data}
	return nil
}

// Load implements SnapshotStore.
func (s *MemorySnapshotStore) Load(ctx context.Context, key string) (*snapshot.Record, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	return snapshot.Unmarshal(e.data)
}

// List implements SnapshotStore, newest first.
func (s *MemorySnapshotStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.sum)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// Delete implements SnapshotStore.
func (s *MemorySnapshotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	delete(s.entries, key)
	return nil
}

// Close implements SnapshotStore.
func (s *MemorySnapshotStore) Close() error { return nil }
