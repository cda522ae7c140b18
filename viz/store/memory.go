package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore keeps archived runs in memory. Saved and loaded runs are deep
// copies, so callers can never alias archived steps.
type MemStore struct {
	mu     sync.RWMutex
	runs   map[string]Run
	closed bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string]Run)}
}

// Save stores a copy of run.
func (m *MemStore) Save(_ context.Context, run Run) error {
	if err := validate(run); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.runs[run.ID] = cloneRun(run)
	return nil
}

// Load returns a copy of the run stored under id.
func (m *MemStore) Load(_ context.Context, id string) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Run{}, ErrClosed
	}
	run, ok := m.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return cloneRun(run), nil
}

// List returns summaries ordered by creation time, then id.
func (m *MemStore) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Summary, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes the run stored under id.
func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.runs[id]; !ok {
		return ErrNotFound
	}
	delete(m.runs, id)
	return nil
}

// Close releases the stored runs. Closing twice is a no-op.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.runs = nil
	return nil
}
