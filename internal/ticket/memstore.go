package ticket

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory Store. Used in mock mode and in tests.
type MemStore struct {
	mu      sync.RWMutex
	tickets map[int64]Ticket
	nextID  int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		tickets: make(map[int64]Ticket),
		nextID:  1,
	}
}

func (s *MemStore) Create(_ context.Context, t Ticket) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	t.ID = s.nextID
	s.nextID++
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tickets[t.ID] = t
	return t, nil
}

func (s *MemStore) Get(_ context.Context, id int64) (Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	return t, nil
}
