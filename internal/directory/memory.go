package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"wedding-rsvp/internal/models"
)

// MemoryStore keeps guests in process memory. It backs tests and the
// "memory" backend used for local previews.
type MemoryStore struct {
	mu     sync.RWMutex
	guests []models.Guest
	now    func() time.Time
}

// NewMemoryStore creates a store holding a copy of seed
func NewMemoryStore(seed ...models.Guest) *MemoryStore {
	s := &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
	for _, g := range seed {
		s.guests = append(s.guests, g.Clone())
	}
	return s
}

// SetClock replaces the time source
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guests := make([]models.Guest, len(s.guests))
	for i, g := range s.guests {
		guests[i] = g.Clone()
	}
	return guests, nil
}

func (s *MemoryStore) Create(ctx context.Context, guest models.NewGuest) (models.Guest, error) {
	g := guest.Build()
	if g.Name == "" {
		return models.Guest{}, models.Validation("name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	g.ID = uuid.NewString()
	g.CreatedAt = ts
	g.UpdatedAt = ts
	s.guests = append(s.guests, g)
	return g.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(key)
	if i < 0 {
		return models.Guest{}, models.NotFound(key.String())
	}
	g := &s.guests[i]
	if patch.IfUpdatedAt != nil && !patch.IfUpdatedAt.Equal(g.UpdatedAt) {
		return models.Guest{}, &models.ConflictError{ID: g.ID, Reason: "record changed since it was read"}
	}
	patch.Apply(g)
	g.UpdatedAt = s.now()
	return g.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key models.GuestKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(key)
	if i < 0 {
		return models.NotFound(key.String())
	}
	s.guests = append(s.guests[:i], s.guests[i+1:]...)
	return nil
}

func (s *MemoryStore) index(key models.GuestKey) int {
	for i, g := range s.guests {
		if key.Matches(g) {
			return i
		}
	}
	return -1
}
