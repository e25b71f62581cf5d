package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"donaria/internal/donor/models"
	"donaria/pkg/platform/sentinel"
)

// InMemory keeps donors in process memory with unique indexes on curp and
// email. It favors clarity over performance and backs unit tests and local
// development.
type InMemory struct {
	mu      sync.RWMutex
	donors  map[uuid.UUID]models.Donor
	byEmail map[string]uuid.UUID
	byCURP  map[string]uuid.UUID
	clock   func() time.Time
}

// InMemoryOption configures an InMemory store.
type InMemoryOption func(*InMemory)

// WithClock sets the timestamp clock for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	s := &InMemory{
		donors:  make(map[uuid.UUID]models.Donor),
		byEmail: make(map[string]uuid.UUID),
		byCURP:  make(map[string]uuid.UUID),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *InMemory) CreateIfAvailable(_ context.Context, d *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCURP[d.CURP]; taken {
		return &ConflictError{Field: "curp"}
	}
	if _, taken := s.byEmail[d.Email]; taken {
		return &ConflictError{Field: "email"}
	}

	now := s.clock()
	d.ID = uuid.New()
	d.CreatedAt = now
	d.UpdatedAt = now

	s.donors[d.ID] = *d
	s.byCURP[d.CURP] = d.ID
	s.byEmail[d.Email] = d.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, d *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.donors[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owner, taken := s.byCURP[d.CURP]; taken && owner != d.ID {
		return &ConflictError{Field: "curp"}
	}
	if owner, taken := s.byEmail[d.Email]; taken && owner != d.ID {
		return &ConflictError{Field: "email"}
	}

	delete(s.byCURP, prev.CURP)
	delete(s.byEmail, prev.Email)

	d.UpdatedAt = s.clock()
	s.donors[d.ID] = *d
	s.byCURP[d.CURP] = d.ID
	s.byEmail[d.Email] = d.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.donors[id]; ok {
		return &d, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[email]; ok {
		d := s.donors[id]
		return &d, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByCURP(_ context.Context, curp string) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byCURP[curp]; ok {
		d := s.donors[id]
		return &d, nil
	}
	return nil, sentinel.ErrNotFound
}
