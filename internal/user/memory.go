package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"golinks.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Backs tests
// and DSN-less runs.
type InMemory struct {
	mu    sync.RWMutex
	byID  map[string]*User
	byKey map[string]string // normalized email -> id
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		byID:  make(map[string]*User),
		byKey: make(map[string]string),
	}
}

func (s *InMemory) Find(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return *s.byID[id], nil
}

func (s *InMemory) GetOrCreate(ctx context.Context, email, organization string) (User, error) {
	email = NormalizeEmail(email)
	organization = strings.TrimSpace(organization)
	if email == "" || organization == "" {
		return User{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[email]; ok {
		return *s.byID[id], nil
	}
	now := time.Now().UTC()
	u := &User{
		ID:           ids.New(),
		Email:        email,
		Organization: organization,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[u.ID] = u
	s.byKey[email] = u.ID
	return *u, nil
}

func (s *InMemory) SetAdmin(ctx context.Context, id string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Admin = admin
	u.UpdatedAt = time.Now().UTC()
	return nil
}
