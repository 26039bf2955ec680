package link

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. Backs tests
// and DSN-less runs.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	links  map[int64]*ShortLink
	byPath map[pathKey]int64
}

type pathKey struct {
	organization string
	shortpath    string
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		links:  make(map[int64]*ShortLink),
		byPath: make(map[pathKey]int64),
	}
}

func (s *InMemory) Create(ctx context.Context, l *ShortLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pathKey{l.Organization, l.Shortpath}
	if _, ok := s.byPath[key]; ok {
		return ErrAlreadyExists
	}
	s.nextID++
	l.ID = s.nextID
	cp := *l
	s.links[l.ID] = &cp
	s.byPath[key] = l.ID
	return nil
}

func (s *InMemory) Get(ctx context.Context, id int64) (ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[id]
	if !ok {
		return ShortLink{}, ErrNotFound
	}
	return *l, nil
}

func (s *InMemory) GetByPath(ctx context.Context, organization, shortpath string) (ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[pathKey{organization, shortpath}]
	if !ok {
		return ShortLink{}, ErrNotFound
	}
	return *s.links[id], nil
}

func (s *InMemory) ListByOrganization(ctx context.Context, organization string) ([]ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []ShortLink
	for _, l := range s.links {
		if l.Organization == organization {
			res = append(res, *l)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *InMemory) UpdateDestination(ctx context.Context, id int64, destination string) (ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return ShortLink{}, ErrNotFound
	}
	l.DestinationURL = destination
	l.ModifiedAt = time.Now().UTC()
	return *l, nil
}

func (s *InMemory) UpdateOwner(ctx context.Context, id int64, newOwner, expectedOwner string) (ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return ShortLink{}, ErrNotFound
	}
	if l.Owner != expectedOwner {
		return ShortLink{}, ErrOwnerConflict
	}
	l.Owner = newOwner
	l.ModifiedAt = time.Now().UTC()
	return *l, nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byPath, pathKey{l.Organization, l.Shortpath})
	delete(s.links, id)
	return nil
}

func (s *InMemory) IncrementVisits(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return ErrNotFound
	}
	l.VisitsCount++
	return nil
}
