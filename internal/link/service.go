package link

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golinks.org/internal/user"
)

// shortpathPattern is the accepted shape of a go-link path: segments of
// letters, digits, dashes and underscores, optionally separated by slashes.
var shortpathPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+(/[a-zA-Z0-9_-]+)*$`)

// Service validates and executes link CRUD. Authorization is the caller's
// concern; the service assumes the actor has already been cleared to mutate.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("link: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Store exposes the underlying store to collaborators that need raw reads.
func (s *Service) Store() Store { return s.store }

// Create validates and persists a new link owned by owner within the
// organization.
func (s *Service) Create(ctx context.Context, organization, owner, shortpath, destination string) (ShortLink, error) {
	organization = strings.TrimSpace(organization)
	owner = user.NormalizeEmail(owner)
	shortpath = strings.Trim(strings.TrimSpace(shortpath), "/")
	if organization == "" || owner == "" {
		return ShortLink{}, ErrInvalidInput
	}
	if shortpath == "" {
		return ShortLink{}, &CreationError{Message: "A shortpath is required"}
	}
	if !shortpathPattern.MatchString(shortpath) {
		return ShortLink{}, &CreationError{
			Message: fmt.Sprintf("Shortpaths may only contain letters, numbers, hyphens, underscores, and slashes; %q is not allowed", shortpath),
		}
	}
	destination, err := validateDestination(destination)
	if err != nil {
		return ShortLink{}, err
	}

	if existing, err := s.store.GetByPath(ctx, organization, shortpath); err == nil {
		return ShortLink{}, &CreationError{
			Message: fmt.Sprintf("That go link already exists. go/%s points to %s", shortpath, existing.DestinationURL),
		}
	} else if !errors.Is(err, ErrNotFound) {
		return ShortLink{}, err
	}

	now := s.now().UTC()
	l := ShortLink{
		Organization:   organization,
		Owner:          owner,
		Shortpath:      shortpath,
		DestinationURL: destination,
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if err := s.store.Create(ctx, &l); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ShortLink{}, &CreationError{
				Message: fmt.Sprintf("That go link already exists: go/%s", shortpath),
			}
		}
		return ShortLink{}, err
	}
	return l, nil
}

// UpdateDestination points an existing link at a new destination URL.
func (s *Service) UpdateDestination(ctx context.Context, id int64, destination string) (ShortLink, error) {
	destination, err := validateDestination(destination)
	if err != nil {
		return ShortLink{}, err
	}
	return s.store.UpdateDestination(ctx, id, destination)
}

func (s *Service) Get(ctx context.Context, id int64) (ShortLink, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByOrganization(ctx context.Context, organization string) ([]ShortLink, error) {
	return s.store.ListByOrganization(ctx, organization)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Resolve finds the link behind a shortpath in the organization and counts
// the visit.
func (s *Service) Resolve(ctx context.Context, organization, shortpath string) (ShortLink, error) {
	shortpath = strings.Trim(strings.TrimSpace(shortpath), "/")
	l, err := s.store.GetByPath(ctx, organization, shortpath)
	if err != nil {
		return ShortLink{}, err
	}
	if err := s.store.IncrementVisits(ctx, l.ID); err != nil {
		return ShortLink{}, err
	}
	l.VisitsCount++
	return l, nil
}

func validateDestination(destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return "", &CreationError{Message: "A destination URL is required"}
	}
	u, err := url.Parse(destination)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &CreationError{
			Message: fmt.Sprintf("%q is not a valid destination; destinations must be full http or https URLs", destination),
		}
	}
	return destination, nil
}
