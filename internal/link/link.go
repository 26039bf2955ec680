package link

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("link: not found")
	ErrAlreadyExists = errors.New("link: shortpath already taken")
	ErrInvalidInput  = errors.New("link: invalid input")
	// ErrOwnerConflict is returned by UpdateOwner when the live owner no
	// longer matches the expected value, i.e. the compare-and-set lost.
	ErrOwnerConflict = errors.New("link: owner changed concurrently")
)

// ShortLink is a go-link record. Ownership is stored as a denormalized
// email, not a user id; the owner field is the single value mutated by
// transfer redemption.
type ShortLink struct {
	ID             int64     `json:"id"`
	Organization   string    `json:"-"`
	Owner          string    `json:"owner"`
	Shortpath      string    `json:"shortpath"`
	DestinationURL string    `json:"destination_url"`
	CreatedAt      time.Time `json:"created"`
	ModifiedAt     time.Time `json:"modified"`
	VisitsCount    int64     `json:"visits_count"`
}

// Store manages link records. Organization membership is fixed at creation;
// no store method mutates it.
type Store interface {
	Create(ctx context.Context, l *ShortLink) error
	Get(ctx context.Context, id int64) (ShortLink, error)
	GetByPath(ctx context.Context, organization, shortpath string) (ShortLink, error)
	ListByOrganization(ctx context.Context, organization string) ([]ShortLink, error)
	UpdateDestination(ctx context.Context, id int64, destination string) (ShortLink, error)
	// UpdateOwner sets the owner only while it still equals expectedOwner
	// and returns ErrOwnerConflict otherwise. The guard makes concurrent
	// redemptions of the same token resolve to exactly one winner.
	UpdateOwner(ctx context.Context, id int64, newOwner, expectedOwner string) (ShortLink, error)
	Delete(ctx context.Context, id int64) error
	IncrementVisits(ctx context.Context, id int64) error
}

// CreationError carries a message that is safe to show to the requesting
// user, mirroring validation failures surfaced in the edit UI.
type CreationError struct {
	Message string
}

func (e *CreationError) Error() string { return e.Message }
