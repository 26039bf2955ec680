package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("user: not found")
	ErrInvalidInput = errors.New("user: invalid input")
)

// User is an actor identity. Admin is scoped to the user's organization:
// it grants mutate rights over every link in that organization and nothing
// outside it.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Organization string    `json:"organization"`
	Admin        bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store manages user records. Callers in the authorization core must always
// read through the store so checks see the current state of the world; no
// user record may be cached across a redemption attempt.
type Store interface {
	Find(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// GetOrCreate materializes a user record for an email that may not yet
	// exist as a first-class actor (e.g. a link owner who never signed in).
	GetOrCreate(ctx context.Context, email, organization string) (User, error)
	SetAdmin(ctx context.Context, id string, admin bool) error
}

// NormalizeEmail canonicalizes an email used as an ownership key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
