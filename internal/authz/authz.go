package authz

import (
	"context"
	"errors"

	"golinks.org/internal/link"
	"golinks.org/internal/obs"
	"golinks.org/internal/user"
)

// ErrUnauthorized is the single negative outcome for mutation checks. It
// covers both "actor lacks rights" and "link could not be resolved" so
// callers cannot distinguish a denied link from a missing one.
var ErrUnauthorized = errors.New("authz: unauthorized")

// CanMutate reports whether actor may mutate l: the actor owns the link, or
// is an admin within the link's organization. No other condition grants
// mutate rights.
func CanMutate(l link.ShortLink, actor user.User) bool {
	if actor.Email != "" && actor.Email == l.Owner {
		return true
	}
	return actor.Admin && actor.Organization == l.Organization
}

// Authorizer resolves links and users and applies CanMutate.
type Authorizer struct {
	links link.Store
	users user.Store
}

func NewAuthorizer(links link.Store, users user.Store) (*Authorizer, error) {
	if links == nil || users == nil {
		return nil, errors.New("authz: link and user stores are required")
	}
	return &Authorizer{links: links, users: users}, nil
}

// AuthorizeMutation loads the link and checks mutate rights for actor.
// Every failure, including lookup errors, collapses to ErrUnauthorized.
func (a *Authorizer) AuthorizeMutation(ctx context.Context, linkID int64, actor user.User) (link.ShortLink, error) {
	l, err := a.links.Get(ctx, linkID)
	if err != nil {
		if !errors.Is(err, link.ErrNotFound) {
			obs.Log(map[string]any{
				"level":   "warn",
				"msg":     "link lookup failed during authorization",
				"link_id": linkID,
				"error":   err.Error(),
			})
		}
		return link.ShortLink{}, ErrUnauthorized
	}
	if !CanMutate(l, actor) {
		return link.ShortLink{}, ErrUnauthorized
	}
	return l, nil
}

// AuthorizeMutationByID re-runs the mutation check for a user referenced by
// id against the current link state. Used when the actor is not the current
// request's principal, e.g. re-validating a token issuer at redemption.
func (a *Authorizer) AuthorizeMutationByID(ctx context.Context, linkID int64, userID string) (link.ShortLink, error) {
	u, err := a.users.Find(ctx, userID)
	if err != nil {
		return link.ShortLink{}, ErrUnauthorized
	}
	return a.AuthorizeMutation(ctx, linkID, u)
}
