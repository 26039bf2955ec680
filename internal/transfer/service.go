package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"golinks.org/internal/authz"
	"golinks.org/internal/link"
	"golinks.org/internal/obs"
	"golinks.org/internal/user"
)

// TokenTTL is the fixed validity window of a transfer token. Expiry is the
// only time-based invalidation; there is no revocation list and no
// server-side record of outstanding tokens.
const TokenTTL = 24 * time.Hour

// Service issues and redeems transfer tokens. Issuance gates on the same
// mutation predicate as every other link write; redemption re-validates the
// world because minutes to hours may pass between the two requests.
type Service struct {
	codec *Codec
	links link.Store
	users user.Store
	auth  *authz.Authorizer
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

func NewService(codec *Codec, links link.Store, users user.Store, auth *authz.Authorizer, opts ...ServiceOption) (*Service, error) {
	if codec == nil {
		return nil, errors.New("transfer: codec is required")
	}
	if links == nil || users == nil {
		return nil, errors.New("transfer: link and user stores are required")
	}
	if auth == nil {
		return nil, errors.New("transfer: authorizer is required")
	}
	s := &Service{codec: codec, links: links, users: users, auth: auth, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints a transfer token for linkID on behalf of actor, who must
// currently hold mutate rights. The link's owner record is materialized if
// it does not exist yet so the owner snapshot is always a valid user id.
// Nothing about the token itself is persisted.
func (s *Service) Issue(ctx context.Context, linkID int64, actor user.User) (string, error) {
	l, err := s.auth.AuthorizeMutation(ctx, linkID, actor)
	if err != nil {
		return "", err
	}
	owner, err := s.users.GetOrCreate(ctx, l.Owner, l.Organization)
	if err != nil {
		return "", fmt.Errorf("transfer: materialize owner record: %w", err)
	}

	claims := Claims{
		Permission: Permission,
		OwnerID:    owner.ID,
		IssuerID:   actor.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%s%d", subjectPrefix, linkID),
			ExpiresAt: jwt.NewNumericDate(s.now().UTC().Add(TokenTTL)),
		},
	}
	return s.codec.Encode(claims)
}

// TransferURL embeds a token into the redemption URL served by the HTTP
// layer.
func TransferURL(baseURL, token string) string {
	return fmt.Sprintf("%s/_transfer/%s", baseURL, token)
}

// Redeem validates a presented token against its embedded claims and the
// current state of the world, then moves ownership to the redeeming user.
// The checks run in a fixed order and stop at the first failure; the order
// decides which reason a failed attempt is attributed to.
func (s *Service) Redeem(ctx context.Context, token string, redeemer user.User) (link.ShortLink, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			obs.Log(map[string]any{
				"level": "info",
				"msg":   "attempt to use expired transfer token",
				"token": token,
			})
			return link.ShortLink{}, redeemError(ErrTokenExpired, "Your transfer link has expired")
		}
		obs.Log(map[string]any{
			"level": "warn",
			"msg":   "attempt to use invalid transfer token",
			"token": token,
		})
		return link.ShortLink{}, redeemError(ErrTokenMalformed, "")
	}

	if claims.Permission != Permission {
		return link.ShortLink{}, s.reject(token, ErrSubjectInvalid, "")
	}
	linkID, err := claims.LinkID()
	if err != nil {
		return link.ShortLink{}, s.reject(token, ErrSubjectInvalid, "")
	}

	l, err := s.links.Get(ctx, linkID)
	if err != nil {
		return link.ShortLink{}, s.reject(token, ErrLinkNotFound, "")
	}

	// Staleness guard: the owner snapshot must still match the live owner.
	// After one successful redemption the owner changes, so a replayed
	// token fails here.
	owner, err := s.users.Find(ctx, claims.OwnerID)
	if err != nil || owner.Email != l.Owner {
		return link.ShortLink{}, s.reject(token, ErrOwnerChanged, ownerChangedMessage(l))
	}

	// The token must not outlive the authority that created it.
	if _, err := s.auth.AuthorizeMutationByID(ctx, linkID, claims.IssuerID); err != nil {
		return link.ShortLink{}, s.reject(token, ErrIssuerUnauthorized,
			fmt.Sprintf("The user who created your transfer link no longer has edit rights for go/%s", l.Shortpath))
	}

	if redeemer.Organization != l.Organization {
		return link.ShortLink{}, s.reject(token, ErrCrossOrganization, "")
	}

	// Mutate the owner only while it still equals the value observed above;
	// a lost race is an ownership change raised late.
	updated, err := s.links.UpdateOwner(ctx, linkID, redeemer.Email, l.Owner)
	if err != nil {
		if errors.Is(err, link.ErrOwnerConflict) {
			return link.ShortLink{}, s.reject(token, ErrOwnerChanged, ownerChangedMessage(l))
		}
		if errors.Is(err, link.ErrNotFound) {
			return link.ShortLink{}, s.reject(token, ErrLinkNotFound, "")
		}
		return link.ShortLink{}, fmt.Errorf("transfer: persist owner: %w", err)
	}
	return updated, nil
}

func (s *Service) reject(token string, reason error, userMessage string) *RedeemError {
	obs.Log(map[string]any{
		"level":  "warn",
		"msg":    "transfer token rejected",
		"reason": reason.Error(),
		"token":  token,
	})
	return redeemError(reason, userMessage)
}

func ownerChangedMessage(l link.ShortLink) string {
	return fmt.Sprintf("The owner of go/%s has changed since your transfer link was created", l.Shortpath)
}
