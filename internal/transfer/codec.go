package transfer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Permission is the single capability a transfer token grants. Additional
// capabilities would be new literals.
const Permission = "transfer"

const subjectPrefix = "link:"

// Claims is the signed claim set carried by a transfer token. The JSON
// field names are the wire format: tokens issued by earlier deployments
// must keep decoding, so they cannot change.
type Claims struct {
	// Permission ("tp") is the capability granted by the token.
	Permission string `json:"tp"`
	// OwnerID ("o") snapshots the id of the link's owner at issuance time.
	// Redemption compares it against the live owner to detect staleness.
	OwnerID string `json:"o"`
	// IssuerID ("by") is the id of the user who requested issuance.
	IssuerID string `json:"by"`
	jwt.RegisteredClaims
}

// LinkID parses the subject, which must have the exact shape
// "link:<integer>".
func (c Claims) LinkID() (int64, error) {
	raw, ok := strings.CutPrefix(c.Subject, subjectPrefix)
	if !ok {
		return 0, ErrSubjectInvalid
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrSubjectInvalid
	}
	return id, nil
}

// Codec converts claim sets to and from the opaque transport string: an
// HS256 JWT wrapped in a second base64url layer with padding stripped, so
// the token travels as a single URL path segment.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithCodecClock overrides the time source used for expiry validation.
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("transfer: signing secret is required")
	}
	c := &Codec{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode signs the claims and wraps the compact JWT for URL transport.
func (c *Codec) Encode(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("transfer: sign token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(signed)), "="), nil
}

// Decode reverses both layers: restores stripped padding, unwraps the outer
// base64url, then verifies signature and expiry before any claim is
// trusted. Expired-but-authentic tokens yield ErrTokenExpired; everything
// else yields ErrTokenMalformed. Subject and permission are not interpreted
// here.
func (c *Codec) Decode(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrTokenMalformed
	}
	if m := len(token) % 4; m != 0 {
		token += strings.Repeat("=", 4-m)
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Claims{}, ErrTokenMalformed
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(string(raw), &claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrTokenMalformed
			}
			return c.secret, nil
		},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}
	if !parsed.Valid {
		return Claims{}, ErrTokenMalformed
	}
	return claims, nil
}
