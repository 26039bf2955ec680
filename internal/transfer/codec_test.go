package transfer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("codec-test-secret")

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func testClaims(now time.Time, ttl time.Duration) Claims {
	return Claims{
		Permission: Permission,
		OwnerID:    "owner-1",
		IssuerID:   "issuer-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "link:42",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	codec, err := NewCodec(testSecret, WithCodecClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	in := testClaims(now, time.Hour)
	token, err := codec.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsAny(token, "=+/.") {
		t.Fatalf("token is not a clean URL path segment: %q", token)
	}

	out, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Permission != in.Permission || out.OwnerID != in.OwnerID || out.IssuerID != in.IssuerID {
		t.Fatalf("claims not preserved: %+v", out)
	}
	if out.Subject != "link:42" {
		t.Fatalf("unexpected subject: %q", out.Subject)
	}
	if !out.ExpiresAt.Time.Equal(in.ExpiresAt.Time) {
		t.Fatalf("expiry not preserved: %v vs %v", out.ExpiresAt.Time, in.ExpiresAt.Time)
	}
}

func TestCodecExpired(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	codec, err := NewCodec(testSecret, WithCodecClock(fixedClock(issued)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := codec.Encode(testClaims(issued, 24*time.Hour))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	later, err := NewCodec(testSecret, WithCodecClock(fixedClock(issued.Add(25*time.Hour))))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, err := later.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCodecTamperedSignature(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	codec, err := NewCodec(testSecret, WithCodecClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := codec.Encode(testClaims(now, time.Hour))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Flip a character near the end; the outer layer still decodes but the
	// inner signature no longer verifies.
	mutated := []byte(token)
	last := len(mutated) - 1
	if mutated[last] == 'A' {
		mutated[last] = 'B'
	} else {
		mutated[last] = 'A'
	}
	if _, err := codec.Decode(string(mutated)); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestCodecWrongSecret(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	codec, err := NewCodec(testSecret, WithCodecClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := codec.Encode(testClaims(now, time.Hour))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	other, err := NewCodec([]byte("a-different-secret"), WithCodecClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, err := other.Decode(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestCodecGarbage(t *testing.T) {
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	for _, tok := range []string{"", "%%%", "bm90LWEtand0", "a.b.c"} {
		if _, err := codec.Decode(tok); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestClaimsLinkID(t *testing.T) {
	cases := []struct {
		subject string
		want    int64
		ok      bool
	}{
		{"link:42", 42, true},
		{"link:1", 1, true},
		{"link:", 0, false},
		{"link:abc", 0, false},
		{"link:-3", 0, false},
		{"link:0", 0, false},
		{"account:42", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: tc.subject}}
		id, err := c.LinkID()
		if tc.ok {
			if err != nil || id != tc.want {
				t.Fatalf("subject %q: got (%d, %v), want (%d, nil)", tc.subject, id, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrSubjectInvalid) {
			t.Fatalf("subject %q: expected ErrSubjectInvalid, got %v", tc.subject, err)
		}
	}
}
