package session

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m, err := NewManager([]byte("session-secret"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, expiresAt, err := m.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	subject, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "user-42" {
		t.Fatalf("unexpected subject: %q", subject)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	m, err := NewManager([]byte("session-secret"),
		WithTTL(time.Hour),
		WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, _, err := m.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock = issued.Add(2 * time.Hour)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m1, _ := NewManager([]byte("secret-one"))
	m2, _ := NewManager([]byte("secret-two"))

	token, _, err := m1.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m2.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m, _ := NewManager([]byte("session-secret"))
	for _, tok := range []string{"", "  ", "abc", "a.b.c"} {
		if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}
