package link

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateAndResolve(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	l, err := svc.Create(ctx, "co", "Alice@co.example ", "wiki/home", "https://wiki.example.com/home")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if l.Owner != "alice@co.example" {
		t.Fatalf("expected normalized owner, got %q", l.Owner)
	}

	got, err := svc.Resolve(ctx, "co", "wiki/home")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.DestinationURL != "https://wiki.example.com/home" {
		t.Fatalf("unexpected destination: %q", got.DestinationURL)
	}
	if got.VisitsCount != 1 {
		t.Fatalf("expected visit counted, got %d", got.VisitsCount)
	}
}

func TestCreateRejectsBadShortpath(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), "co", "alice@co.example", "bad path!", "https://example.com")
	var ce *CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CreationError, got %v", err)
	}
}

func TestCreateRejectsBadDestination(t *testing.T) {
	svc := newTestService(t)

	for _, dest := range []string{"", "notaurl", "ftp://example.com/x", "https://"} {
		_, err := svc.Create(context.Background(), "co", "alice@co.example", "ok", dest)
		var ce *CreationError
		if !errors.As(err, &ce) {
			t.Fatalf("destination %q: expected CreationError, got %v", dest, err)
		}
	}
}

func TestCreateRejectsDuplicatePath(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "co", "alice@co.example", "dup", "https://example.com/a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(ctx, "co", "bob@co.example", "dup", "https://example.com/b")
	var ce *CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CreationError, got %v", err)
	}

	// Same path in another organization is independent.
	if _, err := svc.Create(ctx, "other", "eve@other.example", "dup", "https://example.com/c"); err != nil {
		t.Fatalf("cross-org Create: %v", err)
	}
}

func TestUpdateOwnerCompareAndSet(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	l := ShortLink{Organization: "co", Owner: "alice@co.example", Shortpath: "cas", DestinationURL: "https://example.com"}
	if err := store.Create(ctx, &l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := store.UpdateOwner(ctx, l.ID, "bob@co.example", "alice@co.example")
	if err != nil {
		t.Fatalf("UpdateOwner: %v", err)
	}
	if updated.Owner != "bob@co.example" {
		t.Fatalf("unexpected owner: %q", updated.Owner)
	}

	_, err = store.UpdateOwner(ctx, l.ID, "carol@co.example", "alice@co.example")
	if !errors.Is(err, ErrOwnerConflict) {
		t.Fatalf("expected ErrOwnerConflict, got %v", err)
	}
}
