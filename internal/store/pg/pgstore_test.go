package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"golinks.org/internal/link"
	"golinks.org/internal/user"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func linkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization", "owner", "shortpath", "destination_url",
		"created_at", "modified_at", "visits_count",
	})
}

func TestUpdateOwnerCompareAndSetWins(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("update links set owner").
		WithArgs(int64(1), "bob@co.example", "alice@co.example").
		WillReturnRows(linkRows().AddRow(
			int64(1), "co", "bob@co.example", "docs", "https://example.com",
			now, now, int64(7)))

	updated, err := store.UpdateOwner(context.Background(), 1, "bob@co.example", "alice@co.example")
	if err != nil {
		t.Fatalf("UpdateOwner: %v", err)
	}
	if updated.Owner != "bob@co.example" {
		t.Fatalf("unexpected owner: %q", updated.Owner)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateOwnerCompareAndSetLoses(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("update links set owner").
		WithArgs(int64(1), "carol@co.example", "alice@co.example").
		WillReturnRows(linkRows())
	mock.ExpectQuery("select exists").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := store.UpdateOwner(context.Background(), 1, "carol@co.example", "alice@co.example")
	if !errors.Is(err, link.ErrOwnerConflict) {
		t.Fatalf("expected ErrOwnerConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateOwnerMissingLink(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("update links set owner").
		WithArgs(int64(99), "bob@co.example", "alice@co.example").
		WillReturnRows(linkRows())
	mock.ExpectQuery("select exists").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := store.UpdateOwner(context.Background(), 99, "bob@co.example", "alice@co.example")
	if !errors.Is(err, link.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateDuplicatePath(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("insert into links").
		WithArgs("co", "alice@co.example", "docs", "https://example.com", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	l := link.ShortLink{
		Organization: "co", Owner: "alice@co.example", Shortpath: "docs",
		DestinationURL: "https://example.com", CreatedAt: now, ModifiedAt: now,
	}
	if err := store.Create(context.Background(), &l); !errors.Is(err, link.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "alice@co.example", "co").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "organization", "is_admin", "created_at", "updated_at",
		}).AddRow("existing-id", "alice@co.example", "co", false, now, now))

	u, err := store.GetOrCreate(context.Background(), " Alice@CO.example ", "co")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if u.ID != "existing-id" {
		t.Fatalf("unexpected id: %q", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateValidatesInput(t *testing.T) {
	store, _ := newMockStore(t)
	if _, err := store.GetOrCreate(context.Background(), "", "co"); !errors.Is(err, user.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.GetOrCreate(context.Background(), "alice@co.example", ""); !errors.Is(err, user.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFindUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, email, organization").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "organization", "is_admin", "created_at", "updated_at",
		}))

	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
