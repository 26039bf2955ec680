package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"golinks.org/internal/ids"
	"golinks.org/internal/link"
	"golinks.org/internal/user"
)

// Store implements the link and user stores on PostgreSQL.
type Store struct {
	db *sql.DB
}

var (
	_ link.Store = (*Store)(nil)
	_ user.Store = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing database handle (used by tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Link store ---------------------------------------------------------------

const linkColumns = `id, organization, owner, shortpath, destination_url, created_at, modified_at, visits_count`

func (s *Store) Create(ctx context.Context, l *link.ShortLink) error {
	err := s.db.QueryRowContext(ctx, `
		insert into links(organization, owner, shortpath, destination_url, created_at, modified_at)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (organization, shortpath) do nothing
		returning id
	`, l.Organization, l.Owner, l.Shortpath, l.DestinationURL, l.CreatedAt, l.ModifiedAt).Scan(&l.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return link.ErrAlreadyExists
	}
	return err
}

func (s *Store) Get(ctx context.Context, id int64) (link.ShortLink, error) {
	row := s.db.QueryRowContext(ctx, `select `+linkColumns+` from links where id=$1`, id)
	return scanLink(row)
}

func (s *Store) GetByPath(ctx context.Context, organization, shortpath string) (link.ShortLink, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+linkColumns+` from links where organization=$1 and shortpath=$2`,
		organization, shortpath)
	return scanLink(row)
}

func (s *Store) ListByOrganization(ctx context.Context, organization string) ([]link.ShortLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+linkColumns+` from links where organization=$1 order by id asc`, organization)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []link.ShortLink
	for rows.Next() {
		var l link.ShortLink
		if err := rows.Scan(&l.ID, &l.Organization, &l.Owner, &l.Shortpath,
			&l.DestinationURL, &l.CreatedAt, &l.ModifiedAt, &l.VisitsCount); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (s *Store) UpdateDestination(ctx context.Context, id int64, destination string) (link.ShortLink, error) {
	row := s.db.QueryRowContext(ctx, `
		update links set destination_url=$2, modified_at=now()
		where id=$1
		returning `+linkColumns, id, destination)
	return scanLink(row)
}

// UpdateOwner performs the compare-and-set in a single statement: the owner
// moves only while it still equals expectedOwner. A missed update is
// disambiguated into not-found vs conflict with a follow-up existence
// check.
func (s *Store) UpdateOwner(ctx context.Context, id int64, newOwner, expectedOwner string) (link.ShortLink, error) {
	row := s.db.QueryRowContext(ctx, `
		update links set owner=$2, modified_at=now()
		where id=$1 and owner=$3
		returning `+linkColumns, id, newOwner, expectedOwner)
	l, err := scanLink(row)
	if !errors.Is(err, link.ErrNotFound) {
		return l, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from links where id=$1)`, id).Scan(&exists); err != nil {
		return link.ShortLink{}, err
	}
	if exists {
		return link.ShortLink{}, link.ErrOwnerConflict
	}
	return link.ShortLink{}, link.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from links where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return link.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementVisits(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`update links set visits_count = visits_count + 1 where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return link.ErrNotFound
	}
	return nil
}

func scanLink(row *sql.Row) (link.ShortLink, error) {
	var l link.ShortLink
	err := row.Scan(&l.ID, &l.Organization, &l.Owner, &l.Shortpath,
		&l.DestinationURL, &l.CreatedAt, &l.ModifiedAt, &l.VisitsCount)
	if errors.Is(err, sql.ErrNoRows) {
		return link.ShortLink{}, link.ErrNotFound
	}
	if err != nil {
		return link.ShortLink{}, err
	}
	return l, nil
}

// User store ---------------------------------------------------------------

const userColumns = `id, email, organization, is_admin, created_at, updated_at`

func (s *Store) Find(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, user.NormalizeEmail(email))
	return scanUser(row)
}

// GetOrCreate inserts the user if absent; on conflict the no-op update lets
// the statement return the existing row instead of zero rows.
func (s *Store) GetOrCreate(ctx context.Context, email, organization string) (user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" || organization == "" {
		return user.User{}, user.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users(id, email, organization)
		values ($1,$2,$3)
		on conflict (email) do update set email = excluded.email
		returning `+userColumns, ids.New(), email, organization)
	return scanUser(row)
}

func (s *Store) SetAdmin(ctx context.Context, id string, admin bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set is_admin=$2, updated_at=now() where id=$1`, id, admin)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Organization, &u.Admin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}
