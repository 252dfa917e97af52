package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

const userColumns = "id, token, email, password_hash, is_psychologist, created_at"

func scanUser(row pgx.Row) (User, error) {
	var (
		u     User
		email pgtype.Text
	)
	err := row.Scan(&u.ID, &u.Token, &email, &u.PasswordHash, &u.IsPsychologist, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	if email.Status == pgtype.Present {
		u.Email = email.String
	}
	return u, nil
}

// CreateStudent creates an anonymous token-only identity.
// A colliding token surfaces as ErrTokenExists so the caller can retry with
// a freshly generated one.
func (s *Store) CreateStudent(ctx context.Context, token, passwordHash string) (User, error) {
	s.logger.Debugf("Creating student with token (%s)", token)

	sql := "insert into users (token, password_hash) values ($1, $2) returning " + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, sql, token, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrTokenExists
		}
		return User{}, err
	}

	s.logger.Debugf("Created student with id %d", u.ID)

	return u, nil
}

// CreatePsychologist creates a staff identity with the counselor capability.
// The token handle is still populated so every identity can log in by token.
func (s *Store) CreatePsychologist(ctx context.Context, token, email, passwordHash string) (User, error) {
	s.logger.Debugf("Creating psychologist (%s)", email)

	sql := "insert into users (token, email, password_hash, is_psychologist) values ($1, $2, $3, true) returning " + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, sql, token, email, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == "users_token_key" {
				return User{}, ErrTokenExists
			}
			return User{}, ErrEmailExists
		}
		return User{}, err
	}

	return u, nil
}

// UserByEmail resolves an identity by exact case-insensitive email match
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	sql := "select " + userColumns + " from users where lower(email) = lower($1)"
	return scanUser(s.db.QueryRow(ctx, sql, email))
}

// UserByToken resolves an identity by exact case-insensitive token match
func (s *Store) UserByToken(ctx context.Context, token string) (User, error) {
	sql := "select " + userColumns + " from users where lower(token) = lower($1)"
	return scanUser(s.db.QueryRow(ctx, sql, token))
}

func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	sql := "select " + userColumns + " from users where id = $1"
	return scanUser(s.db.QueryRow(ctx, sql, id))
}
