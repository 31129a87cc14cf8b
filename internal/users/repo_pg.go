package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, username, password_hash, email, first_name, last_name, profile_image_url, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, username, password_hash, email, first_name, last_name, profile_image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		nullableString(user.Username),
		nullableString(user.PasswordHash),
		nullableString(user.Email),
		nullableString(user.FirstName),
		nullableString(user.LastName),
		nullableString(user.ProfileImageURL),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUsernameTaken
	}
	return err
}

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, first_name, last_name, profile_image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  profile_image_url = EXCLUDED.profile_image_url,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		nullableString(user.Email),
		nullableString(user.FirstName),
		nullableString(user.LastName),
		nullableString(user.ProfileImageURL),
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, userID)
	return scanUser(row)
}

func (r *PGRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 LIMIT 1`, username)
	return scanUser(row)
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepo) CreateSession(ctx context.Context, session Session) error {
	const query = `
INSERT INTO sessions (id, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, query, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	return err
}

func (r *PGRepo) GetSession(ctx context.Context, sessionID string) (Session, error) {
	const query = `
SELECT id, user_id, created_at, expires_at, revoked_at
FROM sessions
WHERE id = $1`
	var s Session
	var revokedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, sessionID).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return s, nil
}

func (r *PGRepo) RevokeSession(ctx context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE sessions SET revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, sessionID, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}

func (r *PGRepo) RecordActivity(ctx context.Context, userID, action string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_activity (user_id, action, created_at) VALUES ($1, $2, $3)`,
		userID, action, at)
	return err
}

func (r *PGRepo) ListActivity(ctx context.Context) ([]Activity, error) {
	const query = `
SELECT a.id, a.user_id, u.username, u.first_name, u.last_name, a.action, a.created_at
FROM user_activity a
JOIN users u ON a.user_id = u.id
ORDER BY a.created_at DESC, a.id DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Activity{}
	for rows.Next() {
		var a Activity
		var username, first, last sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &username, &first, &last, &a.Action, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Username = username.String
		a.FullName = User{FirstName: first.String, LastName: last.String}.FullName()
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var user User
	var username, passwordHash, email, firstName, lastName, picture sql.NullString
	err := row.Scan(
		&user.ID,
		&username,
		&passwordHash,
		&email,
		&firstName,
		&lastName,
		&picture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Username = username.String
	user.PasswordHash = passwordHash.String
	user.Email = email.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.ProfileImageURL = picture.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
