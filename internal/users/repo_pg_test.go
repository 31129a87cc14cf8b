package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var userColumnNames = []string{
	"id", "username", "password_hash", "email", "first_name", "last_name", "profile_image_url", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("u-1", "ada", "hash", nil, nil, nil, "https://avatar").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), User{ID: "u-1", Username: "ada", PasswordHash: "hash", ProfileImageURL: "https://avatar"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByUsernameHandlesNulls(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1").
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows(userColumnNames).
			AddRow("u-1", "ada", "hash", nil, "Ada", nil, nil, created, created))

	u, err := repo.GetByUsername(context.Background(), "ada")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u.ID != "u-1" || u.FirstName != "Ada" || u.Email != "" || u.LastName != "" || !u.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSessionLifecycle(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	s := Session{ID: "s-1", UserID: "u-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s-1", "u-1", now, now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs("s-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, user_id, created_at, expires_at, revoked_at").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "created_at", "expires_at", "revoked_at"}).
			AddRow("s-1", "u-1", now, now.Add(time.Hour), now))
	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs("gone", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := repo.RevokeSession(ctx, "s-1", now); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	got, err := repo.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.RevokedAt == nil || got.Active(now) {
		t.Fatalf("expected revoked session, got %+v", got)
	}
	if err := repo.RevokeSession(ctx, "gone", now); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoListActivityJoinsNames(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM user_activity a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "username", "first_name", "last_name", "action", "created_at"}).
			AddRow(int64(2), "u-1", "ada", "Ada", "Lovelace", ActionLogout, at.Add(time.Minute)).
			AddRow(int64(1), "google:9", nil, "Grace", nil, ActionLogin, at))

	list, err := repo.ListActivity(context.Background())
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(list) != 2 || list[0].FullName != "Ada Lovelace" || list[1].FullName != "Grace" || list[1].Username != "" {
		t.Fatalf("unexpected activity %+v", list)
	}
}
