package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrNoSession     = errors.New("session not found")
)

// Repo persists accounts, sessions and sign-in activity.
type Repo interface {
	Create(ctx context.Context, user User) error
	// Upsert inserts or refreshes an externally managed account, keeping its createdAt.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)

	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	RevokeSession(ctx context.Context, sessionID string, at time.Time) error

	RecordActivity(ctx context.Context, userID, action string, at time.Time) error
	// ListActivity returns activity newest first.
	ListActivity(ctx context.Context) ([]Activity, error)
}
