package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"verisight-backend/internal/shared/auth"
	"verisight-backend/internal/shared/telemetry"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

var (
	ErrMissingCredentials = errors.New("username and password required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RegisterInput is the payload of a local sign-up.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// Service manages accounts and the sessions behind issued tokens.
type Service struct {
	Repo   Repo
	Signer *auth.Signer
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int

	admins map[string]struct{}
	now    func() time.Time
}

func NewService(repo Repo, signer *auth.Signer, adminIDs []string) *Service {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return &Service{Repo: repo, Signer: signer, admins: admins, now: time.Now}
}

// Register creates a local account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return User{}, ErrMissingCredentials
	}
	cost := s.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:              uuid.NewString(),
		Username:        username,
		PasswordHash:    string(hash),
		Email:           strings.TrimSpace(in.Email),
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		ProfileImageURL: avatarBaseURL + url.QueryEscape(username),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("user.registered", map[string]any{"user_id": user.ID})
	return s.Repo.GetByID(ctx, user.ID)
}

// Login checks the password and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (User, string, error) {
	user, err := s.Repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return User{}, "", err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, "", ErrInvalidCredentials
	}
	token, err := s.OpenSession(ctx, user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// SignInExternal stores an account managed by an identity provider and opens a session for it.
func (s *Service) SignInExternal(ctx context.Context, user User) (string, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", errors.New("user id is required")
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return s.OpenSession(ctx, user)
}

// OpenSession records a login and returns a token bound to a new session.
func (s *Service) OpenSession(ctx context.Context, user User) (string, error) {
	now := s.now().UTC()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.Signer.TTL()),
	}
	if err := s.Repo.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	token, err := s.Signer.Sign(auth.Claims{
		SessionID: session.ID,
		Email:     user.Email,
		Name:      user.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := s.Repo.RecordActivity(ctx, user.ID, ActionLogin, now); err != nil {
		telemetry.Warn("user.activity_failed", map[string]any{"user_id": user.ID, "action": ActionLogin, "error": err.Error()})
	}
	telemetry.Info("user.login", map[string]any{"user_id": user.ID, "session_id": session.ID})
	return token, nil
}

// Logout revokes the session behind the token. Unknown or invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return nil
	}
	claims, err := s.Signer.Verify(rawToken)
	if err != nil || claims.SessionID == "" {
		return nil
	}
	session, err := s.Repo.GetSession(ctx, claims.SessionID)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if session.RevokedAt != nil {
		return nil
	}
	now := s.now().UTC()
	if err := s.Repo.RevokeSession(ctx, session.ID, now); err != nil {
		return err
	}
	if err := s.Repo.RecordActivity(ctx, session.UserID, ActionLogout, now); err != nil {
		return err
	}
	telemetry.Info("user.logout", map[string]any{"user_id": session.UserID, "session_id": session.ID})
	return nil
}

// SessionActive reports whether the session exists, is not revoked and has not expired.
func (s *Service) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.Repo.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return session.Active(s.now()), nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// IsAdmin reports whether the user id is configured as an administrator.
func (s *Service) IsAdmin(userID string) bool {
	_, ok := s.admins[userID]
	return ok
}

// Summary lists all accounts and sign-in activity.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	activity, err := s.Repo.ListActivity(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list activity: %w", err)
	}
	all, err := s.Repo.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list users: %w", err)
	}
	out := Summary{Activities: activity, Users: make([]UserSummary, 0, len(all))}
	for _, u := range all {
		out.Users = append(out.Users, UserSummary{
			ID:        u.ID,
			Username:  u.Username,
			FullName:  u.FullName(),
			CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}
