package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 12 * time.Hour
	notAvailable      = "N/A"
)

// ServiceConfig holds dependencies for the auth service.
type ServiceConfig struct {
	Users      UserRepository
	Sessions   SessionStore
	Tokens     *TokenIssuer
	SessionTTL time.Duration // default 12h
	LoginDelay time.Duration // artificial pause before each credential check
	BcryptCost int           // default bcrypt.DefaultCost
}

// Service authenticates users and administers accounts.
type Service struct {
	users      UserRepository
	sessions   SessionStore
	tokens     *TokenIssuer
	sessionTTL time.Duration
	loginDelay time.Duration
	bcryptCost int
	newID      func() string
}

// NewService creates an auth service. Missing stores default to memory.
func NewService(cfg ServiceConfig) *Service {
	users := cfg.Users
	if users == nil {
		users = NewMemoryUserRepository()
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = defaultSessionTTL
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewTokenIssuer(uuid.NewString(), ttl)
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: ttl,
		loginDelay: cfg.LoginDelay,
		bcryptCost: cost,
		newID:      uuid.NewString,
	}
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Principal Principal `json:"user"`
}

// Login checks the credentials of an active account and opens a session.
// Archived accounts are refused even with the right password.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	if s.loginDelay > 0 {
		timer := time.NewTimer(s.loginDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Session{}, ctx.Err()
		case <-timer.C:
		}
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		slog.Info("login refused", "username", username, "reason", "unknown user")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("looking up user: %w", err)
	}
	if !u.Active() {
		slog.Info("login refused", "user_id", u.ID, "reason", "archived")
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Credentials.PasswordHash), []byte(password)); err != nil {
		slog.Info("login refused", "user_id", u.ID, "reason", "wrong password")
		return Session{}, ErrInvalidCredentials
	}

	principal := u.Principal()
	data, err := json.Marshal(principal)
	if err != nil {
		return Session{}, fmt.Errorf("encode principal: %w", err)
	}
	sessionID := uuid.NewString()
	if err := s.sessions.Put(ctx, sessionID, data, s.sessionTTL); err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}
	token, expires, err := s.tokens.Issue(sessionID, principal)
	if err != nil {
		_ = s.sessions.Delete(ctx, sessionID)
		return Session{}, err
	}

	slog.Info("user logged in", "user_id", u.ID, "role", string(u.Role))
	return Session{Token: token, ExpiresAt: expires, Principal: principal}, nil
}

// Logout closes the session behind token. Unknown or invalid tokens are
// already logged out.
func (s *Service) Logout(ctx context.Context, token string) error {
	sessionID, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CurrentUser resolves token to its session principal. A stored session
// that fails to decode or lacks a field is deleted and reported as ErrNoSession.
func (s *Service) CurrentUser(ctx context.Context, token string) (Principal, error) {
	sessionID, userID, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, ErrNoSession
	}
	data, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Principal{}, fmt.Errorf("loading session: %w", err)
	}
	if !ok {
		return Principal{}, ErrNoSession
	}

	var p Principal
	if err := json.Unmarshal(data, &p); err != nil || !p.Valid() || p.ID != userID {
		slog.Warn("discarding malformed session", "session_id", sessionID, "error", err)
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			slog.Error("failed to delete malformed session", "session_id", sessionID, "error", delErr)
		}
		return Principal{}, ErrNoSession
	}
	return p, nil
}

// CreateUser registers a new active account.
func (s *Service) CreateUser(ctx context.Context, n NewUser) (User, error) {
	if err := n.Validate(); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(n.Password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}
	u := User{
		ID:           s.newID(),
		PersonalData: n.PersonalData,
		Credentials:  Credentials{Username: n.Username, PasswordHash: string(hash)},
		Role:         n.Role,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return User{}, err
	}
	slog.Info("user created", "user_id", u.ID, "username", u.Credentials.Username, "role", string(u.Role))
	return u, nil
}

// ListUsers returns every account, archived ones included.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// GetUser returns the account with id.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.users.GetByID(ctx, id)
}

// ArchiveUser soft-deletes the account with id.
func (s *Service) ArchiveUser(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusArchived)
}

// ReactivateUser restores an archived account.
func (s *Service) ReactivateUser(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id string, status Status) error {
	if err := s.users.SetStatus(ctx, id, status); err != nil {
		return err
	}
	slog.Info("user status changed", "user_id", id, "status", string(status))
	return nil
}

// EnsureDefaultAdmin creates the principal administrator when the
// credential store is empty. It reports whether an account was created.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err = s.CreateUser(ctx, NewUser{
		PersonalData: PersonalData{
			IdentificationType:   notAvailable,
			IdentificationNumber: notAvailable,
			FullName:             "Administrador Principal",
			City:                 notAvailable,
			Country:              notAvailable,
			Profession:           notAvailable,
		},
		Username: username,
		Password: password,
		Role:     RoleAdministrator,
	})
	if err != nil {
		return false, fmt.Errorf("seeding default administrator: %w", err)
	}
	slog.Warn("default administrator created, change its password", "username", username)
	return true, nil
}

// ImportUser stores an account from a legacy export, hashing its plaintext
// password. The id and status of u are kept; a missing id is generated.
func (s *Service) ImportUser(ctx context.Context, u User, password string) (User, error) {
	if u.Credentials.Username == "" || password == "" {
		return User{}, &ValidationError{Fields: []string{"username", "password"}}
	}
	if !u.Role.Valid() {
		return User{}, &ValidationError{Fields: []string{"role"}}
	}
	if u.ID == "" {
		u.ID = s.newID()
	}
	if u.Status != StatusArchived {
		u.Status = StatusActive
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}
	u.Credentials.PasswordHash = string(hash)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if err := s.users.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}
