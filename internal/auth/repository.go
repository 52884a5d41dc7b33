package auth

import (
	"context"
	"slices"
	"sync"
)

// UserRepository is the credential store. Usernames are unique across
// active and archived accounts.
type UserRepository interface {
	// List returns every account in creation order.
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// Create stores u. It returns ErrUsernameTaken on a username collision.
	Create(ctx context.Context, u User) error
	// SetStatus flips the status of the account with id.
	SetStatus(ctx context.Context, id string, status Status) error
	Count(ctx context.Context) (int, error)
}

// MemoryUserRepository keeps accounts in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users []User
}

// NewMemoryUserRepository creates an empty in-memory credential store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{}
}

func (r *MemoryUserRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.users), nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Credentials.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *MemoryUserRepository) Create(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Credentials.Username == u.Credentials.Username || existing.ID == u.ID {
			return ErrUsernameTaken
		}
	}
	r.users = append(r.users, u)
	return nil
}

func (r *MemoryUserRepository) SetStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].Status = status
			return nil
		}
	}
	return ErrUserNotFound
}

func (r *MemoryUserRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
