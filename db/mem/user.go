package mem

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	dbt "tripsplit/db/db"
)

// inMemoryUserDBWrapper is an in-memory implementation of dbt.UserDBWrapper.
type inMemoryUserDBWrapper struct {
	users    map[uuid.UUID]*dbt.User
	byEmail  map[string]uuid.UUID
	profiles map[uuid.UUID]*dbt.Profile

	mu sync.RWMutex
}

// NewInMemoryUserDBWrapper creates and returns a new instance of inMemoryUserDBWrapper.
func NewInMemoryUserDBWrapper() dbt.UserDBWrapper {
	return &inMemoryUserDBWrapper{
		users:    make(map[uuid.UUID]*dbt.User),
		byEmail:  make(map[string]uuid.UUID),
		profiles: make(map[uuid.UUID]*dbt.Profile),
	}
}

// CreateUser stores a new user in memory.
func (db *inMemoryUserDBWrapper) CreateUser(_ context.Context, u *dbt.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, dbt.ErrDuplicate)
	}
	if _, exists := db.byEmail[u.Email]; exists {
		return fmt.Errorf("user with email %s: %w", u.Email, dbt.ErrDuplicate)
	}

	uCopy := *u
	db.users[u.ID] = &uCopy
	db.byEmail[u.Email] = u.ID
	return nil
}

// GetUserByID retrieves a user by ID.
func (db *inMemoryUserDBWrapper) GetUserByID(_ context.Context, id uuid.UUID) (*dbt.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u, exists := db.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, dbt.ErrNotFound)
	}
	uCopy := *u
	return &uCopy, nil
}

// GetUserByEmail retrieves a user by email.
func (db *inMemoryUserDBWrapper) GetUserByEmail(_ context.Context, email string) (*dbt.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	id, exists := db.byEmail[email]
	if !exists {
		return nil, fmt.Errorf("user with email %s: %w", email, dbt.ErrNotFound)
	}
	uCopy := *db.users[id]
	return &uCopy, nil
}

// GetProfile retrieves the profile of a user.
func (db *inMemoryUserDBWrapper) GetProfile(_ context.Context, userID uuid.UUID) (*dbt.Profile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	p, exists := db.profiles[userID]
	if !exists {
		return nil, fmt.Errorf("profile of user %s: %w", userID, dbt.ErrNotFound)
	}
	pCopy := *p
	return &pCopy, nil
}

// EnsureProfile creates an empty profile when the user has none yet.
func (db *inMemoryUserDBWrapper) EnsureProfile(_ context.Context, userID uuid.UUID) (*dbt.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if p, exists := db.profiles[userID]; exists {
		pCopy := *p
		return &pCopy, nil
	}

	p := &dbt.Profile{UserID: userID}
	db.profiles[userID] = p
	pCopy := *p
	return &pCopy, nil
}

// UpdateProfile stores the bank details of a user.
func (db *inMemoryUserDBWrapper) UpdateProfile(_ context.Context, p *dbt.Profile) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, exists := db.profiles[p.UserID]
	if !exists {
		return fmt.Errorf("profile of user %s for update: %w", p.UserID, dbt.ErrNotFound)
	}

	stored.IBAN = p.IBAN
	stored.BankName = p.BankName
	return nil
}
