package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dbt "tripsplit/db/db"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// PasswordAuthenticator registers and authenticates users with bcrypt
// password hashes stored next to the user record.
type PasswordAuthenticator struct {
	db dbt.UserDBWrapper
}

func NewPasswordAuthenticator(db dbt.UserDBWrapper) *PasswordAuthenticator {
	return &PasswordAuthenticator{db: db}
}

// Register creates a user account with a hashed password and an empty
// bank profile.
func (a *PasswordAuthenticator) Register(ctx context.Context, username, email, password string) (*dbt.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &dbt.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := a.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, dbt.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if _, err := a.db.EnsureProfile(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return user, nil
}

// Authenticate verifies email and password and returns the matching user.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*dbt.User, error) {
	user, err := a.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
