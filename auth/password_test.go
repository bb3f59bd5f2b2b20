package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripsplit/auth"
	"tripsplit/db/mem"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	a := auth.NewPasswordAuthenticator(mem.NewInMemoryUserDBWrapper())
	ctx := context.Background()

	user, err := a.Register(ctx, "alice", "Alice@Example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	// Emails are normalized to lowercase.
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	got, err := a.Authenticate(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = a.Authenticate(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	db := mem.NewInMemoryUserDBWrapper()
	a := auth.NewPasswordAuthenticator(db)
	ctx := context.Background()

	_, err := a.Register(ctx, "", "alice@example.com", "correct horse")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = a.Register(ctx, "alice", "", "correct horse")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = a.Register(ctx, "alice", "alice@example.com", "short")
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	_, err = a.Register(ctx, "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)

	_, err = a.Register(ctx, "alice2", "alice@example.com", "correct horse")
	assert.ErrorIs(t, err, auth.ErrEmailExists)
}

func TestRegisterCreatesProfile(t *testing.T) {
	db := mem.NewInMemoryUserDBWrapper()
	a := auth.NewPasswordAuthenticator(db)
	ctx := context.Background()

	user, err := a.Register(ctx, "bob", "bob@example.com", "correct horse")
	require.NoError(t, err)

	profile, err := db.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.UserID)
	assert.Empty(t, profile.IBAN)
}
