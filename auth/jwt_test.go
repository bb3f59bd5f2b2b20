package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripsplit/auth"
	dbt "tripsplit/db/db"
)

func TestJWTRoundTrip(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour)
	user := &dbt.User{ID: uuid.New(), Email: "alice@example.com"}

	token, err := m.Generate(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
}

func TestJWTWrongSecret(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour)
	token, err := m.Generate(&dbt.User{ID: uuid.New(), Email: "alice@example.com"})
	require.NoError(t, err)

	other := auth.NewJWTManager("another-secret", time.Hour)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTExpired(t *testing.T) {
	m := auth.NewJWTManager("test-secret", -time.Minute)
	token, err := m.Generate(&dbt.User{ID: uuid.New(), Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTGarbage(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour)
	_, err := m.Validate("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
