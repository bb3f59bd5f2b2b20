package mem_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "tripsplit/db/db"
	"tripsplit/db/mem"
)

func sampleUser() *dbt.User {
	return &dbt.User{
		ID:           uuid.New(),
		Username:     "alice-" + uuid.NewString()[:8],
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "$2a$10$notarealhash",
	}
}

func TestCreateUser(t *testing.T) {
	db := mem.NewInMemoryUserDBWrapper()
	ctx := context.Background()

	u := sampleUser()
	require.NoError(t, db.CreateUser(ctx, u))

	byID, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, byID.Username)

	byEmail, err := db.GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	// Duplicate ID and duplicate email both fail.
	err = db.CreateUser(ctx, u)
	assert.ErrorIs(t, err, dbt.ErrDuplicate)

	other := sampleUser()
	other.Email = u.Email
	err = db.CreateUser(ctx, other)
	assert.ErrorIs(t, err, dbt.ErrDuplicate)
}

func TestGetUserNotFound(t *testing.T) {
	db := mem.NewInMemoryUserDBWrapper()
	ctx := context.Background()

	_, err := db.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, dbt.ErrNotFound)
	_, err = db.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestProfiles(t *testing.T) {
	db := mem.NewInMemoryUserDBWrapper()
	ctx := context.Background()
	userID := uuid.New()

	_, err := db.GetProfile(ctx, userID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)

	// EnsureProfile creates an empty profile once and is then idempotent.
	p, err := db.EnsureProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Empty(t, p.IBAN)

	require.NoError(t, db.UpdateProfile(ctx, &dbt.Profile{
		UserID:   userID,
		IBAN:     "DE89370400440532013000",
		BankName: "Test Bank",
	}))

	again, err := db.EnsureProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", again.IBAN)
	assert.Equal(t, "Test Bank", again.BankName)

	err = db.UpdateProfile(ctx, &dbt.Profile{UserID: uuid.New()})
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}
