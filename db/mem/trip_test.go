package mem_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "tripsplit/db/db"
	"tripsplit/db/mem"
	"tripsplit/libs/diff"
)

// setupTest creates a fresh store for each test.
func setupTest() dbt.TripDBWrapper {
	return mem.NewInMemoryTripDBWrapper()
}

func sampleTrip() *dbt.TripInfo {
	return &dbt.TripInfo{
		ID:       uuid.New(),
		Title:    "Test Trip",
		Code:     uuid.NewString()[:10],
		Date:     time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		LeaderID: uuid.New(),
	}
}

func TestCreateTrip(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	// Test 1: Successfully create a trip
	info := sampleTrip()
	err := db.CreateTrip(ctx, info)
	assert.NoError(t, err, "CreateTrip should not return an error for a new trip")

	retrieved, err := db.GetTripInfo(ctx, info.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	changes, err := diff.GetCustomDiffer().Diff(info, retrieved)
	require.NoError(t, err)
	assert.Empty(t, changes, "stored trip should equal the input")

	// Test 2: Duplicate trip ID fails
	err = db.CreateTrip(ctx, info)
	assert.ErrorIs(t, err, dbt.ErrDuplicate)

	// Test 3: Duplicate join code fails
	other := sampleTrip()
	other.Code = info.Code
	err = db.CreateTrip(ctx, other)
	assert.ErrorIs(t, err, dbt.ErrDuplicate)
}

func TestGetTripInfoByCode(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, info))

	retrieved, err := db.GetTripInfoByCode(ctx, info.Code)
	require.NoError(t, err)
	assert.Equal(t, info.ID, retrieved.ID)

	_, err = db.GetTripInfoByCode(ctx, "NOSUCHCODE")
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestTripCodeExists(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, info))

	exists, err := db.TripCodeExists(ctx, info.Code)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.TripCodeExists(ctx, "NOSUCHCODE")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateTripInfo(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, info))

	updated := *info
	updated.Title = "Updated Title"
	updated.HasEnded = true
	require.NoError(t, db.UpdateTripInfo(ctx, &updated))

	retrieved, err := db.GetTripInfo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", retrieved.Title)
	assert.True(t, retrieved.HasEnded)

	missing := sampleTrip()
	err = db.UpdateTripInfo(ctx, missing)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestTripItems(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, info))

	payer := uuid.New()
	items := []dbt.Item{
		{ID: uuid.New(), Name: "Cabin", Quantity: 1},
		{ID: uuid.New(), Name: "Beer", Quantity: 24},
	}
	require.NoError(t, db.CreateTripItems(ctx, info.ID, items))

	stored, err := db.GetTripItems(ctx, info.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// Pay the first item and check it round-trips.
	paid := items[0]
	paid.TripID = info.ID
	paid.IsPaid = true
	paid.PayerID = &payer
	paid.AmountPaid = decimal.RequireFromString("99.95")
	require.NoError(t, db.UpdateItem(ctx, &paid))

	got, err := db.GetItem(ctx, paid.ID)
	require.NoError(t, err)
	changes, err := diff.GetCustomDiffer().Diff(&paid, got)
	require.NoError(t, err)
	assert.Empty(t, changes)

	// Delete the second item.
	require.NoError(t, db.DeleteItem(ctx, items[1].ID))
	stored, err = db.GetTripItems(ctx, info.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	_, err = db.GetItem(ctx, items[1].ID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
	err = db.DeleteItem(ctx, items[1].ID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)

	// Items for an unknown trip fail.
	err = db.CreateTripItems(ctx, uuid.New(), items)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestMemberships(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, info))

	user := uuid.New()
	m := dbt.Membership{TripID: info.ID, UserID: user}
	require.NoError(t, db.AddMembership(ctx, m))

	// Duplicate membership fails.
	err := db.AddMembership(ctx, m)
	assert.ErrorIs(t, err, dbt.ErrDuplicate)

	// Membership on an unknown trip fails.
	err = db.AddMembership(ctx, dbt.Membership{TripID: uuid.New(), UserID: user})
	assert.ErrorIs(t, err, dbt.ErrNotFound)

	got, err := db.GetMembership(ctx, info.ID, user)
	require.NoError(t, err)
	assert.False(t, got.PaymentConfirmed)

	m.PaymentConfirmed = true
	require.NoError(t, db.UpdateMembership(ctx, m))
	got, err = db.GetMembership(ctx, info.ID, user)
	require.NoError(t, err)
	assert.True(t, got.PaymentConfirmed)

	all, err := db.GetTripMemberships(ctx, info.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, db.RemoveMembership(ctx, info.ID, user))
	_, err = db.GetMembership(ctx, info.ID, user)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
	err = db.RemoveMembership(ctx, info.ID, user)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestListTripsByMember(t *testing.T) {
	db := setupTest()
	ctx := context.Background()
	user := uuid.New()

	first := sampleTrip()
	second := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, first))
	require.NoError(t, db.CreateTrip(ctx, second))
	require.NoError(t, db.AddMembership(ctx, dbt.Membership{TripID: first.ID, UserID: user}))
	require.NoError(t, db.AddMembership(ctx, dbt.Membership{TripID: second.ID, UserID: user}))

	trips, err := db.ListTripsByMember(ctx, user)
	require.NoError(t, err)
	assert.Len(t, trips, 2)

	trips, err = db.ListTripsByMember(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestDeleteTripCascades(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, info))
	item := dbt.Item{ID: uuid.New(), Name: "Cabin", Quantity: 1}
	require.NoError(t, db.CreateTripItems(ctx, info.ID, []dbt.Item{item}))
	user := uuid.New()
	require.NoError(t, db.AddMembership(ctx, dbt.Membership{TripID: info.ID, UserID: user}))

	require.NoError(t, db.DeleteTrip(ctx, info.ID))

	_, err := db.GetTripInfo(ctx, info.ID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
	_, err = db.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
	_, err = db.GetMembership(ctx, info.ID, user)
	assert.ErrorIs(t, err, dbt.ErrNotFound)

	// The code is free again.
	exists, err := db.TripCodeExists(ctx, info.Code)
	require.NoError(t, err)
	assert.False(t, exists)

	err = db.DeleteTrip(ctx, info.ID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestAtomicRunsAgainstSameStore(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	err := db.Atomic(ctx, func(tx dbt.TripDBWrapper) error {
		if err := tx.CreateTrip(ctx, info); err != nil {
			return err
		}
		return tx.AddMembership(ctx, dbt.Membership{TripID: info.ID, UserID: info.LeaderID})
	})
	require.NoError(t, err)

	_, err = db.GetMembership(ctx, info.ID, info.LeaderID)
	assert.NoError(t, err)
}

func TestStoredCopiesAreIsolated(t *testing.T) {
	db := setupTest()
	ctx := context.Background()

	info := sampleTrip()
	require.NoError(t, db.CreateTrip(ctx, info))

	// Mutating the input after the write must not affect the store.
	info.Title = "changed outside"
	retrieved, err := db.GetTripInfo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Trip", retrieved.Title)

	// Mutating the returned copy must not affect the store either.
	retrieved.Title = "changed returned"
	again, err := db.GetTripInfo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Trip", again.Title)
}
