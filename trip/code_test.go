package trip

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "tripsplit/db/db"
	"tripsplit/db/mem"
)

func TestRandomTripCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := randomTripCode()
		assert.Len(t, code, codeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q in code %s", r, code)
		}
	}
}

func TestUniqueTripCodeRetriesOnCollision(t *testing.T) {
	db := mem.NewInMemoryTripDBWrapper()
	ctx := context.Background()

	taken := "AAAAAAAAAA"
	err := db.CreateTrip(ctx, &dbt.TripInfo{ID: uuid.New(), Title: "taken", Code: taken})
	require.NoError(t, err)

	// The generator returns the taken code twice before a fresh one.
	calls := 0
	gen := func() string {
		calls++
		if calls <= 2 {
			return taken
		}
		return "BBBBBBBBBB"
	}

	code, err := uniqueTripCode(ctx, db, gen)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBBBB", code)
	assert.Equal(t, 3, calls)
}

func TestUniqueTripCodeFirstTry(t *testing.T) {
	db := mem.NewInMemoryTripDBWrapper()

	code, err := UniqueTripCode(context.Background(), db)
	require.NoError(t, err)
	assert.Len(t, code, codeLength)
}
