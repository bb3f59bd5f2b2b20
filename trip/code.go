package trip

import (
	"context"
	"math/rand/v2"

	dbt "tripsplit/db/db"
)

const (
	codeLength   = 10
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomTripCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(code)
}

// uniqueTripCode draws codes from gen until one is not yet used by any trip.
func uniqueTripCode(ctx context.Context, db dbt.TripDBWrapper, gen func() string) (string, error) {
	for {
		code := gen()
		exists, err := db.TripCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// UniqueTripCode generates a random 10-character uppercase+digit join code
// that no existing trip uses.
func UniqueTripCode(ctx context.Context, db dbt.TripDBWrapper) (string, error) {
	return uniqueTripCode(ctx, db, randomTripCode)
}
