package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors shared by every implementation so callers can branch on
// the failure kind with errors.Is instead of matching message text.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type TripDBWrapper interface {
	// Atomic runs fn inside a single transaction; every write fn performs
	// through the passed wrapper is committed or rolled back as one unit.
	Atomic(ctx context.Context, fn func(TripDBWrapper) error) error

	// Create
	CreateTrip(ctx context.Context, info *TripInfo) error
	CreateTripItems(ctx context.Context, tripID uuid.UUID, items []Item) error
	AddMembership(ctx context.Context, m Membership) error

	// Read
	GetTripInfo(ctx context.Context, id uuid.UUID) (*TripInfo, error)
	GetTripInfoByCode(ctx context.Context, code string) (*TripInfo, error)
	GetTripItems(ctx context.Context, tripID uuid.UUID) ([]Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error)
	GetTripMemberships(ctx context.Context, tripID uuid.UUID) ([]Membership, error)
	GetMembership(ctx context.Context, tripID, userID uuid.UUID) (*Membership, error)
	ListTripsByMember(ctx context.Context, userID uuid.UUID) ([]TripInfo, error)
	TripCodeExists(ctx context.Context, code string) (bool, error)

	// Update
	UpdateTripInfo(ctx context.Context, info *TripInfo) error
	UpdateItem(ctx context.Context, item *Item) error
	UpdateMembership(ctx context.Context, m Membership) error

	// Delete
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	RemoveMembership(ctx context.Context, tripID, userID uuid.UUID) error
}

type UserDBWrapper interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// EnsureProfile creates an empty profile for the user when none exists.
	EnsureProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, p *Profile) error
}
