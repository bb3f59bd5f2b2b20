package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
}

// Profile carries the bank details shown to other members when settling up.
type Profile struct {
	UserID   uuid.UUID
	IBAN     string
	BankName string
}

type TripInfo struct {
	ID       uuid.UUID
	Title    string
	Code     string
	Date     time.Time
	LeaderID uuid.UUID
	HasEnded bool
}

// Item is a single expense line on a trip. AmountPaid is meaningful only
// when IsPaid is true; PayerID is nil until someone pays the item.
type Item struct {
	ID         uuid.UUID
	TripID     uuid.UUID
	Name       string
	Quantity   int
	PayerID    *uuid.UUID
	AmountPaid decimal.Decimal
	IsPaid     bool
}

// Membership is the trip-participant join record. Every participant of a
// trip has exactly one Membership and the leader is always among them.
type Membership struct {
	TripID           uuid.UUID
	UserID           uuid.UUID
	PaymentConfirmed bool
}

type TripData struct {
	Items       []Item
	Memberships []Membership
}

type Trip struct {
	TripInfo
	TripData
}
