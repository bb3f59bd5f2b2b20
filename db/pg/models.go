package pg

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:150;not null;uniqueIndex"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

type ProfileModel struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	IBAN     string    `gorm:"column:iban;size:34"`
	BankName string    `gorm:"size:255"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for ProfileModel.
func (ProfileModel) TableName() string {
	return "profiles"
}

type TripModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title    string    `gorm:"size:100;not null"`
	Code     string    `gorm:"size:10;not null;uniqueIndex"`
	Date     time.Time `gorm:"type:date;not null"`
	LeaderID uuid.UUID `gorm:"type:uuid;not null"`
	HasEnded bool      `gorm:"not null;default:false"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for TripModel.
func (TripModel) TableName() string {
	return "trips"
}

type ItemModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TripID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name       string          `gorm:"size:255;not null"`
	Quantity   int             `gorm:"not null;default:1"`
	PayerID    *uuid.UUID      `gorm:"type:uuid"`
	AmountPaid decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	IsPaid     bool            `gorm:"not null;default:false"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for ItemModel.
func (ItemModel) TableName() string {
	return "items"
}

type TripMemberModel struct {
	TripID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentConfirmed bool      `gorm:"not null;default:false"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for TripMemberModel.
func (TripMemberModel) TableName() string {
	return "trip_members"
}
