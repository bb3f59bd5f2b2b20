package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbt "tripsplit/db/db"
)

// GORMUserDBWrapper is a GORM-based PostgreSQL implementation of dbt.UserDBWrapper.
type GORMUserDBWrapper struct {
	db *gorm.DB
}

// NewGORMUserDBWrapper creates and returns a new instance of GORMUserDBWrapper.
func NewGORMUserDBWrapper(db *gorm.DB) dbt.UserDBWrapper {
	return &GORMUserDBWrapper{
		db: db,
	}
}

func userFromModel(m *UserModel) *dbt.User {
	return &dbt.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
	}
}

// CreateUser inserts a new user using GORM.
func (pgdb *GORMUserDBWrapper) CreateUser(ctx context.Context, u *dbt.User) error {
	userModel := UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}
	result := pgdb.db.WithContext(ctx).Create(&userModel)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("user %s: %w", u.Username, dbt.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", result.Error)
	}
	return nil
}

// GetUserByID retrieves a user by ID using GORM.
func (pgdb *GORMUserDBWrapper) GetUserByID(ctx context.Context, id uuid.UUID) (*dbt.User, error) {
	var userModel UserModel
	result := pgdb.db.WithContext(ctx).First(&userModel, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, result.Error)
	}
	return userFromModel(&userModel), nil
}

// GetUserByEmail retrieves a user by email using GORM.
func (pgdb *GORMUserDBWrapper) GetUserByEmail(ctx context.Context, email string) (*dbt.User, error) {
	var userModel UserModel
	result := pgdb.db.WithContext(ctx).First(&userModel, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with email %s: %w", email, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, result.Error)
	}
	return userFromModel(&userModel), nil
}

// GetProfile retrieves the profile of a user using GORM.
func (pgdb *GORMUserDBWrapper) GetProfile(ctx context.Context, userID uuid.UUID) (*dbt.Profile, error) {
	var profileModel ProfileModel
	result := pgdb.db.WithContext(ctx).First(&profileModel, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile of user %s: %w", userID, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile of user %s: %w", userID, result.Error)
	}
	return &dbt.Profile{
		UserID:   profileModel.UserID,
		IBAN:     profileModel.IBAN,
		BankName: profileModel.BankName,
	}, nil
}

// EnsureProfile creates an empty profile when the user has none yet.
func (pgdb *GORMUserDBWrapper) EnsureProfile(ctx context.Context, userID uuid.UUID) (*dbt.Profile, error) {
	profileModel := ProfileModel{UserID: userID}
	result := pgdb.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&profileModel)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to ensure profile of user %s: %w", userID, result.Error)
	}
	return pgdb.GetProfile(ctx, userID)
}

// UpdateProfile stores the bank details of a user using GORM.
func (pgdb *GORMUserDBWrapper) UpdateProfile(ctx context.Context, p *dbt.Profile) error {
	result := pgdb.db.WithContext(ctx).Model(&ProfileModel{}).
		Where("user_id = ?", p.UserID).
		Updates(map[string]interface{}{
			"iban":      p.IBAN,
			"bank_name": p.BankName,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update profile of user %s: %w", p.UserID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("profile of user %s for update: %w", p.UserID, dbt.ErrNotFound)
	}
	return nil
}
