package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbt "tripsplit/db/db"
)

// GORMTripDBWrapper is a GORM-based PostgreSQL implementation of dbt.TripDBWrapper.
type GORMTripDBWrapper struct {
	db *gorm.DB
}

// NewGORMTripDBWrapper creates and returns a new instance of GORMTripDBWrapper.
func NewGORMTripDBWrapper(db *gorm.DB) dbt.TripDBWrapper {
	return &GORMTripDBWrapper{
		db: db,
	}
}

func tripInfoFromModel(m *TripModel) *dbt.TripInfo {
	return &dbt.TripInfo{
		ID:       m.ID,
		Title:    m.Title,
		Code:     m.Code,
		Date:     m.Date,
		LeaderID: m.LeaderID,
		HasEnded: m.HasEnded,
	}
}

func itemFromModel(m *ItemModel) dbt.Item {
	return dbt.Item{
		ID:         m.ID,
		TripID:     m.TripID,
		Name:       m.Name,
		Quantity:   m.Quantity,
		PayerID:    m.PayerID,
		AmountPaid: m.AmountPaid,
		IsPaid:     m.IsPaid,
	}
}

// Atomic runs fn against a wrapper bound to a single database transaction.
func (pgdb *GORMTripDBWrapper) Atomic(ctx context.Context, fn func(dbt.TripDBWrapper) error) error {
	return pgdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMTripDBWrapper{db: tx})
	})
}

// CreateTrip creates a new trip entry using GORM.
func (pgdb *GORMTripDBWrapper) CreateTrip(ctx context.Context, info *dbt.TripInfo) error {
	tripModel := TripModel{
		ID:       info.ID,
		Title:    info.Title,
		Code:     info.Code,
		Date:     info.Date,
		LeaderID: info.LeaderID,
		HasEnded: info.HasEnded,
	}
	result := pgdb.db.WithContext(ctx).Create(&tripModel)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("trip %s: %w", info.ID, dbt.ErrDuplicate)
		}
		return fmt.Errorf("failed to create trip: %w", result.Error)
	}
	return nil
}

// CreateTripItems adds a slice of items to an existing trip using GORM.
func (pgdb *GORMTripDBWrapper) CreateTripItems(ctx context.Context, tripID uuid.UUID, items []dbt.Item) error {
	if len(items) == 0 {
		return nil
	}

	var itemModels []ItemModel
	for _, item := range items {
		itemModels = append(itemModels, ItemModel{
			ID:         item.ID,
			TripID:     tripID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			PayerID:    item.PayerID,
			AmountPaid: item.AmountPaid,
			IsPaid:     item.IsPaid,
		})
	}

	// GORM Create In Batches
	result := pgdb.db.WithContext(ctx).Create(&itemModels)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "violates foreign key constraint") {
			return fmt.Errorf("trip %s for creating items: %w", tripID, dbt.ErrNotFound)
		}
		return fmt.Errorf("failed to create items for trip %s: %w", tripID, result.Error)
	}
	return nil
}

// AddMembership inserts a trip-participant join record.
func (pgdb *GORMTripDBWrapper) AddMembership(ctx context.Context, m dbt.Membership) error {
	memberModel := TripMemberModel{
		TripID:           m.TripID,
		UserID:           m.UserID,
		PaymentConfirmed: m.PaymentConfirmed,
	}
	result := pgdb.db.WithContext(ctx).Create(&memberModel)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("user %s already member of trip %s: %w", m.UserID, m.TripID, dbt.ErrDuplicate)
		}
		if strings.Contains(result.Error.Error(), "violates foreign key constraint") {
			return fmt.Errorf("trip %s: %w", m.TripID, dbt.ErrNotFound)
		}
		return fmt.Errorf("failed to add member %s to trip %s: %w", m.UserID, m.TripID, result.Error)
	}
	return nil
}

// GetTripInfo retrieves trip information by ID using GORM.
func (pgdb *GORMTripDBWrapper) GetTripInfo(ctx context.Context, id uuid.UUID) (*dbt.TripInfo, error) {
	var tripModel TripModel
	result := pgdb.db.WithContext(ctx).First(&tripModel, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trip %s: %w", id, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip info for ID %s: %w", id, result.Error)
	}
	return tripInfoFromModel(&tripModel), nil
}

// GetTripInfoByCode retrieves trip information by its unique join code.
func (pgdb *GORMTripDBWrapper) GetTripInfoByCode(ctx context.Context, code string) (*dbt.TripInfo, error) {
	var tripModel TripModel
	result := pgdb.db.WithContext(ctx).First(&tripModel, "code = ?", code)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trip with code %s: %w", code, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip by code %s: %w", code, result.Error)
	}
	return tripInfoFromModel(&tripModel), nil
}

// GetTripItems retrieves all items for a given trip ID using GORM.
func (pgdb *GORMTripDBWrapper) GetTripItems(ctx context.Context, tripID uuid.UUID) ([]dbt.Item, error) {
	var itemModels []ItemModel
	result := pgdb.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("created_at").Find(&itemModels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get items for trip %s: %w", tripID, result.Error)
	}

	var items []dbt.Item
	for i := range itemModels {
		items = append(items, itemFromModel(&itemModels[i]))
	}
	return items, nil
}

// GetItem retrieves a single item by ID using GORM.
func (pgdb *GORMTripDBWrapper) GetItem(ctx context.Context, itemID uuid.UUID) (*dbt.Item, error) {
	var itemModel ItemModel
	result := pgdb.db.WithContext(ctx).First(&itemModel, "id = ?", itemID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item %s: %w", itemID, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, result.Error)
	}
	item := itemFromModel(&itemModel)
	return &item, nil
}

// GetTripMemberships retrieves all join records for a given trip ID using GORM.
func (pgdb *GORMTripDBWrapper) GetTripMemberships(ctx context.Context, tripID uuid.UUID) ([]dbt.Membership, error) {
	var memberModels []TripMemberModel
	result := pgdb.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("created_at").Find(&memberModels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get memberships for trip %s: %w", tripID, result.Error)
	}

	var memberships []dbt.Membership
	for _, mm := range memberModels {
		memberships = append(memberships, dbt.Membership{
			TripID:           mm.TripID,
			UserID:           mm.UserID,
			PaymentConfirmed: mm.PaymentConfirmed,
		})
	}
	return memberships, nil
}

// GetMembership retrieves the join record for (tripID, userID) using GORM.
func (pgdb *GORMTripDBWrapper) GetMembership(ctx context.Context, tripID, userID uuid.UUID) (*dbt.Membership, error) {
	var memberModel TripMemberModel
	result := pgdb.db.WithContext(ctx).First(&memberModel, "trip_id = ? AND user_id = ?", tripID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("membership of %s in trip %s: %w", userID, tripID, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get membership of %s in trip %s: %w", userID, tripID, result.Error)
	}
	return &dbt.Membership{
		TripID:           memberModel.TripID,
		UserID:           memberModel.UserID,
		PaymentConfirmed: memberModel.PaymentConfirmed,
	}, nil
}

// ListTripsByMember retrieves every trip the user participates in.
func (pgdb *GORMTripDBWrapper) ListTripsByMember(ctx context.Context, userID uuid.UUID) ([]dbt.TripInfo, error) {
	var tripModels []TripModel
	result := pgdb.db.WithContext(ctx).
		Joins("JOIN trip_members ON trip_members.trip_id = trips.id").
		Where("trip_members.user_id = ?", userID).
		Order("trips.date").
		Find(&tripModels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list trips for user %s: %w", userID, result.Error)
	}

	var trips []dbt.TripInfo
	for i := range tripModels {
		trips = append(trips, *tripInfoFromModel(&tripModels[i]))
	}
	return trips, nil
}

// TripCodeExists reports whether any trip already uses the given join code.
func (pgdb *GORMTripDBWrapper) TripCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	result := pgdb.db.WithContext(ctx).Model(&TripModel{}).Where("code = ?", code).Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check trip code %s: %w", code, result.Error)
	}
	return count > 0, nil
}

// UpdateTripInfo updates the mutable fields of an existing trip using GORM.
func (pgdb *GORMTripDBWrapper) UpdateTripInfo(ctx context.Context, info *dbt.TripInfo) error {
	result := pgdb.db.WithContext(ctx).Model(&TripModel{}).Where("id = ?", info.ID).
		Updates(map[string]interface{}{
			"title":     info.Title,
			"date":      info.Date,
			"has_ended": info.HasEnded,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update trip %s: %w", info.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("trip %s for update: %w", info.ID, dbt.ErrNotFound)
	}
	return nil
}

// UpdateItem updates the payment fields of an item using GORM.
func (pgdb *GORMTripDBWrapper) UpdateItem(ctx context.Context, item *dbt.Item) error {
	itemModel := ItemModel{
		ID:         item.ID,
		Name:       item.Name,
		Quantity:   item.Quantity,
		PayerID:    item.PayerID,
		AmountPaid: item.AmountPaid,
		IsPaid:     item.IsPaid,
	}

	// Select the updatable columns so GORM keeps CreatedAt and TripID intact.
	result := pgdb.db.WithContext(ctx).Model(&itemModel).
		Select("name", "quantity", "payer_id", "amount_paid", "is_paid").
		Where("id = ?", item.ID).Updates(itemModel)
	if result.Error != nil {
		return fmt.Errorf("failed to update item %s: %w", item.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("item %s for update: %w", item.ID, dbt.ErrNotFound)
	}
	return nil
}

// UpdateMembership updates the confirmation flag of a join record using GORM.
func (pgdb *GORMTripDBWrapper) UpdateMembership(ctx context.Context, m dbt.Membership) error {
	result := pgdb.db.WithContext(ctx).Model(&TripMemberModel{}).
		Where("trip_id = ? AND user_id = ?", m.TripID, m.UserID).
		Update("payment_confirmed", m.PaymentConfirmed)
	if result.Error != nil {
		return fmt.Errorf("failed to update membership of %s in trip %s: %w", m.UserID, m.TripID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("membership of %s in trip %s for update: %w", m.UserID, m.TripID, dbt.ErrNotFound)
	}
	return nil
}

// DeleteTrip deletes a trip and all its associated data using GORM.
// Items and memberships go with it through ON DELETE CASCADE.
func (pgdb *GORMTripDBWrapper) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	result := pgdb.db.WithContext(ctx).Delete(&TripModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete trip %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("trip %s for deletion: %w", id, dbt.ErrNotFound)
	}
	return nil
}

// DeleteItem deletes a specific item using GORM.
func (pgdb *GORMTripDBWrapper) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result := pgdb.db.WithContext(ctx).Delete(&ItemModel{}, "id = ?", itemID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("item %s for deletion: %w", itemID, dbt.ErrNotFound)
	}
	return nil
}

// RemoveMembership deletes the join record for (tripID, userID) using GORM.
func (pgdb *GORMTripDBWrapper) RemoveMembership(ctx context.Context, tripID, userID uuid.UUID) error {
	result := pgdb.db.WithContext(ctx).
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		Delete(&TripMemberModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove member %s from trip %s: %w", userID, tripID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("membership of %s in trip %s: %w", userID, tripID, dbt.ErrNotFound)
	}
	return nil
}
