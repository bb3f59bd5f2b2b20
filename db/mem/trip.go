package mem

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	dbt "tripsplit/db/db"
)

type memberKey struct {
	tripID uuid.UUID
	userID uuid.UUID
}

// inMemoryTripDBWrapper is an in-memory implementation of dbt.TripDBWrapper.
// It uses maps to store data for quick lookups and backs the core tests.
type inMemoryTripDBWrapper struct {
	tripsInfo   map[uuid.UUID]*dbt.TripInfo
	tripsByCode map[string]uuid.UUID
	items       map[uuid.UUID]*dbt.Item
	itemsByTrip map[uuid.UUID][]uuid.UUID
	memberships map[memberKey]*dbt.Membership

	// Mutex for thread-safety, every operation locks for its full duration.
	mu sync.RWMutex
}

// NewInMemoryTripDBWrapper creates and returns a new instance of inMemoryTripDBWrapper.
func NewInMemoryTripDBWrapper() dbt.TripDBWrapper {
	return &inMemoryTripDBWrapper{
		tripsInfo:   make(map[uuid.UUID]*dbt.TripInfo),
		tripsByCode: make(map[string]uuid.UUID),
		items:       make(map[uuid.UUID]*dbt.Item),
		itemsByTrip: make(map[uuid.UUID][]uuid.UUID),
		memberships: make(map[memberKey]*dbt.Membership),
	}
}

// Atomic in the in-memory wrapper simply runs fn against the same store.
// Each individual call already holds the mutex for its full duration, which
// is enough isolation for the single-request operations the core performs.
func (db *inMemoryTripDBWrapper) Atomic(_ context.Context, fn func(dbt.TripDBWrapper) error) error {
	return fn(db)
}

// CreateTrip creates a new trip entry in memory.
func (db *inMemoryTripDBWrapper) CreateTrip(_ context.Context, info *dbt.TripInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tripsInfo[info.ID]; exists {
		return fmt.Errorf("trip %s: %w", info.ID, dbt.ErrDuplicate)
	}
	if _, exists := db.tripsByCode[info.Code]; exists {
		return fmt.Errorf("trip code %s: %w", info.Code, dbt.ErrDuplicate)
	}

	// Store a copy to prevent external modification of the original info pointer
	infoCopy := *info
	db.tripsInfo[info.ID] = &infoCopy
	db.tripsByCode[info.Code] = info.ID
	db.itemsByTrip[info.ID] = []uuid.UUID{}
	return nil
}

// CreateTripItems adds a slice of items to an existing trip.
func (db *inMemoryTripDBWrapper) CreateTripItems(_ context.Context, tripID uuid.UUID, items []dbt.Item) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tripsInfo[tripID]; !exists {
		return fmt.Errorf("trip %s: %w", tripID, dbt.ErrNotFound)
	}

	for _, item := range items {
		itemCopy := item
		itemCopy.TripID = tripID
		db.items[item.ID] = &itemCopy
		db.itemsByTrip[tripID] = append(db.itemsByTrip[tripID], item.ID)
	}
	return nil
}

// AddMembership inserts a trip-participant join record in memory.
func (db *inMemoryTripDBWrapper) AddMembership(_ context.Context, m dbt.Membership) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tripsInfo[m.TripID]; !exists {
		return fmt.Errorf("trip %s: %w", m.TripID, dbt.ErrNotFound)
	}
	key := memberKey{tripID: m.TripID, userID: m.UserID}
	if _, exists := db.memberships[key]; exists {
		return fmt.Errorf("user %s already member of trip %s: %w", m.UserID, m.TripID, dbt.ErrDuplicate)
	}

	mCopy := m
	db.memberships[key] = &mCopy
	return nil
}

// GetTripInfo retrieves trip information by ID.
func (db *inMemoryTripDBWrapper) GetTripInfo(_ context.Context, id uuid.UUID) (*dbt.TripInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	info, exists := db.tripsInfo[id]
	if !exists {
		return nil, fmt.Errorf("trip %s: %w", id, dbt.ErrNotFound)
	}
	infoCopy := *info
	return &infoCopy, nil
}

// GetTripInfoByCode retrieves trip information by its unique join code.
func (db *inMemoryTripDBWrapper) GetTripInfoByCode(_ context.Context, code string) (*dbt.TripInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	id, exists := db.tripsByCode[code]
	if !exists {
		return nil, fmt.Errorf("trip with code %s: %w", code, dbt.ErrNotFound)
	}
	infoCopy := *db.tripsInfo[id]
	return &infoCopy, nil
}

// GetTripItems retrieves all items for a given trip ID.
func (db *inMemoryTripDBWrapper) GetTripItems(_ context.Context, tripID uuid.UUID) ([]dbt.Item, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	ids, exists := db.itemsByTrip[tripID]
	if !exists {
		return nil, fmt.Errorf("trip %s: %w", tripID, dbt.ErrNotFound)
	}

	items := make([]dbt.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, *db.items[id])
	}
	return items, nil
}

// GetItem retrieves a single item by ID.
func (db *inMemoryTripDBWrapper) GetItem(_ context.Context, itemID uuid.UUID) (*dbt.Item, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	item, exists := db.items[itemID]
	if !exists {
		return nil, fmt.Errorf("item %s: %w", itemID, dbt.ErrNotFound)
	}
	itemCopy := *item
	return &itemCopy, nil
}

// GetTripMemberships retrieves all join records for a given trip ID.
func (db *inMemoryTripDBWrapper) GetTripMemberships(_ context.Context, tripID uuid.UUID) ([]dbt.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if _, exists := db.tripsInfo[tripID]; !exists {
		return nil, fmt.Errorf("trip %s: %w", tripID, dbt.ErrNotFound)
	}

	var memberships []dbt.Membership
	for key, m := range db.memberships {
		if key.tripID == tripID {
			memberships = append(memberships, *m)
		}
	}
	return memberships, nil
}

// GetMembership retrieves the join record for (tripID, userID).
func (db *inMemoryTripDBWrapper) GetMembership(_ context.Context, tripID, userID uuid.UUID) (*dbt.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, exists := db.memberships[memberKey{tripID: tripID, userID: userID}]
	if !exists {
		return nil, fmt.Errorf("membership of %s in trip %s: %w", userID, tripID, dbt.ErrNotFound)
	}
	mCopy := *m
	return &mCopy, nil
}

// ListTripsByMember retrieves every trip the user participates in.
func (db *inMemoryTripDBWrapper) ListTripsByMember(_ context.Context, userID uuid.UUID) ([]dbt.TripInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var trips []dbt.TripInfo
	for key := range db.memberships {
		if key.userID == userID {
			trips = append(trips, *db.tripsInfo[key.tripID])
		}
	}
	return trips, nil
}

// TripCodeExists reports whether any trip already uses the given join code.
func (db *inMemoryTripDBWrapper) TripCodeExists(_ context.Context, code string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.tripsByCode[code]
	return exists, nil
}

// UpdateTripInfo updates the information of an existing trip.
func (db *inMemoryTripDBWrapper) UpdateTripInfo(_ context.Context, info *dbt.TripInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, exists := db.tripsInfo[info.ID]
	if !exists {
		return fmt.Errorf("trip %s for update: %w", info.ID, dbt.ErrNotFound)
	}

	stored.Title = info.Title
	stored.Date = info.Date
	stored.HasEnded = info.HasEnded
	return nil
}

// UpdateItem updates an existing item.
func (db *inMemoryTripDBWrapper) UpdateItem(_ context.Context, item *dbt.Item) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, exists := db.items[item.ID]
	if !exists {
		return fmt.Errorf("item %s for update: %w", item.ID, dbt.ErrNotFound)
	}

	stored.Name = item.Name
	stored.Quantity = item.Quantity
	stored.PayerID = item.PayerID
	stored.AmountPaid = item.AmountPaid
	stored.IsPaid = item.IsPaid
	return nil
}

// UpdateMembership updates the confirmation flag of a join record.
func (db *inMemoryTripDBWrapper) UpdateMembership(_ context.Context, m dbt.Membership) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, exists := db.memberships[memberKey{tripID: m.TripID, userID: m.UserID}]
	if !exists {
		return fmt.Errorf("membership of %s in trip %s for update: %w", m.UserID, m.TripID, dbt.ErrNotFound)
	}

	stored.PaymentConfirmed = m.PaymentConfirmed
	return nil
}

// DeleteTrip deletes a trip and cascades to its items and memberships.
func (db *inMemoryTripDBWrapper) DeleteTrip(_ context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	info, exists := db.tripsInfo[id]
	if !exists {
		return fmt.Errorf("trip %s for deletion: %w", id, dbt.ErrNotFound)
	}

	for _, itemID := range db.itemsByTrip[id] {
		delete(db.items, itemID)
	}
	for key := range db.memberships {
		if key.tripID == id {
			delete(db.memberships, key)
		}
	}
	delete(db.tripsByCode, info.Code)
	delete(db.itemsByTrip, id)
	delete(db.tripsInfo, id)
	return nil
}

// DeleteItem deletes a specific item.
func (db *inMemoryTripDBWrapper) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	item, exists := db.items[itemID]
	if !exists {
		return fmt.Errorf("item %s for deletion: %w", itemID, dbt.ErrNotFound)
	}

	ids := db.itemsByTrip[item.TripID]
	for i, id := range ids {
		if id == itemID {
			db.itemsByTrip[item.TripID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	delete(db.items, itemID)
	return nil
}

// RemoveMembership deletes the join record for (tripID, userID).
func (db *inMemoryTripDBWrapper) RemoveMembership(_ context.Context, tripID, userID uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := memberKey{tripID: tripID, userID: userID}
	if _, exists := db.memberships[key]; !exists {
		return fmt.Errorf("membership of %s in trip %s: %w", userID, tripID, dbt.ErrNotFound)
	}
	delete(db.memberships, key)
	return nil
}
