package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbt "tripsplit/db/db"
	"tripsplit/mq/mq"
)

// NewItem is one (name, quantity) pair supplied when a trip is created.
type NewItem struct {
	Name     string
	Quantity int
}

// Detail is everything the trip details page needs in one shot.
type Detail struct {
	Info           dbt.TripInfo
	Items          []dbt.Item
	Memberships    []dbt.Membership
	Split          map[uuid.UUID]MemberBalance
	TotalPaid      decimal.Decimal
	CompleteRatio  float64
	ConfirmedRatio float64
	Caller         dbt.Membership
}

// HomeView lists the trips of one user for the home page.
type HomeView struct {
	Trips      []dbt.TripInfo
	HasCreated bool
	HasJoined  bool
}

// Service is the trip lifecycle engine. Every operation runs against one
// request context, leaves no partial state behind on failure and reports
// business-rule failures as *Error.
type Service struct {
	db dbt.TripDBWrapper
	mq mq.TripMessageQueueWrapper
}

// NewService creates a lifecycle service on top of the given store and
// message queue. mqw may be nil when no event fan-out is wanted.
func NewService(db dbt.TripDBWrapper, mqw mq.TripMessageQueueWrapper) *Service {
	return &Service{
		db: db,
		mq: mqw,
	}
}

func (s *Service) publishItem(action mq.Action, item *dbt.Item) {
	if s.mq == nil {
		return
	}
	q := s.mq.GetTripItemMessageQueue(action)
	if q == nil {
		return
	}
	payer := uuid.Nil
	if item.PayerID != nil {
		payer = *item.PayerID
	}
	msg := mq.TripItemMessage{
		TripID:   item.TripID,
		ID:       item.ID,
		Name:     item.Name,
		Quantity: item.Quantity,
		Payer:    payer,
		Amount:   item.AmountPaid,
		IsPaid:   item.IsPaid,
	}
	if err := q.Publish(msg); err != nil {
		slog.Warn("failed to publish item event", "action", action, "item", item.ID, "err", err)
	}
}

func (s *Service) publishMember(action mq.Action, m dbt.Membership) {
	if s.mq == nil {
		return
	}
	q := s.mq.GetTripMemberMessageQueue(action)
	if q == nil {
		return
	}
	msg := mq.TripMemberMessage{
		TripID:           m.TripID,
		UserID:           m.UserID,
		PaymentConfirmed: m.PaymentConfirmed,
	}
	if err := q.Publish(msg); err != nil {
		slog.Warn("failed to publish member event", "action", action, "trip", m.TripID, "err", err)
	}
}

func (s *Service) isParticipant(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	_, err := s.db.GetMembership(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateTrip creates a trip with a fresh unique join code, adds the leader
// as first participant and creates one unpaid item per initial pair,
// skipping blanks and duplicate names.
func (s *Service) CreateTrip(ctx context.Context, leaderID uuid.UUID, title string, date time.Time, initialItems []NewItem) (*dbt.TripInfo, error) {
	title = strings.TrimSpace(title)
	if title == "" || date.IsZero() {
		return nil, newError(KindValidation, "Title and date are required!")
	}

	code, err := UniqueTripCode(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to generate trip code: %w", err)
	}

	info := &dbt.TripInfo{
		ID:       uuid.New(),
		Title:    title,
		Code:     code,
		Date:     date,
		LeaderID: leaderID,
	}
	membership := dbt.Membership{
		TripID: info.ID,
		UserID: leaderID,
	}

	var items []dbt.Item
	seen := make(map[string]bool)
	for _, ni := range initialItems {
		name := strings.TrimSpace(ni.Name)
		if name == "" || ni.Quantity < 1 || seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, dbt.Item{
			ID:       uuid.New(),
			TripID:   info.ID,
			Name:     name,
			Quantity: ni.Quantity,
		})
	}

	err = s.db.Atomic(ctx, func(tx dbt.TripDBWrapper) error {
		if err := tx.CreateTrip(ctx, info); err != nil {
			return err
		}
		if err := tx.AddMembership(ctx, membership); err != nil {
			return err
		}
		return tx.CreateTripItems(ctx, info.ID, items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	s.publishMember(mq.ActionCreate, membership)
	for i := range items {
		s.publishItem(mq.ActionCreate, &items[i])
	}
	return info, nil
}

// JoinTrip adds the user to the trip behind the given join code.
func (s *Service) JoinTrip(ctx context.Context, userID uuid.UUID, code string) (*dbt.TripInfo, error) {
	code = strings.TrimSpace(code)
	info, err := s.db.GetTripInfoByCode(ctx, code)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(KindNotFound, "The trip code you entered does not exist.")
		}
		return nil, err
	}

	joined, err := s.isParticipant(ctx, info.ID, userID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, newError(KindAlreadyMember, "You are already a participant in this trip.")
	}

	membership := dbt.Membership{
		TripID: info.ID,
		UserID: userID,
	}
	if err := s.db.AddMembership(ctx, membership); err != nil {
		if errors.Is(err, dbt.ErrDuplicate) {
			return nil, newError(KindAlreadyMember, "You are already a participant in this trip.")
		}
		return nil, fmt.Errorf("failed to join trip %s: %w", info.ID, err)
	}

	s.publishMember(mq.ActionCreate, membership)
	return info, nil
}

// LeaveTrip removes the user from the trip. The leader cannot leave.
func (s *Service) LeaveTrip(ctx context.Context, userID, tripID uuid.UUID) error {
	info, err := s.db.GetTripInfo(ctx, tripID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return newError(KindNotFound, "Trip not found!")
		}
		return err
	}

	if info.LeaderID == userID {
		return newError(KindForbidden, "You are the leader of this trip. You cannot leave the trip!")
	}

	joined, err := s.isParticipant(ctx, tripID, userID)
	if err != nil {
		return err
	}
	if !joined {
		return newError(KindNotParticipant, "You are not a participant in this trip!")
	}

	if err := s.db.RemoveMembership(ctx, tripID, userID); err != nil {
		return fmt.Errorf("failed to leave trip %s: %w", tripID, err)
	}

	s.publishMember(mq.ActionDelete, dbt.Membership{TripID: tripID, UserID: userID})
	return nil
}

// AddItem creates an unpaid item on the trip for a participant.
func (s *Service) AddItem(ctx context.Context, actorID, tripID uuid.UUID, name string, quantity int) (*dbt.Item, error) {
	if _, err := s.db.GetTripInfo(ctx, tripID); err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(KindNotFound, "Trip not found!")
		}
		return nil, err
	}

	joined, err := s.isParticipant(ctx, tripID, actorID)
	if err != nil {
		return nil, err
	}
	if !joined {
		return nil, newError(KindForbidden, "You are not a participant in this trip!")
	}

	name = strings.TrimSpace(name)
	if name == "" || quantity < 1 {
		return nil, newError(KindValidation, "Item name and a positive quantity are required!")
	}

	item := dbt.Item{
		ID:       uuid.New(),
		TripID:   tripID,
		Name:     name,
		Quantity: quantity,
	}
	if err := s.db.CreateTripItems(ctx, tripID, []dbt.Item{item}); err != nil {
		return nil, fmt.Errorf("failed to add item to trip %s: %w", tripID, err)
	}

	s.publishItem(mq.ActionCreate, &item)
	return &item, nil
}

// DeleteItem removes an item from its trip. Any caller may delete any item,
// matching the long-standing behavior of the app; tightening this to
// participants only is an open product decision.
func (s *Service) DeleteItem(ctx context.Context, itemID uuid.UUID) (*dbt.Item, error) {
	item, err := s.db.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(KindNotFound, "Item not found!")
		}
		return nil, err
	}

	if err := s.db.DeleteItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("failed to delete item %s: %w", itemID, err)
	}

	s.publishItem(mq.ActionDelete, item)
	return item, nil
}

// PayItem marks an item as paid by the actor with the given amount. The
// amount must parse as a non-negative decimal.
func (s *Service) PayItem(ctx context.Context, actorID, itemID uuid.UUID, amount string) (*dbt.Item, error) {
	item, err := s.db.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(KindNotFound, "Item not found!")
		}
		return nil, err
	}

	if item.IsPaid {
		return nil, newError(KindAlreadyPaid, "Item is already paid!")
	}

	joined, err := s.isParticipant(ctx, item.TripID, actorID)
	if err != nil {
		return nil, err
	}
	if !joined {
		return nil, newError(KindForbidden, "You are not a participant in this trip!")
	}

	paid, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || paid.IsNegative() {
		return nil, newError(KindValidation, "Invalid amount entered!")
	}

	item.IsPaid = true
	item.PayerID = &actorID
	item.AmountPaid = paid
	if err := s.db.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to pay item %s: %w", itemID, err)
	}

	s.publishItem(mq.ActionUpdate, item)
	return item, nil
}

// EndTrip marks the trip as ended when called by the leader and every item
// is paid. A non-leader participant's call is a successful no-op; the
// returned bool reports whether the trip actually ended.
func (s *Service) EndTrip(ctx context.Context, actorID, tripID uuid.UUID) (bool, error) {
	info, err := s.db.GetTripInfo(ctx, tripID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return false, newError(KindNotFound, "Trip not found!")
		}
		return false, err
	}

	items, err := s.db.GetTripItems(ctx, tripID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if !item.IsPaid {
			return false, newError(KindIncomplete, "You cannot end the trip with unpaid items!")
		}
	}

	joined, err := s.isParticipant(ctx, tripID, actorID)
	if err != nil {
		return false, err
	}
	if !joined {
		return false, newError(KindForbidden, "You are not a participant in this trip!")
	}

	if info.LeaderID != actorID {
		return false, nil
	}

	info.HasEnded = true
	if err := s.db.UpdateTripInfo(ctx, info); err != nil {
		return false, fmt.Errorf("failed to end trip %s: %w", tripID, err)
	}
	return true, nil
}

// ConfirmPayment sets the actor's own confirmation flag once the trip ended.
func (s *Service) ConfirmPayment(ctx context.Context, actorID, tripID uuid.UUID) error {
	info, err := s.db.GetTripInfo(ctx, tripID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return newError(KindNotFound, "Trip not found!")
		}
		return err
	}

	membership, err := s.db.GetMembership(ctx, tripID, actorID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return newError(KindForbidden, "You are not a participant in this trip!")
		}
		return err
	}

	if !info.HasEnded {
		return newError(KindNotEnded, "You cannot confirm payment for a trip that has not ended!")
	}

	membership.PaymentConfirmed = true
	if err := s.db.UpdateMembership(ctx, *membership); err != nil {
		return fmt.Errorf("failed to confirm payment for trip %s: %w", tripID, err)
	}

	s.publishMember(mq.ActionUpdate, *membership)
	return nil
}

// DeleteTrip removes the trip with its items and memberships. Only the
// leader may delete, and an ended trip stays until everyone confirmed.
func (s *Service) DeleteTrip(ctx context.Context, actorID, tripID uuid.UUID) error {
	info, err := s.db.GetTripInfo(ctx, tripID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return newError(KindNotFound, "Trip not found!")
		}
		return err
	}

	if info.LeaderID != actorID {
		return newError(KindForbidden, "You are not allowed to delete this trip!")
	}

	if info.HasEnded {
		memberships, err := s.db.GetTripMemberships(ctx, tripID)
		if err != nil {
			return err
		}
		if ConfirmedRatio(memberships) != 100 {
			return newError(KindIncomplete, "You cannot delete a trip that has ended and not all members have confirmed payment!")
		}
	}

	err = s.db.Atomic(ctx, func(tx dbt.TripDBWrapper) error {
		return tx.DeleteTrip(ctx, tripID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete trip %s: %w", tripID, err)
	}
	return nil
}

// TripDetail loads the full details page payload for a participant.
func (s *Service) TripDetail(ctx context.Context, actorID, tripID uuid.UUID) (*Detail, error) {
	info, err := s.db.GetTripInfo(ctx, tripID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(KindNotFound, "Trip not found!")
		}
		return nil, err
	}

	caller, err := s.db.GetMembership(ctx, tripID, actorID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(KindNotParticipant, "You are not a participant in this trip!")
		}
		return nil, err
	}

	items, err := s.db.GetTripItems(ctx, tripID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.db.GetTripMemberships(ctx, tripID)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Info:           *info,
		Items:          items,
		Memberships:    memberships,
		Split:          ComputeSplit(memberships, items),
		TotalPaid:      TotalPaid(items),
		CompleteRatio:  CompleteRatio(items),
		ConfirmedRatio: ConfirmedRatio(memberships),
		Caller:         *caller,
	}, nil
}

// Home lists the trips the user participates in, with flags telling whether
// any were created by or merely joined by the user.
func (s *Service) Home(ctx context.Context, userID uuid.UUID) (*HomeView, error) {
	trips, err := s.db.ListTripsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &HomeView{Trips: trips}
	for _, t := range trips {
		if t.LeaderID == userID {
			view.HasCreated = true
		} else {
			view.HasJoined = true
		}
	}
	return view, nil
}

// TripPreview looks a trip up by join code for the pre-join confirmation page.
func (s *Service) TripPreview(ctx context.Context, code string) (*dbt.TripInfo, error) {
	info, err := s.db.GetTripInfoByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(KindNotFound, "The trip code you entered does not exist.")
		}
		return nil, err
	}
	return info, nil
}
