package mq

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
	ActionCnt
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Mode selects the message queue backend at startup.
type Mode string

const (
	ModeGoChan    Mode = "go_chan"
	ModeRabbit    Mode = "rabbitmq"
	ModeGCPPubSub Mode = "gcp_pub_sub"
)

// TripItemMessage is published whenever an item on a trip is created, paid
// or deleted. Payer is uuid.Nil while the item is unpaid.
type TripItemMessage struct {
	TripID   uuid.UUID
	ID       uuid.UUID
	Name     string
	Quantity int
	Payer    uuid.UUID
	Amount   decimal.Decimal
	IsPaid   bool
}

// GetTopic routes the message to its trip.
func (m TripItemMessage) GetTopic() uuid.UUID {
	return m.TripID
}

// TripMemberMessage is published whenever a participant joins, leaves or
// confirms payment on a trip.
type TripMemberMessage struct {
	TripID           uuid.UUID
	UserID           uuid.UUID
	PaymentConfirmed bool
}

// GetTopic routes the message to its trip.
func (m TripMemberMessage) GetTopic() uuid.UUID {
	return m.TripID
}
