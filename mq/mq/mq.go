package mq

import "github.com/google/uuid"

// TopicProvider is implemented by every message that can be routed to a
// per-trip topic.
type TopicProvider interface {
	GetTopic() uuid.UUID
}

type TripMessageQueueWrapper interface {
	GetTripItemMessageQueue(action Action) TripItemMessageQueue
	GetTripMemberMessageQueue(action Action) TripMemberMessageQueue
}

type TripItemMessageQueue interface {
	GetAction() Action
	Publish(msg TripItemMessage) error
	Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan TripItemMessage, error)
	DeSubscribe(id uuid.UUID) error
}

type TripMemberMessageQueue interface {
	GetAction() Action
	Publish(msg TripMemberMessage) error
	Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan TripMemberMessage, error)
	DeSubscribe(id uuid.UUID) error
}
