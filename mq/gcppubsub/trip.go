package gcppubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"tripsplit/mq/mq"
)

const (
	tripIDAttribute = "tripId"
)

// subscriptionInfo holds details about an active Pub/Sub subscription.
type subscriptionInfo struct {
	gcpSubscription *pubsub.Subscription
	cancel          context.CancelFunc
}

// GenericPubSubService provides a generic implementation for GCP Pub/Sub operations.
type GenericPubSubService[M any] struct {
	client              *pubsub.Client
	topic               *pubsub.Topic
	activeSubscriptions map[uuid.UUID]*subscriptionInfo
	subscriptionsMutex  sync.Mutex
	ctx                 context.Context
}

// NewGenericPubSubService creates and initializes a generic service for a specific message type.
// It ensures the underlying Pub/Sub topic exists, creating it if necessary.
func NewGenericPubSubService[M any](ctx context.Context, client *pubsub.Client, topicID string) (*GenericPubSubService[M], error) {
	if client == nil {
		return nil, fmt.Errorf("GCP Pub/Sub client is nil")
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existence of topic %s: %w", topicID, err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic %s: %w", topicID, err)
		}
		slog.Info("created Pub/Sub topic", "topic", topicID)
	}

	return &GenericPubSubService[M]{
		client:              client,
		topic:               topic,
		activeSubscriptions: make(map[uuid.UUID]*subscriptionInfo),
		ctx:                 ctx,
	}, nil
}

// Publish sends a message to the configured Pub/Sub topic with the tripId as an attribute.
func (s *GenericPubSubService[M]) Publish(msg mq.TopicProvider) error {
	typeName := reflect.TypeOf(msg).Name()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", typeName, err)
	}

	pubsubMsg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			tripIDAttribute: msg.GetTopic().String(),
		},
	}

	result := s.topic.Publish(s.ctx, pubsubMsg)
	_, err = result.Get(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to publish %s to topic %s: %w", typeName, s.topic.ID(), err)
	}
	return nil
}

// Subscribe creates a new filtered subscription on GCP and starts listening for messages.
func (s *GenericPubSubService[M]) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan M, error) {
	subscriptionID := uuid.New() // Internal ID for tracking
	typeName := reflect.TypeOf(*new(M)).Name()

	gcpSubName := fmt.Sprintf("sub-%s-%s-%s", typeName, tripID.String(), subscriptionID.String())

	config := pubsub.SubscriptionConfig{
		Topic:            s.topic,
		Filter:           fmt.Sprintf("attributes.%s = \"%s\"", tripIDAttribute, tripID.String()),
		ExpirationPolicy: 24 * time.Hour,
		AckDeadline:      10 * time.Second,
	}

	gcpSub, err := s.client.CreateSubscription(s.ctx, gcpSubName, config)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to create GCP subscription %s for %s: %w", gcpSubName, typeName, err)
	}

	msgChan := make(chan M, 5)
	receiveCtx, cancel := context.WithCancel(s.ctx)

	s.subscriptionsMutex.Lock()
	s.activeSubscriptions[subscriptionID] = &subscriptionInfo{
		gcpSubscription: gcpSub,
		cancel:          cancel,
	}
	s.subscriptionsMutex.Unlock()

	go func() {
		// Automatically clean up when the goroutine exits.
		defer func() {
			s.subscriptionsMutex.Lock()
			delete(s.activeSubscriptions, subscriptionID)
			s.subscriptionsMutex.Unlock()

			// Delete the subscription from GCP to prevent resource leaks.
			if deleteErr := gcpSub.Delete(context.Background()); deleteErr != nil {
				slog.Warn("error deleting GCP subscription", "subscription", gcpSub.ID(), "err", deleteErr)
			}
			close(msgChan)
		}()

		// Receive blocks until the context is cancelled.
		err := gcpSub.Receive(receiveCtx, func(ctx context.Context, pubsubMsg *pubsub.Message) {
			pubsubMsg.Ack()

			var msg M
			if err := json.Unmarshal(pubsubMsg.Data, &msg); err != nil {
				slog.Warn("error unmarshaling message", "type", typeName, "subscription", subscriptionID, "err", err)
				return
			}

			select {
			case msgChan <- msg:
			case <-time.After(2 * time.Second):
				slog.Warn("timeout sending message to channel", "type", typeName, "subscription", subscriptionID)
			case <-receiveCtx.Done(): // Check if we were cancelled while trying to send.
				return
			}
		})

		if err != nil && err != context.Canceled {
			slog.Warn("error in Receive loop", "type", typeName, "subscription", subscriptionID, "err", err)
		}
	}()

	return subscriptionID, msgChan, nil
}

// DeSubscribe stops the message receiver and deletes the subscription from GCP.
func (s *GenericPubSubService[M]) DeSubscribe(id uuid.UUID) error {
	s.subscriptionsMutex.Lock()
	info, ok := s.activeSubscriptions[id]
	if ok {
		// It's removed from the map inside the goroutine's defer block.
		// Here we just trigger the cancellation.
		info.cancel()
	}
	s.subscriptionsMutex.Unlock()

	if !ok {
		return fmt.Errorf("subscription ID %s not found for %s service", id, reflect.TypeOf(*new(M)).Name())
	}

	return nil
}

// Close gracefully shuts down all active subscriptions for this service.
func (s *GenericPubSubService[M]) Close() {
	s.subscriptionsMutex.Lock()
	defer s.subscriptionsMutex.Unlock()

	for _, info := range s.activeSubscriptions {
		info.cancel()
	}
}

// --- tripItemMQ implementation ---
type tripItemMQ struct {
	genericService *GenericPubSubService[mq.TripItemMessage]
	action         mq.Action
}

func NewTripItemMessageQueue(ctx context.Context, client *pubsub.Client, action mq.Action) (*tripItemMQ, error) {
	topicID := fmt.Sprintf("trip-item-%s", action.String())
	gs, err := NewGenericPubSubService[mq.TripItemMessage](ctx, client, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for TripItem: %w", err)
	}
	return &tripItemMQ{genericService: gs, action: action}, nil
}
func (q *tripItemMQ) GetAction() mq.Action                 { return q.action }
func (q *tripItemMQ) Publish(msg mq.TripItemMessage) error { return q.genericService.Publish(msg) }
func (q *tripItemMQ) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripItemMessage, error) {
	return q.genericService.Subscribe(tripID)
}
func (q *tripItemMQ) DeSubscribe(id uuid.UUID) error { return q.genericService.DeSubscribe(id) }

// --- tripMemberMQ implementation ---
type tripMemberMQ struct {
	genericService *GenericPubSubService[mq.TripMemberMessage]
	action         mq.Action
}

func NewTripMemberMessageQueue(ctx context.Context, client *pubsub.Client, action mq.Action) (*tripMemberMQ, error) {
	topicID := fmt.Sprintf("trip-member-%s", action.String())
	gs, err := NewGenericPubSubService[mq.TripMemberMessage](ctx, client, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for TripMember: %w", err)
	}
	return &tripMemberMQ{genericService: gs, action: action}, nil
}
func (q *tripMemberMQ) GetAction() mq.Action { return q.action }
func (q *tripMemberMQ) Publish(msg mq.TripMemberMessage) error {
	return q.genericService.Publish(msg)
}
func (q *tripMemberMQ) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripMemberMessage, error) {
	return q.genericService.Subscribe(tripID)
}
func (q *tripMemberMQ) DeSubscribe(id uuid.UUID) error { return q.genericService.DeSubscribe(id) }

// --------- trip message queue wrapper implementation ---------

type GCPTripMessageQueueWrapper struct {
	ItemMQArray   [mq.ActionCnt]*tripItemMQ
	MemberMQArray [mq.ActionCnt]*tripMemberMQ
}

func (wrapper *GCPTripMessageQueueWrapper) GetTripItemMessageQueue(action mq.Action) mq.TripItemMessageQueue {
	if action < 0 || action >= mq.ActionCnt || wrapper.ItemMQArray[action] == nil {
		return nil
	}
	return wrapper.ItemMQArray[action]
}

func (wrapper *GCPTripMessageQueueWrapper) GetTripMemberMessageQueue(action mq.Action) mq.TripMemberMessageQueue {
	if action < 0 || action >= mq.ActionCnt || wrapper.MemberMQArray[action] == nil {
		return nil
	}
	return wrapper.MemberMQArray[action]
}

// NewGCPTripMessageQueueWrapper creates a new MQ wrapper instance using GCP Pub/Sub.
func NewGCPTripMessageQueueWrapper(ctx context.Context, projectID string) (mq.TripMessageQueueWrapper, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Pub/Sub client for project %s: %w", projectID, err)
	}

	wrapper := &GCPTripMessageQueueWrapper{}

	for action := mq.ActionCreate; action < mq.ActionCnt; action++ {
		wrapper.ItemMQArray[action], err = NewTripItemMessageQueue(ctx, client, action)
		if err != nil {
			return nil, err
		}
		wrapper.MemberMQArray[action], err = NewTripMemberMessageQueue(ctx, client, action)
		if err != nil {
			return nil, err
		}
	}

	return wrapper, nil
}
