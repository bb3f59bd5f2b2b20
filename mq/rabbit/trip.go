package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"tripsplit/mq/mq"
)

const (
	exchangeName = "trip_events_exchange" // All trip-related events go through this exchange
)

// Routing keys for different actions and message types
const (
	itemCreateRoutingKey   = "item.create"
	itemUpdateRoutingKey   = "item.update"
	itemDeleteRoutingKey   = "item.delete"
	memberCreateRoutingKey = "member.create"
	memberUpdateRoutingKey = "member.update"
	memberDeleteRoutingKey = "member.delete"
)

func getRoutingKey(action mq.Action, msgType string) string {
	switch msgType {
	case "item":
		switch action {
		case mq.ActionCreate:
			return itemCreateRoutingKey
		case mq.ActionUpdate:
			return itemUpdateRoutingKey
		case mq.ActionDelete:
			return itemDeleteRoutingKey
		}
	case "member":
		switch action {
		case mq.ActionCreate:
			return memberCreateRoutingKey
		case mq.ActionUpdate:
			return memberUpdateRoutingKey
		case mq.ActionDelete:
			return memberDeleteRoutingKey
		}
	}
	return ""
}

type rabbitConsumer[M mq.TopicProvider] struct {
	tripID uuid.UUID
	ch     chan M
}

// rabbitTripItemMessageQueue implements mq.TripItemMessageQueue for RabbitMQ.
type rabbitTripItemMessageQueue struct {
	action     mq.Action
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queueName  string
	routingKey string
	mu         sync.RWMutex // Protects the consumers map
	consumers  map[uuid.UUID]*rabbitConsumer[mq.TripItemMessage]
}

// NewRabbitTripItemMessageQueue creates a new RabbitMQ message queue for TripItemMessages.
func NewRabbitTripItemMessageQueue(action mq.Action, conn *amqp091.Connection) (mq.TripItemMessageQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	queueName := fmt.Sprintf("trip_item_%s_queue", action)
	routingKey := getRoutingKey(action, "item")

	if err := DeclareQueueAndExchange(ch, queueName, exchangeName, routingKey); err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitTripItemMessageQueue{
		action:     action,
		conn:       conn,
		channel:    ch,
		queueName:  queueName,
		routingKey: routingKey,
		consumers:  make(map[uuid.UUID]*rabbitConsumer[mq.TripItemMessage]),
	}, nil
}

// GetAction returns the action associated with this queue.
func (q *rabbitTripItemMessageQueue) GetAction() mq.Action {
	return q.action
}

// Publish sends a TripItemMessage to the RabbitMQ exchange.
func (q *rabbitTripItemMessageQueue) Publish(msg mq.TripItemMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(ctx,
		exchangeName, // exchange
		q.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe starts consuming and forwards messages for the given trip.
func (q *rabbitTripItemMessageQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripItemMessage, error) {
	msgs, err := q.channel.Consume(
		q.queueName, // queue
		"",          // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	subscriberID := uuid.New()
	c := &rabbitConsumer[mq.TripItemMessage]{
		tripID: tripID,
		ch:     make(chan mq.TripItemMessage),
	}

	q.mu.Lock()
	q.consumers[subscriberID] = c
	q.mu.Unlock()

	go func() {
		defer func() {
			q.mu.Lock()
			if cur, ok := q.consumers[subscriberID]; ok {
				close(cur.ch)
				delete(q.consumers, subscriberID)
			}
			q.mu.Unlock()
		}()

		for d := range msgs {
			var msg mq.TripItemMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				slog.Warn("failed to unmarshal TripItemMessage", "err", err)
				continue
			}
			if msg.GetTopic() != c.tripID {
				continue
			}

			q.mu.RLock()
			cur, ok := q.consumers[subscriberID]
			q.mu.RUnlock()
			if !ok {
				// Consumer was unsubscribed while the message was in flight.
				return
			}

			select {
			case cur.ch <- msg:
			case <-time.After(1 * time.Second): // Prevent blocking indefinitely
				slog.Warn("timeout delivering TripItemMessage", "subscriber", subscriberID)
			}
		}
	}()

	return subscriberID, c.ch, nil
}

// DeSubscribe removes a subscriber by its ID.
func (q *rabbitTripItemMessageQueue) DeSubscribe(subscriberID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if c, ok := q.consumers[subscriberID]; ok {
		delete(q.consumers, subscriberID)
		close(c.ch)
		return nil
	}
	return fmt.Errorf("consumer with ID %s not found for queue %s", subscriberID, q.queueName)
}

// rabbitTripMemberMessageQueue implements mq.TripMemberMessageQueue for RabbitMQ.
type rabbitTripMemberMessageQueue struct {
	action     mq.Action
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queueName  string
	routingKey string
	mu         sync.RWMutex // Protects the consumers map
	consumers  map[uuid.UUID]*rabbitConsumer[mq.TripMemberMessage]
}

// NewRabbitTripMemberMessageQueue creates a new RabbitMQ message queue for TripMemberMessages.
func NewRabbitTripMemberMessageQueue(action mq.Action, conn *amqp091.Connection) (mq.TripMemberMessageQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	queueName := fmt.Sprintf("trip_member_%s_queue", action)
	routingKey := getRoutingKey(action, "member")

	if err := DeclareQueueAndExchange(ch, queueName, exchangeName, routingKey); err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitTripMemberMessageQueue{
		action:     action,
		conn:       conn,
		channel:    ch,
		queueName:  queueName,
		routingKey: routingKey,
		consumers:  make(map[uuid.UUID]*rabbitConsumer[mq.TripMemberMessage]),
	}, nil
}

// GetAction returns the action associated with this queue.
func (q *rabbitTripMemberMessageQueue) GetAction() mq.Action {
	return q.action
}

// Publish sends a TripMemberMessage to the RabbitMQ exchange.
func (q *rabbitTripMemberMessageQueue) Publish(msg mq.TripMemberMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(ctx,
		exchangeName, // exchange
		q.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe starts consuming and forwards messages for the given trip.
func (q *rabbitTripMemberMessageQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripMemberMessage, error) {
	msgs, err := q.channel.Consume(
		q.queueName, // queue
		"",          // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	subscriberID := uuid.New()
	c := &rabbitConsumer[mq.TripMemberMessage]{
		tripID: tripID,
		ch:     make(chan mq.TripMemberMessage),
	}

	q.mu.Lock()
	q.consumers[subscriberID] = c
	q.mu.Unlock()

	go func() {
		defer func() {
			q.mu.Lock()
			if cur, ok := q.consumers[subscriberID]; ok {
				close(cur.ch)
				delete(q.consumers, subscriberID)
			}
			q.mu.Unlock()
		}()

		for d := range msgs {
			var msg mq.TripMemberMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				slog.Warn("failed to unmarshal TripMemberMessage", "err", err)
				continue
			}
			if msg.GetTopic() != c.tripID {
				continue
			}

			q.mu.RLock()
			cur, ok := q.consumers[subscriberID]
			q.mu.RUnlock()
			if !ok {
				return
			}

			select {
			case cur.ch <- msg:
			case <-time.After(1 * time.Second): // Prevent blocking indefinitely
				slog.Warn("timeout delivering TripMemberMessage", "subscriber", subscriberID)
			}
		}
	}()

	return subscriberID, c.ch, nil
}

// DeSubscribe removes a subscriber by its ID.
func (q *rabbitTripMemberMessageQueue) DeSubscribe(subscriberID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if c, ok := q.consumers[subscriberID]; ok {
		delete(q.consumers, subscriberID)
		close(c.ch)
		return nil
	}
	return fmt.Errorf("consumer with ID %s not found for queue %s", subscriberID, q.queueName)
}

// rabbitTripMessageQueueWrapper implements mq.TripMessageQueueWrapper for RabbitMQ.
type rabbitTripMessageQueueWrapper struct {
	ItemMQArray   [mq.ActionCnt]mq.TripItemMessageQueue
	MemberMQArray [mq.ActionCnt]mq.TripMemberMessageQueue
	conn          *amqp091.Connection // Kept to close the connection later
}

// NewRabbitTripMessageQueueWrapper creates a new instance of rabbitTripMessageQueueWrapper.
func NewRabbitTripMessageQueueWrapper(conn *amqp091.Connection) (mq.TripMessageQueueWrapper, error) {
	wrapper := &rabbitTripMessageQueueWrapper{
		conn: conn,
	}

	var err error

	for action := mq.ActionCreate; action < mq.ActionCnt; action++ {
		wrapper.ItemMQArray[action], err = NewRabbitTripItemMessageQueue(action, conn)
		if err != nil {
			return nil, fmt.Errorf("failed to create item %s mq: %w", action, err)
		}
		wrapper.MemberMQArray[action], err = NewRabbitTripMemberMessageQueue(action, conn)
		if err != nil {
			return nil, fmt.Errorf("failed to create member %s mq: %w", action, err)
		}
	}

	return wrapper, nil
}

// GetTripItemMessageQueue returns the appropriate TripItemMessageQueue based on the action.
func (wrapper *rabbitTripMessageQueueWrapper) GetTripItemMessageQueue(action mq.Action) mq.TripItemMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.ItemMQArray[action]
}

// GetTripMemberMessageQueue returns the appropriate TripMemberMessageQueue based on the action.
func (wrapper *rabbitTripMessageQueueWrapper) GetTripMemberMessageQueue(action mq.Action) mq.TripMemberMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.MemberMQArray[action]
}

// Close closes all channels and the RabbitMQ connection.
func (wrapper *rabbitTripMessageQueueWrapper) Close() {
	for _, q := range wrapper.ItemMQArray {
		if rmq, ok := q.(*rabbitTripItemMessageQueue); ok && rmq.channel != nil {
			rmq.channel.Close()
		}
	}
	for _, q := range wrapper.MemberMQArray {
		if rmq, ok := q.(*rabbitTripMemberMessageQueue); ok && rmq.channel != nil {
			rmq.channel.Close()
		}
	}
	if wrapper.conn != nil {
		wrapper.conn.Close()
	}
}
