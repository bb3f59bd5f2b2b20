package goch

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tripsplit/mq/mq"
)

// consumer is a single subscription to one trip topic.
type consumer[M mq.TopicProvider] struct {
	tripID uuid.UUID
	ch     chan M
}

// channelQueue is an in-process queue that fans messages out to every
// subscriber of the message's trip topic.
type channelQueue[M mq.TopicProvider] struct {
	action    mq.Action
	mu        sync.RWMutex
	consumers map[uuid.UUID]*consumer[M]
}

func newChannelQueue[M mq.TopicProvider](action mq.Action) *channelQueue[M] {
	return &channelQueue[M]{
		action:    action,
		consumers: make(map[uuid.UUID]*consumer[M]),
	}
}

// GetAction returns the action associated with this queue.
func (q *channelQueue[M]) GetAction() mq.Action {
	return q.action
}

// Publish delivers msg to every subscriber of its trip topic. The send is
// non-blocking so a stalled subscriber cannot block the publisher.
func (q *channelQueue[M]) Publish(msg M) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, c := range q.consumers {
		if c.tripID != msg.GetTopic() {
			continue
		}
		select {
		case c.ch <- msg:
		default:
			// Subscriber is not keeping up, drop the message for it.
		}
	}
	return nil
}

// Subscribe registers a new consumer for the given trip topic.
func (q *channelQueue[M]) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan M, error) {
	id := uuid.New()
	c := &consumer[M]{
		tripID: tripID,
		ch:     make(chan M, 5),
	}

	q.mu.Lock()
	q.consumers[id] = c
	q.mu.Unlock()

	return id, c.ch, nil
}

// DeSubscribe removes a consumer by its subscription ID.
func (q *channelQueue[M]) DeSubscribe(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.consumers[id]
	if !ok {
		return fmt.Errorf("consumer with ID %s not found", id)
	}
	delete(q.consumers, id)
	close(c.ch)
	return nil
}

// GoChanTripMessageQueueWrapper implements mq.TripMessageQueueWrapper with
// in-process channels. This is the default backend for dev and tests.
type GoChanTripMessageQueueWrapper struct {
	ItemMQArray   [mq.ActionCnt]mq.TripItemMessageQueue
	MemberMQArray [mq.ActionCnt]mq.TripMemberMessageQueue
}

func (wrapper *GoChanTripMessageQueueWrapper) GetTripItemMessageQueue(action mq.Action) mq.TripItemMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.ItemMQArray[action]
}

func (wrapper *GoChanTripMessageQueueWrapper) GetTripMemberMessageQueue(action mq.Action) mq.TripMemberMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.MemberMQArray[action]
}

// NewGoChanTripMessageQueueWrapper creates a new instance of GoChanTripMessageQueueWrapper.
func NewGoChanTripMessageQueueWrapper() mq.TripMessageQueueWrapper {
	wrapper := GoChanTripMessageQueueWrapper{}
	// items are created, paid (update) and deleted
	wrapper.ItemMQArray[mq.ActionCreate] = newChannelQueue[mq.TripItemMessage](mq.ActionCreate)
	wrapper.ItemMQArray[mq.ActionUpdate] = newChannelQueue[mq.TripItemMessage](mq.ActionUpdate)
	wrapper.ItemMQArray[mq.ActionDelete] = newChannelQueue[mq.TripItemMessage](mq.ActionDelete)
	// members join, confirm (update) and leave
	wrapper.MemberMQArray[mq.ActionCreate] = newChannelQueue[mq.TripMemberMessage](mq.ActionCreate)
	wrapper.MemberMQArray[mq.ActionUpdate] = newChannelQueue[mq.TripMemberMessage](mq.ActionUpdate)
	wrapper.MemberMQArray[mq.ActionDelete] = newChannelQueue[mq.TripMemberMessage](mq.ActionDelete)

	return &wrapper
}
