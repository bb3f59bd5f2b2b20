package mq

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Subscriber is any queue a processor can attach to for one trip topic.
// M is the message type the queue carries.
type Subscriber[M any] interface {
	Subscribe(uuid.UUID) (uuid.UUID, <-chan M, error)
	DeSubscribe(id uuid.UUID) error
}

// SubscribeProcessor subscribes to the given trip topic, pipes every message
// through transformFunc and forwards the result to outputStream until the
// context is cancelled or the subscription closes. transformFunc may skip a
// message by returning true as its second value. The subscription is released
// and outputStream closed when the goroutine exits.
func SubscribeProcessor[S Subscriber[M], M any, O any](
	topicID uuid.UUID,
	ctx context.Context,
	service S,
	transformFunc func(msg M) (O, bool, error),
	outputStream chan<- O,
) {
	go func() {
		uid, inputCh, err := service.Subscribe(topicID)
		if err != nil {
			close(outputStream)
			return
		}

		defer func() {
			if err := service.DeSubscribe(uid); err != nil {
				slog.Warn("failed to de-subscribe", "id", uid, "err", err)
			}
			close(outputStream)
		}()

		for {
			select {
			case msg, ok := <-inputCh:
				if !ok {
					return
				}

				output, skip, err := transformFunc(msg)
				if err != nil {
					continue
				}
				if skip {
					continue
				}

				select {
				case outputStream <- output:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}
