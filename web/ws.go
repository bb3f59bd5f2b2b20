package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	dbt "tripsplit/db/db"
	"tripsplit/mq/mq"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The JWT on the upgrade request is the real gate.
		return true
	},
}

// tripEvent is one websocket frame. Exactly one of Item and Member is set.
type tripEvent struct {
	Type   string      `json:"type"` // "item" or "member"
	Action string      `json:"action"`
	Item   *itemJSON   `json:"item,omitempty"`
	Member *memberJSON `json:"member,omitempty"`
}

func itemEvent(action mq.Action) func(msg mq.TripItemMessage) (tripEvent, bool, error) {
	return func(msg mq.TripItemMessage) (tripEvent, bool, error) {
		var payer *uuid.UUID
		if msg.Payer != uuid.Nil {
			p := msg.Payer
			payer = &p
		}
		return tripEvent{
			Type:   "item",
			Action: action.String(),
			Item: &itemJSON{
				ID:         msg.ID,
				TripID:     msg.TripID,
				Name:       msg.Name,
				Quantity:   msg.Quantity,
				PayerID:    payer,
				AmountPaid: msg.Amount.String(),
				IsPaid:     msg.IsPaid,
			},
		}, false, nil
	}
}

func memberEvent(action mq.Action) func(msg mq.TripMemberMessage) (tripEvent, bool, error) {
	return func(msg mq.TripMemberMessage) (tripEvent, bool, error) {
		return tripEvent{
			Type:   "member",
			Action: action.String(),
			Member: &memberJSON{
				UserID:           msg.UserID,
				PaymentConfirmed: msg.PaymentConfirmed,
			},
		}, false, nil
	}
}

// TripEvents streams live item and member events of one trip over a
// websocket. Only participants may subscribe.
func (h *Handler) TripEvents(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if _, err := h.trips.GetMembership(c.Request.Context(), tripID, currentUserID(c)); err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant in this trip!"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "trip", tripID, "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := make(chan tripEvent, 16)
	forward := func(ch <-chan tripEvent) {
		for ev := range ch {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}

	for action := mq.Action(0); action < mq.ActionCnt; action++ {
		if q := h.mq.GetTripItemMessageQueue(action); q != nil {
			out := make(chan tripEvent, 16)
			mq.SubscribeProcessor(tripID, ctx, q, itemEvent(action), out)
			go forward(out)
		}
		if q := h.mq.GetTripMemberMessageQueue(action); q != nil {
			out := make(chan tripEvent, 16)
			mq.SubscribeProcessor(tripID, ctx, q, memberEvent(action), out)
			go forward(out)
		}
	}

	// Drain the connection so client closes tear the stream down.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
