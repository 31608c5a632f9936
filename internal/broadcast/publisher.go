package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"tableside/internal/connections/rabbitmq"
	"tableside/internal/domain"
	"tableside/internal/logger"
)

// Broadcaster fans an event out to one room. Implementations must never block
// the calling mutation; delivery is best-effort towards currently-connected
// clients.
type Broadcaster interface {
	Broadcast(ev domain.Event)
}

const publishTTL = 5 * time.Second

type AMQPBroadcaster struct {
	mq *rabbitmq.Client
	lg *logger.Logger
}

func NewAMQPBroadcaster(mq *rabbitmq.Client, lg *logger.Logger) *AMQPBroadcaster {
	return &AMQPBroadcaster{mq: mq, lg: lg}
}

// Broadcast publishes fire-and-forget. A failed publish is logged, never
// surfaced: the mutation that triggered it already committed, and clients
// recover by re-fetching state on reconnect.
func (b *AMQPBroadcaster) Broadcast(ev domain.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		b.lg.Error("event_marshal_failed", err, map[string]any{"type": ev.Type, "room": ev.Room})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTTL)
		defer cancel()
		if err := b.mq.Publish(ctx, rabbitmq.EventsExchange, ev.Room, body); err != nil {
			b.lg.Error("event_publish_failed", err, map[string]any{"type": ev.Type, "room": ev.Room})
		}
	}()
}
