package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tableside/internal/connections/rabbitmq"
	"tableside/internal/kitchen"
	"tableside/internal/logger"
	"tableside/internal/session"
)

// Hub fans broker events out to the websocket clients of this instance.
// Subscription state lives only for the life of a connection; reconnecting
// clients re-fetch authoritative state over REST and resume with new events.
type Hub struct {
	lg       *logger.Logger
	sessions session.SessionServiceInterface
	kitchen  kitchen.KitchenServiceInterface

	mu    sync.Mutex
	rooms map[string]map[*Client]struct{}

	upgrader websocket.Upgrader
}

func New(sessions session.SessionServiceInterface, kitchenSvc kitchen.KitchenServiceInterface, lg *logger.Logger) *Hub {
	return &Hub{
		lg:       lg,
		sessions: sessions,
		kitchen:  kitchenSvc,
		rooms:    make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway in front terminates TLS and enforces origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Error("ws_upgrade_failed", err, nil)
		return
	}
	c := newClient(h, conn)
	go c.writePump()
	go c.readPump()
}

func (h *Hub) join(c *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*Client]struct{})
		}
		h.rooms[room][c] = struct{}{}
	}
	c.rooms = rooms
	h.lg.Info("ws_client_joined", map[string]any{"rooms": rooms, "role": c.actor.Role, "actor": c.actor.Name})
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client) {
	for _, room := range c.rooms {
		if members := h.rooms[room]; members != nil {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = nil
}

// dispatch delivers one serialized event to every local member of a room.
// Clients that cannot keep up leave their rooms before their channel closes,
// so later dispatches never touch them; they recover via reconnect.
func (h *Hub) dispatch(room string, frame []byte) {
	h.mu.Lock()
	var slow []*Client
	for c := range h.rooms[room] {
		if !c.trySend(frame) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.removeLocked(c)
	}
	h.mu.Unlock()
	for _, c := range slow {
		h.lg.Debug("ws_client_dropped_slow", map[string]any{"actor": c.actor.Name})
		c.close()
	}
}

// ConsumeLoop pulls every event published on the events exchange and routes
// it to local rooms. Each instance consumes its own copy, so clients land on
// any instance and still see everything their rooms carry.
func (h *Hub) ConsumeLoop(ctx context.Context, mq *rabbitmq.Client) error {
	consumer := "hub-" + uuid.NewString()[:8]
	deliveries, err := mq.ConsumeEvents(consumer)
	if err != nil {
		return err
	}
	h.lg.Info("hub_consuming", map[string]any{"consumer": consumer})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			var env struct {
				Room string `json:"room"`
			}
			if err := json.Unmarshal(d.Body, &env); err != nil || env.Room == "" {
				h.lg.Error("event_decode_failed", err, nil)
				continue
			}
			h.dispatch(env.Room, d.Body)
		}
	}
}
