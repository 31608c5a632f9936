package domain

import "time"

// Event types pushed over the realtime channel. Payloads are always full
// entities, never deltas, so duplicated or reordered delivery is harmless.
const (
	EventCartUpdate        = "cart:update"
	EventOrderPlaced       = "order:placed"
	EventItemStatusChanged = "item:status-changed"
	EventMenuUpdate        = "menu:update"
)

// Event is the broadcast envelope. Room doubles as the broker routing key.
type Event struct {
	Type    string    `json:"type"`
	Room    string    `json:"room"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

func NewEvent(typ, room string, payload any) Event {
	return Event{Type: typ, Room: room, At: time.Now().UTC(), Payload: payload}
}

// ItemStatusChange is the payload for EventItemStatusChanged: the full item
// plus the order context a subscriber needs to reconcile without a re-fetch.
type ItemStatusChange struct {
	OrderID      string      `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	SessionID    string      `json:"session_id"`
	RestaurantID string      `json:"restaurant_id"`
	OrderStatus  OrderStatus `json:"order_status"`
	Item         OrderItem   `json:"item"`
}
