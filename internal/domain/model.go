package domain

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "ACTIVE"
	SessionClosed SessionStatus = "CLOSED"
)

// Table is the physical table a customer joins. The PIN printed on the table
// tent is the only join credential; everything after join rides on the opaque
// session id.
type Table struct {
	ID           string
	RestaurantID string
	Label        string
	PIN          string
}

type Session struct {
	ID           string        `json:"session_id"`
	TableID      string        `json:"table_id"`
	RestaurantID string        `json:"restaurant_id"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

type CartItem struct {
	ID         string   `json:"cart_item_id"`
	SessionID  string   `json:"session_id"`
	MenuItemID string   `json:"menu_item_id"`
	Name       string   `json:"name"`
	UnitPrice  float64  `json:"unit_price"`
	Quantity   int      `json:"quantity"`
	Modifiers  []string `json:"selected_modifiers,omitempty"`
}

// Cart is always a full snapshot; clients reconcile to it rather than
// applying diffs.
type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Tax       float64    `json:"tax"`
	Total     float64    `json:"total"`
}

type Order struct {
	ID             string      `json:"order_id"`
	Number         string      `json:"order_number"`
	SessionID      string      `json:"session_id"`
	RestaurantID   string      `json:"restaurant_id"`
	TableID        string      `json:"table_id"`
	IdempotencyKey string      `json:"idempotency_key"`
	Items          []OrderItem `json:"items"`
	Status         OrderStatus `json:"order_status"`
	TotalAmount    float64     `json:"total_amount"`
	PlacedAt       time.Time   `json:"placed_at"`
}

type OrderItem struct {
	ID        string     `json:"order_item_id"`
	OrderID   string     `json:"order_id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unit_price"`
	Station   string     `json:"station"`
	Status    ItemStatus `json:"item_status"`
	ClaimedBy string     `json:"claimed_by,omitempty"`
	ReadyAt   *time.Time `json:"ready_at,omitempty"`
	ServedAt  *time.Time `json:"served_at,omitempty"`
}

type KitchenStation struct {
	ID           string `json:"station_id"`
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	IsArchived   bool   `json:"is_archived"`
}

type MenuItem struct {
	ID           string  `json:"menu_item_id"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Station      string  `json:"station"`
	Available    bool    `json:"available"`
}

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleChef     Role = "CHEF"
	RoleWaiter   Role = "WAITER"
	RoleManager  Role = "MANAGER"
)

// Actor identifies the staff member (or customer device) behind a mutation.
// Credential issuance happens upstream; the core only enforces capabilities.
type Actor struct {
	Name         string `json:"actor"`
	Role         Role   `json:"role"`
	RestaurantID string `json:"restaurant_id"`
	Station      string `json:"station,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}
