package kitchen

import (
	"context"
	"time"

	"tableside/internal/domain"
)

// QueueOrder is the kitchen/waiter display view: one open order with the
// items matching the requested station and filter.
type QueueOrder struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	TableID     string             `json:"table_id"`
	PlacedAt    time.Time          `json:"placed_at"`
	Items       []domain.OrderItem `json:"items"`
}

// Transitions are scoped to one restaurant: an item id from another
// restaurant reads as not found, never as a claimable item.
type KitchenRepositoryInterface interface {
	// ClaimTx is the compare-and-set transition NEW -> IN_PROGRESS. Exactly
	// one concurrent claimant succeeds; losers get domain.ErrAlreadyClaimed
	// (or ErrStationMismatch / ErrInvalidTransition depending on the item).
	ClaimTx(ctx context.Context, restaurantID, itemID, station, claimant string) (domain.ItemStatusChange, error)
	// ReadyTx: IN_PROGRESS -> READY. With strict set, only the claimant.
	ReadyTx(ctx context.Context, restaurantID, itemID, actor string, strict bool) (domain.ItemStatusChange, error)
	// ServeTx: READY -> SERVED.
	ServeTx(ctx context.Context, restaurantID, itemID, actor string) (domain.ItemStatusChange, error)
	// CancelTx: NEW | IN_PROGRESS -> CANCELLED.
	CancelTx(ctx context.Context, restaurantID, itemID, actor string) (domain.ItemStatusChange, error)

	Queue(ctx context.Context, restaurantID, station, filter string) ([]QueueOrder, error)
	Stations(ctx context.Context, restaurantID string) ([]domain.KitchenStation, error)
	SetArchived(ctx context.Context, stationID string, archived bool) (domain.KitchenStation, error)
}
