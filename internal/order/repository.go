package order

import (
	"context"
	"errors"

	"tableside/internal/domain"
)

// errDuplicateKey signals that another request with the same idempotency key
// committed first; callers re-read and return the winner's order.
var errDuplicateKey = errors.New("idempotency key already used")

type OrderRepositoryInterface interface {
	FindByKey(ctx context.Context, sessionID, idempotencyKey string) (domain.Order, bool, error)
	Get(ctx context.Context, orderID string) (domain.Order, bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)

	// PlaceTx drains the session's cart into a new immutable order in a
	// single transaction: resolve stations, snapshot prices, clear the cart.
	// Fails with domain.ErrEmptyCart / ErrSessionClosed, or errDuplicateKey
	// when racing a retry of the same key.
	PlaceTx(ctx context.Context, sess domain.Session, idempotencyKey string) (domain.Order, error)
}
