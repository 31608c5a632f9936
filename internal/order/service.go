package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tableside/internal/broadcast"
	"tableside/internal/domain"
	"tableside/internal/logger"
	"tableside/internal/session"
)

// placeTimeout bounds the whole placement transaction; a timed-out attempt is
// safely retryable with the same idempotency key.
const placeTimeout = 10 * time.Second

type OrderServiceInterface interface {
	Place(ctx context.Context, sessionID, idempotencyKey string) (domain.Order, error)
	GetByKey(ctx context.Context, sessionID, idempotencyKey string) (domain.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)
}

type OrderService struct {
	repo     OrderRepositoryInterface
	sessions session.SessionServiceInterface
	bus      broadcast.Broadcaster
	lg       *logger.Logger
}

func NewOrderService(repo OrderRepositoryInterface, sessions session.SessionServiceInterface,
	bus broadcast.Broadcaster, lg *logger.Logger,
) OrderServiceInterface {
	return &OrderService{repo: repo, sessions: sessions, bus: bus, lg: lg}
}

// Place converts the session's cart into an immutable order exactly once per
// idempotency key. A replayed key returns the original order without touching
// the cart and without re-broadcasting.
func (s *OrderService) Place(ctx context.Context, sessionID, idempotencyKey string) (domain.Order, error) {
	if idempotencyKey == "" {
		return domain.Order{}, fmt.Errorf("%w: idempotency_key is required", domain.ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, placeTimeout)
	defer cancel()

	if prev, ok, err := s.repo.FindByKey(ctx, sessionID, idempotencyKey); err != nil {
		return domain.Order{}, err
	} else if ok {
		s.lg.Debug("order_place_replayed", map[string]any{"order_id": prev.ID, "idempotency_key": idempotencyKey})
		return prev, nil
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Order{}, err
	}

	o, err := s.repo.PlaceTx(ctx, sess, idempotencyKey)
	if errors.Is(err, errDuplicateKey) {
		prev, ok, rerr := s.repo.FindByKey(ctx, sessionID, idempotencyKey)
		if rerr != nil {
			return domain.Order{}, rerr
		}
		if !ok {
			return domain.Order{}, fmt.Errorf("duplicate key but order not readable: %w", err)
		}
		return prev, nil
	}
	if err != nil {
		return domain.Order{}, err
	}

	s.broadcastPlaced(o)
	s.lg.Info("order_placed", map[string]any{
		"order_id": o.ID, "order_number": o.Number, "session_id": o.SessionID,
		"items": len(o.Items), "total": o.TotalAmount,
	})
	return o, nil
}

// The table sees its order, every routed station sees its queue grow, and the
// waiter floor view sees the new ticket.
func (s *OrderService) broadcastPlaced(o domain.Order) {
	s.bus.Broadcast(domain.NewEvent(domain.EventOrderPlaced, broadcast.SessionRoom(o.SessionID), o))
	s.bus.Broadcast(domain.NewEvent(domain.EventOrderPlaced, broadcast.RestaurantRoom(o.RestaurantID), o))
	seen := map[string]bool{}
	for _, it := range o.Items {
		if seen[it.Station] {
			continue
		}
		seen[it.Station] = true
		s.bus.Broadcast(domain.NewEvent(domain.EventOrderPlaced, broadcast.StationRoom(o.RestaurantID, it.Station), o))
	}
}

func (s *OrderService) GetByKey(ctx context.Context, sessionID, idempotencyKey string) (domain.Order, error) {
	o, ok, err := s.repo.FindByKey(ctx, sessionID, idempotencyKey)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *OrderService) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	return s.repo.ListBySession(ctx, sessionID)
}
