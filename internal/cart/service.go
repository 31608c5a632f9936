package cart

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"tableside/internal/broadcast"
	"tableside/internal/domain"
	"tableside/internal/logger"
	"tableside/internal/menu"
	"tableside/internal/session"
)

type CartServiceInterface interface {
	Add(ctx context.Context, sessionID, menuItemID string, quantity int, modifiers []string) (domain.Cart, error)
	Update(ctx context.Context, sessionID, cartItemID string, quantity int) (domain.Cart, error)
	Remove(ctx context.Context, sessionID, cartItemID string) (domain.Cart, error)
	Clear(ctx context.Context, sessionID string) (domain.Cart, error)
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
}

type CartService struct {
	repo     CartRepositoryInterface
	sessions session.SessionServiceInterface
	menu     menu.MenuServiceInterface
	bus      broadcast.Broadcaster
	lg       *logger.Logger
	taxRate  float64
}

func NewCartService(repo CartRepositoryInterface, sessions session.SessionServiceInterface,
	menuSvc menu.MenuServiceInterface, bus broadcast.Broadcaster, lg *logger.Logger, taxRate float64,
) CartServiceInterface {
	return &CartService{repo: repo, sessions: sessions, menu: menuSvc, bus: bus, lg: lg, taxRate: taxRate}
}

func (s *CartService) Add(ctx context.Context, sessionID, menuItemID string, quantity int, modifiers []string) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be >= 1", domain.ErrValidation)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	m, err := s.menu.Lookup(ctx, menuItemID)
	if err != nil {
		return domain.Cart{}, err
	}
	// menu ids are per restaurant; another restaurant's item is invisible
	// here, which also keeps its stations out of this order's routing
	if m.RestaurantID != sess.RestaurantID {
		return domain.Cart{}, domain.ErrNotFound
	}
	if !m.Available {
		return domain.Cart{}, domain.ErrUnavailable
	}

	item := domain.CartItem{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		MenuItemID: m.ID,
		Name:       m.Name,
		UnitPrice:  m.Price,
		Quantity:   quantity,
		Modifiers:  modifiers,
	}
	if err := s.repo.AddItem(ctx, item); err != nil {
		return domain.Cart{}, err
	}
	s.lg.Debug("cart_item_added", map[string]any{"session_id": sessionID, "menu_item_id": menuItemID, "quantity": quantity})
	return s.snapshotAndBroadcast(ctx, sessionID)
}

// Update sets the absolute quantity of a line; quantity 0 removes it.
func (s *CartService) Update(ctx context.Context, sessionID, cartItemID string, quantity int) (domain.Cart, error) {
	if quantity < 0 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be >= 0", domain.ErrValidation)
	}
	if err := s.repo.SetQuantity(ctx, sessionID, cartItemID, quantity); err != nil {
		return domain.Cart{}, err
	}
	return s.snapshotAndBroadcast(ctx, sessionID)
}

func (s *CartService) Remove(ctx context.Context, sessionID, cartItemID string) (domain.Cart, error) {
	if err := s.repo.RemoveItem(ctx, sessionID, cartItemID); err != nil {
		return domain.Cart{}, err
	}
	return s.snapshotAndBroadcast(ctx, sessionID)
}

func (s *CartService) Clear(ctx context.Context, sessionID string) (domain.Cart, error) {
	if err := s.repo.Clear(ctx, sessionID); err != nil {
		return domain.Cart{}, err
	}
	return s.snapshotAndBroadcast(ctx, sessionID)
}

func (s *CartService) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return domain.Cart{}, err
	}
	return s.snapshot(ctx, sessionID)
}

func (s *CartService) snapshot(ctx context.Context, sessionID string) (domain.Cart, error) {
	items, err := s.repo.ListItems(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	c := domain.Cart{SessionID: sessionID, Items: items}
	for _, it := range items {
		c.Subtotal += it.UnitPrice * float64(it.Quantity)
	}
	c.Subtotal = round2(c.Subtotal)
	c.Tax = round2(c.Subtotal * s.taxRate)
	c.Total = round2(c.Subtotal + c.Tax)
	return c, nil
}

// Every successful mutation pushes the full recomputed cart to the session
// room; clients reconcile to the snapshot.
func (s *CartService) snapshotAndBroadcast(ctx context.Context, sessionID string) (domain.Cart, error) {
	c, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	s.bus.Broadcast(domain.NewEvent(domain.EventCartUpdate, broadcast.SessionRoom(sessionID), c))
	return c, nil
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
