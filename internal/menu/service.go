package menu

import (
	"context"
	"fmt"

	"tableside/internal/broadcast"
	"tableside/internal/domain"
	"tableside/internal/logger"
	"tableside/internal/session"
)

type MenuServiceInterface interface {
	Lookup(ctx context.Context, menuItemID string) (domain.MenuItem, error)
	SetAvailability(ctx context.Context, actor domain.Actor, menuItemID string, available bool) (domain.MenuItem, error)
}

type MenuService struct {
	catalog  CatalogInterface
	sessions session.SessionServiceInterface
	bus      broadcast.Broadcaster
	lg       *logger.Logger
}

func NewMenuService(catalog CatalogInterface, sessions session.SessionServiceInterface, bus broadcast.Broadcaster, lg *logger.Logger) MenuServiceInterface {
	return &MenuService{catalog: catalog, sessions: sessions, bus: bus, lg: lg}
}

func (s *MenuService) Lookup(ctx context.Context, menuItemID string) (domain.MenuItem, error) {
	m, ok, err := s.catalog.Item(ctx, menuItemID)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("menu lookup: %w", err)
	}
	if !ok {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	return m, nil
}

// SetAvailability toggles the 86-flag and tells everyone: waiters so they stop
// recommending the dish, and active tables so the item greys out mid-browse.
func (s *MenuService) SetAvailability(ctx context.Context, actor domain.Actor, menuItemID string, available bool) (domain.MenuItem, error) {
	if actor.Role != domain.RoleWaiter && actor.Role != domain.RoleManager && actor.Role != domain.RoleChef {
		return domain.MenuItem{}, domain.ErrForbidden
	}
	m, err := s.catalog.SetAvailability(ctx, menuItemID, available)
	if err != nil {
		return domain.MenuItem{}, err
	}

	s.bus.Broadcast(domain.NewEvent(domain.EventMenuUpdate, broadcast.RestaurantRoom(m.RestaurantID), m))
	if active, err := s.sessions.ActiveByRestaurant(ctx, m.RestaurantID); err == nil {
		for _, sess := range active {
			s.bus.Broadcast(domain.NewEvent(domain.EventMenuUpdate, broadcast.SessionRoom(sess.ID), m))
		}
	}

	s.lg.Info("menu_availability_changed", map[string]any{
		"menu_item_id": m.ID, "available": m.Available, "changed_by": actor.Name,
	})
	return m, nil
}
