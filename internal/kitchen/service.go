package kitchen

import (
	"context"

	"tableside/internal/broadcast"
	"tableside/internal/domain"
	"tableside/internal/logger"
)

type KitchenServiceInterface interface {
	Claim(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error)
	MarkReady(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error)
	Serve(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error)
	Cancel(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error)

	Queue(ctx context.Context, restaurantID, station, filter string) ([]QueueOrder, error)
	Stations(ctx context.Context, restaurantID string) ([]domain.KitchenStation, error)
	ArchiveStation(ctx context.Context, actor domain.Actor, stationID string, archived bool) (domain.KitchenStation, error)
}

type KitchenService struct {
	repo        KitchenRepositoryInterface
	bus         broadcast.Broadcaster
	lg          *logger.Logger
	strictReady bool
}

func NewKitchenService(repo KitchenRepositoryInterface, bus broadcast.Broadcaster, lg *logger.Logger, strictReady bool) KitchenServiceInterface {
	return &KitchenService{repo: repo, bus: bus, lg: lg, strictReady: strictReady}
}

// Claim: NEW -> IN_PROGRESS by a chef working the item's station. Losing a
// concurrent claim is a normal outcome surfaced as ErrAlreadyClaimed, not a
// server failure.
func (s *KitchenService) Claim(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error) {
	if actor.Role != domain.RoleChef || actor.RestaurantID == "" {
		return domain.ItemStatusChange{}, domain.ErrForbidden
	}
	change, err := s.repo.ClaimTx(ctx, actor.RestaurantID, itemID, actor.Station, actor.Name)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	s.lg.Info("item_claimed", map[string]any{"order_item_id": itemID, "claimed_by": actor.Name, "station": actor.Station})
	s.broadcastChange(change)
	return change, nil
}

func (s *KitchenService) MarkReady(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error) {
	if actor.Role != domain.RoleChef || actor.RestaurantID == "" {
		return domain.ItemStatusChange{}, domain.ErrForbidden
	}
	change, err := s.repo.ReadyTx(ctx, actor.RestaurantID, itemID, actor.Name, s.strictReady)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	s.lg.Info("item_ready", map[string]any{"order_item_id": itemID, "by": actor.Name})
	s.broadcastChange(change)
	return change, nil
}

func (s *KitchenService) Serve(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error) {
	if (actor.Role != domain.RoleWaiter && actor.Role != domain.RoleManager) || actor.RestaurantID == "" {
		return domain.ItemStatusChange{}, domain.ErrForbidden
	}
	change, err := s.repo.ServeTx(ctx, actor.RestaurantID, itemID, actor.Name)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	s.lg.Info("item_served", map[string]any{"order_item_id": itemID, "by": actor.Name, "order_status": change.OrderStatus})
	s.broadcastChange(change)
	return change, nil
}

func (s *KitchenService) Cancel(ctx context.Context, actor domain.Actor, itemID string) (domain.ItemStatusChange, error) {
	switch actor.Role {
	case domain.RoleChef, domain.RoleWaiter, domain.RoleManager:
	default:
		return domain.ItemStatusChange{}, domain.ErrForbidden
	}
	if actor.RestaurantID == "" {
		return domain.ItemStatusChange{}, domain.ErrForbidden
	}
	change, err := s.repo.CancelTx(ctx, actor.RestaurantID, itemID, actor.Name)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	s.lg.Info("item_cancelled", map[string]any{"order_item_id": itemID, "by": actor.Name})
	s.broadcastChange(change)
	return change, nil
}

// Every transition goes to three audiences: the station queue, the table's
// progress view, and the waiter floor view.
func (s *KitchenService) broadcastChange(change domain.ItemStatusChange) {
	ev := func(room string) domain.Event {
		return domain.NewEvent(domain.EventItemStatusChanged, room, change)
	}
	s.bus.Broadcast(ev(broadcast.StationRoom(change.RestaurantID, change.Item.Station)))
	s.bus.Broadcast(ev(broadcast.SessionRoom(change.SessionID)))
	s.bus.Broadcast(ev(broadcast.RestaurantRoom(change.RestaurantID)))
}

func (s *KitchenService) Queue(ctx context.Context, restaurantID, station, filter string) ([]QueueOrder, error) {
	return s.repo.Queue(ctx, restaurantID, station, filter)
}

func (s *KitchenService) Stations(ctx context.Context, restaurantID string) ([]domain.KitchenStation, error) {
	return s.repo.Stations(ctx, restaurantID)
}

// ArchiveStation stops future routing to the station. Items already routed
// keep their station and complete normally.
func (s *KitchenService) ArchiveStation(ctx context.Context, actor domain.Actor, stationID string, archived bool) (domain.KitchenStation, error) {
	if actor.Role != domain.RoleManager {
		return domain.KitchenStation{}, domain.ErrForbidden
	}
	st, err := s.repo.SetArchived(ctx, stationID, archived)
	if err != nil {
		return domain.KitchenStation{}, err
	}
	s.lg.Info("station_archived", map[string]any{"station_id": st.ID, "archived": st.IsArchived, "by": actor.Name})
	return st, nil
}
