package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tableside/internal/domain"
	"tableside/internal/logger"
)

type SessionServiceInterface interface {
	Join(ctx context.Context, tableID, pin string) (domain.Session, error)
	Resume(ctx context.Context, tableID, sessionID string) (domain.Session, error)
	Close(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	ActiveByRestaurant(ctx context.Context, restaurantID string) ([]domain.Session, error)
}

type SessionService struct {
	repo SessionRepositoryInterface
	lg   *logger.Logger
}

func NewSessionService(repo SessionRepositoryInterface, lg *logger.Logger) SessionServiceInterface {
	return &SessionService{repo: repo, lg: lg}
}

// Join binds a device to the table's active session, creating one if needed.
// A second join with the correct PIN resumes the existing session; there is
// never more than one ACTIVE session per table.
func (s *SessionService) Join(ctx context.Context, tableID, pin string) (domain.Session, error) {
	table, ok, err := s.repo.GetTable(ctx, tableID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("table lookup: %w", err)
	}
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	if table.PIN != pin {
		return domain.Session{}, domain.ErrInvalidPin
	}

	if existing, ok, err := s.repo.ActiveByTable(ctx, tableID); err != nil {
		return domain.Session{}, err
	} else if ok {
		s.lg.Debug("session_resumed_on_join", map[string]any{"session_id": existing.ID, "table_id": tableID})
		return existing, nil
	}

	sess := domain.Session{
		ID:           uuid.NewString(), // opaque bearer credential for the visit
		TableID:      table.ID,
		RestaurantID: table.RestaurantID,
		Status:       domain.SessionActive,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.repo.Create(ctx, sess)
	if err == domain.ErrSessionConflict {
		// Lost a create race with another device at the same table. The PIN
		// already checked out, so resuming the winner is the right outcome.
		if winner, ok, rerr := s.repo.ActiveByTable(ctx, tableID); rerr == nil && ok {
			return winner, nil
		}
		return domain.Session{}, domain.ErrSessionConflict
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}

	s.lg.Info("session_joined", map[string]any{"session_id": sess.ID, "table_id": tableID, "restaurant_id": sess.RestaurantID})
	return sess, nil
}

func (s *SessionService) Resume(ctx context.Context, tableID, sessionID string) (domain.Session, error) {
	sess, ok, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok || sess.TableID != tableID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if sess.Status != domain.SessionActive {
		return domain.Session{}, domain.ErrSessionClosed
	}
	return sess, nil
}

func (s *SessionService) Close(ctx context.Context, sessionID string) error {
	if err := s.repo.Close(ctx, sessionID); err != nil {
		return err
	}
	s.lg.Info("session_closed", map[string]any{"session_id": sessionID})
	return nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	sess, ok, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionService) ActiveByRestaurant(ctx context.Context, restaurantID string) ([]domain.Session, error) {
	return s.repo.ListActiveByRestaurant(ctx, restaurantID)
}
