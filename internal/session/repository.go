package session

import (
	"context"

	"tableside/internal/domain"
)

type SessionRepositoryInterface interface {
	GetTable(ctx context.Context, tableID string) (domain.Table, bool, error)
	Get(ctx context.Context, sessionID string) (domain.Session, bool, error)
	ActiveByTable(ctx context.Context, tableID string) (domain.Session, bool, error)
	ListActiveByRestaurant(ctx context.Context, restaurantID string) ([]domain.Session, error)

	// Create fails with domain.ErrSessionConflict if the table already has an
	// ACTIVE session (enforced by a partial unique index, so it holds across
	// instances).
	Create(ctx context.Context, s domain.Session) error

	// Close marks the session CLOSED and deletes any residual cart rows.
	Close(ctx context.Context, sessionID string) error
}
