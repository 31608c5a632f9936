package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableside/internal/domain"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) SessionRepositoryInterface {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) GetTable(ctx context.Context, tableID string) (domain.Table, bool, error) {
	var t domain.Table
	err := r.db.QueryRow(ctx, `
		SELECT id, restaurant_id, label, pin FROM tables WHERE id=$1
	`, tableID).Scan(&t.ID, &t.RestaurantID, &t.Label, &t.PIN)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Table{}, false, nil
	}
	if err != nil {
		return domain.Table{}, false, err
	}
	return t, true, nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (domain.Session, bool, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx, `
		SELECT id, table_id, restaurant_id, status, created_at
		FROM sessions WHERE id=$1
	`, sessionID).Scan(&s.ID, &s.TableID, &s.RestaurantID, &s.Status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	return s, true, nil
}

func (r *SessionRepository) ActiveByTable(ctx context.Context, tableID string) (domain.Session, bool, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx, `
		SELECT id, table_id, restaurant_id, status, created_at
		FROM sessions WHERE table_id=$1 AND status='ACTIVE'
	`, tableID).Scan(&s.ID, &s.TableID, &s.RestaurantID, &s.Status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	return s, true, nil
}

func (r *SessionRepository) ListActiveByRestaurant(ctx context.Context, restaurantID string) ([]domain.Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, table_id, restaurant_id, status, created_at
		FROM sessions WHERE restaurant_id=$1 AND status='ACTIVE'
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.TableID, &s.RestaurantID, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, table_id, restaurant_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.TableID, s.RestaurantID, s.Status, s.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrSessionConflict
	}
	return err
}

func (r *SessionRepository) Close(ctx context.Context, sessionID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE sessions SET status='CLOSED', closed_at=now() WHERE id=$1 AND status='ACTIVE'
	`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE session_id=$1`, sessionID); err != nil {
		return fmt.Errorf("clear cart on close: %w", err)
	}
	return tx.Commit(ctx)
}
