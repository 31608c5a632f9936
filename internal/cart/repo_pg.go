package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableside/internal/domain"
)

type CartRepository struct {
	db *pgxpool.Pool
}

func NewCartRepository(db *pgxpool.Pool) CartRepositoryInterface {
	return &CartRepository{db: db}
}

// lockActiveSession takes the session row lock that serializes all cart
// mutations for one table, and validates the session state while holding it.
func lockActiveSession(ctx context.Context, tx pgx.Tx, sessionID string) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM sessions WHERE id=$1 FOR UPDATE`, sessionID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if status != string(domain.SessionActive) {
		return domain.ErrSessionClosed
	}
	return nil
}

func (r *CartRepository) AddItem(ctx context.Context, item domain.CartItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockActiveSession(ctx, tx, item.SessionID); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (id, session_id, menu_item_id, name, unit_price, quantity, modifiers, modifiers_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, menu_item_id, modifiers_key)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, item.ID, item.SessionID, item.MenuItemID, item.Name, item.UnitPrice,
		item.Quantity, item.Modifiers, ModifiersKey(item.Modifiers))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CartRepository) SetQuantity(ctx context.Context, sessionID, cartItemID string, quantity int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockActiveSession(ctx, tx, sessionID); err != nil {
		return err
	}
	var tag pgconn.CommandTag
	if quantity <= 0 {
		tag, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE id=$1 AND session_id=$2`, cartItemID, sessionID)
	} else {
		tag, err = tx.Exec(ctx, `UPDATE cart_items SET quantity=$3 WHERE id=$1 AND session_id=$2`, cartItemID, sessionID, quantity)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *CartRepository) RemoveItem(ctx context.Context, sessionID, cartItemID string) error {
	return r.SetQuantity(ctx, sessionID, cartItemID, 0)
}

func (r *CartRepository) Clear(ctx context.Context, sessionID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockActiveSession(ctx, tx, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE session_id=$1`, sessionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CartRepository) ListItems(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, menu_item_id, name, unit_price, quantity, modifiers
		FROM cart_items WHERE session_id=$1
		ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.MenuItemID, &it.Name, &it.UnitPrice, &it.Quantity, &it.Modifiers); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
