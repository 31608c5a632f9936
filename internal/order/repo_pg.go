package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableside/internal/domain"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepositoryInterface {
	return &OrderRepository{db: db}
}

const orderColumns = `id, number, session_id, restaurant_id, table_id, idempotency_key, total_amount, placed_at`

func (r *OrderRepository) FindByKey(ctx context.Context, sessionID, idempotencyKey string) (domain.Order, bool, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE session_id=$1 AND idempotency_key=$2`, sessionID, idempotencyKey)
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.Order, bool, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, args ...any) (domain.Order, bool, error) {
	var o domain.Order
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.Number, &o.SessionID, &o.RestaurantID, &o.TableID,
		&o.IdempotencyKey, &o.TotalAmount, &o.PlacedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	items, err := r.itemsFor(ctx, o.ID)
	if err != nil {
		return domain.Order{}, false, err
	}
	o.Items = items
	o.Status = domain.DeriveOrderStatus(items)
	return o, true, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, name, quantity, unit_price, station, status, COALESCE(claimed_by,''), ready_at, served_at
		FROM order_items WHERE order_id=$1 ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]domain.OrderItem, error) {
	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.UnitPrice,
			&it.Station, &it.Status, &it.ClaimedBy, &it.ReadyAt, &it.ServedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE session_id=$1 ORDER BY placed_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.SessionID, &o.RestaurantID, &o.TableID,
			&o.IdempotencyKey, &o.TotalAmount, &o.PlacedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
		out[i].Status = domain.DeriveOrderStatus(items)
	}
	return out, nil
}

func (r *OrderRepository) PlaceTx(ctx context.Context, sess domain.Session, idempotencyKey string) (domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The session row lock serializes placement against cart mutations and
	// against concurrent placements for the same table.
	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM sessions WHERE id=$1 FOR UPDATE`, sess.ID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	if status != string(domain.SessionActive) {
		return domain.Order{}, domain.ErrSessionClosed
	}

	// A retry that lost the race commits nothing; the caller re-reads.
	var existing string
	err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE session_id=$1 AND idempotency_key=$2`, sess.ID, idempotencyKey).Scan(&existing)
	if err == nil {
		return domain.Order{}, errDuplicateKey
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, err
	}

	// Drain the cart with prices snapshotted and stations resolved from the
	// menu item's current routing. Items with no configured station, or whose
	// station has since been archived, fall back to "unassigned"; items
	// already routed in earlier orders are never touched.
	rows, err := tx.Query(ctx, `
		SELECT ci.name, ci.quantity, ci.unit_price,
		       CASE WHEN ks.is_archived THEN 'unassigned'
		            ELSE COALESCE(NULLIF(m.station, ''), 'unassigned') END
		FROM cart_items ci
		LEFT JOIN menu_items m ON m.id = ci.menu_item_id
		LEFT JOIN kitchen_stations ks ON ks.restaurant_id = m.restaurant_id AND ks.name = m.station
		WHERE ci.session_id=$1
		ORDER BY ci.created_at, ci.id
	`, sess.ID)
	if err != nil {
		return domain.Order{}, err
	}
	type line struct {
		name      string
		quantity  int
		unitPrice float64
		station   string
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.name, &l.quantity, &l.unitPrice, &l.station); err != nil {
			rows.Close()
			return domain.Order{}, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Order{}, err
	}
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	// Sequential per-restaurant order number.
	var seq int
	if err := tx.QueryRow(ctx, `
		INSERT INTO order_counters (restaurant_id, seq) VALUES ($1, 1)
		ON CONFLICT (restaurant_id) DO UPDATE SET seq = order_counters.seq + 1
		RETURNING seq
	`, sess.RestaurantID).Scan(&seq); err != nil {
		return domain.Order{}, fmt.Errorf("order counter: %w", err)
	}

	now := time.Now().UTC()
	o := domain.Order{
		ID:             uuid.NewString(),
		Number:         fmt.Sprintf("ORD_%s_%03d", now.Format("20060102"), seq),
		SessionID:      sess.ID,
		RestaurantID:   sess.RestaurantID,
		TableID:        sess.TableID,
		IdempotencyKey: idempotencyKey,
		Status:         domain.OrderOpen,
		PlacedAt:       now,
	}
	for _, l := range lines {
		o.TotalAmount += l.unitPrice * float64(l.quantity)
		o.Items = append(o.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			Name:      l.name,
			Quantity:  l.quantity,
			UnitPrice: l.unitPrice,
			Station:   l.station,
			Status:    domain.ItemNew,
		})
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.ID, o.Number, o.SessionID, o.RestaurantID, o.TableID, o.IdempotencyKey, o.TotalAmount, o.PlacedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.Order{}, errDuplicateKey
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, name, quantity, unit_price, station, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, it.ID, it.OrderID, it.Name, it.Quantity, it.UnitPrice, it.Station, it.Status, now); err != nil {
			return domain.Order{}, fmt.Errorf("insert order item %s: %w", it.Name, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO item_status_log (order_item_id, status, changed_by, changed_at)
			VALUES ($1, $2, 'order-service', $3)
		`, it.ID, it.Status, now); err != nil {
			return domain.Order{}, fmt.Errorf("insert status log: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE session_id=$1`, sess.ID); err != nil {
		return domain.Order{}, fmt.Errorf("drain cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}
