package kitchen

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableside/internal/domain"
)

type KitchenRepository struct {
	db *pgxpool.Pool
}

func NewKitchenRepository(db *pgxpool.Pool) KitchenRepositoryInterface {
	return &KitchenRepository{db: db}
}

func (r *KitchenRepository) ClaimTx(ctx context.Context, restaurantID, itemID, station, claimant string) (domain.ItemStatusChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The conditional UPDATE is the claim CAS: the row lock plus the status
	// predicate guarantee exactly one winner across service instances. The
	// orders join pins the claim to the claimant's restaurant; station names
	// are only unique within one.
	tag, err := tx.Exec(ctx, `
		UPDATE order_items i SET status=$2, claimed_by=$3, updated_at=now()
		FROM orders o
		WHERE i.id=$1 AND o.id=i.order_id AND o.restaurant_id=$4 AND i.status=$5 AND i.station=$6
	`, itemID, domain.ItemInProgress, claimant, restaurantID, domain.ItemNew, station)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	if tag.RowsAffected() == 0 {
		cur, itemRestaurant, ok, err := itemByID(ctx, tx, itemID)
		if err != nil {
			return domain.ItemStatusChange{}, err
		}
		switch {
		case !ok || itemRestaurant != restaurantID:
			return domain.ItemStatusChange{}, domain.ErrNotFound
		case cur.Status == domain.ItemNew && cur.Station != station:
			return domain.ItemStatusChange{}, domain.ErrStationMismatch
		case cur.Status == domain.ItemInProgress:
			return domain.ItemStatusChange{}, domain.ErrAlreadyClaimed
		default:
			return domain.ItemStatusChange{}, domain.ErrInvalidTransition
		}
	}
	return finishTransition(ctx, tx, itemID, claimant)
}

func (r *KitchenRepository) ReadyTx(ctx context.Context, restaurantID, itemID, actor string, strict bool) (domain.ItemStatusChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var tag pgconn.CommandTag
	if strict {
		tag, err = tx.Exec(ctx, `
			UPDATE order_items i SET status=$2, ready_at=now(), updated_at=now()
			FROM orders o
			WHERE i.id=$1 AND o.id=i.order_id AND o.restaurant_id=$3 AND i.status=$4 AND i.claimed_by=$5
		`, itemID, domain.ItemReady, restaurantID, domain.ItemInProgress, actor)
	} else {
		tag, err = tx.Exec(ctx, `
			UPDATE order_items i SET status=$2, ready_at=now(), updated_at=now()
			FROM orders o
			WHERE i.id=$1 AND o.id=i.order_id AND o.restaurant_id=$3 AND i.status=$4
		`, itemID, domain.ItemReady, restaurantID, domain.ItemInProgress)
	}
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	if tag.RowsAffected() == 0 {
		cur, itemRestaurant, ok, err := itemByID(ctx, tx, itemID)
		if err != nil {
			return domain.ItemStatusChange{}, err
		}
		switch {
		case !ok || itemRestaurant != restaurantID:
			return domain.ItemStatusChange{}, domain.ErrNotFound
		case cur.Status == domain.ItemInProgress && strict:
			return domain.ItemStatusChange{}, domain.ErrForbidden
		default:
			return domain.ItemStatusChange{}, domain.ErrInvalidTransition
		}
	}
	return finishTransition(ctx, tx, itemID, actor)
}

func (r *KitchenRepository) ServeTx(ctx context.Context, restaurantID, itemID, actor string) (domain.ItemStatusChange, error) {
	return r.simpleTransition(ctx, restaurantID, itemID, actor, `
		UPDATE order_items i SET status=$2, served_at=now(), updated_at=now()
		FROM orders o
		WHERE i.id=$1 AND o.id=i.order_id AND o.restaurant_id=$3 AND i.status=$4
	`, domain.ItemReady, domain.ItemServed)
}

func (r *KitchenRepository) CancelTx(ctx context.Context, restaurantID, itemID, actor string) (domain.ItemStatusChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE order_items i SET status=$2, updated_at=now()
		FROM orders o
		WHERE i.id=$1 AND o.id=i.order_id AND o.restaurant_id=$3 AND i.status IN ($4, $5)
	`, itemID, domain.ItemCancelled, restaurantID, domain.ItemNew, domain.ItemInProgress)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	if tag.RowsAffected() == 0 {
		_, itemRestaurant, ok, err := itemByID(ctx, tx, itemID)
		if err != nil {
			return domain.ItemStatusChange{}, err
		}
		if !ok || itemRestaurant != restaurantID {
			return domain.ItemStatusChange{}, domain.ErrNotFound
		}
		return domain.ItemStatusChange{}, domain.ErrInvalidTransition
	}
	return finishTransition(ctx, tx, itemID, actor)
}

func (r *KitchenRepository) simpleTransition(ctx context.Context, restaurantID, itemID, actor, query string,
	from, to domain.ItemStatus,
) (domain.ItemStatusChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, query, itemID, to, restaurantID, from)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	if tag.RowsAffected() == 0 {
		_, itemRestaurant, ok, err := itemByID(ctx, tx, itemID)
		if err != nil {
			return domain.ItemStatusChange{}, err
		}
		if !ok || itemRestaurant != restaurantID {
			return domain.ItemStatusChange{}, domain.ErrNotFound
		}
		return domain.ItemStatusChange{}, domain.ErrInvalidTransition
	}
	return finishTransition(ctx, tx, itemID, actor)
}

func itemByID(ctx context.Context, tx pgx.Tx, itemID string) (domain.OrderItem, string, bool, error) {
	var it domain.OrderItem
	var restaurantID string
	err := tx.QueryRow(ctx, `
		SELECT i.id, i.order_id, i.name, i.quantity, i.unit_price, i.station, i.status,
		       COALESCE(i.claimed_by,''), i.ready_at, i.served_at, o.restaurant_id
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE i.id=$1
	`, itemID).Scan(&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.UnitPrice,
		&it.Station, &it.Status, &it.ClaimedBy, &it.ReadyAt, &it.ServedAt, &restaurantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderItem{}, "", false, nil
	}
	if err != nil {
		return domain.OrderItem{}, "", false, err
	}
	return it, restaurantID, true, nil
}

// finishTransition appends the audit row, re-derives the order status from
// all sibling items and assembles the event payload, then commits.
func finishTransition(ctx context.Context, tx pgx.Tx, itemID, actor string) (domain.ItemStatusChange, error) {
	it, _, ok, err := itemByID(ctx, tx, itemID)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	if !ok {
		return domain.ItemStatusChange{}, domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO item_status_log (order_item_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, now())
	`, it.ID, it.Status, actor); err != nil {
		return domain.ItemStatusChange{}, fmt.Errorf("insert status log: %w", err)
	}

	change := domain.ItemStatusChange{Item: it}
	if err := tx.QueryRow(ctx, `
		SELECT id, number, session_id, restaurant_id FROM orders WHERE id=$1
	`, it.OrderID).Scan(&change.OrderID, &change.OrderNumber, &change.SessionID, &change.RestaurantID); err != nil {
		return domain.ItemStatusChange{}, err
	}

	rows, err := tx.Query(ctx, `SELECT status FROM order_items WHERE order_id=$1`, it.OrderID)
	if err != nil {
		return domain.ItemStatusChange{}, err
	}
	var siblings []domain.OrderItem
	for rows.Next() {
		var st domain.ItemStatus
		if err := rows.Scan(&st); err != nil {
			rows.Close()
			return domain.ItemStatusChange{}, err
		}
		siblings = append(siblings, domain.OrderItem{Status: st})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.ItemStatusChange{}, err
	}
	change.OrderStatus = domain.DeriveOrderStatus(siblings)

	if err := tx.Commit(ctx); err != nil {
		return domain.ItemStatusChange{}, err
	}
	return change, nil
}

func (r *KitchenRepository) Queue(ctx context.Context, restaurantID, station, filter string) ([]QueueOrder, error) {
	statuses := []string{string(domain.ItemNew), string(domain.ItemInProgress)}
	switch filter {
	case "ready":
		statuses = []string{string(domain.ItemReady)}
	case "all":
		statuses = []string{string(domain.ItemNew), string(domain.ItemInProgress), string(domain.ItemReady)}
	}

	query := `
		SELECT o.id, o.number, o.table_id, o.placed_at,
		       i.id, i.order_id, i.name, i.quantity, i.unit_price, i.station, i.status,
		       COALESCE(i.claimed_by,''), i.ready_at, i.served_at
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.restaurant_id = $1 AND i.status = ANY($2)`
	args := []any{restaurantID, statuses}
	if station != "" {
		query += ` AND i.station = $3`
		args = append(args, station)
	}
	query += ` ORDER BY o.placed_at, o.id, i.created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueOrder
	index := map[string]int{}
	for rows.Next() {
		var qo QueueOrder
		var it domain.OrderItem
		if err := rows.Scan(&qo.OrderID, &qo.OrderNumber, &qo.TableID, &qo.PlacedAt,
			&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Station,
			&it.Status, &it.ClaimedBy, &it.ReadyAt, &it.ServedAt); err != nil {
			return nil, err
		}
		i, ok := index[qo.OrderID]
		if !ok {
			out = append(out, qo)
			i = len(out) - 1
			index[qo.OrderID] = i
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out, rows.Err()
}

func (r *KitchenRepository) Stations(ctx context.Context, restaurantID string) ([]domain.KitchenStation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, restaurant_id, name, is_archived
		FROM kitchen_stations WHERE restaurant_id=$1 ORDER BY name
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.KitchenStation
	for rows.Next() {
		var st domain.KitchenStation
		if err := rows.Scan(&st.ID, &st.RestaurantID, &st.Name, &st.IsArchived); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *KitchenRepository) SetArchived(ctx context.Context, stationID string, archived bool) (domain.KitchenStation, error) {
	var st domain.KitchenStation
	err := r.db.QueryRow(ctx, `
		UPDATE kitchen_stations SET is_archived=$2 WHERE id=$1
		RETURNING id, restaurant_id, name, is_archived
	`, stationID, archived).Scan(&st.ID, &st.RestaurantID, &st.Name, &st.IsArchived)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.KitchenStation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.KitchenStation{}, err
	}
	return st, nil
}
