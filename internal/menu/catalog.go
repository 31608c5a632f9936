package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableside/internal/domain"
)

// CatalogInterface is the read surface the ordering core needs from the menu
// service. Menu CRUD lives elsewhere; availability is the one flag the core
// toggles because the floor staff flip it mid-service.
type CatalogInterface interface {
	Item(ctx context.Context, menuItemID string) (domain.MenuItem, bool, error)
	SetAvailability(ctx context.Context, menuItemID string, available bool) (domain.MenuItem, error)
}

type Catalog struct {
	db *pgxpool.Pool
}

func NewCatalog(db *pgxpool.Pool) CatalogInterface {
	return &Catalog{db: db}
}

func (c *Catalog) Item(ctx context.Context, menuItemID string) (domain.MenuItem, bool, error) {
	var m domain.MenuItem
	err := c.db.QueryRow(ctx, `
		SELECT id, restaurant_id, name, price, station, available
		FROM menu_items WHERE id=$1
	`, menuItemID).Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Station, &m.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MenuItem{}, false, nil
	}
	if err != nil {
		return domain.MenuItem{}, false, err
	}
	return m, true, nil
}

func (c *Catalog) SetAvailability(ctx context.Context, menuItemID string, available bool) (domain.MenuItem, error) {
	var m domain.MenuItem
	err := c.db.QueryRow(ctx, `
		UPDATE menu_items SET available=$2, updated_at=now()
		WHERE id=$1
		RETURNING id, restaurant_id, name, price, station, available
	`, menuItemID, available).Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Station, &m.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MenuItem{}, err
	}
	return m, nil
}
