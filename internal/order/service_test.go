package order

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"tableside/internal/domain"
	"tableside/internal/logger"
)

type fakeBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *fakeBus) Broadcast(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type fakeSessions struct {
	sessions map[string]domain.Session
}

func (f *fakeSessions) Join(context.Context, string, string) (domain.Session, error) {
	panic("not used")
}
func (f *fakeSessions) Resume(context.Context, string, string) (domain.Session, error) {
	panic("not used")
}
func (f *fakeSessions) Close(context.Context, string) error { panic("not used") }
func (f *fakeSessions) Get(_ context.Context, id string) (domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}
func (f *fakeSessions) ActiveByRestaurant(context.Context, string) ([]domain.Session, error) {
	return nil, nil
}

// fakeOrderRepo keeps the Postgres repo's atomicity promises in memory: one
// order per (session, key), cart drained in the same critical section.
type fakeOrderRepo struct {
	mu     sync.Mutex
	seq    int
	carts  map[string][]domain.CartItem // session id -> pending cart lines
	orders map[string]domain.Order      // session id + key -> order
}

func orderKey(sessionID, key string) string { return sessionID + "|" + key }

func (r *fakeOrderRepo) FindByKey(_ context.Context, sessionID, key string) (domain.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderKey(sessionID, key)]
	return o, ok, nil
}

func (r *fakeOrderRepo) Get(_ context.Context, orderID string) (domain.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == orderID {
			return o, true, nil
		}
	}
	return domain.Order{}, false, nil
}

func (r *fakeOrderRepo) ListBySession(_ context.Context, sessionID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.SessionID == sessionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) PlaceTx(_ context.Context, sess domain.Session, key string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[orderKey(sess.ID, key)]; exists {
		return domain.Order{}, errDuplicateKey
	}
	lines := r.carts[sess.ID]
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}
	r.seq++
	o := domain.Order{
		ID:             fmt.Sprintf("o-%d", r.seq),
		Number:         fmt.Sprintf("ORD_20260828_%03d", r.seq),
		SessionID:      sess.ID,
		RestaurantID:   sess.RestaurantID,
		TableID:        sess.TableID,
		IdempotencyKey: key,
	}
	for _, l := range lines {
		o.Items = append(o.Items, domain.OrderItem{
			ID: l.ID, OrderID: o.ID, Name: l.Name, Quantity: l.Quantity,
			UnitPrice: l.UnitPrice, Station: "grill", Status: domain.ItemNew,
		})
		o.TotalAmount += l.UnitPrice * float64(l.Quantity)
	}
	o.Status = domain.DeriveOrderStatus(o.Items)
	delete(r.carts, sess.ID)
	r.orders[orderKey(sess.ID, key)] = o
	return o, nil
}

func newTestOrder(t *testing.T) (OrderServiceInterface, *fakeOrderRepo, *fakeBus) {
	t.Helper()
	sessions := &fakeSessions{sessions: map[string]domain.Session{
		"s1": {ID: "s1", TableID: "t1", RestaurantID: "r1", Status: domain.SessionActive},
	}}
	repo := &fakeOrderRepo{
		carts: map[string][]domain.CartItem{
			"s1": {
				{ID: "c1", SessionID: "s1", MenuItemID: "m1", Name: "Masala Dosa", UnitPrice: 100, Quantity: 2},
				{ID: "c2", SessionID: "s1", MenuItemID: "m2", Name: "Chai", UnitPrice: 20, Quantity: 1},
			},
		},
		orders: map[string]domain.Order{},
	}
	bus := &fakeBus{}
	svc := NewOrderService(repo, sessions, bus, logger.New("test"))
	return svc, repo, bus
}

func TestPlace_DrainsCartIntoOrder(t *testing.T) {
	svc, repo, bus := newTestOrder(t)
	ctx := context.Background()

	o, err := svc.Place(ctx, "s1", "key-1")
	require.NoError(t, err)
	assert.Regexp(t, `^ORD_\d{8}_\d{3}$`, o.Number)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, 220.0, o.TotalAmount)
	assert.Equal(t, domain.OrderOpen, o.Status)
	assert.Empty(t, repo.carts["s1"], "placement must drain the cart")

	// session room + restaurant room + one station room
	assert.Equal(t, 3, bus.count())
}

func TestPlace_ReplayReturnsSameOrder(t *testing.T) {
	svc, _, bus := newTestOrder(t)
	ctx := context.Background()

	first, err := svc.Place(ctx, "s1", "key-1")
	require.NoError(t, err)
	broadcasts := bus.count()

	// the cart is already drained; a replay must not fail on it
	second, err := svc.Place(ctx, "s1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, broadcasts, bus.count(), "replay must not re-broadcast")
}

func TestPlace_DistinctKeysAfterRefill(t *testing.T) {
	svc, repo, _ := newTestOrder(t)
	ctx := context.Background()

	first, err := svc.Place(ctx, "s1", "key-1")
	require.NoError(t, err)

	repo.mu.Lock()
	repo.carts["s1"] = []domain.CartItem{{ID: "c3", SessionID: "s1", Name: "Lassi", UnitPrice: 40, Quantity: 1}}
	repo.mu.Unlock()

	second, err := svc.Place(ctx, "s1", "key-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	orders, err := svc.ListBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestPlace_EmptyCart(t *testing.T) {
	svc, repo, _ := newTestOrder(t)
	repo.mu.Lock()
	delete(repo.carts, "s1")
	repo.mu.Unlock()

	_, err := svc.Place(context.Background(), "s1", "key-1")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestPlace_MissingKey(t *testing.T) {
	svc, _, _ := newTestOrder(t)

	_, err := svc.Place(context.Background(), "s1", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlace_ConcurrentSameKey(t *testing.T) {
	svc, repo, _ := newTestOrder(t)
	ctx := context.Background()

	const attempts = 16
	results := make([]domain.Order, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			o, err := svc.Place(ctx, "s1", "key-1")
			results[i] = o
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, o := range results {
		assert.Equal(t, results[0].ID, o.ID, "every caller must see the winner's order")
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.orders, 1, "exactly one order persisted")
}

func TestGetByKey(t *testing.T) {
	svc, _, _ := newTestOrder(t)
	ctx := context.Background()

	_, err := svc.GetByKey(ctx, "s1", "key-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	placed, err := svc.Place(ctx, "s1", "key-1")
	require.NoError(t, err)
	got, err := svc.GetByKey(ctx, "s1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
}
