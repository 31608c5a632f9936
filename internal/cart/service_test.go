package cart_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/cart"
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

func (b *fakeBus) byType(typ string) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, ev := range b.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func (f *fakeSessions) Join(context.Context, string, string) (domain.Session, error) {
	panic("not used")
}
func (f *fakeSessions) Resume(context.Context, string, string) (domain.Session, error) {
	panic("not used")
}
func (f *fakeSessions) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	s.Status = domain.SessionClosed
	f.sessions[id] = s
	return nil
}
func (f *fakeSessions) Get(_ context.Context, id string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}
func (f *fakeSessions) ActiveByRestaurant(context.Context, string) ([]domain.Session, error) {
	return nil, nil
}

type fakeMenu struct {
	items map[string]domain.MenuItem
}

func (f *fakeMenu) Lookup(_ context.Context, id string) (domain.MenuItem, error) {
	m, ok := f.items[id]
	if !ok {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMenu) SetAvailability(context.Context, domain.Actor, string, bool) (domain.MenuItem, error) {
	panic("not used")
}

// fakeCartRepo mirrors the Postgres repo's contract: session state checked
// under the same lock as the mutation, adds coalesced per menu item +
// modifier set.
type fakeCartRepo struct {
	mu       sync.Mutex
	sessions *fakeSessions
	items    map[string][]domain.CartItem // by session id
}

func (r *fakeCartRepo) checkActive(sessionID string) error {
	s, ok := r.sessions.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if s.Status != domain.SessionActive {
		return domain.ErrSessionClosed
	}
	return nil
}

func (r *fakeCartRepo) AddItem(_ context.Context, item domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkActive(item.SessionID); err != nil {
		return err
	}
	key := cart.ModifiersKey(item.Modifiers)
	for i, ex := range r.items[item.SessionID] {
		if ex.MenuItemID == item.MenuItemID && cart.ModifiersKey(ex.Modifiers) == key {
			r.items[item.SessionID][i].Quantity += item.Quantity
			return nil
		}
	}
	r.items[item.SessionID] = append(r.items[item.SessionID], item)
	return nil
}

func (r *fakeCartRepo) SetQuantity(_ context.Context, sessionID, cartItemID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkActive(sessionID); err != nil {
		return err
	}
	for i, ex := range r.items[sessionID] {
		if ex.ID == cartItemID {
			if quantity <= 0 {
				r.items[sessionID] = append(r.items[sessionID][:i], r.items[sessionID][i+1:]...)
			} else {
				r.items[sessionID][i].Quantity = quantity
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeCartRepo) RemoveItem(ctx context.Context, sessionID, cartItemID string) error {
	return r.SetQuantity(ctx, sessionID, cartItemID, 0)
}

func (r *fakeCartRepo) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkActive(sessionID); err != nil {
		return err
	}
	delete(r.items, sessionID)
	return nil
}

func (r *fakeCartRepo) ListItems(_ context.Context, sessionID string) ([]domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CartItem, len(r.items[sessionID]))
	copy(out, r.items[sessionID])
	return out, nil
}

const taxRate = 0.05

func newTestCart(t *testing.T) (cart.CartServiceInterface, *fakeSessions, *fakeBus) {
	t.Helper()
	sessions := &fakeSessions{sessions: map[string]domain.Session{
		"s1": {ID: "s1", TableID: "t1", RestaurantID: "r1", Status: domain.SessionActive},
	}}
	menuItems := &fakeMenu{items: map[string]domain.MenuItem{
		"m-dosa": {ID: "m-dosa", RestaurantID: "r1", Name: "Masala Dosa", Price: 100, Station: "grill", Available: true},
		"m-chai": {ID: "m-chai", RestaurantID: "r1", Name: "Chai", Price: 20, Station: "beverages", Available: true},
		"m-gone": {ID: "m-gone", RestaurantID: "r1", Name: "Off Menu", Price: 50, Available: false},
		"m-r2":   {ID: "m-r2", RestaurantID: "r2", Name: "Elsewhere", Price: 75, Available: true},
	}}
	repo := &fakeCartRepo{sessions: sessions, items: map[string][]domain.CartItem{}}
	bus := &fakeBus{}
	svc := cart.NewCartService(repo, sessions, menuItems, bus, logger.New("test"), taxRate)
	return svc, sessions, bus
}

func TestAdd_SnapshotTotals(t *testing.T) {
	svc, _, bus := newTestCart(t)
	ctx := context.Background()

	c, err := svc.Add(ctx, "s1", "m-dosa", 2, nil)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 200.0, c.Subtotal)
	assert.Equal(t, 10.0, c.Tax)
	assert.Equal(t, 210.0, c.Total)

	// every mutation pushes a full snapshot to the session room
	events := bus.byType(domain.EventCartUpdate)
	require.Len(t, events, 1)
	assert.Equal(t, "session:s1", events[0].Room)
}

func TestAdd_CoalescesSameItemAndModifiers(t *testing.T) {
	svc, _, _ := newTestCart(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "m-dosa", "m-dosa", 1, nil)
	require.Error(t, err) // unknown session never mutates

	_, err = svc.Add(ctx, "s1", "m-dosa", 1, []string{"extra cheese", "no onion"})
	require.NoError(t, err)
	c, err := svc.Add(ctx, "s1", "m-dosa", 2, []string{"no onion", "extra cheese"})
	require.NoError(t, err)

	require.Len(t, c.Items, 1, "same item + same modifier set must coalesce")
	assert.Equal(t, 3, c.Items[0].Quantity)

	c, err = svc.Add(ctx, "s1", "m-dosa", 1, nil)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2, "different modifier set is a separate line")
}

func TestUpdate_QuantityZeroRemovesLine(t *testing.T) {
	svc, _, _ := newTestCart(t)
	ctx := context.Background()

	c, err := svc.Add(ctx, "s1", "m-chai", 2, nil)
	require.NoError(t, err)
	itemID := c.Items[0].ID

	c, err = svc.Update(ctx, "s1", itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 100.0, c.Subtotal)

	c, err = svc.Update(ctx, "s1", itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0.0, c.Total)
}

func TestTotalsMatchItemSum(t *testing.T) {
	svc, _, _ := newTestCart(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", "m-dosa", 2, nil)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "s1", "m-chai", 3, nil)
	require.NoError(t, err)
	c, err := svc.Get(ctx, "s1")
	require.NoError(t, err)

	var sum float64
	for _, it := range c.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	assert.Equal(t, sum, c.Subtotal)
	assert.Equal(t, c.Subtotal+c.Tax, c.Total)
}

func TestMutationsOnClosedSession(t *testing.T) {
	svc, sessions, _ := newTestCart(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", "m-chai", 1, nil)
	require.NoError(t, err)
	require.NoError(t, sessions.Close(ctx, "s1"))

	_, err = svc.Add(ctx, "s1", "m-chai", 1, nil)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	_, err = svc.Clear(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestAdd_UnavailableItem(t *testing.T) {
	svc, _, _ := newTestCart(t)

	_, err := svc.Add(context.Background(), "s1", "m-gone", 1, nil)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestAdd_OtherRestaurantsItemInvisible(t *testing.T) {
	svc, _, _ := newTestCart(t)

	_, err := svc.Add(context.Background(), "s1", "m-r2", 1, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdd_InvalidQuantity(t *testing.T) {
	svc, _, _ := newTestCart(t)

	_, err := svc.Add(context.Background(), "s1", "m-chai", 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
