package menu

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/domain"
	"tableside/internal/logger"
)

type fakeCatalog struct {
	mu    sync.Mutex
	items map[string]domain.MenuItem
}

func (f *fakeCatalog) Item(_ context.Context, id string) (domain.MenuItem, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	return m, ok, nil
}

func (f *fakeCatalog) SetAvailability(_ context.Context, id string, available bool) (domain.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	m.Available = available
	f.items[id] = m
	return m, nil
}

type fakeSessions struct {
	active []domain.Session
}

func (f *fakeSessions) Join(context.Context, string, string) (domain.Session, error) {
	panic("not used")
}
func (f *fakeSessions) Resume(context.Context, string, string) (domain.Session, error) {
	panic("not used")
}
func (f *fakeSessions) Close(context.Context, string) error { panic("not used") }
func (f *fakeSessions) Get(context.Context, string) (domain.Session, error) {
	panic("not used")
}
func (f *fakeSessions) ActiveByRestaurant(context.Context, string) ([]domain.Session, error) {
	return f.active, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *fakeBus) Broadcast(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func newTestMenu(t *testing.T) (MenuServiceInterface, *fakeBus) {
	t.Helper()
	catalog := &fakeCatalog{items: map[string]domain.MenuItem{
		"m1": {ID: "m1", RestaurantID: "r1", Name: "Masala Dosa", Price: 100, Station: "grill", Available: true},
	}}
	sessions := &fakeSessions{active: []domain.Session{
		{ID: "s1", RestaurantID: "r1", Status: domain.SessionActive},
		{ID: "s2", RestaurantID: "r1", Status: domain.SessionActive},
	}}
	bus := &fakeBus{}
	return NewMenuService(catalog, sessions, bus, logger.New("test")), bus
}

func TestLookup(t *testing.T) {
	svc, _ := newTestMenu(t)

	m, err := svc.Lookup(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Masala Dosa", m.Name)

	_, err = svc.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetAvailability_BroadcastsToFloorAndTables(t *testing.T) {
	svc, bus := newTestMenu(t)
	waiter := domain.Actor{Name: "w1", Role: domain.RoleWaiter, RestaurantID: "r1"}

	m, err := svc.SetAvailability(context.Background(), waiter, "m1", false)
	require.NoError(t, err)
	assert.False(t, m.Available)

	// restaurant room plus one event per active session
	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.events, 3)
	rooms := []string{bus.events[0].Room, bus.events[1].Room, bus.events[2].Room}
	assert.Contains(t, rooms, "restaurant:r1")
	assert.Contains(t, rooms, "session:s1")
	assert.Contains(t, rooms, "session:s2")
	for _, ev := range bus.events {
		assert.Equal(t, domain.EventMenuUpdate, ev.Type)
	}
}

func TestSetAvailability_CustomerForbidden(t *testing.T) {
	svc, bus := newTestMenu(t)

	_, err := svc.SetAvailability(context.Background(), domain.Actor{Role: domain.RoleCustomer}, "m1", false)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, bus.events)
}
