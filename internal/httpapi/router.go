package httpapi

import (
	"net/http"

	"tableside/internal/cart"
	"tableside/internal/hub"
	"tableside/internal/kitchen"
	"tableside/internal/menu"
	"tableside/internal/order"
	"tableside/internal/session"
)

type Services struct {
	Sessions session.SessionServiceInterface
	Carts    cart.CartServiceInterface
	Orders   order.OrderServiceInterface
	Kitchen  kitchen.KitchenServiceInterface
	Menu     menu.MenuServiceInterface
	Hub      *hub.Hub
}

// NewRouter wires the REST surface. Needs Go 1.22+ method patterns.
func NewRouter(s Services) http.Handler {
	sessions := NewSessionHandler(s.Sessions)
	carts := NewCartHandler(s.Carts)
	orders := NewOrderHandler(s.Orders)
	kitchenH := NewKitchenHandler(s.Kitchen, s.Menu)

	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return withSession(s.Sessions, h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions/join", sessions.Join)
	mux.HandleFunc("POST /sessions/resume", sessions.Resume)
	mux.HandleFunc("POST /sessions/close", auth(sessions.Close))

	mux.HandleFunc("GET /cart", auth(carts.Get))
	mux.HandleFunc("POST /cart/add", auth(carts.Add))
	mux.HandleFunc("PUT /cart/update", auth(carts.Update))
	mux.HandleFunc("DELETE /cart/item/{id}", auth(carts.Remove))
	mux.HandleFunc("DELETE /cart/clear", auth(carts.Clear))

	mux.HandleFunc("POST /order/place", auth(orders.Place))
	mux.HandleFunc("GET /order/session/{session_id}", auth(orders.ListBySession))
	mux.HandleFunc("GET /order/status/{idempotency_key}", auth(orders.StatusByKey))

	mux.HandleFunc("GET /kitchen/orders", kitchenH.Queue)
	mux.HandleFunc("GET /kitchen/stations", kitchenH.Stations)
	mux.HandleFunc("POST /kitchen/stations/{id}/archive", kitchenH.ArchiveStation)
	mux.HandleFunc("PUT /menu/items/{id}/availability", kitchenH.SetAvailability)

	mux.HandleFunc("GET /ws", s.Hub.HandleWS)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}
