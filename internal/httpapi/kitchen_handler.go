package httpapi

import (
	"encoding/json"
	"net/http"

	"tableside/internal/kitchen"
	"tableside/internal/menu"
)

type KitchenHandler struct {
	service kitchen.KitchenServiceInterface
	menu    menu.MenuServiceInterface
}

func NewKitchenHandler(svc kitchen.KitchenServiceInterface, menuSvc menu.MenuServiceInterface) *KitchenHandler {
	return &KitchenHandler{service: svc, menu: menuSvc}
}

// Queue serves the kitchen-station and waiter displays. Status transitions
// themselves ride the websocket RPCs; this is the re-fetch path after a
// reconnect.
func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	actor := staffActor(r)
	if actor.RestaurantID == "" {
		writeProblem(w, http.StatusBadRequest, "validation", "X-Restaurant-Id required")
		return
	}
	station := r.URL.Query().Get("station")
	filter := r.URL.Query().Get("filter")
	orders, err := h.service.Queue(r.Context(), actor.RestaurantID, station, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *KitchenHandler) Stations(w http.ResponseWriter, r *http.Request) {
	actor := staffActor(r)
	stations, err := h.service.Stations(r.Context(), actor.RestaurantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": stations})
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

func (h *KitchenHandler) ArchiveStation(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	st, err := h.service.ArchiveStation(r.Context(), staffActor(r), r.PathValue("id"), req.Archived)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

func (h *KitchenHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	m, err := h.menu.SetAvailability(r.Context(), staffActor(r), r.PathValue("id"), req.Available)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
