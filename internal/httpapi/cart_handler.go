package httpapi

import (
	"encoding/json"
	"net/http"

	"tableside/internal/cart"
)

type CartHandler struct {
	service cart.CartServiceInterface
}

func NewCartHandler(svc cart.CartServiceInterface) *CartHandler {
	return &CartHandler{service: svc}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), sessionFrom(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type addRequest struct {
	MenuItemID string   `json:"menu_item_id"`
	Quantity   int      `json:"quantity"`
	Modifiers  []string `json:"selected_modifiers,omitempty"`
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	c, err := h.service.Add(r.Context(), sessionFrom(r).ID, req.MenuItemID, req.Quantity, req.Modifiers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type updateRequest struct {
	CartItemID string `json:"cart_item_id"`
	Quantity   int    `json:"quantity"`
}

func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	c, err := h.service.Update(r.Context(), sessionFrom(r).ID, req.CartItemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Remove(r.Context(), sessionFrom(r).ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Clear(r.Context(), sessionFrom(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
