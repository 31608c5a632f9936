package httpapi

import (
	"encoding/json"
	"net/http"

	"tableside/internal/order"
)

type OrderHandler struct {
	service order.OrderServiceInterface
}

func NewOrderHandler(svc order.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: svc}
}

type placeRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// Place is safe to retry with the same idempotency key: a replay returns the
// original order unchanged.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	o, err := h.service.Place(r.Context(), sessionFrom(r).ID, req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess.ID != r.PathValue("session_id") {
		writeProblem(w, http.StatusForbidden, "forbidden", "session mismatch")
		return
	}
	orders, err := h.service.ListBySession(r.Context(), sess.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "orders": orders})
}

func (h *OrderHandler) StatusByKey(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetByKey(r.Context(), sessionFrom(r).ID, r.PathValue("idempotency_key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
