package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tableside/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem emits the shared error shape (simplified RFC7807 problem+json).
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

// writeError maps the domain error taxonomy onto HTTP. Everything unknown is
// a 500; rejected transitions and idempotent conflicts are client-visible,
// non-fatal statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPin):
		writeProblem(w, http.StatusUnauthorized, "invalid_pin", err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		writeProblem(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, domain.ErrSessionClosed):
		writeProblem(w, http.StatusConflict, "session_closed", err.Error())
	case errors.Is(err, domain.ErrSessionConflict):
		writeProblem(w, http.StatusConflict, "session_conflict", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		writeProblem(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrAlreadyClaimed):
		writeProblem(w, http.StatusConflict, "already_claimed", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeProblem(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrStationMismatch):
		writeProblem(w, http.StatusForbidden, "station_mismatch", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeProblem(w, http.StatusConflict, "item_unavailable", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "validation", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
