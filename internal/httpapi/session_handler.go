package httpapi

import (
	"encoding/json"
	"net/http"

	"tableside/internal/session"
)

type SessionHandler struct {
	service session.SessionServiceInterface
}

func NewSessionHandler(svc session.SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: svc}
}

type joinRequest struct {
	TableID  string `json:"table_id"`
	TablePin string `json:"table_pin"`
}

func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	sess, err := h.service.Join(r.Context(), req.TableID, req.TablePin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type resumeRequest struct {
	TableID   string `json:"table_id"`
	SessionID string `json:"session_id"`
}

func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	sess, err := h.service.Resume(r.Context(), req.TableID, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := h.service.Close(r.Context(), sess.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "status": "CLOSED"})
}
