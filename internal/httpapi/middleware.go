package httpapi

import (
	"context"
	"net/http"
	"strings"

	"tableside/internal/domain"
	"tableside/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// withSession resolves the bearer session token (Authorization header or the
// tableside_session cookie) and stores the session in the request context.
// The token is the only credential for the life of the table visit.
func withSession(sessions session.SessionServiceInterface, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeProblem(w, http.StatusUnauthorized, "missing_session", "session token required")
			return
		}
		sess, err := sessions.Get(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	}
}

func sessionFrom(r *http.Request) domain.Session {
	sess, _ := r.Context().Value(sessionKey).(domain.Session)
	return sess
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie("tableside_session"); err == nil {
		return c.Value
	}
	return ""
}

// staffActor reads the identity the authenticating gateway forwards for staff
// requests. Credential verification is out of scope here; capability checks
// per transition are not.
func staffActor(r *http.Request) domain.Actor {
	return domain.Actor{
		Name:         r.Header.Get("X-Actor"),
		Role:         domain.Role(strings.ToUpper(r.Header.Get("X-Role"))),
		RestaurantID: r.Header.Get("X-Restaurant-Id"),
		Station:      r.Header.Get("X-Station"),
	}
}
