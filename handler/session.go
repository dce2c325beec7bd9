package handler

import (
	"go-auth-api/config"
	"net/http"

	"github.com/google/uuid"
)

// The session identifier is an opaque random value; all token material lives
// server-side in the session cache, keyed by it.

func sessionIDFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(config.AppConfig.Session.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// ensureSessionCookie returns the request's session ID, minting a new one and
// setting the cookie when the request has none.
func ensureSessionCookie(w http.ResponseWriter, r *http.Request) string {
	if sessionID, ok := sessionIDFromRequest(r); ok {
		return sessionID
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     config.AppConfig.Session.CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

func dropSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.AppConfig.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
