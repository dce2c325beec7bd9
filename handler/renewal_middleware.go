package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"
	"strings"
	"time"
)

// Paths the renewal gate never touches: unauthenticated surfaces and the
// auth endpoints themselves.
var renewalExemptPrefixes = []string{
	"/auth/",
	"/health",
	"/swagger/",
}

func renewalExempt(path string) bool {
	for _, prefix := range renewalExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RenewalMiddleware is the request-time renewal gate for session clients.
// Before a request reaches protected functionality it checks the cached
// access token's expiry, transparently refreshes an expired bundle, and
// forces re-authentication when the refresh fails. Renewal only happens
// inline with a request that needs it; there is no background refresher.
func RenewalMiddleware(cache SessionStore, tokens TokenService, codec *service.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if renewalExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			sessionID, ok := sessionIDFromRequest(r)
			if !ok {
				// No session; bearer clients are handled downstream.
				next.ServeHTTP(w, r)
				return
			}

			entry, err := cache.Get(r.Context(), sessionID)
			if err != nil {
				appErr := common.NewAppError(http.StatusInternalServerError, "Session store unavailable", err)
				appErr.Send(w)
				return
			}
			if entry == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Cheap, non-authoritative expiry check. An unreadable token is
			// treated as expired and goes down the refresh path.
			expiry, err := codec.PeekExpiry(entry.AccessToken)
			if err == nil && expiry.After(time.Now()) {
				ctx, ok := contextFromToken(r.Context(), codec, entry.AccessToken)
				if !ok {
					denySession(w, r, cache, sessionID)
					return
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			bundle, err := tokens.Refresh(r.Context(), entry.UserID, entry.RefreshToken)
			if err != nil {
				logger.Log.WithError(err).WithField("user_id", entry.UserID).Warn("Session renewal failed")
				denySession(w, r, cache, sessionID)
				return
			}

			newEntry := &model.SessionEntry{
				AccessToken:  bundle.AccessToken,
				RefreshToken: bundle.RefreshToken,
				UserID:       bundle.User.ID,
			}
			if err := cache.Set(r.Context(), sessionID, newEntry); err != nil {
				// The rotation already happened; without the cache update the
				// session would be stranded on a dead refresh token.
				appErr := common.NewAppError(http.StatusInternalServerError, "Session store unavailable", err)
				appErr.Send(w)
				return
			}

			ctx, ok := contextFromToken(r.Context(), codec, bundle.AccessToken)
			if !ok {
				denySession(w, r, cache, sessionID)
				return
			}

			logger.Log.WithField("user_id", bundle.User.ID).Info("Session tokens renewed")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// contextFromToken builds the request's security context from a verified
// access token.
func contextFromToken(ctx context.Context, codec *service.TokenCodec, token string) (context.Context, bool) {
	claims, err := codec.Verify(token)
	if err != nil {
		return nil, false
	}
	newCtx, err := securityContext(ctx, claims)
	if err != nil {
		return nil, false
	}
	return newCtx, true
}

// denySession clears the session and short-circuits with a generic 401. No
// partial security context ever reaches the handler after a failed renewal.
func denySession(w http.ResponseWriter, r *http.Request, cache SessionStore, sessionID string) {
	if err := cache.Clear(r.Context(), sessionID); err != nil {
		logger.Log.WithError(err).Warn("Failed to clear session entry")
	}
	dropSessionCookie(w)
	appErr := common.NewAppError(http.StatusUnauthorized, "invalid session", nil)
	appErr.Send(w)
}
