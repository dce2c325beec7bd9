package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	UserEmailKey contextKey = "userEmail"
	UserRoleKey  contextKey = "userRole"
)

// securityContext attaches the verified claims to the request context. This
// is the only place identity enters a request; downstream code reads it back
// through the exported keys.
func securityContext(ctx context.Context, claims *model.AppClaims) (context.Context, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	return ctx, nil
}

// AuthMiddleware authorizes requests bearing a valid unexpired signed token.
// Requests whose context already carries an identity (attached upstream by
// the renewal gate for session clients) pass through untouched.
func AuthMiddleware(codec *service.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Value(UserIDKey).(uuid.UUID); ok {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				err := common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil)
				err.Send(w)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				err := common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil)
				err.Send(w)
				return
			}

			claims, err := codec.Verify(headerParts[1])
			if err != nil {
				appErr := common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err)
				appErr.Send(w)
				return
			}

			ctx, err := securityContext(r.Context(), claims)
			if err != nil {
				appErr := common.NewAppError(http.StatusUnauthorized, "Invalid subject in token", err)
				appErr.Send(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware restricts a route to principals carrying the Admin role.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleKey).(string)

		if !ok || role != string(model.RoleAdmin) {
			err := common.NewAppError(http.StatusForbidden, "Access denied. Admin privileges required.", nil)
			err.Send(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
