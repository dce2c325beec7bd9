package router

import (
	"go-auth-api/handler"
	"go-auth-api/service"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "go-auth-api/docs"
)

// NewRouter builds the route table and wraps it in the renewal gate, which
// runs before every request that is not an auth endpoint.
func NewRouter(authHandler *handler.AuthHandler, codec *service.TokenCodec, cache handler.SessionStore, tokens handler.TokenService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	mux.Handle("POST /auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	mux.Handle("POST /auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))
	mux.Handle("POST /auth/forgot-password", handler.ErrorHandlingMiddleware(authHandler.ForgotPassword))
	mux.Handle("POST /auth/reset-password", handler.ErrorHandlingMiddleware(authHandler.ResetPassword))

	authenticated := handler.AuthMiddleware(codec)
	mux.Handle("GET /api/me", authenticated(handler.ErrorHandlingMiddleware(authHandler.Me)))

	renewal := handler.RenewalMiddleware(cache, tokens, codec)
	return renewal(mux)
}
