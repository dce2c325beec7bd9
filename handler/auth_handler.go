package handler

import (
	"context"
	"encoding/json"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"

	"github.com/google/uuid"
)

// TokenService is the slice of the auth service the HTTP layer consumes.
type TokenService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.TokenBundle, error)
	Login(ctx context.Context, email, password string) (*model.TokenBundle, error)
	Refresh(ctx context.Context, userID uuid.UUID, refreshToken string) (*model.TokenBundle, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

// SessionStore is the per-session key/value contract holding the current
// token bundle for browser-style clients.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*model.SessionEntry, error)
	Set(ctx context.Context, sessionID string, entry *model.SessionEntry) error
	Clear(ctx context.Context, sessionID string) error
}

// AuthHandler serves the authentication endpoints.
type AuthHandler struct {
	service TokenService
	cache   SessionStore
}

func NewAuthHandler(service TokenService, cache SessionStore) *AuthHandler {
	return &AuthHandler{service: service, cache: cache}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a user and returns a first token bundle, like login.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        registration body model.RegisterRequest true "New user details"
// @Success      201  {object}  model.TokenBundle
// @Failure      400  {object}  common.AppError "Validation failure or duplicate email"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	bundle, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch err {
		case service.ErrDuplicateEmail:
			return common.NewAppError(http.StatusBadRequest, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not register user", err)
		}
	}

	h.storeSession(w, r, bundle)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(bundle)
	return nil
}

// Login godoc
// @Summary      Authenticate a user
// @Description  Verifies credentials and returns an access/refresh token bundle.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "Login credentials"
// @Success      200  {object}  model.TokenBundle
// @Failure      400  {object}  common.AppError "Malformed request body"
// @Failure      401  {object}  common.AppError "Invalid email or password"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	bundle, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			return common.NewAppError(http.StatusUnauthorized, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not process login", err)
		}
	}

	h.storeSession(w, r, bundle)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(bundle)
	return nil
}

// Refresh godoc
// @Summary      Rotate the refresh token
// @Description  Exchanges a valid refresh token for a new token bundle; the presented token is invalidated by the rotation.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        tokens body model.RefreshRequest true "Current tokens"
// @Success      200  {object}  model.TokenBundle
// @Failure      400  {object}  common.AppError "Malformed request body"
// @Failure      401  {object}  common.AppError "Invalid or expired refresh token"
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid user ID", err)
	}

	bundle, err := h.service.Refresh(r.Context(), userID, req.RefreshToken)
	if err != nil {
		switch err {
		case service.ErrInvalidRefreshToken:
			return common.NewAppError(http.StatusUnauthorized, "invalid session", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not refresh tokens", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(bundle)
	return nil
}

// Logout godoc
// @Summary      End the current session
// @Description  Clears the server-side session entry and drops the session cookie.
// @Tags         auth
// @Produce      json
// @Success      204  "Session cleared"
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	if sessionID, ok := sessionIDFromRequest(r); ok {
		if err := h.cache.Clear(r.Context(), sessionID); err != nil {
			return common.NewAppError(http.StatusInternalServerError, "Could not clear session", err)
		}
	}
	dropSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// ForgotPassword godoc
// @Summary      Request a password reset
// @Description  Asks the external notifier to deliver reset instructions. The response is generic regardless of account existence.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.ForgotPasswordRequest true "Account email"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  common.AppError "Malformed request body"
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ForgotPasswordRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not process request", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "If the account exists, reset instructions have been sent"})
	return nil
}

// ResetPassword godoc
// @Summary      Complete a password reset
// @Description  Passthrough for the externally delivered reset flow; only the wire contract lives here.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.ResetPasswordRequest true "Reset token and new password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  common.AppError "Malformed request body"
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ResetPasswordRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Password reset accepted"})
	return nil
}

// Me godoc
// @Summary      Current principal
// @Description  Returns the identity attached to the request by the bearer middleware or the renewal gate.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /api/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}
	email, _ := r.Context().Value(UserEmailKey).(string)
	role, _ := r.Context().Value(UserRoleKey).(string)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"id":    userID.String(),
		"email": email,
		"role":  role,
	})
	return nil
}

// storeSession caches the bundle under the client's session so browser-style
// clients never handle the tokens themselves. API-style clients can ignore
// the cookie and use the JSON body.
func (h *AuthHandler) storeSession(w http.ResponseWriter, r *http.Request, bundle *model.TokenBundle) {
	sessionID := ensureSessionCookie(w, r)
	entry := &model.SessionEntry{
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		UserID:       bundle.User.ID,
	}
	if err := h.cache.Set(r.Context(), sessionID, entry); err != nil {
		// The bundle still reaches the client in the body; log and move on.
		logger.Log.WithError(err).WithField("user_id", bundle.User.ID).Warn("Failed to cache session entry")
	}
}
