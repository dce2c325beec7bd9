package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateEmail maps to a 400: the email is taken.
	ErrDuplicateEmail = errors.New("email is already registered")
	// ErrInvalidCredentials maps to a 401. The message is identical for an
	// unknown email and a wrong password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken maps to a 401. Covers a missing user, a token
	// mismatch, an expired slot and a lost rotation race alike.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// AuthService is the trust boundary: it owns the principal row and
// orchestrates credential verification, access token issuance and refresh
// token rotation.
type AuthService struct {
	userRepo   repository.IUserRepository
	codec      *TokenCodec
	notifier   PasswordResetNotifier
	refreshTTL time.Duration
}

func NewAuthService(userRepo repository.IUserRepository, codec *TokenCodec, notifier PasswordResetNotifier, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		codec:      codec,
		notifier:   notifier,
		refreshTTL: refreshTTL,
	}
}

// GenerateRefreshToken returns a 256-bit random token, base64-encoded.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Register creates a new principal with an empty refresh slot, then logs it
// in by issuing a first token bundle.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.TokenBundle, error) {
	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("New user registered")

	return s.issueBundle(ctx, user)
}

// Login verifies the credentials and issues a fresh token bundle. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.TokenBundle, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	return s.issueBundle(ctx, user)
}

// Refresh exchanges a valid refresh token for a new bundle. Validation and
// rotation happen as one atomic conditional update, so of two concurrent
// calls presenting the same token exactly one wins; the loser gets
// ErrInvalidRefreshToken and no state changes on its behalf.
func (s *AuthService) Refresh(ctx context.Context, userID uuid.UUID, presented string) (*model.TokenBundle, error) {
	newToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.refreshTTL)
	rotated, err := s.userRepo.RotateRefreshToken(ctx, userID, presented, newToken, expiresAt)
	if err != nil {
		return nil, err
	}
	if !rotated {
		logger.Log.WithField("user_id", userID).Warn("Refresh token rejected")
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The principal vanished between rotate and read. Never leak
			// a not-found to the caller.
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	accessToken, accessExpiry, err := s.codec.Issue(user)
	if err != nil {
		return nil, err
	}

	return &model.TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		ExpiresAt:    accessExpiry,
		User:         user.Summary(),
	}, nil
}

// RequestPasswordReset hands the email to the external notifier. The outcome
// is generic whether or not the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if _, err := s.userRepo.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Log.WithField("email", email).Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}
	return s.notifier.SendPasswordReset(ctx, email)
}

// issueBundle persists a new refresh token and then signs an access token.
// Persistence comes first: if the write fails the old refresh token stays
// valid and no access token is handed back.
func (s *AuthService) issueBundle(ctx context.Context, user *model.User) (*model.TokenBundle, error) {
	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.refreshTTL)
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	accessToken, accessExpiry, err := s.codec.Issue(user)
	if err != nil {
		return nil, err
	}

	return &model.TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiry,
		User:         user.Summary(),
	}, nil
}
