package service

import (
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec creates and parses the signed access tokens. Tokens are
// self-contained: anyone holding the key can verify them without a store
// lookup.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// Issue signs a new access token for the user and returns it together with
// its absolute expiry.
func (c *TokenCodec) Issue(user *model.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(c.ttl)

	claims := &model.AppClaims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		logger.Log.WithError(err).WithField("email", user.Email).Error("Failed to sign access token")
		return "", time.Time{}, fmt.Errorf("failed to sign token string: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Verify checks the signature and expiry and returns the claims. This is the
// authoritative check used wherever a token is presented for access.
func (c *TokenCodec) Verify(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// PeekExpiry decodes the expiry claim without verifying the signature. It is
// cheap and non-authoritative, suitable only for the renewal gate's proactive
// check; never use it to authorize anything.
func (c *TokenCodec) PeekExpiry(tokenString string) (time.Time, error) {
	claims := &model.AppClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token carries no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}
