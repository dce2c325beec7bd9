package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims are the access token claims. Subject carries the user ID.
type AppClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
