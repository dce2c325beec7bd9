package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// User is the principal row. The refresh token is single-slot: a successful
// rotation overwrites the previous value, which makes the old token unusable
// without any revocation list.
type User struct {
	ID                    uuid.UUID      `json:"id"`
	Email                 string         `json:"email"`
	FirstName             string         `json:"firstName"`
	LastName              string         `json:"lastName"`
	PasswordHash          string         `json:"-"`
	Role                  Role           `json:"role"`
	RefreshToken          sql.NullString `json:"-"`
	RefreshTokenExpiresAt sql.NullTime   `json:"-"`
	CreatedAt             time.Time      `json:"createdAt"`
}
