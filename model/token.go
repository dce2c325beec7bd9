// file: model/token.go

package model

import (
	"time"

	"github.com/google/uuid"
)

// UserSummary is the principal shape embedded in token responses.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
}

// TokenBundle is the value returned by every issuance and rotation. It is
// never persisted as a unit: the refresh token maps onto the user row and the
// access token is stateless.
type TokenBundle struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	User         UserSummary `json:"user"`
}

// SessionEntry is the per-client-session record held in the session token
// cache so browser clients never handle tokens directly.
type SessionEntry struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       uuid.UUID `json:"userId"`
}

// Summary builds the response shape for a user row.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}
