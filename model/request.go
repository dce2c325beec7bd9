// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Role      Role   `json:"role" validate:"omitempty,oneof=Admin User"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RefreshRequest defines the payload for exchanging a refresh token for a new
// token bundle. The access token is carried for parity with the login response
// but the refresh token is what gets validated.
type RefreshRequest struct {
	UserID       string `json:"userId" validate:"required,uuid"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ForgotPasswordRequest asks the external notifier to deliver a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset started out-of-band.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}
