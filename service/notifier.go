package service

import (
	"context"
	"go-auth-api/logger"
)

// PasswordResetNotifier is the external collaborator that delivers password
// reset instructions. Delivery is opaque to this service.
type PasswordResetNotifier interface {
	SendPasswordReset(ctx context.Context, email string) error
}

// LogNotifier is the default notifier: it records the request instead of
// delivering anything. Deployments plug in a real delivery channel.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(ctx context.Context, email string) error {
	logger.Log.WithField("email", email).Info("Password reset delivery requested")
	return nil
}
