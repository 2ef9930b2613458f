package auth

import (
	"context"

	"github.com/mmynk/settleup/internal/models"
)

// Authenticator turns an email and credential into a settleup account.
// PasswordAuthenticator is the only implementation today.
type Authenticator interface {
	// Register validates credential, stores a new account and returns it.
	// A taken email yields ErrEmailExists.
	Register(ctx context.Context, email, fullName, credential string) (*models.User, error)

	// Authenticate returns the account for email when credential matches,
	// or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials too weak to register with.
	ValidateCredential(credential string) error
}
