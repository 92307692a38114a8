package http

import (
	"context"

	"github.com/go-accounts-api/internal/domain"
)

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Create persists a new account atomically with respect to the username and
	// email uniqueness constraints; it fails with domain.ErrConflict otherwise.
	Create(ctx context.Context, a *domain.Account) error
	// RotateCode replaces the verification code, failing with
	// domain.ErrAlreadyVerified if the account is no longer pending.
	RotateCode(ctx context.Context, accountID, code string) error
	MarkVerified(ctx context.Context, accountID string) error
}
