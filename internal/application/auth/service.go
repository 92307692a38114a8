package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Service validates credentials for login. Verification status is deliberately
// not checked: an unverified account can still log in.
type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, error)
}

type accountStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

type service struct {
	repo accountStore
}

func NewService(repo accountStore) Service {
	return &service{repo: repo}
}

// Login returns the same ErrUnauthorized for an unknown username and a wrong
// password, so callers cannot enumerate usernames.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	a, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Only an unknown username folds into the uniform 401; a store outage
		// must surface as a server error, not as bad credentials.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return a, nil
}
