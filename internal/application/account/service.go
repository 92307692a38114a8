package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/code"
	"github.com/go-accounts-api/internal/pkg/id"
	"github.com/go-accounts-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Service drives the account verification state machine: signup creates a
// pending account and mails a one-time code, VerifyCode consumes the code, and
// ResendCode replaces it.
type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error)
	VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) error
	ResendCode(ctx context.Context, req domain.ResendCodeRequest) error
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	// RotateCode fails with domain.ErrAlreadyVerified when the account has been
	// verified since it was read, so a stale resend cannot re-attach a code.
	RotateCode(ctx context.Context, accountID, code string) error
	MarkVerified(ctx context.Context, accountID string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, ev domain.AccountEvent) error
}

type service struct {
	repo   accountStore
	mailer mailer
	events eventPublisher
}

type ServiceDeps struct {
	AccountRepo accountStore
	Mailer      mailer
	Events      eventPublisher // optional
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:   deps.AccountRepo,
		mailer: deps.Mailer,
		events: deps.Events,
	}
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	c, err := code.New()
	if err != nil {
		return nil, err
	}
	a := domain.NewPendingAccount(id.New(), req.Username, req.Email, string(hash), c, time.Now().UTC())
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventAccountSignedUp, a)

	// The account is already persisted; a failed delivery is surfaced to the
	// caller and recovered via resend, never rolled back.
	if err := s.sendCode(a, c); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	a, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if a.Verified {
		return fmt.Errorf("account is already verified: %w", domain.ErrAlreadyVerified)
	}
	if a.VerificationCode == nil || !code.Equal(*a.VerificationCode, req.Code) {
		return fmt.Errorf("verification code does not match: %w", domain.ErrInvalidCode)
	}
	if err := s.repo.MarkVerified(ctx, a.AccountID); err != nil {
		return err
	}
	s.publish(ctx, domain.EventAccountVerified, a)
	return nil
}

func (s *service) ResendCode(ctx context.Context, req domain.ResendCodeRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	a, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if a.Verified {
		return fmt.Errorf("account is already verified: %w", domain.ErrAlreadyVerified)
	}
	c, err := code.New()
	if err != nil {
		return err
	}
	// Persist first: the previous code is invalid from this point even if
	// delivery fails, and another resend is the recovery path. The write is
	// conditional, so a verification that landed since the read above wins.
	if err := s.repo.RotateCode(ctx, a.AccountID, c); err != nil {
		return err
	}
	return s.sendCode(a, c)
}

// sendCode delivers the verification code. Both signup and resend go through
// here so the message wording cannot drift between the two paths.
func (s *service) sendCode(a *domain.Account, c string) error {
	if err := s.mailer.SendEmail(a.Email, "Verify your email", "Your verification code: "+c); err != nil {
		slog.Error("verification email delivery failed", "account_id", a.AccountID, "err", err)
		return fmt.Errorf("could not send verification email: %w", domain.ErrDelivery)
	}
	return nil
}

// publish emits a lifecycle event when a publisher is configured. Failures are
// logged and never fail the request.
func (s *service) publish(ctx context.Context, eventType string, a *domain.Account) {
	if s.events == nil {
		return
	}
	ev := domain.AccountEvent{
		Type:       eventType,
		AccountID:  a.AccountID,
		Username:   a.Username,
		Email:      a.Email,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish account event", "type", eventType, "account_id", a.AccountID, "err", err)
	}
}
