package account

import (
	"context"
	"errors"
	"testing"

	"github.com/go-accounts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) RotateCode(ctx context.Context, accountID, code string) error {
	return m.Called(ctx, accountID, code).Error(0)
}
func (m *mockAccountStore) MarkVerified(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev domain.AccountEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// --- helpers ---

func newService(repo *mockAccountStore, ml *mockMailer, ev eventPublisher) Service {
	return NewService(ServiceDeps{AccountRepo: repo, Mailer: ml, Events: ev})
}

func signupReq() domain.SignupRequest {
	return domain.SignupRequest{
		Username: "alice",
		Password: "secret1",
		Email:    "alice@example.com",
	}
}

func pendingAccount(code string) *domain.Account {
	return &domain.Account{
		AccountID:        "a1",
		Username:         "alice",
		Email:            "alice@example.com",
		VerificationCode: &code,
	}
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// --- Signup tests ---

func TestSignup_MissingFields(t *testing.T) {
	repo := &mockAccountStore{}
	svc := newService(repo, &mockMailer{}, nil)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{Username: "alice"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	repo.AssertNotCalled(t, "Create")
}

func TestSignup_Conflict_NoMailSent(t *testing.T) {
	repo := &mockAccountStore{}
	ml := &mockMailer{}
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).
		Return(domain.ErrConflict)

	svc := newService(repo, ml, nil)
	_, err := svc.Signup(context.Background(), signupReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	ml.AssertNotCalled(t, "SendEmail")
	repo.AssertExpectations(t)
}

func TestSignup_HappyPath(t *testing.T) {
	repo := &mockAccountStore{}
	ml := &mockMailer{}
	var created *domain.Account
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Account) }).
		Return(nil)
	var mailSubject, mailBody string
	ml.On("SendEmail", "alice@example.com", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { mailSubject, mailBody = args.String(1), args.String(2) }).
		Return(nil)

	svc := newService(repo, ml, nil)
	a, err := svc.Signup(context.Background(), signupReq())

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.False(t, created.Verified)
	require.NotNil(t, created.VerificationCode)
	assert.True(t, isSixDigits(*created.VerificationCode), "code %q", *created.VerificationCode)
	assert.Equal(t, "Verify your email", mailSubject)
	assert.Contains(t, mailBody, *created.VerificationCode)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))
	assert.Equal(t, created, a)
	repo.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestSignup_MailFailure_AccountAlreadyPersisted(t *testing.T) {
	repo := &mockAccountStore{}
	ml := &mockMailer{}
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(repo, ml, nil)
	_, err := svc.Signup(context.Background(), signupReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDelivery))
	repo.AssertCalled(t, "Create", mock.Anything, mock.AnythingOfType("*domain.Account"))
}

func TestSignup_PublishFailure_DoesNotFailRequest(t *testing.T) {
	repo := &mockAccountStore{}
	ml := &mockMailer{}
	ev := &mockPublisher{}
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ev.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.AccountEvent) bool {
		return e.Type == domain.EventAccountSignedUp && e.Username == "alice"
	})).Return(errors.New("sns down"))

	svc := newService(repo, ml, ev)
	_, err := svc.Signup(context.Background(), signupReq())

	require.NoError(t, err)
	ev.AssertExpectations(t)
}

// --- VerifyCode tests ---

func TestVerifyCode_NotFound(t *testing.T) {
	repo := &mockAccountStore{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)

	svc := newService(repo, &mockMailer{}, nil)
	err := svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Email: "alice@example.com", Code: "483920"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyCode_AlreadyVerified(t *testing.T) {
	repo := &mockAccountStore{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(&domain.Account{AccountID: "a1", Email: "alice@example.com", Verified: true}, nil)

	svc := newService(repo, &mockMailer{}, nil)
	err := svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Email: "alice@example.com", Code: "483920"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyVerified))
	repo.AssertNotCalled(t, "MarkVerified")
}

func TestVerifyCode_WrongCode(t *testing.T) {
	repo := &mockAccountStore{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(pendingAccount("483920"), nil)

	svc := newService(repo, &mockMailer{}, nil)
	err := svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Email: "alice@example.com", Code: "000000"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	repo.AssertNotCalled(t, "MarkVerified")
}

func TestVerifyCode_HappyPath(t *testing.T) {
	repo := &mockAccountStore{}
	ev := &mockPublisher{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(pendingAccount("483920"), nil)
	repo.On("MarkVerified", mock.Anything, "a1").Return(nil)
	ev.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.AccountEvent) bool {
		return e.Type == domain.EventAccountVerified && e.AccountID == "a1"
	})).Return(nil)

	svc := newService(repo, &mockMailer{}, ev)
	err := svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Email: "alice@example.com", Code: "483920"})

	require.NoError(t, err)
	repo.AssertExpectations(t)
	ev.AssertExpectations(t)
}

func TestVerifyCode_MalformedCode(t *testing.T) {
	svc := newService(&mockAccountStore{}, &mockMailer{}, nil)
	err := svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Email: "alice@example.com", Code: "12ab56"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- ResendCode tests ---

func TestResendCode_NotFound(t *testing.T) {
	repo := &mockAccountStore{}
	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)

	svc := newService(repo, &mockMailer{}, nil)
	err := svc.ResendCode(context.Background(), domain.ResendCodeRequest{Email: "ghost@example.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResendCode_AlreadyVerified(t *testing.T) {
	repo := &mockAccountStore{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(&domain.Account{AccountID: "a1", Email: "alice@example.com", Verified: true}, nil)

	svc := newService(repo, &mockMailer{}, nil)
	err := svc.ResendCode(context.Background(), domain.ResendCodeRequest{Email: "alice@example.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyVerified))
	repo.AssertNotCalled(t, "RotateCode")
}

func TestResendCode_PersistsNewCodeAndMailsIt(t *testing.T) {
	repo := &mockAccountStore{}
	ml := &mockMailer{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(pendingAccount("483920"), nil)
	var stored string
	repo.On("RotateCode", mock.Anything, "a1", mock.Anything).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil)
	var mailSubject, mailBody string
	ml.On("SendEmail", "alice@example.com", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { mailSubject, mailBody = args.String(1), args.String(2) }).
		Return(nil)

	svc := newService(repo, ml, nil)
	err := svc.ResendCode(context.Background(), domain.ResendCodeRequest{Email: "alice@example.com"})

	require.NoError(t, err)
	assert.True(t, isSixDigits(stored), "code %q", stored)
	assert.Equal(t, "Verify your email", mailSubject)
	assert.Contains(t, mailBody, stored)
	repo.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestResendCode_MailFailure_CodeAlreadyRotated(t *testing.T) {
	repo := &mockAccountStore{}
	ml := &mockMailer{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(pendingAccount("483920"), nil)
	repo.On("RotateCode", mock.Anything, "a1", mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(repo, ml, nil)
	err := svc.ResendCode(context.Background(), domain.ResendCodeRequest{Email: "alice@example.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDelivery))
	repo.AssertCalled(t, "RotateCode", mock.Anything, "a1", mock.Anything)
}

func TestResendCode_LostRaceWithVerification(t *testing.T) {
	// The account was pending when read, but a concurrent verification landed
	// before the rotate write: the conditional write must win and no code may
	// be attached to the now-verified account.
	repo := &mockAccountStore{}
	ml := &mockMailer{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(pendingAccount("483920"), nil)
	repo.On("RotateCode", mock.Anything, "a1", mock.Anything).Return(domain.ErrAlreadyVerified)

	svc := newService(repo, ml, nil)
	err := svc.ResendCode(context.Background(), domain.ResendCodeRequest{Email: "alice@example.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyVerified))
	ml.AssertNotCalled(t, "SendEmail")
	repo.AssertExpectations(t)
}
