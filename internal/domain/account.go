package domain

import "time"

// Account is the sole persisted entity: a registered identity that moves from
// pending (holds a one-time verification code) to verified (code cleared).
type Account struct {
	AccountID        string    `json:"id" dynamodbav:"account_id"`
	Username         string    `json:"username" dynamodbav:"username"`
	Email            string    `json:"email" dynamodbav:"email"`
	PasswordHash     string    `json:"-" dynamodbav:"password_hash"`
	VerificationCode *string   `json:"-" dynamodbav:"verification_code,omitempty"`
	Verified         bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

// NewPendingAccount is the only constructor for accounts. Every new account
// starts unverified with a verification code, so the invariant "code present
// iff unverified" holds by construction.
func NewPendingAccount(accountID, username, email, passwordHash, code string, now time.Time) *Account {
	return &Account{
		AccountID:        accountID,
		Username:         username,
		Email:            email,
		PasswordHash:     passwordHash,
		VerificationCode: &code,
		Verified:         false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
