package domain

import "time"

// Account lifecycle event types published to the SNS topic.
const (
	EventAccountSignedUp = "account.signed_up"
	EventAccountVerified = "account.verified"
)

// AccountEvent is the payload published when an account changes state.
// Codes and password hashes are never included.
type AccountEvent struct {
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
