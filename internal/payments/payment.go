// Package payments tracks the lifecycle of Coinbase Commerce charges as
// local payment records.
package payments

import "time"

// Status is the local lifecycle state of a payment.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDelayed   Status = "delayed"
	StatusExpired   Status = "expired"
	StatusCanceled  Status = "canceled"
)

// Paid reports whether the status counts as a settled payment.
func (s Status) Paid() bool {
	return s == StatusCompleted || s == StatusConfirmed
}

// Payment is the local shadow record of a vendor charge.
type Payment struct {
	ChargeID   string         `json:"chargeId"`
	Code       string         `json:"code"`
	Status     Status         `json:"status"`
	Amount     string         `json:"amount"`
	Currency   string         `json:"currency"`
	CustomerID string         `json:"customerId"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CompletionHook is invoked when a payment first reaches a paid status.
// It fires at most once per charge.
type CompletionHook func(p *Payment)

// Store persists payment records. UpdateStatus on an unknown charge returns
// (nil, nil) and must not create a record.
type Store interface {
	Create(chargeID, code, amount, currency, customerID string, metadata map[string]any) (*Payment, error)
	UpdateStatus(chargeID string, status Status) (*Payment, error)
	Get(chargeID string) (*Payment, error)
	List() ([]*Payment, error)
	Close() error
}
