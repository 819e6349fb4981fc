package payment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusFailed:
		return true
	}
	return false
}

// MapGatewayStatus folds the provider's transaction status into the local
// one. Anything unrecognized is treated as failed rather than left pending,
// so a provider vocabulary change cannot strand payments in the sweep window
// forever.
func MapGatewayStatus(providerStatus string) Status {
	switch providerStatus {
	case "success":
		return StatusSuccessful
	case "failed", "cancelled", "abandoned":
		return StatusFailed
	case "pending", "ongoing":
		return StatusPending
	default:
		return StatusFailed
	}
}

// Payment is one gateway charge for an NYSC registration. Amounts are in
// kobo, matching what the gateway reports.
type Payment struct {
	ID             uint
	StudentID      uint
	RegistrationID *uint
	SessionID      string
	Amount         *money.Money
	Reference      string
	Status         Status
	GatewayRaw     json.RawMessage
	PaymentDate    time.Time
	VerifiedAt     *time.Time
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewReference mints a globally unique gateway reference for a new charge.
// The reference is the external idempotency key, so the unique constraint on
// it backstops concurrent checkout attempts.
func NewReference() string {
	return "NYSC-" + strings.ToUpper(uuid.NewString())
}

func New(studentID uint, sessionID string, amountKobo int64, reference string, paymentDate time.Time) Payment {
	return Payment{
		StudentID:   studentID,
		SessionID:   sessionID,
		Amount:      money.New(amountKobo, money.NGN),
		Reference:   reference,
		Status:      StatusPending,
		PaymentDate: paymentDate,
	}
}

func (p Payment) Successful() bool {
	return p.Status == StatusSuccessful
}

// Verified applies the outcome of a gateway verification. The raw response
// is kept verbatim for later dispute handling.
func (p Payment) Verified(status Status, raw json.RawMessage, at time.Time) Payment {
	p.Status = status
	if len(raw) > 0 {
		p.GatewayRaw = raw
	}
	p.VerifiedAt = &at
	return p
}
