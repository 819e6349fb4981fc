package parentconsent

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/veritas-edu/campus-sdk/pkg/serrors"
)

type ConsentStatus string

const (
	StatusPending  ConsentStatus = "pending"
	StatusApproved ConsentStatus = "approved"
	StatusDeclined ConsentStatus = "declined"
)

type Method string

const (
	MethodEmail Method = "email"
	MethodSMS   Method = "sms"
)

const TokenTTL = 24 * time.Hour

var (
	ErrNotFound        = serrors.NewError("CONSENT_NOT_FOUND", "parent consent not found", "")
	ErrAlreadyResolved = serrors.NewError("CONSENT_ALREADY_RESOLVED", "consent has already been resolved", "consent_status")
	ErrExpired         = serrors.NewError("CONSENT_EXPIRED", "consent token has expired", "expires_at")
)

// ParentConsent is the single outstanding or resolved consent solicitation
// for a request. The token is the parent's only credential.
type ParentConsent struct {
	ID               uint
	RequestID        uint
	Status           ConsentStatus
	Method           Method
	Token            string
	Message          string
	RequestedByStaff *uint
	ConsentedAt      *time.Time
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewToken returns a 64-character hex token from a cryptographic source.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func New(requestID uint, method Method, message string, staffID *uint, ttl time.Duration, now time.Time) (ParentConsent, error) {
	token, err := NewToken()
	if err != nil {
		return ParentConsent{}, err
	}
	if ttl <= 0 {
		ttl = TokenTTL
	}
	return ParentConsent{
		RequestID:        requestID,
		Status:           StatusPending,
		Method:           method,
		Token:            token,
		Message:          message,
		RequestedByStaff: staffID,
		ExpiresAt:        now.Add(ttl),
	}, nil
}

func (c ParentConsent) Resolved() bool {
	return c.Status != StatusPending
}

func (c ParentConsent) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Resolve stamps the consent with the parent's decision. An expired pending
// consent is declined-by-timeout and never honored.
func (c ParentConsent) Resolve(status ConsentStatus, now time.Time) (ParentConsent, error) {
	if c.Resolved() {
		return c, ErrAlreadyResolved
	}
	if c.Expired(now) {
		return c, ErrExpired
	}
	c.Status = status
	c.ConsentedAt = &now
	return c, nil
}
