package auditlog

import (
	"context"
	"time"
)

// Entry is one append-only audit record. StaffID is nil for actions taken by
// the system or a parent through a consent token.
type Entry struct {
	ID         uint
	StaffID    *uint
	StudentID  uint
	Action     string
	TargetType string
	TargetID   uint
	Details    string
	CreatedAt  time.Time
}

const (
	TargetExeatRequest  = "exeat_request"
	TargetParentConsent = "parent_consent"
	TargetPayment       = "nysc_payment"
	TargetRegistration  = "nysc_registration"
)

type FindParams struct {
	StaffID    *uint
	StudentID  *uint
	Action     string
	TargetType string
	TargetID   *uint
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Entry, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, e *Entry) error
}
