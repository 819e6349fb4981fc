package exeatrequest

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is one staff decision event attached to a request at a given
// stage. It is written once when the decision lands and immutable after.
type Approval struct {
	ID        uint
	RequestID uint
	StaffID   uint
	Stage     Status
	Status    ApprovalStatus
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Approval) Decided() bool {
	return a.Status != ApprovalPending
}
