package registration

import (
	"context"
	"encoding/json"
	"time"

	"github.com/veritas-edu/campus-sdk/pkg/serrors"
)

var (
	ErrNotFound               = serrors.NewError("REGISTRATION_NOT_FOUND", "registration not found", "")
	ErrTempSubmissionNotFound = serrors.NewError("TEMP_SUBMISSION_NOT_FOUND", "temp submission not found", "")
	ErrNoRecoverySource       = serrors.NewError("REGISTRATION_NO_RECOVERY_SOURCE", "no source found to reconstruct registration", "")
)

// Registration is the service-year registration record a successful payment
// unlocks. Snapshot carries the personal and academic data the student
// submitted at registration time.
type Registration struct {
	ID          uint
	StudentID   uint
	SessionID   string
	IsPaid      bool
	IsSubmitted bool
	SubmittedAt *time.Time
	Snapshot    json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	GetByID(ctx context.Context, id uint) (Registration, error)
	GetByStudentID(ctx context.Context, studentID uint) (Registration, error)
	Create(ctx context.Context, r Registration) (Registration, error)
	// MarkPaid sets is_paid, is_submitted and submitted_at exactly once.
	// Returns false without writing when the registration is already paid.
	MarkPaid(ctx context.Context, id uint, at time.Time) (bool, error)
}

// TempSubmission is the checkout-time staging record a registration is
// reconstructed from when the gateway webhook never landed.
type TempSubmission struct {
	ID        uint
	StudentID uint
	SessionID string
	Payload   json.RawMessage
	CreatedAt time.Time
}

type TempSubmissionRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (TempSubmission, error)
	LatestByStudentID(ctx context.Context, studentID uint) (TempSubmission, error)
}

// StudentProfile is the last-resort recovery source: the student's core
// record plus their most recent academic record, from the registry side.
type StudentProfile struct {
	StudentID uint
	FullName  string
	Email     string
	Phone     string
	Academic  json.RawMessage
}

type StudentProfileSource interface {
	Profile(ctx context.Context, studentID uint) (StudentProfile, error)
}
