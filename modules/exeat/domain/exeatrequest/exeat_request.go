package exeatrequest

import (
	"strings"
	"time"
)

type ContactMode string

const (
	ContactEmail    ContactMode = "email"
	ContactSMS      ContactMode = "sms"
	ContactWhatsApp ContactMode = "whatsapp"
)

// ExeatRequest is one leave-of-absence request. It is created by student
// action and mutated exclusively through the workflow service; the row is
// never hard-deleted.
type ExeatRequest struct {
	id          uint
	studentID   uint
	reason      string
	medical     bool
	contactMode ContactMode
	parentEmail string
	parentPhone string
	status      Status
	createdAt   time.Time
	updatedAt   time.Time
}

func New(studentID uint, reason string, medical bool, contactMode ContactMode, parentEmail, parentPhone string) ExeatRequest {
	return ExeatRequest{
		studentID:   studentID,
		reason:      strings.TrimSpace(reason),
		medical:     medical,
		contactMode: contactMode,
		parentEmail: strings.TrimSpace(parentEmail),
		parentPhone: strings.TrimSpace(parentPhone),
		status:      StatusPending,
	}
}

func Hydrate(
	id uint,
	studentID uint,
	reason string,
	medical bool,
	contactMode ContactMode,
	parentEmail string,
	parentPhone string,
	status Status,
	createdAt time.Time,
	updatedAt time.Time,
) ExeatRequest {
	return ExeatRequest{
		id:          id,
		studentID:   studentID,
		reason:      reason,
		medical:     medical,
		contactMode: contactMode,
		parentEmail: parentEmail,
		parentPhone: parentPhone,
		status:      status,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (r ExeatRequest) ID() uint                 { return r.id }
func (r ExeatRequest) StudentID() uint          { return r.studentID }
func (r ExeatRequest) Reason() string           { return r.reason }
func (r ExeatRequest) Medical() bool            { return r.medical }
func (r ExeatRequest) ContactMode() ContactMode { return r.contactMode }
func (r ExeatRequest) ParentEmail() string      { return r.parentEmail }
func (r ExeatRequest) ParentPhone() string      { return r.parentPhone }
func (r ExeatRequest) Status() Status           { return r.status }
func (r ExeatRequest) CreatedAt() time.Time     { return r.createdAt }
func (r ExeatRequest) UpdatedAt() time.Time     { return r.updatedAt }

// Advance moves the request one stage forward per the transition table.
func (r ExeatRequest) Advance() (ExeatRequest, error) {
	next, err := Next(r.status, r.medical)
	if err != nil {
		return r, err
	}
	r.status = next
	return r, nil
}

// Reject terminates the request from any non-terminal stage.
func (r ExeatRequest) Reject() (ExeatRequest, error) {
	if r.status.Terminal() {
		return r, ErrTerminalState
	}
	r.status = StatusRejected
	return r, nil
}

// WithStatus is used by the consent resolution paths, which drive the
// request to a fixed stage rather than the next one.
func (r ExeatRequest) WithStatus(s Status) ExeatRequest {
	r.status = s
	return r
}
