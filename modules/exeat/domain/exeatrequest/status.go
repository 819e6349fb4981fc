package exeatrequest

import "github.com/veritas-edu/campus-sdk/pkg/serrors"

type Status string

const (
	StatusPending          Status = "pending"
	StatusCMDReview        Status = "cmd_review"
	StatusDeputyDeanReview Status = "deputy_dean_review"
	StatusParentConsent    Status = "parent_consent"
	StatusDeanReview       Status = "dean_review"
	StatusHostelSignout    Status = "hostel_signout"
	StatusSecuritySignout  Status = "security_signout"
	StatusSecuritySignin   Status = "security_signin"
	StatusHostelSignin     Status = "hostel_signin"
	StatusCompleted        Status = "completed"
	StatusRejected         Status = "rejected"
)

var (
	ErrTerminalState     = serrors.NewError("EXEAT_TERMINAL_STATE", "request is in a terminal state", "status")
	ErrInvalidTransition = serrors.NewError("EXEAT_INVALID_TRANSITION", "no transition defined from current state", "status")
)

// transitions is the forward stage graph. The pending stage branches on the
// medical flag; every other stage has exactly one successor.
var transitions = map[Status]Status{
	StatusCMDReview:        StatusDeputyDeanReview,
	StatusDeputyDeanReview: StatusParentConsent,
	StatusParentConsent:    StatusDeanReview,
	StatusDeanReview:       StatusHostelSignout,
	StatusHostelSignout:    StatusSecuritySignout,
	StatusSecuritySignout:  StatusSecuritySignin,
	StatusSecuritySignin:   StatusHostelSignin,
	StatusHostelSignin:     StatusCompleted,
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCMDReview, StatusDeputyDeanReview, StatusParentConsent,
		StatusDeanReview, StatusHostelSignout, StatusSecuritySignout,
		StatusSecuritySignin, StatusHostelSignin, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Next returns the stage one approval advances the request to.
func Next(current Status, medical bool) (Status, error) {
	if current.Terminal() {
		return current, ErrTerminalState
	}
	if current == StatusPending {
		if medical {
			return StatusCMDReview, nil
		}
		return StatusDeputyDeanReview, nil
	}
	next, ok := transitions[current]
	if !ok {
		return current, ErrInvalidTransition.WithMessage("no transition defined from %q", current)
	}
	return next, nil
}
