package exeatrequest

// ApprovedEvent is published after an approval commits, carrying the stage
// movement it caused.
type ApprovedEvent struct {
	Request    ExeatRequest
	Approval   Approval
	FromStatus Status
	ToStatus   Status
}

type RejectedEvent struct {
	Request    ExeatRequest
	Approval   Approval
	FromStatus Status
}
