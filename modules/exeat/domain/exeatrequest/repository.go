package exeatrequest

import (
	"context"

	"github.com/veritas-edu/campus-sdk/pkg/serrors"
)

var (
	ErrNotFound         = serrors.NewError("EXEAT_NOT_FOUND", "exeat request not found", "")
	ErrApprovalNotFound = serrors.NewError("EXEAT_APPROVAL_NOT_FOUND", "approval not found", "")
	ErrApprovalMismatch = serrors.NewError("EXEAT_APPROVAL_MISMATCH", "approval does not belong to request", "approval_id")
	ErrApprovalDecided  = serrors.NewError("EXEAT_APPROVAL_DECIDED", "approval has already been decided", "approval_id")
)

type FindParams struct {
	StudentID *uint
	Status    *Status
	Limit     int
	Offset    int
}

type Repository interface {
	GetByID(ctx context.Context, id uint) (ExeatRequest, error)
	// GetByIDForUpdate locks the request row for the remainder of the
	// surrounding transaction, serializing concurrent decisions.
	GetByIDForUpdate(ctx context.Context, id uint) (ExeatRequest, error)
	List(ctx context.Context, params *FindParams) ([]ExeatRequest, error)
	Create(ctx context.Context, r ExeatRequest) (ExeatRequest, error)
	UpdateStatus(ctx context.Context, id uint, status Status) error

	GetApprovalByID(ctx context.Context, id uint) (Approval, error)
	CreateApproval(ctx context.Context, a Approval) (Approval, error)
	RecordDecision(ctx context.Context, approvalID uint, status ApprovalStatus, comment string) error
}
