package payment

import (
	"context"
	"time"

	"github.com/veritas-edu/campus-sdk/pkg/serrors"
)

var (
	ErrNotFound       = serrors.NewError("PAYMENT_NOT_FOUND", "payment not found", "")
	ErrReferenceTaken = serrors.NewError("PAYMENT_REFERENCE_TAKEN", "payment reference already exists", "reference")
)

type Repository interface {
	GetByID(ctx context.Context, id uint) (Payment, error)
	GetByReference(ctx context.Context, reference string) (Payment, error)
	// ListPending returns pending payments whose payment_date falls in the
	// [now-maxAge, now-minAge] window, oldest first.
	ListPending(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]Payment, error)
	Create(ctx context.Context, p Payment) (Payment, error)
	Update(ctx context.Context, p Payment) error
}
