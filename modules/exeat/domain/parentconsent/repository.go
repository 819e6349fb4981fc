package parentconsent

import (
	"context"
	"time"
)

type Repository interface {
	GetByToken(ctx context.Context, token string) (ParentConsent, error)
	GetByRequestID(ctx context.Context, requestID uint) (ParentConsent, error)
	// UpsertForRequest creates the consent row for the request or replaces
	// the existing one, keyed by the unique request id.
	UpsertForRequest(ctx context.Context, c ParentConsent) (ParentConsent, error)
	Update(ctx context.Context, c ParentConsent) error
	// ListOverdue returns pending consents whose expiry has passed.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]ParentConsent, error)
	// DeclineOverdue declines the consent only while it is still pending and
	// past its expiry. Returns false when the row changed since it was
	// listed, e.g. a reissue gave it a fresh expiry or a parent resolved it.
	DeclineOverdue(ctx context.Context, id uint, now time.Time) (bool, error)
}
