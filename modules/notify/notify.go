package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/exeatrequest"
)

// ConsentRequest carries everything a parent needs to act on a consent
// solicitation.
type ConsentRequest struct {
	StudentID   uint
	ParentEmail string
	ParentPhone string
	Reason      string
	Message     string
	ApproveLink string
	DeclineLink string
	ExpiresAt   time.Time
}

// Notifier delivers workflow messages. Implementations are best-effort:
// errors are returned for logging but callers never fail a transition on
// delivery problems.
type Notifier interface {
	StatusChanged(ctx context.Context, req exeatrequest.ExeatRequest) error
	ParentConsentRequested(ctx context.Context, cr ConsentRequest) error
}

// Composite fans out to each channel and logs per-channel failures.
type Composite struct {
	channels []Notifier
	log      *logrus.Entry
}

func NewComposite(log *logrus.Entry, channels ...Notifier) *Composite {
	return &Composite{channels: channels, log: log}
}

func (c *Composite) StatusChanged(ctx context.Context, req exeatrequest.ExeatRequest) error {
	for _, ch := range c.channels {
		if err := ch.StatusChanged(ctx, req); err != nil {
			c.log.WithError(err).WithField("exeat_id", req.ID()).Warn("status notification failed")
		}
	}
	return nil
}

func (c *Composite) ParentConsentRequested(ctx context.Context, cr ConsentRequest) error {
	for _, ch := range c.channels {
		if err := ch.ParentConsentRequested(ctx, cr); err != nil {
			c.log.WithError(err).WithField("parent_email", cr.ParentEmail).Warn("consent notification failed")
		}
	}
	return nil
}
