package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	auditsvc "github.com/veritas-edu/campus-sdk/modules/audit/services"
	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/actor"
	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/exeatrequest"
	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/parentconsent"
	"github.com/veritas-edu/campus-sdk/modules/notify"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
	"github.com/veritas-edu/campus-sdk/pkg/constants"
	"github.com/veritas-edu/campus-sdk/pkg/eventbus"
	"github.com/veritas-edu/campus-sdk/pkg/serrors"
)

const defaultConsentMessage = "Your ward has requested permission to leave campus. Please approve or decline this request."

// WorkflowService is the exeat approval state machine. Every public
// operation runs in a single transaction covering the decision write, the
// status advance and the audit entry; notifications and events go out only
// after commit and never roll a transition back.
type WorkflowService struct {
	requests   exeatrequest.Repository
	consents   parentconsent.Repository
	audit      *auditsvc.AuditService
	notifier   notify.Notifier
	publisher  eventbus.EventBus
	log        *logrus.Entry
	origin     string
	consentTTL time.Duration
	now        func() time.Time
}

func NewWorkflowService(
	requests exeatrequest.Repository,
	consents parentconsent.Repository,
	audit *auditsvc.AuditService,
	notifier notify.Notifier,
	publisher eventbus.EventBus,
	log *logrus.Entry,
	origin string,
	consentTTL time.Duration,
) *WorkflowService {
	if consentTTL <= 0 {
		consentTTL = parentconsent.TokenTTL
	}
	return &WorkflowService{
		requests:   requests,
		consents:   consents,
		audit:      audit,
		notifier:   notifier,
		publisher:  publisher,
		log:        log,
		origin:     strings.TrimRight(origin, "/"),
		consentTTL: consentTTL,
		now:        time.Now,
	}
}

type DecisionParams struct {
	RequestID  uint `validate:"required"`
	ApprovalID uint `validate:"required"`
	StaffID    uint `validate:"required"`
	Comment    string
}

func (p *DecisionParams) validate() error {
	return constants.Validate.Struct(p)
}

// Approve records the staff decision and advances the request exactly one
// stage. Entering the parent-consent stage issues the consent solicitation
// synchronously, using the deciding staff member as requester.
func (s *WorkflowService) Approve(ctx context.Context, params DecisionParams) (exeatrequest.ExeatRequest, error) {
	if err := params.validate(); err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	var (
		updated  exeatrequest.ExeatRequest
		approval exeatrequest.Approval
		from     exeatrequest.Status
		consent  *issuedConsent
	)

	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, loadedApproval, err := s.loadForDecision(txCtx, params)
		if err != nil {
			return err
		}
		approval = loadedApproval
		from = req.Status()

		advanced, err := req.Advance()
		if err != nil {
			return err
		}

		if err := s.requests.RecordDecision(txCtx, approval.ID, exeatrequest.ApprovalApproved, params.Comment); err != nil {
			return err
		}
		if err := s.requests.UpdateStatus(txCtx, req.ID(), advanced.Status()); err != nil {
			return err
		}

		details := fmt.Sprintf("status %s -> %s", from, advanced.Status())
		if params.Comment != "" {
			details += "; comment: " + params.Comment
		}
		if err := s.audit.Record(txCtx, actor.Staff(params.StaffID), req.StudentID(), "exeat.approve", "exeat_request", req.ID(), details); err != nil {
			return err
		}

		if advanced.Status() == exeatrequest.StatusParentConsent {
			method := methodForContactMode(advanced.ContactMode())
			staffID := params.StaffID
			issued, err := s.issueConsent(txCtx, advanced, method, defaultConsentMessage, &staffID)
			if err != nil {
				return err
			}
			consent = issued
		}

		updated = advanced
		return nil
	})
	if err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	s.notifyStatus(ctx, updated)
	s.publisher.Publish(&exeatrequest.ApprovedEvent{
		Request:    updated,
		Approval:   approval,
		FromStatus: from,
		ToStatus:   updated.Status(),
	})
	if consent != nil {
		s.notifyConsent(ctx, updated, consent)
		s.publisher.Publish(&parentconsent.ConsentRequestedEvent{Consent: consent.consent})
	}
	return updated, nil
}

// Reject terminates the request from any non-terminal stage.
func (s *WorkflowService) Reject(ctx context.Context, params DecisionParams) (exeatrequest.ExeatRequest, error) {
	if err := params.validate(); err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	var (
		updated  exeatrequest.ExeatRequest
		approval exeatrequest.Approval
		from     exeatrequest.Status
	)

	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, loadedApproval, err := s.loadForDecision(txCtx, params)
		if err != nil {
			return err
		}
		approval = loadedApproval
		from = req.Status()

		rejected, err := req.Reject()
		if err != nil {
			return err
		}

		if err := s.requests.RecordDecision(txCtx, approval.ID, exeatrequest.ApprovalRejected, params.Comment); err != nil {
			return err
		}
		if err := s.requests.UpdateStatus(txCtx, req.ID(), rejected.Status()); err != nil {
			return err
		}

		details := fmt.Sprintf("status %s -> %s", from, rejected.Status())
		if params.Comment != "" {
			details += "; comment: " + params.Comment
		}
		if err := s.audit.Record(txCtx, actor.Staff(params.StaffID), req.StudentID(), "exeat.reject", "exeat_request", req.ID(), details); err != nil {
			return err
		}

		updated = rejected
		return nil
	})
	if err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	s.notifyStatus(ctx, updated)
	s.publisher.Publish(&exeatrequest.RejectedEvent{
		Request:    updated,
		Approval:   approval,
		FromStatus: from,
	})
	return updated, nil
}

type SendParentConsentParams struct {
	RequestID uint `validate:"required"`
	Method    parentconsent.Method
	Message   string
	StaffID   *uint
}

// SendParentConsent issues (or reissues) the consent solicitation for a
// request. Idempotent per request: the single consent row is replaced with a
// fresh token and expiry.
func (s *WorkflowService) SendParentConsent(ctx context.Context, params SendParentConsentParams) (parentconsent.ParentConsent, error) {
	if err := constants.Validate.Struct(&params); err != nil {
		return parentconsent.ParentConsent{}, err
	}
	if params.Method == "" {
		params.Method = parentconsent.MethodEmail
	}
	message := params.Message
	if message == "" {
		message = defaultConsentMessage
	}

	var (
		req    exeatrequest.ExeatRequest
		issued *issuedConsent
	)
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		loaded, err := s.requests.GetByIDForUpdate(txCtx, params.RequestID)
		if err != nil {
			return err
		}
		if loaded.Status().Terminal() {
			return exeatrequest.ErrTerminalState
		}

		issued, err = s.issueConsent(txCtx, loaded, params.Method, message, params.StaffID)
		if err != nil {
			return err
		}

		// Safe no-op when the request already sits at parent_consent.
		if loaded.Status() != exeatrequest.StatusParentConsent {
			if err := s.requests.UpdateStatus(txCtx, loaded.ID(), exeatrequest.StatusParentConsent); err != nil {
				return err
			}
			loaded = loaded.WithStatus(exeatrequest.StatusParentConsent)
		}
		req = loaded
		return nil
	})
	if err != nil {
		return parentconsent.ParentConsent{}, err
	}

	s.notifyConsent(ctx, req, issued)
	s.publisher.Publish(&parentconsent.ConsentRequestedEvent{Consent: issued.consent})
	return issued.consent, nil
}

// ParentConsentApprove resolves the consent identified by token and drives
// the owning request to dean review.
func (s *WorkflowService) ParentConsentApprove(ctx context.Context, token string) (exeatrequest.ExeatRequest, error) {
	return s.resolveConsent(ctx, token, parentconsent.StatusApproved)
}

// ParentConsentDecline resolves the consent identified by token and rejects
// the owning request.
func (s *WorkflowService) ParentConsentDecline(ctx context.Context, token string) (exeatrequest.ExeatRequest, error) {
	return s.resolveConsent(ctx, token, parentconsent.StatusDeclined)
}

func (s *WorkflowService) resolveConsent(ctx context.Context, token string, decision parentconsent.ConsentStatus) (exeatrequest.ExeatRequest, error) {
	if token == "" {
		return exeatrequest.ExeatRequest{}, serrors.NewFieldRequiredError("token")
	}

	var (
		updated  exeatrequest.ExeatRequest
		resolved parentconsent.ParentConsent
	)
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		consent, err := s.consents.GetByToken(txCtx, token)
		if err != nil {
			return err
		}

		resolved, err = consent.Resolve(decision, s.now())
		if err != nil {
			return err
		}

		req, err := s.requests.GetByIDForUpdate(txCtx, consent.RequestID)
		if err != nil {
			return err
		}

		target := exeatrequest.StatusDeanReview
		action := "exeat.parent_consent.approve"
		if decision == parentconsent.StatusDeclined {
			target = exeatrequest.StatusRejected
			action = "exeat.parent_consent.decline"
		}

		if err := s.consents.Update(txCtx, resolved); err != nil {
			return err
		}
		if err := s.requests.UpdateStatus(txCtx, req.ID(), target); err != nil {
			return err
		}

		details := fmt.Sprintf("status %s -> %s via parent consent", req.Status(), target)
		if err := s.audit.Record(txCtx, actor.Parent(), req.StudentID(), action, "parent_consent", consent.ID, details); err != nil {
			return err
		}

		updated = req.WithStatus(target)
		return nil
	})
	if err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	s.notifyStatus(ctx, updated)
	s.publisher.Publish(&parentconsent.ConsentResolvedEvent{Consent: resolved, Decision: decision})
	return updated, nil
}

// ExpireOverdueConsents declines pending consents past their expiry and
// rejects the owning requests. Used by the scheduled cleanup job.
func (s *WorkflowService) ExpireOverdueConsents(ctx context.Context, limit int) (int, error) {
	now := s.now()
	expired := 0

	var overdue []parentconsent.ParentConsent
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		overdue, err = s.consents.ListOverdue(txCtx, now, limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	for _, consent := range overdue {
		c := consent
		c.Status = parentconsent.StatusDeclined
		c.ConsentedAt = &now
		declined := false
		err := composables.InTx(ctx, func(txCtx context.Context) error {
			// The list is a snapshot; the row may have been reissued or
			// resolved since. Decline only while still pending and overdue.
			applied, err := s.consents.DeclineOverdue(txCtx, c.ID, now)
			if err != nil {
				return err
			}
			if !applied {
				return nil
			}
			declined = true

			req, err := s.requests.GetByIDForUpdate(txCtx, c.RequestID)
			if err != nil {
				return err
			}
			if req.Status().Terminal() {
				return nil
			}
			if err := s.requests.UpdateStatus(txCtx, req.ID(), exeatrequest.StatusRejected); err != nil {
				return err
			}
			return s.audit.Record(txCtx, actor.System(), req.StudentID(), "exeat.parent_consent.expire", "parent_consent", c.ID, "declined by timeout")
		})
		if err != nil {
			s.log.WithError(err).WithField("consent_id", consent.ID).Warn("failed to expire consent")
			continue
		}
		if !declined {
			continue
		}
		s.publisher.Publish(&parentconsent.ConsentResolvedEvent{Consent: c, Decision: parentconsent.StatusDeclined})
		expired++
	}
	return expired, nil
}

type issuedConsent struct {
	consent parentconsent.ParentConsent
}

func (s *WorkflowService) issueConsent(ctx context.Context, req exeatrequest.ExeatRequest, method parentconsent.Method, message string, staffID *uint) (*issuedConsent, error) {
	consent, err := parentconsent.New(req.ID(), method, message, staffID, s.consentTTL, s.now())
	if err != nil {
		return nil, err
	}
	stored, err := s.consents.UpsertForRequest(ctx, consent)
	if err != nil {
		return nil, err
	}

	if staffID != nil {
		details := fmt.Sprintf("consent requested via %s", method)
		if err := s.audit.Record(ctx, actor.Staff(*staffID), req.StudentID(), "exeat.parent_consent.request", "parent_consent", stored.ID, details); err != nil {
			return nil, err
		}
	}
	return &issuedConsent{consent: stored}, nil
}

func (s *WorkflowService) notifyStatus(ctx context.Context, req exeatrequest.ExeatRequest) {
	if err := s.notifier.StatusChanged(ctx, req); err != nil {
		s.log.WithError(err).WithField("exeat_id", req.ID()).Warn("status notification failed")
	}
}

func (s *WorkflowService) notifyConsent(ctx context.Context, req exeatrequest.ExeatRequest, issued *issuedConsent) {
	cr := notify.ConsentRequest{
		StudentID:   req.StudentID(),
		ParentEmail: req.ParentEmail(),
		ParentPhone: req.ParentPhone(),
		Reason:      req.Reason(),
		Message:     issued.consent.Message,
		ApproveLink: s.consentLink(issued.consent.Token, "approve"),
		DeclineLink: s.consentLink(issued.consent.Token, "reject"),
		ExpiresAt:   issued.consent.ExpiresAt,
	}
	if err := s.notifier.ParentConsentRequested(ctx, cr); err != nil {
		s.log.WithError(err).WithField("exeat_id", req.ID()).Warn("consent notification failed")
	}
}

func (s *WorkflowService) consentLink(token, action string) string {
	return fmt.Sprintf("%s/parent/exeat-consent/%s/%s", s.origin, token, action)
}

func (s *WorkflowService) loadForDecision(ctx context.Context, params DecisionParams) (exeatrequest.ExeatRequest, exeatrequest.Approval, error) {
	req, err := s.requests.GetByIDForUpdate(ctx, params.RequestID)
	if err != nil {
		return exeatrequest.ExeatRequest{}, exeatrequest.Approval{}, err
	}
	approval, err := s.requests.GetApprovalByID(ctx, params.ApprovalID)
	if err != nil {
		return exeatrequest.ExeatRequest{}, exeatrequest.Approval{}, err
	}
	if approval.RequestID != req.ID() {
		return exeatrequest.ExeatRequest{}, exeatrequest.Approval{}, exeatrequest.ErrApprovalMismatch
	}
	if approval.Decided() {
		return exeatrequest.ExeatRequest{}, exeatrequest.Approval{}, exeatrequest.ErrApprovalDecided
	}
	return req, approval, nil
}

func methodForContactMode(mode exeatrequest.ContactMode) parentconsent.Method {
	switch mode {
	case exeatrequest.ContactSMS, exeatrequest.ContactWhatsApp:
		return parentconsent.MethodSMS
	default:
		return parentconsent.MethodEmail
	}
}
