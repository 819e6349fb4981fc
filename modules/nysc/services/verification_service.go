package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/payment"
	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/registration"
	"github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/paystack"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
	"github.com/veritas-edu/campus-sdk/pkg/eventbus"
	"github.com/veritas-edu/campus-sdk/pkg/serrors"
)

// Gateway is the slice of the payment provider the reconciler needs.
type Gateway interface {
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// VerifyOutcome is the result of re-verifying one payment. Verified means
// the gateway answered; Updated means the stored status actually changed.
type VerifyOutcome struct {
	PaymentID  uint
	Verified   bool
	Updated    bool
	NewStatus  payment.Status
	MarkedPaid bool
	Message    string
}

// BatchOutcome aggregates a batch or sweep run. Per-item failures are
// isolated: one bad payment never aborts the rest.
type BatchOutcome struct {
	Items      []VerifyOutcome
	Verified   int
	Updated    int
	Successful int
	Failed     int
	Errors     int
}

func (b *BatchOutcome) add(o VerifyOutcome) {
	b.Items = append(b.Items, o)
	if !o.Verified {
		b.Errors++
		return
	}
	b.Verified++
	if o.Updated {
		b.Updated++
	}
	switch o.NewStatus {
	case payment.StatusSuccessful:
		b.Successful++
	case payment.StatusFailed:
		b.Failed++
	}
}

// VerificationService reconciles pending payments against the gateway and
// applies the outcome to the payment and its dependent registration in one
// transaction per payment.
type VerificationService struct {
	payments payment.Repository
	regs     registration.Repository
	temps    registration.TempSubmissionRepository
	profiles registration.StudentProfileSource
	gateway   Gateway
	pacer     *limiter.Limiter
	sweep     configuration.PaymentSweepOptions
	publisher eventbus.EventBus
	log       *logrus.Entry
	now       func() time.Time
}

func NewVerificationService(
	payments payment.Repository,
	regs registration.Repository,
	temps registration.TempSubmissionRepository,
	profiles registration.StudentProfileSource,
	gateway Gateway,
	pacer *limiter.Limiter,
	sweep configuration.PaymentSweepOptions,
	publisher eventbus.EventBus,
	log *logrus.Entry,
) *VerificationService {
	return &VerificationService{
		payments:  payments,
		regs:      regs,
		temps:     temps,
		profiles:  profiles,
		gateway:   gateway,
		pacer:     pacer,
		sweep:     sweep,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// VerifySingle re-verifies one payment against the gateway. A gateway
// failure leaves the payment untouched and reports Verified:false; an
// unchanged status writes nothing. A change updates the payment and, iff it
// newly became successful and the linked registration is not yet paid,
// marks the registration paid. At most one registration update can ever
// result from a payment turning successful, even across retries.
func (s *VerificationService) VerifySingle(ctx context.Context, paymentID uint) (VerifyOutcome, error) {
	if paymentID == 0 {
		return VerifyOutcome{}, serrors.NewFieldRequiredError("payment_id")
	}

	p, err := composables.InTxResult(ctx, func(txCtx context.Context) (payment.Payment, error) {
		return s.payments.GetByID(txCtx, paymentID)
	})
	if err != nil {
		return VerifyOutcome{}, err
	}

	result, err := s.gateway.Verify(ctx, p.Reference)
	if err != nil {
		gatewayVerifications.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("reference", p.Reference).Warn("gateway verification failed")
		return VerifyOutcome{
			PaymentID: p.ID,
			Verified:  false,
			NewStatus: p.Status,
			Message:   err.Error(),
		}, nil
	}
	gatewayVerifications.WithLabelValues("ok").Inc()

	newStatus := payment.MapGatewayStatus(result.Status)
	if newStatus == p.Status {
		return VerifyOutcome{
			PaymentID: p.ID,
			Verified:  true,
			NewStatus: newStatus,
			Message:   "status unchanged",
		}, nil
	}

	outcome := VerifyOutcome{
		PaymentID: p.ID,
		Verified:  true,
		Updated:   true,
		NewStatus: newStatus,
	}
	verified := p.Verified(newStatus, result.Raw, s.now())
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.payments.Update(txCtx, verified); err != nil {
			return err
		}
		if newStatus == payment.StatusSuccessful && verified.RegistrationID != nil {
			applied, err := s.regs.MarkPaid(txCtx, *verified.RegistrationID, s.now())
			if err != nil {
				return err
			}
			outcome.MarkedPaid = applied
		}
		return nil
	})
	if err != nil {
		return VerifyOutcome{}, err
	}

	s.publisher.Publish(&payment.VerifiedEvent{
		Payment:    verified,
		FromStatus: p.Status,
		ToStatus:   newStatus,
	})
	if outcome.MarkedPaid {
		s.publisher.Publish(&payment.RegistrationPaidEvent{
			Payment:        verified,
			RegistrationID: *verified.RegistrationID,
		})
	}

	s.log.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"reference":  p.Reference,
		"status":     newStatus,
	}).Info("payment status updated")
	return outcome, nil
}

// VerifyBatch re-verifies a bounded list of payments sequentially, pacing
// gateway calls through the token-bucket limiter. Per-item errors are
// recorded in the outcome and never abort the batch.
func (s *VerificationService) VerifyBatch(ctx context.Context, ids []uint) (*BatchOutcome, error) {
	batch := &BatchOutcome{}
	for _, id := range ids {
		if err := s.pace(ctx); err != nil {
			return batch, err
		}
		outcome, err := s.VerifySingle(ctx, id)
		if err != nil {
			batch.add(VerifyOutcome{PaymentID: id, Message: err.Error()})
			s.log.WithError(err).WithField("payment_id", id).Warn("verification errored")
			continue
		}
		batch.add(outcome)
	}
	return batch, nil
}

// SweepPending reconciles payments stuck in pending. The age window skips
// checkouts still in flight at the young end and bounds the scan at the old
// end; registrations are resolved by the stored foreign key only.
func (s *VerificationService) SweepPending(ctx context.Context) (*BatchOutcome, error) {
	start := s.now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	pending, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]payment.Payment, error) {
		return s.payments.ListPending(txCtx, s.sweep.MinAge, s.sweep.MaxAge, s.sweep.BatchLimit)
	})
	if err != nil {
		sweepRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	sweepPendingScanned.Set(float64(len(pending)))

	ids := make([]uint, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	batch, err := s.VerifyBatch(ctx, ids)
	if err != nil {
		sweepRuns.WithLabelValues("error").Inc()
		return batch, err
	}

	for _, item := range batch.Items {
		switch {
		case !item.Verified:
			sweepPayments.WithLabelValues("error").Inc()
		case item.Updated:
			sweepPayments.WithLabelValues("updated").Inc()
		default:
			sweepPayments.WithLabelValues("unchanged").Inc()
		}
	}
	sweepRuns.WithLabelValues("ok").Inc()

	s.log.WithFields(logrus.Fields{
		"scanned":    len(ids),
		"updated":    batch.Updated,
		"successful": batch.Successful,
		"errors":     batch.Errors,
	}).Info("pending payment sweep finished")
	return batch, nil
}

func (s *VerificationService) pace(ctx context.Context) error {
	if s.pacer == nil {
		return nil
	}
	for {
		lctx, err := s.pacer.Get(ctx, "paystack")
		if err != nil {
			return err
		}
		if !lctx.Reached {
			return nil
		}
		wait := time.Until(time.Unix(lctx.Reset, 0))
		if wait <= 0 {
			wait = 50 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

const (
	RecoverySourceLinked         = "already_linked"
	RecoverySourceExisting       = "existing_registration"
	RecoverySourceSessionTemp    = "temp_submission_by_session"
	RecoverySourceStudentTemp    = "temp_submission_by_student"
	RecoverySourceStudentProfile = "student_profile"
)

// RecoveryReport describes what the orphan recovery did for one payment.
type RecoveryReport struct {
	PaymentID      uint
	RegistrationID uint
	Source         string
	Created        bool
}

var errNotSuccessful = serrors.NewError("PAYMENT_NOT_SUCCESSFUL", "only successful payments can be recovered", "status")

// RecoverOrphan backfills the registration for a successful payment that
// has none, reconstructing the submission payload from the best available
// source. It only fills gaps: an existing registration is linked, never
// replaced. ErrNoRecoverySource reports a payment nothing can explain.
func (s *VerificationService) RecoverOrphan(ctx context.Context, paymentID uint) (RecoveryReport, error) {
	if paymentID == 0 {
		return RecoveryReport{}, serrors.NewFieldRequiredError("payment_id")
	}

	report, err := composables.InTxResult(ctx, func(txCtx context.Context) (RecoveryReport, error) {
		p, err := s.payments.GetByID(txCtx, paymentID)
		if err != nil {
			return RecoveryReport{}, err
		}
		if !p.Successful() {
			return RecoveryReport{}, errNotSuccessful
		}
		if p.RegistrationID != nil {
			return RecoveryReport{PaymentID: p.ID, RegistrationID: *p.RegistrationID, Source: RecoverySourceLinked}, nil
		}

		// A registration the student already has is linked as-is.
		if existing, err := s.regs.GetByStudentID(txCtx, p.StudentID); err == nil {
			return s.linkRegistration(txCtx, p, existing, RecoverySourceExisting, false)
		} else if !errors.Is(err, registration.ErrNotFound) {
			return RecoveryReport{}, err
		}

		snapshot, source, err := s.recoverSnapshot(txCtx, p)
		if err != nil {
			return RecoveryReport{}, err
		}

		now := s.now()
		created, err := s.regs.Create(txCtx, registration.Registration{
			StudentID:   p.StudentID,
			SessionID:   p.SessionID,
			IsPaid:      true,
			IsSubmitted: true,
			SubmittedAt: &now,
			Snapshot:    snapshot,
		})
		if err != nil {
			return RecoveryReport{}, err
		}
		return s.linkRegistration(txCtx, p, created, source, true)
	})
	if err != nil {
		if errors.Is(err, registration.ErrNoRecoverySource) {
			s.log.WithField("payment_id", paymentID).Warn("orphan payment has no recovery source")
		}
		return RecoveryReport{}, err
	}

	s.log.WithFields(logrus.Fields{
		"payment_id":      report.PaymentID,
		"registration_id": report.RegistrationID,
		"source":          report.Source,
	}).Info("orphan payment recovered")
	return report, nil
}

func (s *VerificationService) linkRegistration(ctx context.Context, p payment.Payment, reg registration.Registration, source string, created bool) (RecoveryReport, error) {
	regID := reg.ID
	p.RegistrationID = &regID
	p.Notes = appendNote(p.Notes, fmt.Sprintf("registration %d linked via orphan recovery (%s)", regID, source))
	if err := s.payments.Update(ctx, p); err != nil {
		return RecoveryReport{}, err
	}
	if !reg.IsPaid {
		if _, err := s.regs.MarkPaid(ctx, regID, s.now()); err != nil {
			return RecoveryReport{}, err
		}
	}
	return RecoveryReport{
		PaymentID:      p.ID,
		RegistrationID: regID,
		Source:         source,
		Created:        created,
	}, nil
}

func (s *VerificationService) recoverSnapshot(ctx context.Context, p payment.Payment) (json.RawMessage, string, error) {
	if p.SessionID != "" {
		temp, err := s.temps.FindBySessionID(ctx, p.SessionID)
		if err == nil {
			return temp.Payload, RecoverySourceSessionTemp, nil
		}
		if !errors.Is(err, registration.ErrTempSubmissionNotFound) {
			return nil, "", err
		}
	}

	temp, err := s.temps.LatestByStudentID(ctx, p.StudentID)
	if err == nil {
		return temp.Payload, RecoverySourceStudentTemp, nil
	}
	if !errors.Is(err, registration.ErrTempSubmissionNotFound) {
		return nil, "", err
	}

	profile, err := s.profiles.Profile(ctx, p.StudentID)
	if err != nil {
		return nil, "", registration.ErrNoRecoverySource
	}
	snapshot, err := profileSnapshot(profile)
	if err != nil {
		return nil, "", err
	}
	return snapshot, RecoverySourceStudentProfile, nil
}

func profileSnapshot(p registration.StudentProfile) (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{
		"student_id": p.StudentID,
		"full_name":  p.FullName,
		"email":      p.Email,
		"phone":      p.Phone,
		"academic":   p.Academic,
	})
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "; " + note
}
