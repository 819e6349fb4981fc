package services_test

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/payment"
	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/registration"
	"github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/paystack"
	"github.com/veritas-edu/campus-sdk/modules/nysc/services"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
	"github.com/veritas-edu/campus-sdk/pkg/eventbus"
	"github.com/veritas-edu/campus-sdk/pkg/logging"
	"github.com/veritas-edu/campus-sdk/pkg/testutil"
)

type memPaymentRepo struct {
	payments map[uint]payment.Payment
	updates  int
	nextID   uint
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: map[uint]payment.Payment{}, nextID: 1}
}

func (r *memPaymentRepo) GetByID(_ context.Context, id uint) (payment.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	return p, nil
}

func (r *memPaymentRepo) GetByReference(_ context.Context, reference string) (payment.Payment, error) {
	for _, p := range r.payments {
		if p.Reference == reference {
			return p, nil
		}
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (r *memPaymentRepo) ListPending(_ context.Context, minAge, maxAge time.Duration, limit int) ([]payment.Payment, error) {
	now := time.Now()
	var results []payment.Payment
	for _, p := range r.payments {
		if p.Status != payment.StatusPending {
			continue
		}
		age := now.Sub(p.PaymentDate)
		if age < minAge || age > maxAge {
			continue
		}
		results = append(results, p)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *memPaymentRepo) Create(_ context.Context, p payment.Payment) (payment.Payment, error) {
	for _, existing := range r.payments {
		if existing.Reference == p.Reference {
			return payment.Payment{}, payment.ErrReferenceTaken
		}
	}
	p.ID = r.nextID
	r.nextID++
	r.payments[p.ID] = p
	return p, nil
}

func (r *memPaymentRepo) Update(_ context.Context, p payment.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return payment.ErrNotFound
	}
	r.payments[p.ID] = p
	r.updates++
	return nil
}

type memRegistrationRepo struct {
	registrations map[uint]registration.Registration
	markPaidCalls int
	nextID        uint
}

func newMemRegistrationRepo() *memRegistrationRepo {
	return &memRegistrationRepo{registrations: map[uint]registration.Registration{}, nextID: 1}
}

func (r *memRegistrationRepo) GetByID(_ context.Context, id uint) (registration.Registration, error) {
	reg, ok := r.registrations[id]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	return reg, nil
}

func (r *memRegistrationRepo) GetByStudentID(_ context.Context, studentID uint) (registration.Registration, error) {
	for _, reg := range r.registrations {
		if reg.StudentID == studentID {
			return reg, nil
		}
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (r *memRegistrationRepo) Create(_ context.Context, reg registration.Registration) (registration.Registration, error) {
	reg.ID = r.nextID
	r.nextID++
	r.registrations[reg.ID] = reg
	return reg, nil
}

func (r *memRegistrationRepo) MarkPaid(_ context.Context, id uint, at time.Time) (bool, error) {
	reg, ok := r.registrations[id]
	if !ok {
		return false, registration.ErrNotFound
	}
	if reg.IsPaid {
		return false, nil
	}
	reg.IsPaid = true
	reg.IsSubmitted = true
	reg.SubmittedAt = &at
	r.registrations[id] = reg
	r.markPaidCalls++
	return true, nil
}

type memTempRepo struct {
	bySession map[string]registration.TempSubmission
	byStudent map[uint]registration.TempSubmission
}

func newMemTempRepo() *memTempRepo {
	return &memTempRepo{
		bySession: map[string]registration.TempSubmission{},
		byStudent: map[uint]registration.TempSubmission{},
	}
}

func (r *memTempRepo) FindBySessionID(_ context.Context, sessionID string) (registration.TempSubmission, error) {
	t, ok := r.bySession[sessionID]
	if !ok {
		return registration.TempSubmission{}, registration.ErrTempSubmissionNotFound
	}
	return t, nil
}

func (r *memTempRepo) LatestByStudentID(_ context.Context, studentID uint) (registration.TempSubmission, error) {
	t, ok := r.byStudent[studentID]
	if !ok {
		return registration.TempSubmission{}, registration.ErrTempSubmissionNotFound
	}
	return t, nil
}

type stubProfiles struct {
	profiles map[uint]registration.StudentProfile
}

func (s *stubProfiles) Profile(_ context.Context, studentID uint) (registration.StudentProfile, error) {
	p, ok := s.profiles[studentID]
	if !ok {
		return registration.StudentProfile{}, registration.ErrNotFound
	}
	return p, nil
}

type stubGateway struct {
	results map[string]*paystack.VerifyResult
	err     error
	calls   int
}

func (g *stubGateway) Verify(_ context.Context, reference string) (*paystack.VerifyResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	result, ok := g.results[reference]
	if !ok {
		return nil, &paystack.APIError{StatusCode: 404, Message: "Transaction reference not found"}
	}
	return result, nil
}

type verifyFixture struct {
	payments *memPaymentRepo
	regs     *memRegistrationRepo
	temps    *memTempRepo
	profiles *stubProfiles
	gateway  *stubGateway
	service  *services.VerificationService
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	f := &verifyFixture{
		payments: newMemPaymentRepo(),
		regs:     newMemRegistrationRepo(),
		temps:    newMemTempRepo(),
		profiles: &stubProfiles{profiles: map[uint]registration.StudentProfile{}},
		gateway:  &stubGateway{results: map[string]*paystack.VerifyResult{}},
	}
	f.service = services.NewVerificationService(
		f.payments,
		f.regs,
		f.temps,
		f.profiles,
		f.gateway,
		nil,
		configuration.PaymentSweepOptions{
			MinAge:      5 * time.Minute,
			MaxAge:      7 * 24 * time.Hour,
			BatchLimit:  100,
			MaxAttempts: 3,
			Timeout:     5 * time.Minute,
			GatewayRPS:  3,
		},
		eventbus.NewEventPublisher(logrus.New()),
		logging.Nop(),
	)
	return f
}

func (f *verifyFixture) seedPayment(t *testing.T, reference string, status payment.Status, regID *uint, age time.Duration) payment.Payment {
	t.Helper()
	p := payment.New(7, "2024-2025", 1000000, reference, time.Now().Add(-age))
	p.Status = status
	p.RegistrationID = regID
	stored, err := f.payments.Create(context.Background(), p)
	require.NoError(t, err)
	return stored
}

func (f *verifyFixture) seedRegistration(t *testing.T, studentID uint, paid bool) registration.Registration {
	t.Helper()
	reg, err := f.regs.Create(context.Background(), registration.Registration{
		StudentID: studentID,
		SessionID: "2024-2025",
		IsPaid:    paid,
	})
	require.NoError(t, err)
	return reg
}

func successResult(reference string) *paystack.VerifyResult {
	return &paystack.VerifyResult{
		Reference:  reference,
		Status:     "success",
		AmountKobo: 1000000,
		Currency:   "NGN",
		Raw:        json.RawMessage(`{"data":{"status":"success","amount":1000000}}`),
	}
}

func TestVerifySingleSuccessMarksRegistrationPaid(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	reg := f.seedRegistration(t, 7, false)
	p := f.seedPayment(t, "TEST-ABC123", payment.StatusPending, &reg.ID, time.Hour)
	f.gateway.results["TEST-ABC123"] = successResult("TEST-ABC123")

	outcome, err := f.service.VerifySingle(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.Updated)
	require.True(t, outcome.MarkedPaid)
	require.Equal(t, payment.StatusSuccessful, outcome.NewStatus)

	stored, err := f.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccessful, stored.Status)
	require.NotNil(t, stored.VerifiedAt)
	require.JSONEq(t, `{"data":{"status":"success","amount":1000000}}`, string(stored.GatewayRaw))

	updated, err := f.regs.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	require.True(t, updated.IsPaid)
	require.True(t, updated.IsSubmitted)
	require.NotNil(t, updated.SubmittedAt)
}

func TestVerifySingleUnchangedStatusWritesNothing(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "TEST-ABC123", payment.StatusPending, nil, time.Hour)
	f.gateway.results["TEST-ABC123"] = &paystack.VerifyResult{Reference: "TEST-ABC123", Status: "ongoing"}

	outcome, err := f.service.VerifySingle(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.False(t, outcome.Updated)
	require.Equal(t, payment.StatusPending, outcome.NewStatus)
	require.Zero(t, f.payments.updates)
}

func TestVerifySingleGatewayFailureLeavesPaymentUntouched(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "TEST-ABC123", payment.StatusPending, nil, time.Hour)
	f.gateway.err = &paystack.APIError{StatusCode: 503, Message: "Service Unavailable"}

	outcome, err := f.service.VerifySingle(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Zero(t, f.payments.updates)

	stored, err := f.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusPending, stored.Status)
	require.Nil(t, stored.VerifiedAt)
}

func TestVerifySingleUnknownProviderStatusIsFailed(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "TEST-ABC123", payment.StatusPending, nil, time.Hour)
	f.gateway.results["TEST-ABC123"] = &paystack.VerifyResult{Reference: "TEST-ABC123", Status: "reversed"}

	outcome, err := f.service.VerifySingle(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, outcome.Updated)
	require.Equal(t, payment.StatusFailed, outcome.NewStatus)
}

func TestVerifySingleMarkPaidAppliesAtMostOnce(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	reg := f.seedRegistration(t, 7, false)
	p := f.seedPayment(t, "TEST-ABC123", payment.StatusPending, &reg.ID, time.Hour)
	f.gateway.results["TEST-ABC123"] = successResult("TEST-ABC123")

	first, err := f.service.VerifySingle(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, first.MarkedPaid)

	// Re-verifying a settled payment is a no-op on both records.
	second, err := f.service.VerifySingle(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, second.Verified)
	require.False(t, second.Updated)
	require.False(t, second.MarkedPaid)
	require.Equal(t, 1, f.regs.markPaidCalls)
}

func TestVerifyBatchIsolatesPerItemErrors(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	reg := f.seedRegistration(t, 7, false)
	good := f.seedPayment(t, "GOOD-1", payment.StatusPending, &reg.ID, time.Hour)
	unknown := f.seedPayment(t, "GONE-2", payment.StatusPending, nil, time.Hour)
	f.gateway.results["GOOD-1"] = successResult("GOOD-1")

	batch, err := f.service.VerifyBatch(ctx, []uint{good.ID, 999, unknown.ID})
	require.NoError(t, err)
	require.Len(t, batch.Items, 3)
	require.Equal(t, 1, batch.Verified)
	require.Equal(t, 1, batch.Updated)
	require.Equal(t, 1, batch.Successful)
	require.Equal(t, 2, batch.Errors)
}

func TestSweepPendingHonorsAgeWindow(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	reg := f.seedRegistration(t, 7, false)
	inWindow := f.seedPayment(t, "IN-WINDOW", payment.StatusPending, &reg.ID, time.Hour)
	f.seedPayment(t, "TOO-YOUNG", payment.StatusPending, nil, time.Minute)
	f.seedPayment(t, "TOO-OLD", payment.StatusPending, nil, 8*24*time.Hour)
	f.seedPayment(t, "SETTLED", payment.StatusSuccessful, nil, time.Hour)
	f.gateway.results["IN-WINDOW"] = successResult("IN-WINDOW")

	batch, err := f.service.SweepPending(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	require.Equal(t, inWindow.ID, batch.Items[0].PaymentID)
	require.Equal(t, 1, batch.Successful)
	require.Equal(t, 1, f.gateway.calls)
}

func TestRecoverOrphanPrefersSessionTempSubmission(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "ORPHAN-1", payment.StatusSuccessful, nil, time.Hour)
	f.temps.bySession["2024-2025"] = registration.TempSubmission{
		ID:        1,
		StudentID: 7,
		SessionID: "2024-2025",
		Payload:   json.RawMessage(`{"surname":"Adeyemi"}`),
	}
	f.temps.byStudent[7] = registration.TempSubmission{
		ID:      2,
		Payload: json.RawMessage(`{"surname":"stale"}`),
	}

	report, err := f.service.RecoverOrphan(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, services.RecoverySourceSessionTemp, report.Source)
	require.True(t, report.Created)

	reg, err := f.regs.GetByID(ctx, report.RegistrationID)
	require.NoError(t, err)
	require.True(t, reg.IsPaid)
	require.True(t, reg.IsSubmitted)
	require.JSONEq(t, `{"surname":"Adeyemi"}`, string(reg.Snapshot))

	linked, err := f.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.RegistrationID)
	require.Equal(t, report.RegistrationID, *linked.RegistrationID)
}

func TestRecoverOrphanFallsBackToStudentTempSubmission(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "ORPHAN-2", payment.StatusSuccessful, nil, time.Hour)
	f.temps.byStudent[7] = registration.TempSubmission{
		ID:        2,
		StudentID: 7,
		Payload:   json.RawMessage(`{"surname":"Okafor"}`),
	}

	report, err := f.service.RecoverOrphan(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, services.RecoverySourceStudentTemp, report.Source)
}

func TestRecoverOrphanFallsBackToStudentProfile(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "ORPHAN-3", payment.StatusSuccessful, nil, time.Hour)
	f.profiles.profiles[7] = registration.StudentProfile{
		StudentID: 7,
		FullName:  "Chiamaka Okafor",
		Email:     "chiamaka@example.com",
		Academic:  json.RawMessage(`{"cgpa":"4.2"}`),
	}

	report, err := f.service.RecoverOrphan(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, services.RecoverySourceStudentProfile, report.Source)

	reg, err := f.regs.GetByID(ctx, report.RegistrationID)
	require.NoError(t, err)
	require.Contains(t, string(reg.Snapshot), "Chiamaka Okafor")
}

func TestRecoverOrphanLinksExistingRegistrationWithoutOverwrite(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	reg, err := f.regs.Create(context.Background(), registration.Registration{
		StudentID: 7,
		SessionID: "2024-2025",
		Snapshot:  json.RawMessage(`{"surname":"original"}`),
	})
	require.NoError(t, err)
	p := f.seedPayment(t, "ORPHAN-4", payment.StatusSuccessful, nil, time.Hour)

	report, recoverErr := f.service.RecoverOrphan(ctx, p.ID)
	require.NoError(t, recoverErr)
	require.Equal(t, services.RecoverySourceExisting, report.Source)
	require.False(t, report.Created)
	require.Equal(t, reg.ID, report.RegistrationID)

	kept, err := f.regs.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	require.JSONEq(t, `{"surname":"original"}`, string(kept.Snapshot))
	require.True(t, kept.IsPaid)
}

func TestRecoverOrphanAlreadyLinkedIsNoop(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	reg := f.seedRegistration(t, 7, true)
	p := f.seedPayment(t, "ORPHAN-5", payment.StatusSuccessful, &reg.ID, time.Hour)

	report, err := f.service.RecoverOrphan(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, services.RecoverySourceLinked, report.Source)
	require.Zero(t, f.payments.updates)
}

func TestRecoverOrphanNoSource(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "ORPHAN-6", payment.StatusSuccessful, nil, time.Hour)

	_, err := f.service.RecoverOrphan(ctx, p.ID)
	require.ErrorIs(t, err, registration.ErrNoRecoverySource)
}

func TestRecoverOrphanRejectsUnsettledPayment(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := testutil.Context()

	p := f.seedPayment(t, "PENDING-1", payment.StatusPending, nil, time.Hour)

	_, err := f.service.RecoverOrphan(ctx, p.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PAYMENT_NOT_SUCCESSFUL")
}
