package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veritas-edu/campus-sdk/modules/audit/domain/entities/auditlog"
	"github.com/veritas-edu/campus-sdk/modules/audit/services"
	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/actor"
	"github.com/veritas-edu/campus-sdk/pkg/logging"
	"github.com/veritas-edu/campus-sdk/pkg/testutil"
)

type memAuditLogRepo struct {
	entries   []*auditlog.Entry
	createErr error
}

func (r *memAuditLogRepo) List(_ context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	var results []*auditlog.Entry
	for _, e := range r.entries {
		if params != nil && params.Action != "" && e.Action != params.Action {
			continue
		}
		results = append(results, e)
	}
	return results, nil
}

func (r *memAuditLogRepo) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	entries, err := r.List(ctx, params)
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

func (r *memAuditLogRepo) Create(_ context.Context, e *auditlog.Entry) error {
	if r.createErr != nil {
		return r.createErr
	}
	e.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, e)
	return nil
}

func TestRecordCapturesActor(t *testing.T) {
	repo := &memAuditLogRepo{}
	svc := services.NewAuditService(repo, logging.Nop())
	ctx := testutil.Context()

	err := svc.Record(ctx, actor.Staff(12), 7, "exeat.approve", auditlog.TargetExeatRequest, 3, "status pending -> cmd_review")
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	entry := repo.entries[0]
	require.NotNil(t, entry.StaffID)
	require.Equal(t, uint(12), *entry.StaffID)
	require.Equal(t, uint(7), entry.StudentID)
	require.Equal(t, "exeat.approve", entry.Action)
}

func TestRecordParentActorHasNoStaffID(t *testing.T) {
	repo := &memAuditLogRepo{}
	svc := services.NewAuditService(repo, logging.Nop())
	ctx := testutil.Context()

	err := svc.Record(ctx, actor.Parent(), 7, "exeat.parent_consent.approve", auditlog.TargetParentConsent, 3, "")
	require.NoError(t, err)
	require.Nil(t, repo.entries[0].StaffID)
}

func TestRecordPropagatesFailure(t *testing.T) {
	repo := &memAuditLogRepo{createErr: errors.New("insert failed")}
	svc := services.NewAuditService(repo, logging.Nop())
	ctx := testutil.Context()

	err := svc.Record(ctx, actor.System(), 7, "exeat.reject", auditlog.TargetExeatRequest, 3, "")
	require.Error(t, err)
}

func TestTryRecordSwallowsFailure(t *testing.T) {
	repo := &memAuditLogRepo{createErr: errors.New("insert failed")}
	svc := services.NewAuditService(repo, logging.Nop())
	ctx := testutil.Context()

	require.NotPanics(t, func() {
		svc.TryRecord(ctx, actor.System(), 7, "exeat.reject", auditlog.TargetExeatRequest, 3, "")
	})
	require.Empty(t, repo.entries)
}

func TestListFiltersAndCounts(t *testing.T) {
	repo := &memAuditLogRepo{}
	svc := services.NewAuditService(repo, logging.Nop())
	ctx := testutil.Context()

	require.NoError(t, svc.Record(ctx, actor.Staff(1), 7, "exeat.approve", auditlog.TargetExeatRequest, 1, ""))
	require.NoError(t, svc.Record(ctx, actor.Staff(1), 7, "exeat.reject", auditlog.TargetExeatRequest, 2, ""))

	entries, total, err := svc.List(ctx, &auditlog.FindParams{Action: "exeat.approve"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	require.Equal(t, "exeat.approve", entries[0].Action)
}
