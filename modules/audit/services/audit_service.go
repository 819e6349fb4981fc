package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/veritas-edu/campus-sdk/modules/audit/domain/entities/auditlog"
	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/actor"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

type AuditService struct {
	repo auditlog.Repository
	log  *logrus.Entry
}

func NewAuditService(repo auditlog.Repository, log *logrus.Entry) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Record appends an audit entry inside the caller's transaction. Failures
// propagate so a transition and its audit trail commit or roll back together.
func (s *AuditService) Record(ctx context.Context, by actor.Actor, studentID uint, action, targetType string, targetID uint, details string) error {
	entry := &auditlog.Entry{
		StaffID:    by.StaffID(),
		StudentID:  studentID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
	}
	return s.repo.Create(ctx, entry)
}

// TryRecord is the post-commit variant: the write is best-effort and a
// failure is logged, never returned.
func (s *AuditService) TryRecord(ctx context.Context, by actor.Actor, studentID uint, action, targetType string, targetID uint, details string) {
	if err := s.Record(ctx, by, studentID, action, targetType, targetID, details); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"target_type": targetType,
			"target_id":   targetID,
		}).Warn("audit write failed")
	}
}

func (s *AuditService) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, int64, error) {
	var (
		entries []*auditlog.Entry
		total   int64
	)
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		if entries, err = s.repo.List(txCtx, params); err != nil {
			return err
		}
		total, err = s.repo.Count(txCtx, params)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
