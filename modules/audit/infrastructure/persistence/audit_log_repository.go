package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veritas-edu/campus-sdk/modules/audit/domain/entities/auditlog"
	"github.com/veritas-edu/campus-sdk/modules/audit/infrastructure/persistence/models"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
	"github.com/veritas-edu/campus-sdk/pkg/repo"
)

type AuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildAuditFilters(params)
	query := `
		SELECT id, staff_id, student_id, action, target_type, target_id, details, created_at
		FROM audit_logs
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*auditlog.Entry
	for rows.Next() {
		var row models.AuditLog
		if err := rows.Scan(&row.ID, &row.StaffID, &row.StudentID, &row.Action, &row.TargetType, &row.TargetID, &row.Details, &row.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, toDomainAuditEntry(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAuditFilters(params)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AuditLogRepository) Create(ctx context.Context, e *auditlog.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return tx.QueryRow(
		ctx,
		`INSERT INTO audit_logs (staff_id, student_id, action, target_type, target_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		e.StaffID,
		e.StudentID,
		e.Action,
		e.TargetType,
		e.TargetID,
		e.Details,
		createdAt,
	).Scan(&e.ID, &e.CreatedAt)
}

func buildAuditFilters(params *auditlog.FindParams) ([]string, []interface{}) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	argPos := 1
	if params == nil {
		return where, args
	}

	if params.StaffID != nil {
		where = append(where, fmt.Sprintf("staff_id = $%d", argPos))
		args = append(args, *params.StaffID)
		argPos++
	}
	if params.StudentID != nil {
		where = append(where, fmt.Sprintf("student_id = $%d", argPos))
		args = append(args, *params.StudentID)
		argPos++
	}
	if action := strings.TrimSpace(params.Action); action != "" {
		where = append(where, fmt.Sprintf("action = $%d", argPos))
		args = append(args, action)
		argPos++
	}
	if tt := strings.TrimSpace(params.TargetType); tt != "" {
		where = append(where, fmt.Sprintf("target_type = $%d", argPos))
		args = append(args, tt)
		argPos++
	}
	if params.TargetID != nil {
		where = append(where, fmt.Sprintf("target_id = $%d", argPos))
		args = append(args, *params.TargetID)
		argPos++
	}
	if params.From != nil && !params.From.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *params.From)
		argPos++
	}
	if params.To != nil && !params.To.IsZero() {
		where = append(where, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *params.To)
	}
	return where, args
}

func toDomainAuditEntry(row *models.AuditLog) *auditlog.Entry {
	return &auditlog.Entry{
		ID:         row.ID,
		StaffID:    row.StaffID,
		StudentID:  row.StudentID,
		Action:     row.Action,
		TargetType: row.TargetType,
		TargetID:   row.TargetID,
		Details:    row.Details,
		CreatedAt:  row.CreatedAt,
	}
}
