package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/exeatrequest"
	"github.com/veritas-edu/campus-sdk/modules/exeat/infrastructure/persistence/models"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
	"github.com/veritas-edu/campus-sdk/pkg/repo"
)

const (
	selectExeatRequest = `
		SELECT id, student_id, reason, is_medical, contact_mode, parent_email, parent_phone, status, created_at, updated_at
		FROM exeat_requests
	`
	selectExeatApproval = `
		SELECT id, request_id, staff_id, stage, status, comment, created_at, updated_at
		FROM exeat_approvals
	`
)

type ExeatRepository struct{}

func NewExeatRepository() exeatrequest.Repository {
	return &ExeatRepository{}
}

func (r *ExeatRepository) GetByID(ctx context.Context, id uint) (exeatrequest.ExeatRequest, error) {
	return r.queryOne(ctx, selectExeatRequest+" WHERE id = $1", id)
}

func (r *ExeatRepository) GetByIDForUpdate(ctx context.Context, id uint) (exeatrequest.ExeatRequest, error) {
	return r.queryOne(ctx, selectExeatRequest+" WHERE id = $1 FOR UPDATE", id)
}

func (r *ExeatRepository) List(ctx context.Context, params *exeatrequest.FindParams) ([]exeatrequest.ExeatRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"1 = 1"}
	args := []interface{}{}
	if params != nil {
		if params.StudentID != nil {
			args = append(args, *params.StudentID)
			where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
		}
		if params.Status != nil {
			args = append(args, string(*params.Status))
			where = append(where, fmt.Sprintf("status = $%d", len(args)))
		}
	}

	query := selectExeatRequest + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []exeatrequest.ExeatRequest
	for rows.Next() {
		var row models.ExeatRequest
		if err := scanExeatRequest(rows.Scan, &row); err != nil {
			return nil, err
		}
		results = append(results, toDomainExeatRequest(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ExeatRepository) Create(ctx context.Context, req exeatrequest.ExeatRequest) (exeatrequest.ExeatRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	var id uint
	var createdAt, updatedAt time.Time
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO exeat_requests (student_id, reason, is_medical, contact_mode, parent_email, parent_phone, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		req.StudentID(),
		req.Reason(),
		req.Medical(),
		string(req.ContactMode()),
		req.ParentEmail(),
		req.ParentPhone(),
		string(req.Status()),
	).Scan(&id, &createdAt, &updatedAt); err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	return exeatrequest.Hydrate(
		id,
		req.StudentID(),
		req.Reason(),
		req.Medical(),
		req.ContactMode(),
		req.ParentEmail(),
		req.ParentPhone(),
		req.Status(),
		createdAt,
		updatedAt,
	), nil
}

func (r *ExeatRepository) UpdateStatus(ctx context.Context, id uint, status exeatrequest.Status) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(
		ctx,
		`UPDATE exeat_requests SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return exeatrequest.ErrNotFound
	}
	return nil
}

func (r *ExeatRepository) GetApprovalByID(ctx context.Context, id uint) (exeatrequest.Approval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return exeatrequest.Approval{}, err
	}

	var row models.ExeatApproval
	if err := tx.QueryRow(ctx, selectExeatApproval+" WHERE id = $1", id).Scan(
		&row.ID, &row.RequestID, &row.StaffID, &row.Stage, &row.Status, &row.Comment, &row.CreatedAt, &row.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exeatrequest.Approval{}, exeatrequest.ErrApprovalNotFound
		}
		return exeatrequest.Approval{}, err
	}
	return toDomainApproval(&row), nil
}

func (r *ExeatRepository) CreateApproval(ctx context.Context, a exeatrequest.Approval) (exeatrequest.Approval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return exeatrequest.Approval{}, err
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO exeat_approvals (request_id, staff_id, stage, status, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		a.RequestID,
		a.StaffID,
		string(a.Stage),
		string(a.Status),
		a.Comment,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return exeatrequest.Approval{}, err
	}
	return a, nil
}

func (r *ExeatRepository) RecordDecision(ctx context.Context, approvalID uint, status exeatrequest.ApprovalStatus, comment string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(
		ctx,
		`UPDATE exeat_approvals
		 SET status = $1, comment = $2, updated_at = now()
		 WHERE id = $3 AND status = 'pending'`,
		string(status), comment, approvalID,
	)
	if err != nil {
		return err
	}
	// The guard on the current status means a decided approval reads back as
	// zero rows, same as a missing one; the service checks Decided() first.
	if tag.RowsAffected() == 0 {
		return exeatrequest.ErrApprovalDecided
	}
	return nil
}

func (r *ExeatRepository) queryOne(ctx context.Context, query string, args ...interface{}) (exeatrequest.ExeatRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return exeatrequest.ExeatRequest{}, err
	}

	var row models.ExeatRequest
	if err := scanExeatRequest(tx.QueryRow(ctx, query, args...).Scan, &row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exeatrequest.ExeatRequest{}, exeatrequest.ErrNotFound
		}
		return exeatrequest.ExeatRequest{}, err
	}
	return toDomainExeatRequest(&row), nil
}

func scanExeatRequest(scan func(dest ...any) error, row *models.ExeatRequest) error {
	return scan(
		&row.ID,
		&row.StudentID,
		&row.Reason,
		&row.IsMedical,
		&row.ContactMode,
		&row.ParentEmail,
		&row.ParentPhone,
		&row.Status,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
}

func toDomainExeatRequest(row *models.ExeatRequest) exeatrequest.ExeatRequest {
	return exeatrequest.Hydrate(
		row.ID,
		row.StudentID,
		row.Reason,
		row.IsMedical,
		exeatrequest.ContactMode(row.ContactMode),
		row.ParentEmail,
		row.ParentPhone,
		exeatrequest.Status(row.Status),
		row.CreatedAt,
		row.UpdatedAt,
	)
}

func toDomainApproval(row *models.ExeatApproval) exeatrequest.Approval {
	return exeatrequest.Approval{
		ID:        row.ID,
		RequestID: row.RequestID,
		StaffID:   row.StaffID,
		Stage:     exeatrequest.Status(row.Stage),
		Status:    exeatrequest.ApprovalStatus(row.Status),
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
