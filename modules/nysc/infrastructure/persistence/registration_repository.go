package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/registration"
	"github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/persistence/models"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

const selectNyscRegistration = `
	SELECT id, student_id, session_id, is_paid, is_submitted, submitted_at, snapshot, created_at, updated_at
	FROM nysc_registrations
`

type RegistrationRepository struct{}

func NewRegistrationRepository() registration.Repository {
	return &RegistrationRepository{}
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id uint) (registration.Registration, error) {
	return r.queryOne(ctx, selectNyscRegistration+" WHERE id = $1", id)
}

func (r *RegistrationRepository) GetByStudentID(ctx context.Context, studentID uint) (registration.Registration, error) {
	return r.queryOne(ctx, selectNyscRegistration+" WHERE student_id = $1 ORDER BY created_at DESC LIMIT 1", studentID)
}

func (r *RegistrationRepository) Create(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return registration.Registration{}, err
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO nysc_registrations (student_id, session_id, is_paid, is_submitted, submitted_at, snapshot)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		reg.StudentID,
		reg.SessionID,
		reg.IsPaid,
		reg.IsSubmitted,
		reg.SubmittedAt,
		[]byte(reg.Snapshot),
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return registration.Registration{}, err
	}
	return reg, nil
}

// MarkPaid flips is_paid and stamps submission exactly once. The guard on
// the current value makes a repeat verification read back as zero rows, so
// retried reconciliation cannot double-apply.
func (r *RegistrationRepository) MarkPaid(ctx context.Context, id uint, at time.Time) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(
		ctx,
		`UPDATE nysc_registrations
		 SET is_paid = TRUE, is_submitted = TRUE, submitted_at = $1, updated_at = now()
		 WHERE id = $2 AND is_paid = FALSE`,
		at, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RegistrationRepository) queryOne(ctx context.Context, query string, args ...interface{}) (registration.Registration, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return registration.Registration{}, err
	}

	var row models.NyscRegistration
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&row.ID,
		&row.StudentID,
		&row.SessionID,
		&row.IsPaid,
		&row.IsSubmitted,
		&row.SubmittedAt,
		&row.Snapshot,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, registration.ErrNotFound
		}
		return registration.Registration{}, err
	}
	return toDomainRegistration(&row), nil
}

func toDomainRegistration(row *models.NyscRegistration) registration.Registration {
	return registration.Registration{
		ID:          row.ID,
		StudentID:   row.StudentID,
		SessionID:   row.SessionID,
		IsPaid:      row.IsPaid,
		IsSubmitted: row.IsSubmitted,
		SubmittedAt: row.SubmittedAt,
		Snapshot:    json.RawMessage(row.Snapshot),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
