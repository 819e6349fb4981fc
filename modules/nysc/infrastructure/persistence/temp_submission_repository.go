package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/registration"
	"github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/persistence/models"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

const selectNyscTempSubmission = `
	SELECT id, student_id, session_id, payload, created_at
	FROM nysc_temp_submissions
`

type TempSubmissionRepository struct{}

func NewTempSubmissionRepository() registration.TempSubmissionRepository {
	return &TempSubmissionRepository{}
}

func (r *TempSubmissionRepository) FindBySessionID(ctx context.Context, sessionID string) (registration.TempSubmission, error) {
	return r.queryOne(ctx, selectNyscTempSubmission+" WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1", sessionID)
}

func (r *TempSubmissionRepository) LatestByStudentID(ctx context.Context, studentID uint) (registration.TempSubmission, error) {
	return r.queryOne(ctx, selectNyscTempSubmission+" WHERE student_id = $1 ORDER BY created_at DESC LIMIT 1", studentID)
}

func (r *TempSubmissionRepository) queryOne(ctx context.Context, query string, args ...interface{}) (registration.TempSubmission, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return registration.TempSubmission{}, err
	}

	var row models.NyscTempSubmission
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&row.ID,
		&row.StudentID,
		&row.SessionID,
		&row.Payload,
		&row.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.TempSubmission{}, registration.ErrTempSubmissionNotFound
		}
		return registration.TempSubmission{}, err
	}
	return registration.TempSubmission{
		ID:        row.ID,
		StudentID: row.StudentID,
		SessionID: row.SessionID,
		Payload:   json.RawMessage(row.Payload),
		CreatedAt: row.CreatedAt,
	}, nil
}
