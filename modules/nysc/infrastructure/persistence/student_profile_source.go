package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/registration"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

// StudentProfileSource reads the registry-side student record plus the most
// recent academic record. Last-resort source for orphan recovery.
type StudentProfileSource struct{}

func NewStudentProfileSource() registration.StudentProfileSource {
	return &StudentProfileSource{}
}

func (s *StudentProfileSource) Profile(ctx context.Context, studentID uint) (registration.StudentProfile, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return registration.StudentProfile{}, err
	}

	var profile registration.StudentProfile
	if err := tx.QueryRow(
		ctx,
		`SELECT id, full_name, email, phone FROM students WHERE id = $1`,
		studentID,
	).Scan(&profile.StudentID, &profile.FullName, &profile.Email, &profile.Phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.StudentProfile{}, registration.ErrNotFound
		}
		return registration.StudentProfile{}, err
	}

	var academic []byte
	err = tx.QueryRow(
		ctx,
		`SELECT row_to_json(a) FROM academic_records a WHERE a.student_id = $1 ORDER BY a.created_at DESC LIMIT 1`,
		studentID,
	).Scan(&academic)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// A missing academic record still yields a usable profile.
	case err != nil:
		return registration.StudentProfile{}, err
	default:
		profile.Academic = json.RawMessage(academic)
	}
	return profile, nil
}
