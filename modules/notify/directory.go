package notify

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

// PgStudentDirectory resolves student contact details from the students
// table. Lookups run on the pool, not the caller's transaction, because
// notifications go out after commit.
type PgStudentDirectory struct{}

func NewPgStudentDirectory() *PgStudentDirectory {
	return &PgStudentDirectory{}
}

func (d *PgStudentDirectory) Contact(ctx context.Context, studentID uint) (Contact, error) {
	pool, err := composables.UsePool(ctx)
	if err != nil {
		return Contact{}, err
	}

	var c Contact
	if err := pool.QueryRow(
		ctx,
		`SELECT full_name, email FROM students WHERE id = $1`,
		studentID,
	).Scan(&c.Name, &c.Email); err != nil {
		return Contact{}, errors.Wrapf(err, "failed to resolve student %d", studentID)
	}
	return c, nil
}
