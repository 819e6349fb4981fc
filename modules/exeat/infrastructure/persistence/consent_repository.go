package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/parentconsent"
	"github.com/veritas-edu/campus-sdk/modules/exeat/infrastructure/persistence/models"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

const selectParentConsent = `
	SELECT id, request_id, consent_status, consent_method, consent_token, consent_message,
	       requested_by_staff, consented_at, expires_at, created_at, updated_at
	FROM parent_consents
`

type ConsentRepository struct{}

func NewConsentRepository() parentconsent.Repository {
	return &ConsentRepository{}
}

func (r *ConsentRepository) GetByToken(ctx context.Context, token string) (parentconsent.ParentConsent, error) {
	return r.queryOne(ctx, selectParentConsent+" WHERE consent_token = $1", token)
}

func (r *ConsentRepository) GetByRequestID(ctx context.Context, requestID uint) (parentconsent.ParentConsent, error) {
	return r.queryOne(ctx, selectParentConsent+" WHERE request_id = $1", requestID)
}

// UpsertForRequest relies on the unique index on request_id: re-sending a
// consent replaces the token, message and expiry in place and resets the
// status to pending, so at most one consent row ever exists per request.
func (r *ConsentRepository) UpsertForRequest(ctx context.Context, c parentconsent.ParentConsent) (parentconsent.ParentConsent, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return parentconsent.ParentConsent{}, err
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO parent_consents (request_id, consent_status, consent_method, consent_token, consent_message, requested_by_staff, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (request_id) DO UPDATE SET
			consent_status = EXCLUDED.consent_status,
			consent_method = EXCLUDED.consent_method,
			consent_token = EXCLUDED.consent_token,
			consent_message = EXCLUDED.consent_message,
			requested_by_staff = EXCLUDED.requested_by_staff,
			consented_at = NULL,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		 RETURNING id, created_at, updated_at`,
		c.RequestID,
		string(c.Status),
		string(c.Method),
		c.Token,
		c.Message,
		c.RequestedByStaff,
		c.ExpiresAt,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return parentconsent.ParentConsent{}, err
	}
	return c, nil
}

func (r *ConsentRepository) Update(ctx context.Context, c parentconsent.ParentConsent) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(
		ctx,
		`UPDATE parent_consents
		 SET consent_status = $1, consented_at = $2, updated_at = now()
		 WHERE id = $3`,
		string(c.Status), c.ConsentedAt, c.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return parentconsent.ErrNotFound
	}
	return nil
}

func (r *ConsentRepository) DeclineOverdue(ctx context.Context, id uint, now time.Time) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(
		ctx,
		`UPDATE parent_consents
		 SET consent_status = 'declined', consented_at = $2, updated_at = now()
		 WHERE id = $1 AND consent_status = 'pending' AND expires_at < $2`,
		id, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ConsentRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]parentconsent.ParentConsent, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(
		ctx,
		selectParentConsent+` WHERE consent_status = 'pending' AND expires_at < $1 ORDER BY expires_at LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []parentconsent.ParentConsent
	for rows.Next() {
		var row models.ParentConsent
		if err := scanParentConsent(rows.Scan, &row); err != nil {
			return nil, err
		}
		results = append(results, toDomainParentConsent(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ConsentRepository) queryOne(ctx context.Context, query string, args ...interface{}) (parentconsent.ParentConsent, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return parentconsent.ParentConsent{}, err
	}

	var row models.ParentConsent
	if err := scanParentConsent(tx.QueryRow(ctx, query, args...).Scan, &row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return parentconsent.ParentConsent{}, parentconsent.ErrNotFound
		}
		return parentconsent.ParentConsent{}, err
	}
	return toDomainParentConsent(&row), nil
}

func scanParentConsent(scan func(dest ...any) error, row *models.ParentConsent) error {
	return scan(
		&row.ID,
		&row.RequestID,
		&row.ConsentStatus,
		&row.ConsentMethod,
		&row.ConsentToken,
		&row.ConsentMessage,
		&row.RequestedByStaff,
		&row.ConsentedAt,
		&row.ExpiresAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
}

func toDomainParentConsent(row *models.ParentConsent) parentconsent.ParentConsent {
	return parentconsent.ParentConsent{
		ID:               row.ID,
		RequestID:        row.RequestID,
		Status:           parentconsent.ConsentStatus(row.ConsentStatus),
		Method:           parentconsent.Method(row.ConsentMethod),
		Token:            row.ConsentToken,
		Message:          row.ConsentMessage,
		RequestedByStaff: row.RequestedByStaff,
		ConsentedAt:      row.ConsentedAt,
		ExpiresAt:        row.ExpiresAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
