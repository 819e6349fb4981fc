package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Rhymond/go-money"

	"github.com/veritas-edu/campus-sdk/modules/nysc/domain/payment"
	"github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/persistence/models"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

const selectNyscPayment = `
	SELECT id, student_id, registration_id, session_id, amount_kobo, currency, reference, status,
	       gateway_raw, payment_date, verified_at, notes, created_at, updated_at
	FROM nysc_payments
`

type PaymentRepository struct{}

func NewPaymentRepository() payment.Repository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (payment.Payment, error) {
	return r.queryOne(ctx, selectNyscPayment+" WHERE id = $1", id)
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (payment.Payment, error) {
	return r.queryOne(ctx, selectNyscPayment+" WHERE reference = $1", reference)
}

func (r *PaymentRepository) ListPending(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]payment.Payment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rows, err := tx.Query(
		ctx,
		selectNyscPayment+`
		WHERE status = 'pending' AND payment_date <= $1 AND payment_date >= $2
		ORDER BY payment_date
		LIMIT $3`,
		now.Add(-minAge), now.Add(-maxAge), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []payment.Payment
	for rows.Next() {
		var row models.NyscPayment
		if err := scanNyscPayment(rows.Scan, &row); err != nil {
			return nil, err
		}
		results = append(results, toDomainPayment(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return payment.Payment{}, err
	}

	row := toDBPayment(p)
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO nysc_payments (student_id, registration_id, session_id, amount_kobo, currency, reference, status, gateway_raw, payment_date, verified_at, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		row.StudentID,
		row.RegistrationID,
		row.SessionID,
		row.AmountKobo,
		row.Currency,
		row.Reference,
		row.Status,
		row.GatewayRaw,
		row.PaymentDate,
		row.VerifiedAt,
		row.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return payment.Payment{}, payment.ErrReferenceTaken
		}
		return payment.Payment{}, err
	}
	return p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p payment.Payment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	row := toDBPayment(p)
	tag, err := tx.Exec(
		ctx,
		`UPDATE nysc_payments
		 SET registration_id = $1, status = $2, gateway_raw = $3, verified_at = $4, notes = $5, updated_at = now()
		 WHERE id = $6`,
		row.RegistrationID, row.Status, row.GatewayRaw, row.VerifiedAt, row.Notes, p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) queryOne(ctx context.Context, query string, args ...interface{}) (payment.Payment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return payment.Payment{}, err
	}

	var row models.NyscPayment
	if err := scanNyscPayment(tx.QueryRow(ctx, query, args...).Scan, &row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, err
	}
	return toDomainPayment(&row), nil
}

func scanNyscPayment(scan func(dest ...any) error, row *models.NyscPayment) error {
	return scan(
		&row.ID,
		&row.StudentID,
		&row.RegistrationID,
		&row.SessionID,
		&row.AmountKobo,
		&row.Currency,
		&row.Reference,
		&row.Status,
		&row.GatewayRaw,
		&row.PaymentDate,
		&row.VerifiedAt,
		&row.Notes,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
}

func toDBPayment(p payment.Payment) *models.NyscPayment {
	row := &models.NyscPayment{
		ID:             p.ID,
		StudentID:      p.StudentID,
		RegistrationID: p.RegistrationID,
		SessionID:      p.SessionID,
		Currency:       money.NGN,
		Reference:      p.Reference,
		Status:         string(p.Status),
		GatewayRaw:     p.GatewayRaw,
		PaymentDate:    p.PaymentDate,
		VerifiedAt:     p.VerifiedAt,
		Notes:          p.Notes,
	}
	if p.Amount != nil {
		row.AmountKobo = p.Amount.Amount()
		row.Currency = p.Amount.Currency().Code
	}
	return row
}

func toDomainPayment(row *models.NyscPayment) payment.Payment {
	return payment.Payment{
		ID:             row.ID,
		StudentID:      row.StudentID,
		RegistrationID: row.RegistrationID,
		SessionID:      row.SessionID,
		Amount:         money.New(row.AmountKobo, row.Currency),
		Reference:      row.Reference,
		Status:         payment.Status(row.Status),
		GatewayRaw:     json.RawMessage(row.GatewayRaw),
		PaymentDate:    row.PaymentDate,
		VerifiedAt:     row.VerifiedAt,
		Notes:          row.Notes,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
