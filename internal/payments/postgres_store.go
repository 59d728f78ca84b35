package payments

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore persists payments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed payment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const paymentColumns = `id, merchant_id, provider, COALESCE(provider_payment_id, ''), method, status,
	amount_cents, COALESCE(cpf, ''), COALESCE(card_bin, ''), created_at, updated_at, paid_at`

func (p *PostgresStore) Create(ctx context.Context, pay *Payment) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payments (id, merchant_id, provider, provider_payment_id, method, status, amount_cents, cpf, card_bin, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11)
	`, pay.ID, pay.MerchantID, pay.Provider, pay.ProviderPaymentID, pay.Method, pay.Status,
		pay.AmountCents, pay.CPF, pay.CardBIN, pay.CreatedAt, pay.UpdatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Payment, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (p *PostgresStore) GetByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (*Payment, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE provider = $1 AND provider_payment_id = $2
	`, provider, providerPaymentID)
	return scanPayment(row)
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = $2,
			paid_at = CASE WHEN $1 = 'paid' AND paid_at IS NULL THEN $2 ELSE paid_at END
		WHERE id = $3
	`, status, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// ListByDateRange returns the provider's payments created inside [from, to).
// Payments that never got a provider id are excluded; they have nothing to
// reconcile against.
func (p *PostgresStore) ListByDateRange(ctx context.Context, provider string, from, to time.Time) ([]*Payment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE provider = $1 AND provider_payment_id IS NOT NULL
			AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, provider, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Payment
	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pay)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	pay := &Payment{}
	var paidAt sql.NullTime
	err := row.Scan(&pay.ID, &pay.MerchantID, &pay.Provider, &pay.ProviderPaymentID, &pay.Method,
		&pay.Status, &pay.AmountCents, &pay.CPF, &pay.CardBIN, &pay.CreatedAt, &pay.UpdatedAt, &paidAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		pay.PaidAt = &paidAt.Time
	}
	return pay, nil
}
