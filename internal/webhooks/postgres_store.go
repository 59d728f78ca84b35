package webhooks

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore persists deliveries in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const deliveryColumns = `id, merchant_id, COALESCE(payment_id, ''), event_type, payload,
	status, attempts, COALESCE(last_error, ''), next_retry_at, delivered_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, d *Delivery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries
			(id, merchant_id, payment_id, event_type, payload, status, attempts, next_retry_at, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`,
		d.ID, d.MerchantID, d.PaymentID, d.EventType, []byte(d.Payload),
		string(d.Status), d.Attempts, d.NextRetryAt, d.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Delivery, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM webhook_deliveries WHERE id = $1`, id)
	return scanDelivery(row)
}

func (s *PostgresStore) Update(ctx context.Context, d *Delivery) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE webhook_deliveries
		SET status = $2, attempts = $3, last_error = NULLIF($4, ''),
		    next_retry_at = $5, delivered_at = $6
		WHERE id = $1`,
		d.ID, string(d.Status), d.Attempts, d.LastError, d.NextRetryAt, d.DeliveredAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*Delivery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deliveryColumns+`
		FROM webhook_deliveries
		WHERE status IN ('pending', 'failed')
		  AND attempts < $2
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
		ORDER BY created_at
		LIMIT $3`, now, MaxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeliveries(rows)
}

func (s *PostgresStore) ListByMerchant(ctx context.Context, merchantID string, limit int) ([]*Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deliveryColumns+`
		FROM webhook_deliveries
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, merchantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeliveries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*Delivery, error) {
	var d Delivery
	var payload []byte
	var status string
	var nextRetryAt, deliveredAt sql.NullTime
	err := row.Scan(&d.ID, &d.MerchantID, &d.PaymentID, &d.EventType, &payload,
		&status, &d.Attempts, &d.LastError, &nextRetryAt, &deliveredAt, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Payload = payload
	d.Status = Status(status)
	if nextRetryAt.Valid {
		d.NextRetryAt = &nextRetryAt.Time
	}
	if deliveredAt.Valid {
		d.DeliveredAt = &deliveredAt.Time
	}
	return &d, nil
}

func collectDeliveries(rows *sql.Rows) ([]*Delivery, error) {
	var out []*Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
