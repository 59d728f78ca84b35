package pspwebhooks

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore persists received webhooks in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *Received) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhooks_received (id, provider, event_type, provider_payment_id, payload, processed, received_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)`,
		r.ID, r.Provider, r.EventType, r.ProviderPaymentID, []byte(r.Payload), r.Processed, r.ReceivedAt,
	)
	return err
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE webhooks_received SET processed = TRUE, processed_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Received, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provider, COALESCE(event_type, ''), COALESCE(provider_payment_id, ''),
		       payload, processed, processed_at, received_at
		FROM webhooks_received WHERE id = $1`, id)
	return scanReceived(row)
}

func (s *PostgresStore) ListByProvider(ctx context.Context, provider string, limit int) ([]*Received, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, COALESCE(event_type, ''), COALESCE(provider_payment_id, ''),
		       payload, processed, processed_at, received_at
		FROM webhooks_received
		WHERE provider = $1
		ORDER BY received_at DESC
		LIMIT $2`, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Received
	for rows.Next() {
		r, err := scanReceived(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceived(row rowScanner) (*Received, error) {
	var r Received
	var payload []byte
	var processedAt sql.NullTime
	err := row.Scan(&r.ID, &r.Provider, &r.EventType, &r.ProviderPaymentID,
		&payload, &r.Processed, &processedAt, &r.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Payload = payload
	if processedAt.Valid {
		r.ProcessedAt = &processedAt.Time
	}
	return &r, nil
}
