package merchants

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore persists merchants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed merchant store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateMerchant(ctx context.Context, m *Merchant) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO merchants (id, name, document, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.Name, m.Document, m.Active, m.CreatedAt)
	return err
}

func (p *PostgresStore) GetMerchant(ctx context.Context, id string) (*Merchant, error) {
	m := &Merchant{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, document, active, created_at FROM merchants WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Document, &m.Active, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (p *PostgresStore) CreateAPIKey(ctx context.Context, k *APIKey) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, merchant_id, key_id, secret_enc, active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, k.ID, k.MerchantID, k.KeyID, k.SecretEnc, k.Active, k.ExpiresAt, k.CreatedAt)
	return err
}

func (p *PostgresStore) GetAPIKeyByKeyID(ctx context.Context, keyID string) (*APIKey, error) {
	k := &APIKey{}
	var expiresAt, lastUsedAt sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, merchant_id, key_id, secret_enc, active, expires_at, last_used_at, created_at
		FROM api_keys WHERE key_id = $1
	`, keyID).Scan(&k.ID, &k.MerchantID, &k.KeyID, &k.SecretEnc, &k.Active, &expiresAt, &lastUsedAt, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		k.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		k.LastUsedAt = &lastUsedAt.Time
	}
	return k, nil
}

func (p *PostgresStore) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = $1 WHERE id = $2
	`, usedAt, id)
	return err
}

func (p *PostgresStore) CreateEndpoint(ctx context.Context, e *Endpoint) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO webhook_endpoints (id, merchant_id, url, secret_enc, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.MerchantID, e.URL, e.SecretEnc, e.Active, e.CreatedAt)
	return err
}

func (p *PostgresStore) GetActiveEndpoint(ctx context.Context, merchantID string) (*Endpoint, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, merchant_id, url, secret_enc, active, last_success_at, created_at
		FROM webhook_endpoints
		WHERE merchant_id = $1 AND active = TRUE
		ORDER BY created_at DESC LIMIT 1
	`, merchantID)
	e, err := scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoActiveEndpoint
	}
	return e, err
}

func (p *PostgresStore) ListEndpoints(ctx context.Context, merchantID string) ([]*Endpoint, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, merchant_id, url, secret_enc, active, last_success_at, created_at
		FROM webhook_endpoints WHERE merchant_id = $1 ORDER BY created_at DESC
	`, merchantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (p *PostgresStore) UpdateEndpoint(ctx context.Context, e *Endpoint) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE webhook_endpoints SET url = $1, active = $2, last_success_at = $3 WHERE id = $4
	`, e.URL, e.Active, e.LastSuccessAt, e.ID)
	return err
}

func (p *PostgresStore) DeleteEndpoint(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM webhook_endpoints WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEndpoint(row rowScanner) (*Endpoint, error) {
	e := &Endpoint{}
	var lastSuccess sql.NullTime
	if err := row.Scan(&e.ID, &e.MerchantID, &e.URL, &e.SecretEnc, &e.Active, &lastSuccess, &e.CreatedAt); err != nil {
		return nil, err
	}
	if lastSuccess.Valid {
		e.LastSuccessAt = &lastSuccess.Time
	}
	return e, nil
}
