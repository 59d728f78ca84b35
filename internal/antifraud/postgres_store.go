package antifraud

import (
	"context"
	"database/sql"
)

// PostgresBlacklist persists blacklists in PostgreSQL.
type PostgresBlacklist struct {
	db *sql.DB
}

// NewPostgresBlacklist creates a PostgreSQL-backed blacklist store.
func NewPostgresBlacklist(db *sql.DB) *PostgresBlacklist {
	return &PostgresBlacklist{db: db}
}

func (p *PostgresBlacklist) IsCPFBlacklisted(ctx context.Context, cpf string) (bool, error) {
	return p.exists(ctx, "cpf", cpf)
}

func (p *PostgresBlacklist) IsBINBlacklisted(ctx context.Context, bin string) (bool, error) {
	return p.exists(ctx, "bin", bin)
}

func (p *PostgresBlacklist) AddCPF(ctx context.Context, cpf, reason string) error {
	return p.add(ctx, "cpf", cpf, reason)
}

func (p *PostgresBlacklist) AddBIN(ctx context.Context, bin, reason string) error {
	return p.add(ctx, "bin", bin, reason)
}

func (p *PostgresBlacklist) RemoveCPF(ctx context.Context, cpf string) error {
	return p.remove(ctx, "cpf", cpf)
}

func (p *PostgresBlacklist) RemoveBIN(ctx context.Context, bin string) error {
	return p.remove(ctx, "bin", bin)
}

func (p *PostgresBlacklist) exists(ctx context.Context, kind, value string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `
		SELECT 1 FROM antifraud_blacklist WHERE kind = $1 AND value = $2
	`, kind, value).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *PostgresBlacklist) add(ctx context.Context, kind, value, reason string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO antifraud_blacklist (kind, value, reason, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (kind, value) DO UPDATE SET reason = EXCLUDED.reason
	`, kind, value, reason)
	return err
}

func (p *PostgresBlacklist) remove(ctx context.Context, kind, value string) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM antifraud_blacklist WHERE kind = $1 AND value = $2
	`, kind, value)
	return err
}
