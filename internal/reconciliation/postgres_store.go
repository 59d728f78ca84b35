package reconciliation

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresStore persists reconciliation reports in Postgres. Mismatches
// are stored as a JSONB column; they are read as a unit, never queried
// row by row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *Report) error {
	mismatches, err := json.Marshal(r.Mismatches)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_reports (id, report_date, generated_at, total, matched, mismatched, mismatches)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Date, r.GeneratedAt, r.Total, r.Matched, r.Mismatched, mismatches,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_date, generated_at, total, matched, mismatched, mismatches
		FROM reconciliation_reports WHERE id = $1`, id)
	return scanReport(row)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_date, generated_at, total, matched, mismatched, mismatches
		FROM reconciliation_reports
		ORDER BY generated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
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

func scanReport(row rowScanner) (*Report, error) {
	var r Report
	var mismatches []byte
	err := row.Scan(&r.ID, &r.Date, &r.GeneratedAt, &r.Total, &r.Matched, &r.Mismatched, &mismatches)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(mismatches, &r.Mismatches); err != nil {
		return nil, err
	}
	return &r, nil
}
