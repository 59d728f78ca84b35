package audit

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

// PostgresLogger writes audit entries to PostgreSQL.
type PostgresLogger struct {
	db *sql.DB
}

// NewPostgresLogger creates an audit logger backed by PostgreSQL.
func NewPostgresLogger(db *sql.DB) *PostgresLogger {
	return &PostgresLogger{db: db}
}

func (l *PostgresLogger) Log(ctx context.Context, entry *Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_type, actor_id, action, resource, resource_id, change, ip_address, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::JSONB, $7, $8, NOW())
	`, entry.ActorType, entry.ActorID, entry.Action, entry.Resource, entry.ResourceID,
		nullableJSON(entry.Change), entry.IPAddress, entry.RequestID)
	return err
}

func (l *PostgresLogger) Query(ctx context.Context, resource, resourceID string, from, to time.Time, action string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	if to.IsZero() {
		to = time.Now()
	}

	query := `SELECT id, actor_type, COALESCE(actor_id, ''), action, resource,
		COALESCE(resource_id, ''), COALESCE(change::TEXT, '{}'),
		COALESCE(ip_address, ''), COALESCE(request_id, ''), created_at
		FROM audit_log
		WHERE resource = $1 AND created_at >= $2 AND created_at <= $3`
	args := []interface{}{resource, from, to}

	if resourceID != "" {
		args = append(args, resourceID)
		query += ` AND resource_id = $4`
	}
	if action != "" {
		args = append(args, action)
		query += ` AND action = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.ActorType, &e.ActorID, &e.Action, &e.Resource,
			&e.ResourceID, &e.Change, &e.IPAddress, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullableJSON(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
