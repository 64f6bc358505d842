package interactions

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"example.com/fitplan/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ai_interactions (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id          TEXT NOT NULL,
    message          TEXT NOT NULL,
    response         TEXT NOT NULL,
    message_type     TEXT NOT NULL,
    response_time_ms REAL NOT NULL,
    created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ai_interactions_user ON ai_interactions(user_id, created_at);
`

// sqliteTimeLayout keeps every fraction nine digits wide so created_at sorts
// as text in time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is a single-file interaction log for local development.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open interactions db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate interactions db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, record domain.InteractionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_interactions (user_id, message, response, message_type, response_time_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		record.UserID,
		record.Input,
		record.Output,
		record.Category,
		record.LatencyMS,
		record.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// ListByUser returns up to limit records for a user, most recent first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, message, response, message_type, response_time_ms, created_at
         FROM ai_interactions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InteractionRecord
	for rows.Next() {
		var rec domain.InteractionRecord
		var created string
		if err := rows.Scan(&rec.UserID, &rec.Input, &rec.Output, &rec.Category, &rec.LatencyMS, &created); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
