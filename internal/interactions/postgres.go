package interactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitplan/internal/domain"
)

// PostgresStore appends records to the ai_interactions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, record domain.InteractionRecord) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx,
		`INSERT INTO ai_interactions (user_id, message, response, message_type, response_time_ms, created_at)
         VALUES ($1,$2,$3,$4,$5,$6)`,
		record.UserID,
		record.Input,
		record.Output,
		record.Category,
		record.LatencyMS,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// ListByUser returns up to limit records for a user, most recent first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.InteractionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, message, response, message_type, response_time_ms, created_at
         FROM ai_interactions WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InteractionRecord
	for rows.Next() {
		var rec domain.InteractionRecord
		if err := rows.Scan(&rec.UserID, &rec.Input, &rec.Output, &rec.Category, &rec.LatencyMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
