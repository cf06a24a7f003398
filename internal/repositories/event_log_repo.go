package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

type PostgresEventLogRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogRepository(pool *pgxpool.Pool) *PostgresEventLogRepository {
	return &PostgresEventLogRepository{pool: pool}
}

// Append assigns the next per-account sequence number and inserts the event
// in a single statement. The counter row outlives trims, so positions are
// never reused even after old entries are deleted.
func (r *PostgresEventLogRepository) Append(ctx context.Context, event *models.Event) error {
	query := `WITH next AS (
	              INSERT INTO event_positions (account_id, seq)
	              VALUES ($1, 1)
	              ON CONFLICT (account_id) DO UPDATE SET seq = event_positions.seq + 1
	              RETURNING seq
	          )
	          INSERT INTO events (account_id, seq, event_type, entity_id, entity_path, snapshot, patch)
	          SELECT $1, next.seq, $2, $3, $4, $5, $6 FROM next
	          RETURNING id, seq, created_at`

	var seq int64
	err := r.pool.QueryRow(ctx, query,
		event.AccountID,
		event.Type,
		event.EntityID,
		event.EntityPath,
		event.Snapshot,
		event.Patch,
	).Scan(&event.ID, &seq, &event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	event.Position = models.FormatPosition(seq)
	return nil
}

// ReadFrom returns up to limit events with position strictly greater than
// afterPosition, in position order. A position older than what retention
// kept is not an error: the range read simply starts at the oldest retained
// entry.
func (r *PostgresEventLogRepository) ReadFrom(ctx context.Context, accountID uuid.UUID, afterPosition string, limit int) ([]*models.Event, error) {
	afterSeq, err := models.ParsePosition(afterPosition)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, account_id, seq, event_type, entity_id, entity_path, snapshot, patch, created_at
	          FROM events
	          WHERE account_id = $1 AND seq > $2
	          ORDER BY seq ASC
	          LIMIT $3`

	rows, err := r.pool.Query(ctx, query, accountID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var event models.Event
		var seq int64
		err := rows.Scan(
			&event.ID,
			&event.AccountID,
			&seq,
			&event.Type,
			&event.EntityID,
			&event.EntityPath,
			&event.Snapshot,
			&event.Patch,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Position = models.FormatPosition(seq)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// Trim deletes everything but the newest keep entries for the account.
// Sequence numbers are contiguous per account, so the cutoff is max - keep.
func (r *PostgresEventLogRepository) Trim(ctx context.Context, accountID uuid.UUID, keep int) error {
	query := `DELETE FROM events
	          WHERE account_id = $1
	            AND seq <= (SELECT COALESCE(MAX(seq), 0) - $2 FROM events WHERE account_id = $1)`

	_, err := r.pool.Exec(ctx, query, accountID, keep)
	if err != nil {
		return fmt.Errorf("failed to trim events: %w", err)
	}
	return nil
}
