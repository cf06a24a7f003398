package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

type PostgresCleanupRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCleanupRepository(pool *pgxpool.Pool) *PostgresCleanupRepository {
	return &PostgresCleanupRepository{pool: pool}
}

func (r *PostgresCleanupRepository) Create(ctx context.Context, rec *models.PendingCleanup) error {
	query := `INSERT INTO pending_cleanups (account_id, device_id, entity_id, entity_path)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (account_id, entity_id) WHERE acked_at IS NULL DO NOTHING
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		rec.AccountID,
		rec.DeviceID,
		rec.EntityID,
		rec.EntityPath,
	).Scan(&rec.ID, &rec.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// A cleanup for this entity is already pending; nothing to add.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create pending cleanup: %w", err)
	}
	return nil
}

func (r *PostgresCleanupRepository) ListPending(ctx context.Context, accountID uuid.UUID) ([]*models.PendingCleanup, error) {
	query := `SELECT id, account_id, device_id, entity_id, entity_path, created_at, acked_at
	          FROM pending_cleanups
	          WHERE account_id = $1 AND acked_at IS NULL
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending cleanups: %w", err)
	}
	defer rows.Close()

	var recs []*models.PendingCleanup
	for rows.Next() {
		var rec models.PendingCleanup
		err := rows.Scan(
			&rec.ID,
			&rec.AccountID,
			&rec.DeviceID,
			&rec.EntityID,
			&rec.EntityPath,
			&rec.CreatedAt,
			&rec.AckedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending cleanup: %w", err)
		}
		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending cleanups: %w", err)
	}

	return recs, nil
}

// Acknowledge marks every open record for the entity as done. Acking an
// unknown or already-acked entity is a no-op, so duplicate and restarted
// acknowledgements are safe.
func (r *PostgresCleanupRepository) Acknowledge(ctx context.Context, accountID uuid.UUID, entityID string) error {
	query := `UPDATE pending_cleanups
	          SET acked_at = NOW()
	          WHERE account_id = $1 AND entity_id = $2 AND acked_at IS NULL`

	_, err := r.pool.Exec(ctx, query, accountID, entityID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge cleanup: %w", err)
	}
	return nil
}
