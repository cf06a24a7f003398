package hub

import (
	"context"

	"github.com/google/uuid"
	"github.com/prudhvinik1/eventrelay/internal/models"
	"github.com/prudhvinik1/eventrelay/internal/repositories"
)

// startPosition decides where replay begins for a reconnecting device. The
// stored cursor is authoritative; the client hint is clamped so a corrupted
// local cache claiming a too-high position can never skip real backlog. The
// bool reports such a suspicious hint. A hint below the cursor is subsumed:
// redelivery is safe because client application is idempotent.
func startPosition(stored, hint string) (string, bool) {
	if models.ComparePositions(hint, stored) > 0 {
		return stored, true
	}
	return stored, false
}

// replayBacklog reads the account's log in bounded batches after start,
// pushing each event in order. It stops at the end of the backlog (a batch
// shorter than batchSize) or when push fails or the context is canceled, and
// returns the last position pushed. A start older than what retention kept
// is not an error; the read simply begins at the oldest retained entry.
func replayBacklog(
	ctx context.Context,
	eventLog repositories.EventLogRepository,
	accountID uuid.UUID,
	start string,
	batchSize int,
	push func(models.Event) error,
) (string, error) {
	position := start
	for {
		if err := ctx.Err(); err != nil {
			return position, err
		}

		events, err := eventLog.ReadFrom(ctx, accountID, position, batchSize)
		if err != nil {
			return position, err
		}

		for _, event := range events {
			if err := push(*event); err != nil {
				return position, err
			}
			position = event.Position
		}

		if len(events) < batchSize {
			return position, nil
		}
	}
}
