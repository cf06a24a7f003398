package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/eventrelay/internal/models"
)

// memEventLog is an in-memory log keyed by account, ordered by append.
type memEventLog struct {
	logs map[uuid.UUID][]models.Event
	seqs map[uuid.UUID]int64
}

func newMemEventLog() *memEventLog {
	return &memEventLog{
		logs: make(map[uuid.UUID][]models.Event),
		seqs: make(map[uuid.UUID]int64),
	}
}

func (m *memEventLog) Append(ctx context.Context, event *models.Event) error {
	m.seqs[event.AccountID]++
	event.Position = models.FormatPosition(m.seqs[event.AccountID])
	m.logs[event.AccountID] = append(m.logs[event.AccountID], *event)
	return nil
}

func (m *memEventLog) ReadFrom(ctx context.Context, accountID uuid.UUID, afterPosition string, limit int) ([]*models.Event, error) {
	var out []*models.Event
	for i := range m.logs[accountID] {
		event := m.logs[accountID][i]
		if models.ComparePositions(event.Position, afterPosition) > 0 {
			out = append(out, &event)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memEventLog) Trim(ctx context.Context, accountID uuid.UUID, keep int) error {
	log := m.logs[accountID]
	if len(log) > keep {
		m.logs[accountID] = log[len(log)-keep:]
	}
	return nil
}

func appendEvents(t *testing.T, log *memEventLog, accountID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := log.Append(context.Background(), &models.Event{
			AccountID: accountID,
			Type:      models.EventEntityCreated,
		})
		require.NoError(t, err)
	}
}

func TestStartPosition_ClampsAheadHint(t *testing.T) {
	stored := models.FormatPosition(3)

	// A corrupted local cache claiming a too-high hint must not skip backlog.
	start, ahead := startPosition(stored, models.FormatPosition(9))
	assert.Equal(t, stored, start)
	assert.True(t, ahead)

	// A hint at or below the stored cursor is subsumed by it.
	start, ahead = startPosition(stored, models.FormatPosition(1))
	assert.Equal(t, stored, start)
	assert.False(t, ahead)

	start, ahead = startPosition(stored, models.PositionStart)
	assert.Equal(t, stored, start)
	assert.False(t, ahead)
}

func TestStartPosition_NoStoredCursor(t *testing.T) {
	start, ahead := startPosition(models.PositionStart, models.FormatPosition(5))
	assert.Equal(t, models.PositionStart, start, "a device without a durable cursor replays everything")
	assert.True(t, ahead)
}

func TestReplayBacklog_DeliversInOrderAcrossBatches(t *testing.T) {
	eventLog := newMemEventLog()
	accountID := uuid.New()
	appendEvents(t, eventLog, accountID, 7)

	var pushed []string
	last, err := replayBacklog(context.Background(), eventLog, accountID, models.PositionStart, 3, func(event models.Event) error {
		pushed = append(pushed, event.Position)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, pushed, 7, "no duplicates, no omissions")
	for i := 1; i < len(pushed); i++ {
		assert.Positive(t, models.ComparePositions(pushed[i], pushed[i-1]), "append order preserved")
	}
	assert.Equal(t, pushed[6], last)
}

func TestReplayBacklog_StartsAfterGivenPosition(t *testing.T) {
	eventLog := newMemEventLog()
	accountID := uuid.New()
	appendEvents(t, eventLog, accountID, 4)

	var pushed []string
	_, err := replayBacklog(context.Background(), eventLog, accountID, models.FormatPosition(3), 200, func(event models.Event) error {
		pushed = append(pushed, event.Position)
		return nil
	})

	require.NoError(t, err)
	// Device A acked 3 before disconnecting; on reconnect only event 4 replays.
	require.Len(t, pushed, 1)
	assert.Equal(t, models.FormatPosition(4), pushed[0])
}

func TestReplayBacklog_TrimmedLogIsNotAnError(t *testing.T) {
	eventLog := newMemEventLog()
	accountID := uuid.New()
	appendEvents(t, eventLog, accountID, 60)
	require.NoError(t, eventLog.Trim(context.Background(), accountID, 11))

	// Stored cursor 10 predates retention; replay starts at the oldest
	// retained entry instead of failing.
	var pushed []string
	_, err := replayBacklog(context.Background(), eventLog, accountID, models.FormatPosition(10), 200, func(event models.Event) error {
		pushed = append(pushed, event.Position)
		return nil
	})

	require.NoError(t, err)
	require.NotEmpty(t, pushed)
	assert.Equal(t, models.FormatPosition(50), pushed[0])
	assert.Equal(t, models.FormatPosition(60), pushed[len(pushed)-1])
}

func TestReplayBacklog_StopsWhenContextCanceled(t *testing.T) {
	eventLog := newMemEventLog()
	accountID := uuid.New()
	appendEvents(t, eventLog, accountID, 10)

	ctx, cancel := context.WithCancel(context.Background())

	var pushed int
	_, err := replayBacklog(ctx, eventLog, accountID, models.PositionStart, 2, func(event models.Event) error {
		pushed++
		if pushed == 2 {
			cancel()
		}
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, pushed, "the batch loop stops promptly instead of reading and discarding")
}

func TestReplayBacklog_PushErrorStopsReplay(t *testing.T) {
	eventLog := newMemEventLog()
	accountID := uuid.New()
	appendEvents(t, eventLog, accountID, 5)

	pushErr := errors.New("write timeout")
	last, err := replayBacklog(context.Background(), eventLog, accountID, models.PositionStart, 2, func(event models.Event) error {
		if event.Position == models.FormatPosition(3) {
			return pushErr
		}
		return nil
	})

	require.ErrorIs(t, err, pushErr)
	assert.Equal(t, models.FormatPosition(2), last, "last reported position is the last successfully pushed")
}

func TestReplayBacklog_EmptyLog(t *testing.T) {
	eventLog := newMemEventLog()

	last, err := replayBacklog(context.Background(), eventLog, uuid.New(), models.PositionStart, 200, func(models.Event) error {
		t.Fatal("nothing should be pushed")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, models.PositionStart, last)
}
