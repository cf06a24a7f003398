package services

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prudhvinik1/eventrelay/internal/metrics"
	"github.com/prudhvinik1/eventrelay/internal/models"
	"github.com/prudhvinik1/eventrelay/internal/repositories"
)

// trimCheckEvery controls how often the retention cutoff is enforced.
// Retention is approximate, so checking on every append would be wasted work.
const trimCheckEvery = 100

// Broadcaster is the live-delivery side of publishing. Implementations must
// never block the caller; delivery is best effort and replay is the backstop.
type Broadcaster interface {
	Broadcast(accountID uuid.UUID, event models.Event)
}

// Publisher is the single entry point the record-mutation layer uses to emit
// an event: durable append first, then an attempted in-process fan-out.
type Publisher struct {
	eventLog repositories.EventLogRepository
	hub      Broadcaster
	maxLen   int
	metrics  *metrics.Metrics

	appends atomic.Int64
}

func NewPublisher(eventLog repositories.EventLogRepository, hub Broadcaster, maxLen int, m *metrics.Metrics) *Publisher {
	return &Publisher{
		eventLog: eventLog,
		hub:      hub,
		maxLen:   maxLen,
		metrics:  m,
	}
}

// Publish appends the event and pushes it to currently connected devices.
// The append is the durability boundary: its failure is the caller's failure.
// Anything after it must not fail the publish; devices that miss the live
// push catch up via replay.
func (p *Publisher) Publish(ctx context.Context, accountID uuid.UUID, event models.Event) (string, error) {
	event.AccountID = accountID

	if err := p.eventLog.Append(ctx, &event); err != nil {
		return "", err
	}
	if p.metrics != nil {
		p.metrics.EventsPublished.Inc()
	}

	if p.hub != nil {
		p.hub.Broadcast(accountID, event)
	}

	if p.appends.Add(1)%trimCheckEvery == 0 {
		if err := p.eventLog.Trim(ctx, accountID, p.maxLen); err != nil {
			log.Printf("failed to trim event log for account %s: %v", accountID, err)
		}
	}

	return event.Position, nil
}
