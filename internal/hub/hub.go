package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prudhvinik1/eventrelay/internal/metrics"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

// Subscriber is one live device connection from the registry's point of
// view. Deliver must not block: it reports false when the subscriber cannot
// take the event right now. Drop forcibly closes the subscriber; its own
// cleanup path unregisters it.
type Subscriber interface {
	Deliver(event models.Event) bool
	Drop()
}

// Hub is the per-account fan-out registry. It is the only synchronization
// point between publishing and connection handling.
type Hub struct {
	mu      sync.RWMutex
	conns   map[uuid.UUID]map[Subscriber]struct{}
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		conns:   make(map[uuid.UUID]map[Subscriber]struct{}),
		metrics: m,
	}
}

func (h *Hub) Register(accountID uuid.UUID, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.conns[accountID]
	if !ok {
		group = make(map[Subscriber]struct{})
		h.conns[accountID] = group
	}
	group[sub] = struct{}{}

	if h.metrics != nil {
		h.metrics.ConnectionsActive.Inc()
	}
}

func (h *Hub) Unregister(accountID uuid.UUID, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.conns[accountID]
	if !ok {
		return
	}
	if _, ok := group[sub]; !ok {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(h.conns, accountID)
	}

	if h.metrics != nil {
		h.metrics.ConnectionsActive.Dec()
	}
}

// Broadcast hands the event to every connection of the account. Fan-out, not
// round-robin: each device gets each event. A subscriber whose buffer is
// full is dropped rather than allowed to stall its siblings; the dropped
// device recovers the event through replay on its next connect.
func (h *Hub) Broadcast(accountID uuid.UUID, event models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.conns[accountID] {
		if sub.Deliver(event) {
			if h.metrics != nil {
				h.metrics.EventsDelivered.Inc()
			}
			continue
		}
		sub.Drop()
		if h.metrics != nil {
			h.metrics.ConnectionsDropped.Inc()
		}
	}
}

// ConnectionCount reports how many connections an account currently has.
func (h *Hub) ConnectionCount(accountID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[accountID])
}
