package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

const (
	// sendBufferSize bounds how far a live connection may lag before the
	// hub gives up on it and lets replay take over.
	sendBufferSize = 256

	handshakeTimeout = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

// Conn is one authenticated device connection. The write loop owns the
// socket's write side: replay first, then live events from the buffered
// channel. The read loop owns the read side and processes acks.
type Conn struct {
	hub       *Hub
	ws        *websocket.Conn
	accountID uuid.UUID
	deviceID  uuid.UUID

	send   chan models.Event
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	writeTimeout time.Duration

	// write sends one event frame. Tests substitute it to drive run
	// without a socket.
	write func(models.Event) error
}

func newConn(h *Hub, ws *websocket.Conn, accountID, deviceID uuid.UUID, writeTimeout time.Duration) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		hub:          h,
		ws:           ws,
		accountID:    accountID,
		deviceID:     deviceID,
		send:         make(chan models.Event, sendBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
	}
	c.write = c.writeEvent
	return c
}

// Deliver queues a live event without blocking. A closed connection reports
// success; its teardown is already in flight and replay covers the event.
func (c *Conn) Deliver(event models.Event) bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// Drop forcibly closes the connection. Both loops notice the canceled
// context and exit; the handler's cleanup path unregisters the connection.
func (c *Conn) Drop() {
	c.close()
}

func (c *Conn) close() {
	c.once.Do(func() {
		c.cancel()
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// writeEvent sends one event frame under the configured write deadline. A
// stalled transport surfaces as a write error here rather than blocking
// fan-out to sibling connections.
func (c *Conn) writeEvent(event models.Event) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(event)
}

// run replays backlog from start, flushes pending cleanup retries, then
// serves live events until the connection dies.
func (c *Conn) run(h *Handler, start string) {
	defer c.close()

	last, err := replayBacklog(c.ctx, h.eventLog, c.accountID, start, h.replayBatchSize, func(event models.Event) error {
		if err := c.write(event); err != nil {
			return err
		}
		if h.metrics != nil {
			h.metrics.EventsReplayed.Inc()
		}
		return nil
	})
	if err != nil {
		log.Printf("replay ended early for device %s: %v", c.deviceID, err)
		return
	}

	// Re-push side effects the device never confirmed. These carry no
	// position; completion is reported through the cleanup ack, not the
	// cursor.
	pending, err := h.cleanups.ListPending(c.ctx, c.accountID)
	if err != nil {
		log.Printf("failed to list pending cleanups for account %s: %v", c.accountID, err)
		return
	}
	for _, rec := range pending {
		entityID := rec.EntityID
		retry := models.Event{
			Type:       models.EventCleanupRequested,
			EntityID:   &entityID,
			EntityPath: rec.EntityPath,
			CreatedAt:  rec.CreatedAt,
		}
		if err := c.write(retry); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case event := <-c.send:
			// Events queued while replay was still running were
			// also read from the log; skip anything already sent.
			if event.Position != "" && models.ComparePositions(event.Position, last) <= 0 {
				continue
			}
			if err := c.write(event); err != nil {
				return
			}
			last = event.Position
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
