package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/eventrelay/internal/metrics"
	"github.com/prudhvinik1/eventrelay/internal/models"
	"github.com/prudhvinik1/eventrelay/internal/repositories"
	"github.com/prudhvinik1/eventrelay/internal/services"
)

// Handler upgrades device connections and walks each one through the
// authenticating → joined → replaying → live lifecycle.
type Handler struct {
	hub       *Hub
	auth      *services.AuthService
	publisher *services.Publisher
	eventLog  repositories.EventLogRepository
	cursors   repositories.CursorRepository
	presence  repositories.PresenceRepository
	cleanups  repositories.CleanupRepository
	metrics   *metrics.Metrics

	replayBatchSize int
	writeTimeout    time.Duration

	upgrader websocket.Upgrader
}

func NewHandler(
	h *Hub,
	auth *services.AuthService,
	publisher *services.Publisher,
	eventLog repositories.EventLogRepository,
	cursors repositories.CursorRepository,
	presence repositories.PresenceRepository,
	cleanups repositories.CleanupRepository,
	m *metrics.Metrics,
	replayBatchSize int,
	writeTimeout time.Duration,
) *Handler {
	return &Handler{
		hub:             h,
		auth:            auth,
		publisher:       publisher,
		eventLog:        eventLog,
		cursors:         cursors,
		presence:        presence,
		cleanups:        cleanups,
		metrics:         m,
		replayBatchSize: replayBatchSize,
		writeTimeout:    writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeWS handles GET /ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection: %v", err)
		return
	}

	accountID, deviceID, hint, err := h.authenticate(ws)
	if err != nil {
		// Refused connections leave no retry state behind; the device
		// must reauthenticate.
		ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "reauthenticate"),
			time.Now().Add(time.Second),
		)
		ws.Close()
		return
	}

	conn := newConn(h.hub, ws, accountID, deviceID, h.writeTimeout)

	// Join before replay so events appended mid-replay land in the send
	// buffer instead of falling between replay and live mode.
	h.hub.Register(accountID, conn)
	h.refreshPresence(conn.ctx, accountID, deviceID)

	start := h.startFor(conn.ctx, accountID, deviceID, hint)

	go conn.run(h, start)
	h.readLoop(conn)

	h.hub.Unregister(accountID, conn)
	conn.close()

	// The connection context is gone by now; presence cleanup gets its own.
	if err := h.presence.Delete(context.Background(), deviceID); err != nil {
		log.Printf("failed to clear presence for device %s: %v", deviceID, err)
	}
}

func (h *Handler) authenticate(ws *websocket.Conn) (accountID, deviceID uuid.UUID, hint string, err error) {
	ws.SetReadDeadline(time.Now().Add(handshakeTimeout))

	var handshake models.Handshake
	if err = ws.ReadJSON(&handshake); err != nil {
		return
	}
	if handshake.Token == "" || handshake.DeviceID == "" {
		err = services.ErrInvalidToken
		return
	}

	claims, err := h.auth.VerifyToken(handshake.Token)
	if err != nil {
		return
	}
	deviceID, err = uuid.Parse(handshake.DeviceID)
	if err != nil {
		err = services.ErrInvalidToken
		return
	}
	if claims.DeviceID != deviceID {
		err = services.ErrInvalidToken
		return
	}

	return claims.AccountID, deviceID, handshake.LastSeenPosition, nil
}

// startFor computes the replay start from the durable cursor and the client
// hint.
func (h *Handler) startFor(ctx context.Context, accountID, deviceID uuid.UUID, hint string) string {
	stored, err := h.cursors.Get(ctx, accountID, deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		stored = models.PositionStart
	} else if err != nil {
		// With the cursor store unreachable, replay everything; the
		// client applies idempotently.
		log.Printf("failed to read cursor for device %s: %v", deviceID, err)
		stored = models.PositionStart
	}

	start, ahead := startPosition(stored, hint)
	if ahead {
		log.Printf("device %s sent position hint ahead of stored cursor; clamping", deviceID)
	}
	return start
}

// readLoop processes client frames until the connection dies.
func (h *Handler) readLoop(c *Conn) {
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("unreadable frame from device %s: %v", c.deviceID, err)
			continue
		}

		switch msg.Type {
		case models.MessageAck:
			h.handleAck(c, msg.Position)
		case models.MessageCleanupAck:
			h.handleCleanupAck(c, msg.EntityID)
		default:
			log.Printf("unknown message type %q from device %s", msg.Type, c.deviceID)
		}
	}
}

// handleAck advances the device cursor. Stale or duplicate positions are
// ignored, not errors.
func (h *Handler) handleAck(c *Conn, position string) {
	if position == "" {
		return
	}
	advanced, err := h.cursors.Advance(c.ctx, c.accountID, c.deviceID, position)
	if err != nil {
		log.Printf("failed to advance cursor for device %s: %v", c.deviceID, err)
		return
	}
	if advanced {
		h.refreshPresence(c.ctx, c.accountID, c.deviceID)
	}
}

// handleCleanupAck closes the pending reconciliation record and tells the
// account's other devices the side effect is done.
func (h *Handler) handleCleanupAck(c *Conn, entityID string) {
	if entityID == "" {
		return
	}
	if err := h.cleanups.Acknowledge(c.ctx, c.accountID, entityID); err != nil {
		log.Printf("failed to acknowledge cleanup for entity %s: %v", entityID, err)
		return
	}

	acked := models.Event{
		Type:     models.EventCleanupAcknowledged,
		EntityID: &entityID,
	}
	if _, err := h.publisher.Publish(c.ctx, c.accountID, acked); err != nil {
		log.Printf("failed to publish cleanup ack for entity %s: %v", entityID, err)
	}
}

func (h *Handler) refreshPresence(ctx context.Context, accountID, deviceID uuid.UUID) {
	presence := models.Presence{AccountID: accountID, DeviceID: deviceID}
	if err := h.presence.Refresh(ctx, &presence); err != nil {
		log.Printf("failed to refresh presence for device %s: %v", deviceID, err)
	}
}
