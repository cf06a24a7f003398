package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

// Transport is the reconciler's view of the server connection. Tests swap in
// a fake; production uses the websocket implementation below.
type Transport interface {
	Receive() (models.Event, error)
	Ack(position string) error
	AckCleanup(entityID string) error
	Close() error
}

const wsWriteTimeout = 10 * time.Second

// WSTransport speaks the hub's wire protocol over a websocket.
type WSTransport struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writes (acks race with pings)
}

// Dial opens the connection and sends the handshake frame.
func Dial(ctx context.Context, url string, handshake models.Handshake) (*WSTransport, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	t := &WSTransport{ws: ws}
	if err := t.writeJSON(handshake); err != nil {
		ws.Close()
		return nil, fmt.Errorf("failed to send handshake: %w", err)
	}
	return t, nil
}

func (t *WSTransport) Receive() (models.Event, error) {
	var event models.Event
	err := t.ws.ReadJSON(&event)
	return event, err
}

func (t *WSTransport) Ack(position string) error {
	return t.writeJSON(models.ClientMessage{Type: models.MessageAck, Position: position})
}

func (t *WSTransport) AckCleanup(entityID string) error {
	return t.writeJSON(models.ClientMessage{Type: models.MessageCleanupAck, EntityID: entityID})
}

func (t *WSTransport) Close() error {
	return t.ws.Close()
}

func (t *WSTransport) writeJSON(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return t.ws.WriteJSON(v)
}
