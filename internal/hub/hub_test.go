package hub

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/eventrelay/internal/models"
)

// fakeSubscriber stands in for a device connection.
type fakeSubscriber struct {
	received []models.Event
	full     bool
	dropped  bool
}

func (f *fakeSubscriber) Deliver(event models.Event) bool {
	if f.full {
		return false
	}
	f.received = append(f.received, event)
	return true
}

func (f *fakeSubscriber) Drop() {
	f.dropped = true
}

func TestHub_BroadcastFansOutToAllDevices(t *testing.T) {
	h := NewHub(nil)
	accountID := uuid.New()
	otherAccount := uuid.New()

	deviceA := &fakeSubscriber{}
	deviceB := &fakeSubscriber{}
	stranger := &fakeSubscriber{}
	h.Register(accountID, deviceA)
	h.Register(accountID, deviceB)
	h.Register(otherAccount, stranger)

	event := models.Event{Position: models.FormatPosition(1), Type: models.EventEntityCreated}
	h.Broadcast(accountID, event)

	// Every device of the account gets every event; other accounts get nothing.
	require.Len(t, deviceA.received, 1)
	require.Len(t, deviceB.received, 1)
	assert.Empty(t, stranger.received)
}

func TestHub_SlowSubscriberIsDroppedNotSkipped(t *testing.T) {
	h := NewHub(nil)
	accountID := uuid.New()

	slow := &fakeSubscriber{full: true}
	healthy := &fakeSubscriber{}
	h.Register(accountID, slow)
	h.Register(accountID, healthy)

	h.Broadcast(accountID, models.Event{Position: models.FormatPosition(1)})

	assert.True(t, slow.dropped, "a full buffer drops the connection, replay recovers the event")
	require.Len(t, healthy.received, 1, "siblings are unaffected by a slow device")
}

func TestHub_BroadcastToAccountWithNoConnections(t *testing.T) {
	h := NewHub(nil)

	// Must not panic or block; the event lives in the log.
	h.Broadcast(uuid.New(), models.Event{Position: models.FormatPosition(1)})
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	accountID := uuid.New()
	device := &fakeSubscriber{}

	h.Register(accountID, device)
	require.Equal(t, 1, h.ConnectionCount(accountID))

	h.Unregister(accountID, device)
	assert.Equal(t, 0, h.ConnectionCount(accountID))

	h.Broadcast(accountID, models.Event{Position: models.FormatPosition(1)})
	assert.Empty(t, device.received)
}

func TestHub_UnregisterUnknownSubscriberIsNoop(t *testing.T) {
	h := NewHub(nil)
	accountID := uuid.New()

	h.Unregister(accountID, &fakeSubscriber{})
	assert.Equal(t, 0, h.ConnectionCount(accountID))
}
