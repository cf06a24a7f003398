package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/eventrelay/internal/models"
)

func strptr(s string) *string { return &s }

func makeEvent(seq int64, eventType, entityID string) models.Event {
	event := models.Event{
		Position: models.FormatPosition(seq),
		Type:     eventType,
	}
	if entityID != "" {
		event.EntityID = strptr(entityID)
	}
	return event
}

func TestCache_ApplyTwiceIsNoop(t *testing.T) {
	cache := NewCache()
	event := makeEvent(1, models.EventEntityCreated, "note-1")
	event.Snapshot = json.RawMessage(`{"title":"hello"}`)

	require.True(t, cache.Apply(event))
	before, ok := cache.Get("note-1")
	require.True(t, ok)

	// Redelivery of the same event must not change the cache.
	assert.False(t, cache.Apply(event))
	after, ok := cache.Get("note-1")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestCache_OlderEventDoesNotRegressEntity(t *testing.T) {
	cache := NewCache()

	update := makeEvent(5, models.EventEntityUpdated, "note-1")
	update.Snapshot = json.RawMessage(`{"title":"new"}`)
	require.True(t, cache.Apply(update))

	stale := makeEvent(2, models.EventEntityUpdated, "note-1")
	stale.Snapshot = json.RawMessage(`{"title":"old"}`)
	assert.False(t, cache.Apply(stale))

	entry, ok := cache.Get("note-1")
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"new"}`, string(entry.Snapshot))
}

func TestCache_PatchesAccumulateUntilSnapshot(t *testing.T) {
	cache := NewCache()

	created := makeEvent(1, models.EventEntityCreated, "note-1")
	created.Snapshot = json.RawMessage(`{"title":"v1"}`)
	require.True(t, cache.Apply(created))

	patched := makeEvent(2, models.EventEntityUpdated, "note-1")
	patched.Patch = json.RawMessage(`{"title":"v2"}`)
	require.True(t, cache.Apply(patched))

	preview := makeEvent(3, models.EventPreviewReady, "note-1")
	preview.Patch = json.RawMessage(`{"previewUrl":"..."}`)
	require.True(t, cache.Apply(preview))

	entry, _ := cache.Get("note-1")
	assert.Len(t, entry.Patches, 2)

	// A fresh snapshot supersedes accumulated patches.
	replaced := makeEvent(4, models.EventEntityUpdated, "note-1")
	replaced.Snapshot = json.RawMessage(`{"title":"v3"}`)
	require.True(t, cache.Apply(replaced))

	entry, _ = cache.Get("note-1")
	assert.Empty(t, entry.Patches)
	assert.JSONEq(t, `{"title":"v3"}`, string(entry.Snapshot))
}

func TestCache_DeleteAndClear(t *testing.T) {
	cache := NewCache()
	require.True(t, cache.Apply(makeEvent(1, models.EventEntityCreated, "note-1")))
	require.True(t, cache.Apply(makeEvent(2, models.EventEntityCreated, "note-2")))

	deleted := makeEvent(3, models.EventEntityDeleted, "note-1")
	require.True(t, cache.Apply(deleted))
	_, ok := cache.Get("note-1")
	assert.False(t, ok)

	// Deleting again is a no-op, not an error.
	assert.False(t, cache.Apply(deleted))

	require.True(t, cache.Apply(makeEvent(4, models.EventCollectionCleared, "")))
	assert.Zero(t, cache.Len())
	assert.False(t, cache.Apply(makeEvent(5, models.EventCollectionCleared, "")), "clearing an empty cache changes nothing")
}

func TestCache_CleanupEventsLeaveCacheAlone(t *testing.T) {
	cache := NewCache()
	require.True(t, cache.Apply(makeEvent(1, models.EventEntityCreated, "note-1")))

	assert.False(t, cache.Apply(makeEvent(2, models.EventCleanupRequested, "note-1")))
	assert.False(t, cache.Apply(makeEvent(3, models.EventCleanupAcknowledged, "note-1")))

	_, ok := cache.Get("note-1")
	assert.True(t, ok)
}
