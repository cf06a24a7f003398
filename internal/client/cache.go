package client

import (
	"encoding/json"
	"sync"

	"github.com/prudhvinik1/eventrelay/internal/models"
)

// Entry is one entity in the device's local cache, together with the
// position of the last event applied to it.
type Entry struct {
	EntityID string
	Position string
	Snapshot json.RawMessage
	Patches  []json.RawMessage
}

// Cache is the device-local view the reconciler keeps in sync. Apply is
// idempotent: an event at or below an entity's last applied position is a
// no-op, so redelivered events never corrupt the cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Apply folds one event into the cache and reports whether anything
// changed.
func (c *Cache) Apply(event models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Type {
	case models.EventCollectionCleared:
		if len(c.entries) == 0 {
			return false
		}
		c.entries = make(map[string]*Entry)
		return true

	case models.EventEntityDeleted:
		if event.EntityID == nil {
			return false
		}
		if _, ok := c.entries[*event.EntityID]; !ok {
			return false
		}
		delete(c.entries, *event.EntityID)
		return true

	case models.EventEntityCreated, models.EventEntityUpdated, models.EventPreviewReady:
		if event.EntityID == nil {
			return false
		}
		entry, ok := c.entries[*event.EntityID]
		if ok && event.Position != "" && models.ComparePositions(event.Position, entry.Position) <= 0 {
			// Already applied; redelivery is a no-op.
			return false
		}
		if !ok {
			entry = &Entry{EntityID: *event.EntityID}
			c.entries[*event.EntityID] = entry
		}
		if event.Snapshot != nil {
			entry.Snapshot = event.Snapshot
			entry.Patches = nil
		}
		if event.Patch != nil {
			entry.Patches = append(entry.Patches, event.Patch)
		}
		entry.Position = event.Position
		return true

	default:
		// Cleanup traffic and unknown types leave the cache alone.
		return false
	}
}

func (c *Cache) Get(entityID string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[entityID]
	if !ok {
		return nil, false
	}
	copied := *entry
	return &copied, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
