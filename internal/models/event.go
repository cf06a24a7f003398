package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types recognized by the surrounding application. The subsystem
// itself never interprets them; it only moves events around.
const (
	EventEntityCreated       = "entity.created"
	EventEntityUpdated       = "entity.updated"
	EventEntityDeleted       = "entity.deleted"
	EventCollectionCleared   = "collection.cleared"
	EventPreviewReady        = "preview.ready"
	EventCleanupRequested    = "remote-cleanup.requested"
	EventCleanupAcknowledged = "remote-cleanup.acknowledged"
)

// Event is one entry in an account's ordered log. Position is a per-account,
// strictly increasing, zero-padded decimal string so lexicographic comparison
// matches numeric comparison. Snapshot and Patch are opaque to this subsystem.
type Event struct {
	ID         uuid.UUID       `json:"-"`
	AccountID  uuid.UUID       `json:"-"`
	Position   string          `json:"position"`
	Type       string          `json:"type"`
	EntityID   *string         `json:"entityId,omitempty"`
	EntityPath *string         `json:"entityPath,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	Patch      json.RawMessage `json:"patch,omitempty"`
	CreatedAt  time.Time       `json:"ts"`
}

// positionWidth is the padded width of a position string. 20 digits fits any
// int64 sequence number.
const positionWidth = 20

// PositionStart is the sentinel for "replay from the beginning".
const PositionStart = ""

// FormatPosition renders a sequence number as a position string.
func FormatPosition(seq int64) string {
	return fmt.Sprintf("%0*d", positionWidth, seq)
}

// ParsePosition converts a position string back to its sequence number.
// The empty string and "0" both mean the beginning of the log.
func ParsePosition(position string) (int64, error) {
	if position == PositionStart {
		return 0, nil
	}
	trimmed := strings.TrimLeft(position, "0")
	if trimmed == "" {
		// All zeros, including the padded form of sequence 0.
		return 0, nil
	}
	seq, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", position, err)
	}
	return seq, nil
}

// ComparePositions orders two position strings. Positions are generated with
// a fixed width, so plain string comparison is the total order; the empty
// string sorts before everything.
func ComparePositions(a, b string) int {
	return strings.Compare(a, b)
}
