package models

import "github.com/google/uuid"

// Cursor is the last event position a specific device has acknowledged.
// Written only on a verified ack, updated monotonically, never expired.
type Cursor struct {
	AccountID uuid.UUID `json:"account_id"`
	DeviceID  uuid.UUID `json:"device_id"`
	Position  string    `json:"position"`
}
