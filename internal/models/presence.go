package models

import (
	"time"

	"github.com/google/uuid"
)

// Presence is a short-TTL liveness flag for a device. It is refreshed on
// connect and on every ack, and is never consulted for correctness.
type Presence struct {
	AccountID uuid.UUID `json:"account_id"`
	DeviceID  uuid.UUID `json:"device_id"`
	Status    string    `json:"status"`
	LastSeen  time.Time `json:"last_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)
