package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingCleanup records a side effect a device still owes us, e.g. deleting
// an externally stored file. Delivery of the triggering event and completion
// of the side effect are acknowledged separately: a device may see the event
// and crash before finishing, so the record survives until the device reports
// completion through the cleanup ack, and is re-pushed on every connect
// until then.
type PendingCleanup struct {
	ID         uuid.UUID  `json:"id"`
	AccountID  uuid.UUID  `json:"account_id"`
	DeviceID   *uuid.UUID `json:"device_id,omitempty"`
	EntityID   string     `json:"entity_id"`
	EntityPath *string    `json:"entity_path,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AckedAt    *time.Time `json:"acked_at,omitempty"`
}
