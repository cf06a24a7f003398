package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	GetDevicesByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Device, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error
}

// EventLogRepository is one durable, ordered, append-only log per account.
// Append assigns the next position; ReadFrom returns events strictly after
// the given position in order; Trim enforces approximate retention without
// ever reusing positions.
type EventLogRepository interface {
	Append(ctx context.Context, event *models.Event) error
	ReadFrom(ctx context.Context, accountID uuid.UUID, afterPosition string, limit int) ([]*models.Event, error)
	Trim(ctx context.Context, accountID uuid.UUID, keep int) error
}

// CursorRepository stores the last acknowledged position per (account,
// device). Advance is monotonic: a position at or below the stored one is
// ignored and reported via the bool, not an error.
type CursorRepository interface {
	Get(ctx context.Context, accountID, deviceID uuid.UUID) (string, error)
	Advance(ctx context.Context, accountID, deviceID uuid.UUID, position string) (bool, error)
}

type PresenceRepository interface {
	Refresh(ctx context.Context, presence *models.Presence) error
	Get(ctx context.Context, deviceID uuid.UUID) (*models.Presence, error)
	GetBulk(ctx context.Context, deviceIDs []uuid.UUID) (map[uuid.UUID]models.Presence, error)
	Delete(ctx context.Context, deviceID uuid.UUID) error
}

// CleanupRepository holds pending reconciliation records: side effects a
// device has not yet confirmed. Acknowledge is idempotent.
type CleanupRepository interface {
	Create(ctx context.Context, rec *models.PendingCleanup) error
	ListPending(ctx context.Context, accountID uuid.UUID) ([]*models.PendingCleanup, error)
	Acknowledge(ctx context.Context, accountID uuid.UUID, entityID string) error
}
