package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/eventrelay/internal/models"
	"github.com/prudhvinik1/eventrelay/internal/repositories"
)

type memAccountRepo struct {
	byEmail map[string]*models.Account
}

func (m *memAccountRepo) Create(ctx context.Context, account *models.Account) error {
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	m.byEmail[account.Email] = account
	return nil
}

func (m *memAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	for _, account := range m.byEmail {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, ok := m.byEmail[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return account, nil
}

func (m *memAccountRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type memDeviceRepo struct {
	byID map[uuid.UUID]*models.Device
}

func (m *memDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	device.ID = uuid.New()
	m.byID[device.ID] = device
	return nil
}

func (m *memDeviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	device, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return device, nil
}

func (m *memDeviceRepo) GetDevicesByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Device, error) {
	var out []*models.Device
	for _, device := range m.byID {
		if device.AccountID == accountID {
			out = append(out, device)
		}
	}
	return out, nil
}

func (m *memDeviceRepo) Revoke(ctx context.Context, id uuid.UUID) error { return nil }

type memSessionRepo struct {
	byID map[string]*models.Session
}

func (m *memSessionRepo) Create(ctx context.Context, session *models.Session) error {
	m.byID[session.ID] = session
	return nil
}

func (m *memSessionRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	session, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return session, nil
}

func (m *memSessionRepo) Delete(ctx context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func (m *memSessionRepo) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	for id, session := range m.byID {
		if session.AccountID == accountID {
			delete(m.byID, id)
		}
	}
	return nil
}

func newTestAuthService() (*AuthService, *memSessionRepo) {
	sessions := &memSessionRepo{byID: make(map[string]*models.Session)}
	service := NewAuthService(
		&memAccountRepo{byEmail: make(map[string]*models.Account)},
		&memDeviceRepo{byID: make(map[uuid.UUID]*models.Device)},
		sessions,
		"test-secret",
		time.Hour,
	)
	return service, sessions
}

const testPassword = "correct-horse-battery"

func TestAuthService_LogoutAllRevokesEverySession(t *testing.T) {
	service, sessions := newTestAuthService()
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "a@example.com", testPassword))

	phone, err := service.Login(ctx, LoginRequest{
		Email: "a@example.com", Password: testPassword, DeviceName: "phone", DeviceType: "mobile",
	})
	require.NoError(t, err)
	laptop, err := service.Login(ctx, LoginRequest{
		Email: "a@example.com", Password: testPassword, DeviceName: "laptop", DeviceType: "desktop",
	})
	require.NoError(t, err)

	assert.NotEqual(t, phone.DeviceID, laptop.DeviceID, "each login without a device id registers a fresh device")
	require.Len(t, sessions.byID, 2)

	claims, err := service.VerifyToken(phone.Token)
	require.NoError(t, err)
	assert.Equal(t, phone.AccountID, claims.AccountID)
	assert.Equal(t, phone.DeviceID, claims.DeviceID)

	require.NoError(t, service.LogoutAll(ctx, phone.Token))
	assert.Empty(t, sessions.byID, "every device's session is revoked, not just the caller's")
}

func TestAuthService_LoginRejectsWrongPassword(t *testing.T) {
	service, _ := newTestAuthService()
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "a@example.com", testPassword))

	_, err := service.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong-password-here"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
