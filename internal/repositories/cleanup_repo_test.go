package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/eventrelay/internal/models"
)

func TestCleanupRepository_PendingUntilAcknowledged(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresCleanupRepository(pool)
	ctx := context.Background()
	accountID := setupTestAccount(t, ctx, pool)

	path := "/blobs/file-1"
	rec := &models.PendingCleanup{AccountID: accountID, EntityID: "file-1", EntityPath: &path}
	require.NoError(t, repo.Create(ctx, rec))

	pending, err := repo.ListPending(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "file-1", pending[0].EntityID)

	require.NoError(t, repo.Acknowledge(ctx, accountID, "file-1"))

	pending, err = repo.ListPending(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, pending, "an acknowledged cleanup is no longer retried")
}

func TestCleanupRepository_AcknowledgeIsIdempotent(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresCleanupRepository(pool)
	ctx := context.Background()
	accountID := setupTestAccount(t, ctx, pool)

	rec := &models.PendingCleanup{AccountID: accountID, EntityID: "file-1"}
	require.NoError(t, repo.Create(ctx, rec))

	require.NoError(t, repo.Acknowledge(ctx, accountID, "file-1"))
	require.NoError(t, repo.Acknowledge(ctx, accountID, "file-1"), "a duplicate ack is a no-op")
	require.NoError(t, repo.Acknowledge(ctx, accountID, "never-existed"), "acking an unknown entity is a no-op")
}

func TestCleanupRepository_DuplicateRequestsCollapse(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresCleanupRepository(pool)
	ctx := context.Background()
	accountID := setupTestAccount(t, ctx, pool)

	first := &models.PendingCleanup{AccountID: accountID, EntityID: "file-1"}
	require.NoError(t, repo.Create(ctx, first))
	second := &models.PendingCleanup{AccountID: accountID, EntityID: "file-1"}
	require.NoError(t, repo.Create(ctx, second))

	pending, err := repo.ListPending(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "only one open cleanup per entity")
}
