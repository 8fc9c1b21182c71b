package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/pagination"
)

func seedNotification(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	n := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      enums.UserRoleBuyer,
		Type:      enums.NotificationTypeOrderConfirmed,
		Title:     "Order confirmed",
		Message:   "ok",
		CreatedAt: createdAt,
	}
	created, err := repo.Create(context.Background(), &n)
	require.NoError(t, err)
	require.True(t, created)
	return n
}

func TestRepository_ListMarkRead(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := seedNotification(t, repo, userID, base.Add(-time.Hour))
	newer := seedNotification(t, repo, userID, base)
	seedNotification(t, repo, uuid.New(), base)

	rows, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)

	rows, err = repo.List(ctx, listNotificationsParams{
		UserID: userID,
		Limit:  10,
		Cursor: &pagination.Cursor{CreatedAt: newer.CreatedAt, ID: newer.ID},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, older.ID, rows[0].ID)

	mark, err := repo.MarkRead(ctx, userID, older.ID, base)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	mark, err = repo.MarkRead(ctx, uuid.New(), older.ID, base)
	require.NoError(t, err)
	assert.False(t, mark.Found)

	unread, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)

	count, err := repo.MarkAllRead(ctx, userID, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_CreateDedupesByEventID(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	eventID := uuid.New()
	build := func() *models.Notification {
		return &models.Notification{
			EventID: &eventID,
			UserID:  uuid.New(),
			Role:    enums.UserRoleSeller,
			Type:    enums.NotificationTypeNewRequest,
			Title:   "New request",
			Message: "x",
		}
	}
	created, err := repo.Create(context.Background(), build())
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.Create(context.Background(), build())
	require.NoError(t, err)
	require.False(t, created)
}

func TestRepository_DeleteReadBeforeKeepsUnread(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	readOld := seedNotification(t, repo, userID, base.Add(-48*time.Hour))
	seedNotification(t, repo, userID, base.Add(-48*time.Hour))
	_, err := repo.MarkRead(ctx, userID, readOld.ID, base.Add(-47*time.Hour))
	require.NoError(t, err)

	deleted, err := repo.DeleteReadBefore(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].ReadAt)
}
