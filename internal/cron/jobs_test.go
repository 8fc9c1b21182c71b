package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/reviews"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutboxPruner struct {
	cutoff time.Time
	err    error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type fakeNotificationPruner struct {
	cutoff time.Time
}

func (f *fakeNotificationPruner) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, nil
}

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	repo := &fakeOutboxPruner{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		DB: passthroughTx{}, Repository: repo, Clock: func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	rows, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), rows)
	require.Equal(t, fixedNow.AddDate(0, 0, -defaultOutboxRetentionDays), repo.cutoff)
}

func TestOutboxRetentionJobWrapsErrors(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		DB: passthroughTx{}, Repository: &fakeOutboxPruner{err: errors.New("boom")},
	})
	require.NoError(t, err)
	_, err = job.Run(context.Background())
	require.ErrorContains(t, err, "outbox retention")
}

func TestNotificationCleanupJobHonoursConfiguredDays(t *testing.T) {
	repo := &fakeNotificationPruner{}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Repository: repo, RetentionDays: 30, Clock: func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	rows, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), rows)
	require.Equal(t, fixedNow.AddDate(0, 0, -30), repo.cutoff)
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{})
	require.Error(t, err)
	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{})
	require.Error(t, err)
	_, err = NewSellerRatingJob(SellerRatingJobParams{})
	require.Error(t, err)
}

type txClient struct {
	conn *gorm.DB
}

func (c txClient) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}

func TestSellerRatingJobRepairsDriftedAggregates(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	rated := models.Seller{ID: uuid.New(), DisplayName: "Green Acres", AverageRating: decimal.NewFromInt(1), ReviewCount: 9}
	unrated := models.Seller{ID: uuid.New(), DisplayName: "Hill Farm", AverageRating: decimal.NewFromInt(5), ReviewCount: 2}
	third := models.Seller{ID: uuid.New(), DisplayName: "Valley Co"}
	for _, s := range []*models.Seller{&rated, &unrated, &third} {
		require.NoError(t, conn.Create(s).Error)
	}
	for _, r := range []struct {
		rating  int
		visible bool
	}{{5, true}, {4, true}, {1, false}} {
		require.NoError(t, conn.Create(&models.Review{
			ID:         uuid.New(),
			BuyerID:    uuid.New(),
			SellerID:   rated.ID,
			ProductID:  uuid.New(),
			Rating:     r.rating,
			Experience: enums.ReviewExperiencePositive,
			IsVisible:  r.visible,
		}).Error)
	}

	job, err := NewSellerRatingJob(SellerRatingJobParams{
		DB: txClient{conn: conn}, Reviews: reviews.NewRepository(conn), BatchSize: 2,
	})
	require.NoError(t, err)

	processed, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), processed)

	var got models.Seller
	require.NoError(t, conn.First(&got, "id = ?", rated.ID).Error)
	require.True(t, decimal.RequireFromString("4.5").Equal(got.AverageRating), "average %s", got.AverageRating)
	require.Equal(t, 2, got.ReviewCount)

	require.NoError(t, conn.First(&got, "id = ?", unrated.ID).Error)
	require.True(t, got.AverageRating.IsZero())
	require.Equal(t, 0, got.ReviewCount)
}
