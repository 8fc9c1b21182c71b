package cron

import (
	"context"
	"fmt"
	"time"
)

const defaultNotificationRetentionDays = 90

type readNotificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Repository    readNotificationPruner
	RetentionDays int
	Clock         func() time.Time
}

// NewNotificationCleanupJob removes inbox entries read more than the
// retention window ago. Unread notifications are kept.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultNotificationRetentionDays
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &notificationCleanupJob{repo: params.Repository, retention: days, now: clock}, nil
}

type notificationCleanupJob struct {
	repo      readNotificationPruner
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) (int64, error) {
	deleted, err := j.repo.DeleteReadBefore(ctx, daysBefore(j.now(), j.retention))
	if err != nil {
		return 0, fmt.Errorf("notification cleanup: %w", err)
	}
	return deleted, nil
}
