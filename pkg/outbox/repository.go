package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes the row on the caller's transaction so it commits or rolls
// back together with the state change it describes.
func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

// FetchUnpublished returns the oldest rows that are still eligible for a
// publish attempt.
func (r *Repository) FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	query := r.db.WithContext(ctx).Where("published_at IS NULL")
	if maxAttempts > 0 {
		query = query.Where("attempt_count < ?", maxAttempts)
	}
	var rows []models.OutboxEvent
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    err.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// MoveToDLQ records a terminal failure and stamps the source row so it is no
// longer picked up.
func (r *Repository) MoveToDLQ(ctx context.Context, dlq *DLQRepository, entry models.OutboxDLQ) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := dlq.InsertTx(tx, entry); err != nil {
			return err
		}
		return markDeadLettered(tx, entry)
	})
}

// MarkDeadLettered stamps the source row of an entry that is already in the
// dead letter table.
func (r *Repository) MarkDeadLettered(ctx context.Context, entry models.OutboxDLQ) error {
	return markDeadLettered(r.db.WithContext(ctx), entry)
}

func markDeadLettered(tx *gorm.DB, entry models.OutboxDLQ) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", entry.EventID).
		Updates(map[string]any{
			"published_at":  time.Now().UTC(),
			"last_error":    entry.ErrorMessage,
			"attempt_count": entry.AttemptCount,
		}).Error
}

// DeletePublishedBefore removes rows that were published before cutoff.
// Unpublished rows are never touched.
func (r *Repository) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return result.RowsAffected, result.Error
}
