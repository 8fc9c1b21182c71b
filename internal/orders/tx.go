package orders

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
)

const staleRetryAttempts = 3

// TxRunner opens database transactions. *db.Client satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OutboxEmitter queues domain events inside an open transaction.
type OutboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// WithVersionedTx runs fn in a transaction and replays it from scratch when a
// versioned write loses a race. fn must re-read everything it checks. The
// final lost race surfaces as CONFLICT.
func WithVersionedTx(ctx context.Context, runner TxRunner, fn func(tx *gorm.DB) error) error {
	err := db.RetryStale(ctx, staleRetryAttempts, func() error {
		return runner.WithTx(ctx, fn)
	})
	if errors.Is(err, db.ErrStaleVersion) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order was modified concurrently")
	}
	return err
}

// MapRepoError converts repository failures into typed errors. Typed errors
// and stale versions pass through untouched so retries still see them.
func MapRepoError(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case pkgerrors.As(err) != nil:
		return err
	case errors.Is(err, db.ErrStaleVersion):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database operation failed")
	}
}
