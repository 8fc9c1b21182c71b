package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/reviews"
)

const defaultRatingBatchSize = 200

type sellerRatingStore interface {
	ListSellerIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	SellerAggregate(ctx context.Context, sellerID uuid.UUID) (reviews.SellerRating, error)
	SaveSellerRating(ctx context.Context, sellerID uuid.UUID, rating reviews.SellerRating) error
}

type SellerRatingJobParams struct {
	DB        txRunner
	Reviews   reviews.Repository
	BatchSize int
}

// NewSellerRatingJob re-derives every seller's average rating and review
// count from the visible reviews, repairing aggregates written by older
// code or by hand.
func NewSellerRatingJob(params SellerRatingJobParams) (Job, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reviews == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRatingBatchSize
	}
	return &sellerRatingJob{
		db:    params.DB,
		store: params.Reviews,
		withTx: func(tx *gorm.DB) sellerRatingStore {
			return params.Reviews.WithTx(tx)
		},
		batch: batch,
	}, nil
}

type sellerRatingJob struct {
	db     txRunner
	store  sellerRatingStore
	withTx func(tx *gorm.DB) sellerRatingStore
	batch  int
}

func (j *sellerRatingJob) Name() string { return "seller-rating-reconcile" }

func (j *sellerRatingJob) Run(ctx context.Context) (int64, error) {
	var processed int64
	after := uuid.Nil
	for {
		ids, err := j.store.ListSellerIDs(ctx, after, j.batch)
		if err != nil {
			return processed, fmt.Errorf("list sellers: %w", err)
		}
		for _, sellerID := range ids {
			if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
				repo := j.withTx(tx)
				rating, err := repo.SellerAggregate(ctx, sellerID)
				if err != nil {
					return err
				}
				return repo.SaveSellerRating(ctx, sellerID, rating)
			}); err != nil {
				return processed, fmt.Errorf("reconcile seller %s: %w", sellerID, err)
			}
			processed++
		}
		if len(ids) < j.batch {
			return processed, nil
		}
		after = ids[len(ids)-1]
	}
}
