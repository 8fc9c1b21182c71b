package reviews

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
)

// Repository persists reviews and the seller rating aggregates derived from
// them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) error
	Get(ctx context.Context, id uuid.UUID) (*models.Review, error)
	FindByOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	SellerAggregate(ctx context.Context, sellerID uuid.UUID) (SellerRating, error)
	SaveSellerRating(ctx context.Context, sellerID uuid.UUID, rating SellerRating) error
	ListSellerIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// SellerRating is the average and count over a seller's visible reviews.
type SellerRating struct {
	Average decimal.Decimal
	Count   int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reviews repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByOrder returns nil without error when the buyer has not reviewed the
// order.
func (r *repository) FindByOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND order_id = ?", buyerID, orderID).
		First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]any{
			"rating":     review.Rating,
			"title":      review.Title,
			"comment":    review.Comment,
			"experience": review.Experience,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{}).Error
}

// SellerAggregate recomputes the rating from scratch, rounded to two places.
func (r *repository) SellerAggregate(ctx context.Context, sellerID uuid.UUID) (SellerRating, error) {
	var row struct {
		Average sql.NullFloat64
		Count   int64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating) AS average, COUNT(*) AS count").
		Where("seller_id = ? AND is_visible = ?", sellerID, true).
		Scan(&row).Error
	if err != nil {
		return SellerRating{}, err
	}
	rating := SellerRating{Average: decimal.Zero, Count: int(row.Count)}
	if row.Average.Valid {
		rating.Average = decimal.NewFromFloat(row.Average.Float64).Round(2)
	}
	return rating, nil
}

func (r *repository) SaveSellerRating(ctx context.Context, sellerID uuid.UUID, rating SellerRating) error {
	return r.db.WithContext(ctx).Model(&models.Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]any{
			"average_rating": rating.Average,
			"review_count":   rating.Count,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// ListSellerIDs pages through sellers in id order, starting after the given
// id. Pass uuid.Nil for the first page.
func (r *repository) ListSellerIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).Model(&models.Seller{})
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	var ids []uuid.UUID
	if err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
