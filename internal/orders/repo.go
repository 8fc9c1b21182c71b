package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/pkg/db"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/pagination"
)

// Repository persists orders and purchase requests. It is the only writer of
// their status columns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAggregate(ctx context.Context, a *Aggregate) error
	LoadByOrderID(ctx context.Context, orderID uuid.UUID) (*Aggregate, error)
	LoadByRequestID(ctx context.Context, requestID uuid.UUID) (*Aggregate, error)
	LoadByReference(ctx context.Context, referenceNo string) (*Aggregate, error)
	SaveAggregate(ctx context.Context, a *Aggregate) error
	DeleteAggregate(ctx context.Context, a *Aggregate) error
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	ListSellerRequests(ctx context.Context, filter RequestFilter, limit int, cursor *pagination.Cursor) ([]models.PurchaseRequest, error)
}

// RequestFilter narrows the seller request listing.
type RequestFilter struct {
	SellerID uuid.UUID
	Status   *enums.RequestStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateAggregate inserts the order and its request. Both must already carry
// their ids so they can reference each other.
func (r *repository) CreateAggregate(ctx context.Context, a *Aggregate) error {
	if a.Order == nil || a.Request == nil {
		return errors.New("order and request are required")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(a.Order).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(a.Request).Error
}

// LoadByOrderID returns gorm.ErrRecordNotFound when the order is missing.
// A missing request leaves Aggregate.Request nil.
func (r *repository) LoadByOrderID(ctx context.Context, orderID uuid.UUID) (*Aggregate, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return r.withRequest(ctx, &order)
}

// LoadByReference looks the order up by its external reference number.
func (r *repository) LoadByReference(ctx context.Context, referenceNo string) (*Aggregate, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("reference_no = ?", referenceNo).First(&order).Error; err != nil {
		return nil, err
	}
	return r.withRequest(ctx, &order)
}

func (r *repository) withRequest(ctx context.Context, order *models.Order) (*Aggregate, error) {
	var request models.PurchaseRequest
	err := r.db.WithContext(ctx).Where("order_id = ?", order.ID).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Aggregate{Order: order}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Aggregate{Order: order, Request: &request}, nil
}

// LoadByRequestID returns gorm.ErrRecordNotFound when the request is missing.
// A missing order leaves Aggregate.Order nil.
func (r *repository) LoadByRequestID(ctx context.Context, requestID uuid.UUID) (*Aggregate, error) {
	var request models.PurchaseRequest
	if err := r.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error; err != nil {
		return nil, err
	}
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", request.OrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Aggregate{Request: &request}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Aggregate{Order: &order, Request: &request}, nil
}

// SaveAggregate validates the aggregate and writes both rows guarded by their
// version. A row changed by someone else yields db.ErrStaleVersion.
func (r *repository) SaveAggregate(ctx context.Context, a *Aggregate) error {
	if err := a.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if o := a.Order; o != nil {
		res := r.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]any{
				"request_status":  o.RequestStatus,
				"paid_status":     o.PaidStatus,
				"delivery_status": o.DeliveryStatus,
				"can_review":      o.CanReview,
				"delivered_at":    o.DeliveredAt,
				"version":         o.Version + 1,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s: %w", o.ID, db.ErrStaleVersion)
		}
		o.Version++
		o.UpdatedAt = now
	}
	if req := a.Request; req != nil {
		res := r.db.WithContext(ctx).Model(&models.PurchaseRequest{}).
			Where("id = ? AND version = ?", req.ID, req.Version).
			Updates(map[string]any{
				"status":     req.Status,
				"decided_at": req.DecidedAt,
				"version":    req.Version + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("request %s: %w", req.ID, db.ErrStaleVersion)
		}
		req.Version++
		req.UpdatedAt = now
	}
	return nil
}

// DeleteAggregate removes the request first, then the order, each guarded by
// its version.
func (r *repository) DeleteAggregate(ctx context.Context, a *Aggregate) error {
	if req := a.Request; req != nil {
		res := r.db.WithContext(ctx).Where("id = ? AND version = ?", req.ID, req.Version).Delete(&models.PurchaseRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("request %s: %w", req.ID, db.ErrStaleVersion)
		}
	}
	if o := a.Order; o != nil {
		res := r.db.WithContext(ctx).Where("id = ? AND version = ?", o.ID, o.Version).Delete(&models.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s: %w", o.ID, db.ErrStaleVersion)
		}
	}
	return nil
}

func (r *repository) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", buyerID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListSellerRequests(ctx context.Context, filter RequestFilter, limit int, cursor *pagination.Cursor) ([]models.PurchaseRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseRequest{}).Where("seller_id = ?", filter.SellerID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.PurchaseRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
