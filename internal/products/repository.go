package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
)

// Reader is the read-only product lookup consumed by order creation. Catalog
// writes belong to the catalog service.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type reader struct {
	db *gorm.DB
}

// NewReader builds a product reader bound to db.
func NewReader(db *gorm.DB) Reader {
	return &reader{db: db}
}

func (r *reader) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &reader{db: tx}
}

// GetProduct returns the product or a NOT_FOUND error.
func (r *reader) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &p, nil
}
