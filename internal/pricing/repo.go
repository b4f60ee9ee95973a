package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
)

// Repository defines persistence operations for price list lookups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPrices(ctx context.Context, priceListID uuid.UUID, productIDs []uuid.UUID) ([]models.PriceListProduct, error)
	PriceListExists(ctx context.Context, priceListID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pricing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPrices(ctx context.Context, priceListID uuid.UUID, productIDs []uuid.UUID) ([]models.PriceListProduct, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var rows []models.PriceListProduct
	err := r.db.WithContext(ctx).
		Where("price_list_id = ? AND product_id IN ?", priceListID, productIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PriceListExists(ctx context.Context, priceListID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PriceList{}).
		Where("id = ?", priceListID).
		Count(&count).Error
	return count > 0, err
}
