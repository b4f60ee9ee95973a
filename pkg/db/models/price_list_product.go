package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceListProduct assigns a product its unit price within one price list.
type PriceListProduct struct {
	PriceListID uuid.UUID       `gorm:"column:price_list_id;type:uuid;primaryKey"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
