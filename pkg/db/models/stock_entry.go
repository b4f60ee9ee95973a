package models

import (
	"time"

	"github.com/google/uuid"
)

// StockEntry tracks on-hand quantity per (product, warehouse). Rows are
// created lazily on first movement and never deleted; quantity never
// goes below zero.
type StockEntry struct {
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;primaryKey"`
	Quantity    int       `gorm:"column:quantity;not null;default:0;check:quantity >= 0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
