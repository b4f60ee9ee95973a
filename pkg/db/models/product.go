package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog entry stock and prices hang off of. SKU is
// immutable after creation.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SKU         string     `gorm:"column:sku;not null;uniqueIndex"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	Barcode     *string    `gorm:"column:barcode"`
	CategoryID  *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Category    *Category  `gorm:"foreignKey:CategoryID"`
	MinStock    int        `gorm:"column:min_stock;not null;default:0"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
