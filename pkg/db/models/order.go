package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflowhq/stockflow-backend/pkg/enums"
)

// Order is a customer order against one warehouse and one price list.
// Total is always derived from the item totals, never written directly.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	WarehouseID uuid.UUID         `gorm:"column:warehouse_id;type:uuid;not null"`
	PriceListID uuid.UUID         `gorm:"column:price_list_id;type:uuid;not null"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Notes       *string           `gorm:"column:notes"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
