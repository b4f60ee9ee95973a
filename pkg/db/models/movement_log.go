package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockflowhq/stockflow-backend/pkg/enums"
)

// MovementLog is the append-only audit trail of every stock mutation.
// Rows are never updated or deleted.
type MovementLog struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	ProductID   uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	WarehouseID uuid.UUID               `gorm:"column:warehouse_id;type:uuid;not null;index"`
	Direction   enums.MovementDirection `gorm:"column:direction;type:text;not null"`
	Quantity    int                     `gorm:"column:quantity;not null;check:quantity > 0"`
	Comment     *string                 `gorm:"column:comment"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}
