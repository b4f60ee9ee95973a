package stock

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
)

// MovementInput describes one stock mutation applied through the ledger.
type MovementInput struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    int
	ActorID     uuid.UUID
	Comment     *string
}

// AdjustStockInput is the HTTP-facing variant of MovementInput.
type AdjustStockInput struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    int
	Comment     *string
	ActorID     uuid.UUID
}

// StockEntryView is the API projection of a stock entry.
type StockEntryView struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MovementView is the API projection of a movement log row.
type MovementView struct {
	ID          uuid.UUID               `json:"id"`
	UserID      uuid.UUID               `json:"user_id"`
	ProductID   uuid.UUID               `json:"product_id"`
	WarehouseID uuid.UUID               `json:"warehouse_id"`
	Direction   enums.MovementDirection `json:"direction"`
	Quantity    int                     `json:"quantity"`
	Comment     *string                 `json:"comment,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// MovementList is a cursor page of movement rows.
type MovementList struct {
	Items      []MovementView `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

func entryView(entry *models.StockEntry) *StockEntryView {
	if entry == nil {
		return nil
	}
	return &StockEntryView{
		ProductID:   entry.ProductID,
		WarehouseID: entry.WarehouseID,
		Quantity:    entry.Quantity,
		UpdatedAt:   entry.UpdatedAt,
	}
}

func movementView(row models.MovementLog) MovementView {
	return MovementView{
		ID:          row.ID,
		UserID:      row.UserID,
		ProductID:   row.ProductID,
		WarehouseID: row.WarehouseID,
		Direction:   row.Direction,
		Quantity:    row.Quantity,
		Comment:     row.Comment,
		CreatedAt:   row.CreatedAt,
	}
}
