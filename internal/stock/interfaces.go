package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// Repository defines persistence operations for stock entries and movement logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// GetEntryForUpdate loads the stock entry under a row lock. Returns
	// (nil, nil) when no entry exists yet.
	GetEntryForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockEntry, error)
	// EnsureEntry inserts a zero-quantity entry for the pair unless one
	// already exists, so GetEntryForUpdate always has a row to lock.
	EnsureEntry(ctx context.Context, productID, warehouseID uuid.UUID) error
	SetEntryQuantity(ctx context.Context, productID, warehouseID uuid.UUID, quantity int) error
	CreateMovement(ctx context.Context, movement *models.MovementLog) error
	GetEntry(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockEntry, error)
	ListEntriesByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.StockEntry, error)
	ListMovementsByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.MovementLog, *string, error)
	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)
	WarehouseExists(ctx context.Context, warehouseID uuid.UUID) (bool, error)
}

// Ledger applies stock mutations inside a caller-owned transaction. Every
// mutation locks the entry row, enforces non-negative quantity, and appends
// a movement log row. The returned int is the post-mutation quantity.
type Ledger interface {
	Add(ctx context.Context, tx *gorm.DB, input MovementInput) (int, error)
	Remove(ctx context.Context, tx *gorm.DB, input MovementInput) (int, error)
}

// Service exposes the HTTP-facing stock operations.
type Service interface {
	AddStock(ctx context.Context, input AdjustStockInput) (*StockEntryView, error)
	RemoveStock(ctx context.Context, input AdjustStockInput) (*StockEntryView, error)
	GetStock(ctx context.Context, productID, warehouseID uuid.UUID) (*StockEntryView, error)
	ListWarehouseStock(ctx context.Context, warehouseID uuid.UUID) ([]StockEntryView, error)
	ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementList, error)
}
