package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrderFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateItemFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteItems(ctx context.Context, ids []uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, *string, error)
	CustomerExists(ctx context.Context, id uuid.UUID) (bool, error)
	WarehouseExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderView, error)
	Update(ctx context.Context, input UpdateOrderInput) (*OrderView, error)
	Delete(ctx context.Context, orderID, actorID uuid.UUID) error
	Get(ctx context.Context, orderID uuid.UUID) (*OrderView, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}
