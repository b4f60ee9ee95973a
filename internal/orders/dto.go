package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
)

// OrderItemInput is one desired product line on an order. Unit prices are
// always resolved server-side from the order's price list.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries everything needed to open an order.
type CreateOrderInput struct {
	CustomerID  uuid.UUID
	WarehouseID uuid.UUID
	PriceListID uuid.UUID
	Notes       *string
	Items       []OrderItemInput
	ActorID     uuid.UUID
}

// UpdateOrderInput replaces the desired item set of an existing order.
// Customer and warehouse are immutable after creation. A non-nil PriceListID
// switches the order to that list and re-prices every surviving item from it.
type UpdateOrderInput struct {
	OrderID     uuid.UUID
	PriceListID *uuid.UUID
	Notes       *string
	Items       []OrderItemInput
	ActorID     uuid.UUID
}

// ListFilters narrow the order listing.
type ListFilters struct {
	CustomerID  *uuid.UUID
	WarehouseID *uuid.UUID
	Status      *enums.OrderStatus
}

// OrderItemView is the API projection of an order item.
type OrderItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// OrderView is the API projection of an order with its items.
type OrderView struct {
	ID          uuid.UUID         `json:"id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	WarehouseID uuid.UUID         `json:"warehouse_id"`
	PriceListID uuid.UUID         `json:"price_list_id"`
	UserID      uuid.UUID         `json:"user_id"`
	Status      enums.OrderStatus `json:"status"`
	Total       decimal.Decimal   `json:"total"`
	Notes       *string           `json:"notes,omitempty"`
	Items       []OrderItemView   `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Items      []OrderView `json:"items"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

func itemView(item models.OrderItem) OrderItemView {
	return OrderItemView{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Total:     item.Total,
	}
}

func orderView(order *models.Order) *OrderView {
	if order == nil {
		return nil
	}
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemView(item))
	}
	return &OrderView{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		WarehouseID: order.WarehouseID,
		PriceListID: order.PriceListID,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.Total,
		Notes:       order.Notes,
		Items:       items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}
