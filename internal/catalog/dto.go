package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
)

// CreateProductInput carries the fields accepted when registering a product.
type CreateProductInput struct {
	SKU         string
	Name        string
	Description *string
	Barcode     *string
	CategoryID  *uuid.UUID
	MinStock    int
	ActorID     uuid.UUID
}

// UpdateProductInput carries the mutable product fields. SKU is immutable.
type UpdateProductInput struct {
	ProductID   uuid.UUID
	Name        *string
	Description *string
	Barcode     *string
	CategoryID  *uuid.UUID
	MinStock    *int
	IsActive    *bool
	ActorID     uuid.UUID
}

// ProductFilters narrow the product listing.
type ProductFilters struct {
	Query      string
	CategoryID *uuid.UUID
	ActiveOnly bool
}

// CategoryInput carries the category fields for create and update.
type CategoryInput struct {
	Name        string
	Description *string
	ActorID     uuid.UUID
}

// ProductView is the API projection of a product.
type ProductView struct {
	ID          uuid.UUID  `json:"id"`
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Barcode     *string    `json:"barcode,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	MinStock    int        `json:"min_stock"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProductList is a cursor page of products.
type ProductList struct {
	Items      []ProductView `json:"items"`
	NextCursor *string       `json:"next_cursor,omitempty"`
}

// CategoryView is the API projection of a category.
type CategoryView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func productView(p *models.Product) *ProductView {
	if p == nil {
		return nil
	}
	return &ProductView{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Barcode:     p.Barcode,
		CategoryID:  p.CategoryID,
		MinStock:    p.MinStock,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func categoryView(c *models.Category) *CategoryView {
	if c == nil {
		return nil
	}
	return &CategoryView{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
