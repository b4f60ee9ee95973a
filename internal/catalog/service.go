package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// Service exposes product and category management.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductView, error)
	UpdateProduct(ctx context.Context, input UpdateProductInput) (*ProductView, error)
	DeleteProduct(ctx context.Context, productID, actorID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductView, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryView, error)
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, input CategoryInput) (*CategoryView, error)
	DeleteCategory(ctx context.Context, categoryID, actorID uuid.UUID) error
	ListCategories(ctx context.Context) ([]CategoryView, error)
}

type service struct {
	repo  Repository
	trail audit.Recorder
}

// NewService builds the catalog service.
func NewService(repo Repository, trail audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, trail: trail}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductView, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name are required")
	}
	if input.MinStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock cannot be negative")
	}
	if input.CategoryID != nil {
		ok, err := s.repo.CategoryExists(ctx, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found").
				WithDetails(map[string]any{"category_id": *input.CategoryID})
		}
	}
	if _, err := s.repo.FindProductBySKU(ctx, sku); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	product := models.Product{
		SKU:         sku,
		Name:        name,
		Description: input.Description,
		Barcode:     input.Barcode,
		CategoryID:  input.CategoryID,
		MinStock:    input.MinStock,
		IsActive:    true,
	}
	if err := s.repo.CreateProduct(ctx, &product); err != nil {
		if db.IsUniqueViolation(err, "products_sku_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
		}
		return nil, err
	}

	s.record(ctx, input.ActorID, "product.created", "product", product.ID)
	return productView(&product), nil
}

func (s *service) UpdateProduct(ctx context.Context, input UpdateProductInput) (*ProductView, error) {
	if _, err := s.loadProduct(ctx, input.ProductID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Barcode != nil {
		updates["barcode"] = *input.Barcode
	}
	if input.CategoryID != nil {
		ok, err := s.repo.CategoryExists(ctx, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found").
				WithDetails(map[string]any{"category_id": *input.CategoryID})
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.MinStock != nil {
		if *input.MinStock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock cannot be negative")
		}
		updates["min_stock"] = *input.MinStock
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateProductFields(ctx, input.ProductID, updates); err != nil {
			return nil, err
		}
	}

	s.record(ctx, input.ActorID, "product.updated", "product", input.ProductID)
	return s.GetProduct(ctx, input.ProductID)
}

func (s *service) DeleteProduct(ctx context.Context, productID, actorID uuid.UUID) error {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return err
	}

	hasStock, err := s.repo.ProductHasStock(ctx, productID)
	if err != nil {
		return err
	}
	if hasStock {
		return pkgerrors.New(pkgerrors.CodeConflict, "product still has stock on hand").
			WithDetails(map[string]any{"product_id": productID})
	}
	referenced, err := s.repo.ProductHasOrderItems(ctx, productID)
	if err != nil {
		return err
	}
	if referenced {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by orders").
			WithDetails(map[string]any{"product_id": productID})
	}

	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	s.record(ctx, actorID, "product.deleted", "product", productID)
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductView, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return productView(product), nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	rows, next, err := s.repo.ListProducts(ctx, params, filters)
	if err != nil {
		return nil, err
	}
	items := make([]ProductView, 0, len(rows))
	for i := range rows {
		items = append(items, *productView(&rows[i]))
	}
	return &ProductList{Items: items, NextCursor: next}, nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	category := models.Category{Name: name, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, &category); err != nil {
		return nil, err
	}
	s.record(ctx, input.ActorID, "category.created", "category", category.ID)
	return categoryView(&category), nil
}

func (s *service) UpdateCategory(ctx context.Context, categoryID uuid.UUID, input CategoryInput) (*CategoryView, error) {
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateCategoryFields(ctx, category.ID, updates); err != nil {
			return nil, err
		}
	}

	s.record(ctx, input.ActorID, "category.updated", "category", category.ID)
	fresh, err := s.repo.FindCategoryByID(ctx, category.ID)
	if err != nil {
		return nil, err
	}
	return categoryView(fresh), nil
}

func (s *service) DeleteCategory(ctx context.Context, categoryID, actorID uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, categoryID); errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	} else if err != nil {
		return err
	}

	inUse, err := s.repo.CategoryHasProducts(ctx, categoryID)
	if err != nil {
		return err
	}
	if inUse {
		return pkgerrors.New(pkgerrors.CodeConflict, "category still has products").
			WithDetails(map[string]any{"category_id": categoryID})
	}

	if err := s.repo.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}
	s.record(ctx, actorID, "category.deleted", "category", categoryID)
	return nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]CategoryView, 0, len(rows))
	for i := range rows {
		views = append(views, *categoryView(&rows[i]))
	}
	return views, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": id})
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, action, entity string, entityID uuid.UUID) {
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	s.trail.Record(ctx, audit.Event{
		ActorID:    actor,
		Action:     action,
		EntityType: entity,
		EntityID:   &entityID,
	})
}
