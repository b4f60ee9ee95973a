package warehouses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

// WarehouseInput carries the warehouse fields for create and update.
type WarehouseInput struct {
	Name     string
	Location *string
	IsActive *bool
	ActorID  uuid.UUID
}

// WarehouseView is the API projection of a warehouse.
type WarehouseView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  *string   `json:"location,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines persistence operations for warehouses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, warehouse *models.Warehouse) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Warehouse, error)
	HasStock(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service exposes warehouse management.
type Service interface {
	Create(ctx context.Context, input WarehouseInput) (*WarehouseView, error)
	Update(ctx context.Context, warehouseID uuid.UUID, input WarehouseInput) (*WarehouseView, error)
	Delete(ctx context.Context, warehouseID, actorID uuid.UUID) error
	Get(ctx context.Context, warehouseID uuid.UUID) (*WarehouseView, error)
	List(ctx context.Context) ([]WarehouseView, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a warehouse repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, warehouse *models.Warehouse) error {
	if warehouse.ID == uuid.Nil {
		warehouse.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(warehouse).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&warehouse).Error
	if err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Warehouse{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Warehouse{}).Error
}

func (r *repository) List(ctx context.Context) ([]models.Warehouse, error) {
	var rows []models.Warehouse
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) HasStock(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StockEntry{}).
		Where("warehouse_id = ? AND quantity > 0", id).
		Count(&count).Error
	return count > 0, err
}

type service struct {
	repo  Repository
	trail audit.Recorder
}

// NewService builds the warehouse service.
func NewService(repo Repository, trail audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("warehouse repository required")
	}
	if trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, trail: trail}, nil
}

func (s *service) Create(ctx context.Context, input WarehouseInput) (*WarehouseView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	warehouse := models.Warehouse{Name: name, Location: input.Location, IsActive: true}
	if err := s.repo.Create(ctx, &warehouse); err != nil {
		return nil, err
	}
	s.record(ctx, input.ActorID, "warehouse.created", warehouse.ID)
	return view(&warehouse), nil
}

func (s *service) Update(ctx context.Context, warehouseID uuid.UUID, input WarehouseInput) (*WarehouseView, error) {
	if _, err := s.load(ctx, warehouseID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateFields(ctx, warehouseID, updates); err != nil {
			return nil, err
		}
	}

	s.record(ctx, input.ActorID, "warehouse.updated", warehouseID)
	return s.Get(ctx, warehouseID)
}

func (s *service) Delete(ctx context.Context, warehouseID, actorID uuid.UUID) error {
	if _, err := s.load(ctx, warehouseID); err != nil {
		return err
	}

	stocked, err := s.repo.HasStock(ctx, warehouseID)
	if err != nil {
		return err
	}
	if stocked {
		return pkgerrors.New(pkgerrors.CodeConflict, "warehouse still holds stock").
			WithDetails(map[string]any{"warehouse_id": warehouseID})
	}

	if err := s.repo.Delete(ctx, warehouseID); err != nil {
		return err
	}
	s.record(ctx, actorID, "warehouse.deleted", warehouseID)
	return nil
}

func (s *service) Get(ctx context.Context, warehouseID uuid.UUID) (*WarehouseView, error) {
	warehouse, err := s.load(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return view(warehouse), nil
}

func (s *service) List(ctx context.Context) ([]WarehouseView, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]WarehouseView, 0, len(rows))
	for i := range rows {
		views = append(views, *view(&rows[i]))
	}
	return views, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	warehouse, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found").
			WithDetails(map[string]any{"warehouse_id": id})
	}
	if err != nil {
		return nil, err
	}
	return warehouse, nil
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID) {
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	s.trail.Record(ctx, audit.Event{
		ActorID:    actor,
		Action:     action,
		EntityType: "warehouse",
		EntityID:   &entityID,
	})
}

func view(w *models.Warehouse) *WarehouseView {
	return &WarehouseView{
		ID:        w.ID,
		Name:      w.Name,
		Location:  w.Location,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
