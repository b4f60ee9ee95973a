package pricelists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

// PriceListInput carries the list fields for create and update.
type PriceListInput struct {
	Name     string
	IsActive *bool
	ActorID  uuid.UUID
}

// PriceAssignment sets one product's price within a list.
type PriceAssignment struct {
	ProductID uuid.UUID
	Price     decimal.Decimal
	ActorID   uuid.UUID
}

// PriceListView is the API projection of a price list.
type PriceListView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceEntryView is one priced product within a list.
type PriceEntryView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Repository defines persistence operations for price lists and their entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, list *models.PriceList) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PriceList, error)
	FindByName(ctx context.Context, name string) (*models.PriceList, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.PriceList, error)
	UpsertPrice(ctx context.Context, entry *models.PriceListProduct) error
	RemovePrice(ctx context.Context, priceListID, productID uuid.UUID) error
	ListPrices(ctx context.Context, priceListID uuid.UUID) ([]models.PriceListProduct, error)
	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)
	HasOrders(ctx context.Context, priceListID uuid.UUID) (bool, error)
}

// Service exposes price list management.
type Service interface {
	Create(ctx context.Context, input PriceListInput) (*PriceListView, error)
	Update(ctx context.Context, priceListID uuid.UUID, input PriceListInput) (*PriceListView, error)
	Delete(ctx context.Context, priceListID, actorID uuid.UUID) error
	Get(ctx context.Context, priceListID uuid.UUID) (*PriceListView, error)
	List(ctx context.Context) ([]PriceListView, error)
	SetPrice(ctx context.Context, priceListID uuid.UUID, assignment PriceAssignment) (*PriceEntryView, error)
	RemovePrice(ctx context.Context, priceListID, productID, actorID uuid.UUID) error
	ListPrices(ctx context.Context, priceListID uuid.UUID) ([]PriceEntryView, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a price list repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, list *models.PriceList) error {
	if list.ID == uuid.Nil {
		list.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PriceList, error) {
	var list models.PriceList
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.PriceList, error) {
	var list models.PriceList
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PriceList{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("price_list_id = ?", id).Delete(&models.PriceListProduct{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.PriceList{}).Error
	})
}

func (r *repository) List(ctx context.Context) ([]models.PriceList, error) {
	var lists []models.PriceList
	err := r.db.WithContext(ctx).Order("name ASC").Find(&lists).Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *repository) UpsertPrice(ctx context.Context, entry *models.PriceListProduct) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "price_list_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
		}).
		Create(entry).Error
}

func (r *repository) RemovePrice(ctx context.Context, priceListID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("price_list_id = ? AND product_id = ?", priceListID, productID).
		Delete(&models.PriceListProduct{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListPrices(ctx context.Context, priceListID uuid.UUID) ([]models.PriceListProduct, error) {
	var entries []models.PriceListProduct
	err := r.db.WithContext(ctx).
		Where("price_list_id = ?", priceListID).
		Order("product_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasOrders(ctx context.Context, priceListID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("price_list_id = ?", priceListID).
		Count(&count).Error
	return count > 0, err
}

type service struct {
	repo  Repository
	trail audit.Recorder
}

// NewService builds the price list service.
func NewService(repo Repository, trail audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("price list repository required")
	}
	if trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, trail: trail}, nil
}

func (s *service) Create(ctx context.Context, input PriceListInput) (*PriceListView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "price list name already in use").
			WithDetails(map[string]any{"name": name})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	list := models.PriceList{Name: name, IsActive: true}
	if err := s.repo.Create(ctx, &list); err != nil {
		return nil, err
	}
	s.record(ctx, input.ActorID, "price_list.created", list.ID, nil)
	return listView(&list), nil
}

func (s *service) Update(ctx context.Context, priceListID uuid.UUID, input PriceListInput) (*PriceListView, error) {
	if _, err := s.load(ctx, priceListID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateFields(ctx, priceListID, updates); err != nil {
			return nil, err
		}
	}

	s.record(ctx, input.ActorID, "price_list.updated", priceListID, nil)
	return s.Get(ctx, priceListID)
}

func (s *service) Delete(ctx context.Context, priceListID, actorID uuid.UUID) error {
	if _, err := s.load(ctx, priceListID); err != nil {
		return err
	}

	referenced, err := s.repo.HasOrders(ctx, priceListID)
	if err != nil {
		return err
	}
	if referenced {
		return pkgerrors.New(pkgerrors.CodeConflict, "price list is referenced by orders").
			WithDetails(map[string]any{"price_list_id": priceListID})
	}

	if err := s.repo.Delete(ctx, priceListID); err != nil {
		return err
	}
	s.record(ctx, actorID, "price_list.deleted", priceListID, nil)
	return nil
}

func (s *service) Get(ctx context.Context, priceListID uuid.UUID) (*PriceListView, error) {
	list, err := s.load(ctx, priceListID)
	if err != nil {
		return nil, err
	}
	return listView(list), nil
}

func (s *service) List(ctx context.Context) ([]PriceListView, error) {
	lists, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PriceListView, 0, len(lists))
	for i := range lists {
		views = append(views, *listView(&lists[i]))
	}
	return views, nil
}

func (s *service) SetPrice(ctx context.Context, priceListID uuid.UUID, assignment PriceAssignment) (*PriceEntryView, error) {
	if _, err := s.load(ctx, priceListID); err != nil {
		return nil, err
	}
	if assignment.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if assignment.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			WithDetails(map[string]any{"product_id": assignment.ProductID})
	}

	ok, err := s.repo.ProductExists(ctx, assignment.ProductID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": assignment.ProductID})
	}

	entry := models.PriceListProduct{
		PriceListID: priceListID,
		ProductID:   assignment.ProductID,
		Price:       assignment.Price,
	}
	if err := s.repo.UpsertPrice(ctx, &entry); err != nil {
		return nil, err
	}

	s.record(ctx, assignment.ActorID, "price_list.price_set", priceListID, map[string]any{
		"product_id": assignment.ProductID,
		"price":      assignment.Price,
	})
	return &PriceEntryView{ProductID: entry.ProductID, Price: entry.Price, UpdatedAt: entry.UpdatedAt}, nil
}

func (s *service) RemovePrice(ctx context.Context, priceListID, productID, actorID uuid.UUID) error {
	if _, err := s.load(ctx, priceListID); err != nil {
		return err
	}

	err := s.repo.RemovePrice(ctx, priceListID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "price not found").
			WithDetails(map[string]any{"price_list_id": priceListID, "product_id": productID})
	}
	if err != nil {
		return err
	}

	s.record(ctx, actorID, "price_list.price_removed", priceListID, map[string]any{
		"product_id": productID,
	})
	return nil
}

func (s *service) ListPrices(ctx context.Context, priceListID uuid.UUID) ([]PriceEntryView, error) {
	if _, err := s.load(ctx, priceListID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListPrices(ctx, priceListID)
	if err != nil {
		return nil, err
	}
	views := make([]PriceEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, PriceEntryView{
			ProductID: entry.ProductID,
			Price:     entry.Price,
			UpdatedAt: entry.UpdatedAt,
		})
	}
	return views, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.PriceList, error) {
	list, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price list not found").
			WithDetails(map[string]any{"price_list_id": id})
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID, payload map[string]any) {
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	s.trail.Record(ctx, audit.Event{
		ActorID:    actor,
		Action:     action,
		EntityType: "price_list",
		EntityID:   &entityID,
		Payload:    payload,
	})
}

func listView(l *models.PriceList) *PriceListView {
	return &PriceListView{
		ID:        l.ID,
		Name:      l.Name,
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
