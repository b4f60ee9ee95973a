package customers

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
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// CustomerInput carries the customer fields for create and update.
type CustomerInput struct {
	Name     string
	Email    *string
	Phone    *string
	Address  *string
	IsActive *bool
	ActorID  uuid.UUID
}

// CustomerView is the API projection of a customer.
type CustomerView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerList is a cursor page of customers.
type CustomerList struct {
	Items      []CustomerView `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// Repository defines persistence operations for customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params, query string) ([]models.Customer, *string, error)
	HasOrders(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service exposes customer management.
type Service interface {
	Create(ctx context.Context, input CustomerInput) (*CustomerView, error)
	Update(ctx context.Context, customerID uuid.UUID, input CustomerInput) (*CustomerView, error)
	Delete(ctx context.Context, customerID, actorID uuid.UUID) error
	Get(ctx context.Context, customerID uuid.UUID) (*CustomerView, error)
	List(ctx context.Context, params pagination.Params, query string) (*CustomerList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Customer{}).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params, query string) ([]models.Customer, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	q := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?", pattern, pattern)
	}
	if cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Customer
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &encoded
	}
	return rows, next, nil
}

func (r *repository) HasOrders(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("customer_id = ?", id).
		Count(&count).Error
	return count > 0, err
}

type service struct {
	repo  Repository
	trail audit.Recorder
}

// NewService builds the customer service.
func NewService(repo Repository, trail audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, trail: trail}, nil
}

func (s *service) Create(ctx context.Context, input CustomerInput) (*CustomerView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	customer := models.Customer{
		Name:     name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, &customer); err != nil {
		return nil, err
	}
	s.record(ctx, input.ActorID, "customer.created", customer.ID)
	return view(&customer), nil
}

func (s *service) Update(ctx context.Context, customerID uuid.UUID, input CustomerInput) (*CustomerView, error) {
	if _, err := s.load(ctx, customerID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateFields(ctx, customerID, updates); err != nil {
			return nil, err
		}
	}

	s.record(ctx, input.ActorID, "customer.updated", customerID)
	return s.Get(ctx, customerID)
}

func (s *service) Delete(ctx context.Context, customerID, actorID uuid.UUID) error {
	if _, err := s.load(ctx, customerID); err != nil {
		return err
	}

	ordered, err := s.repo.HasOrders(ctx, customerID)
	if err != nil {
		return err
	}
	if ordered {
		return pkgerrors.New(pkgerrors.CodeConflict, "customer has orders").
			WithDetails(map[string]any{"customer_id": customerID})
	}

	if err := s.repo.Delete(ctx, customerID); err != nil {
		return err
	}
	s.record(ctx, actorID, "customer.deleted", customerID)
	return nil
}

func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*CustomerView, error) {
	customer, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return view(customer), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, query string) (*CustomerList, error) {
	rows, next, err := s.repo.List(ctx, params, query)
	if err != nil {
		return nil, err
	}
	items := make([]CustomerView, 0, len(rows))
	for i := range rows {
		items = append(items, *view(&rows[i]))
	}
	return &CustomerList{Items: items, NextCursor: next}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
			WithDetails(map[string]any{"customer_id": id})
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID) {
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	s.trail.Record(ctx, audit.Event{
		ActorID:    actor,
		Action:     action,
		EntityType: "customer",
		EntityID:   &entityID,
	})
}

func view(c *models.Customer) *CustomerView {
	return &CustomerView{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
