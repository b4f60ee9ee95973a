package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/security"
)

const tempPasswordLength = 16

// CreateUserInput carries the fields for a new user. When Password is empty
// a temporary one is generated and returned alongside the view.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Locale   string
	Role     enums.UserRole
	ActorID  uuid.UUID
}

// UpdateUserInput carries the mutable user fields. Email is immutable.
type UpdateUserInput struct {
	Name     *string
	Locale   *string
	Role     *enums.UserRole
	IsActive *bool
	Password *string
	ActorID  uuid.UUID
}

// UserView is the transport shape that omits credentials.
type UserView struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Locale      string         `json:"locale"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreatedUser pairs the stored user with the temporary password, when one
// was generated for the account.
type CreatedUser struct {
	User         UserView `json:"user"`
	TempPassword *string  `json:"temp_password,omitempty"`
}

// Repository exposes user persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context) ([]models.User, error)
}

// Service exposes user management.
type Service interface {
	Create(ctx context.Context, input CreateUserInput) (*CreatedUser, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*UserView, error)
	Deactivate(ctx context.Context, userID, actorID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*UserView, error)
	List(ctx context.Context) ([]UserView, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a user repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *repository) List(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type service struct {
	repo     Repository
	password config.PasswordConfig
	trail    audit.Recorder
}

// NewService builds the user service.
func NewService(repo Repository, password config.PasswordConfig, trail audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, password: password, trail: trail}, nil
}

func (s *service) Create(ctx context.Context, input CreateUserInput) (*CreatedUser, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	role := input.Role
	if role == "" {
		role = enums.UserRoleStaff
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role").
			WithDetails(map[string]any{"role": role})
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already in use").
			WithDetails(map[string]any{"email": email})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	password := input.Password
	var tempPassword *string
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, fmt.Errorf("generate temp password: %w", err)
		}
		password = generated
		tempPassword = &generated
	}

	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = "en"
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Locale:       locale,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		// The FindByEmail pre-check races with concurrent creates.
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already in use").
				WithDetails(map[string]any{"email": email})
		}
		return nil, err
	}

	s.record(ctx, input.ActorID, "user.created", user.ID)
	return &CreatedUser{User: *view(&user), TempPassword: tempPassword}, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*UserView, error) {
	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Locale != nil && strings.TrimSpace(*input.Locale) != "" {
		updates["locale"] = strings.TrimSpace(*input.Locale)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role").
				WithDetails(map[string]any{"role": *input.Role})
		}
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateFields(ctx, userID, updates); err != nil {
			return nil, err
		}
	}

	s.record(ctx, input.ActorID, "user.updated", userID)
	return s.Get(ctx, userID)
}

func (s *service) Deactivate(ctx context.Context, userID, actorID uuid.UUID) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"is_active": false}); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.deactivated", userID)
	return nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*UserView, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return view(user), nil
}

func (s *service) List(ctx context.Context) ([]UserView, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(rows))
	for i := range rows {
		views = append(views, *view(&rows[i]))
	}
	return views, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found").
			WithDetails(map[string]any{"user_id": id})
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID) {
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	s.trail.Record(ctx, audit.Event{
		ActorID:    actor,
		Action:     action,
		EntityType: "user",
		EntityID:   &entityID,
	})
}

func view(u *models.User) *UserView {
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Locale:      u.Locale,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
