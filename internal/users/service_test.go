package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/security"
)

// low-cost argon parameters keep the tests fast
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn), testPasswordConfig(), audit.NewNoop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateHashesPasswordAndDefaultsRole(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{
		Email:    "Ops@Example.Test",
		Password: "hunter22",
		Name:     "Ops User",
		ActorID:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TempPassword != nil {
		t.Fatalf("expected no temp password when one was supplied")
	}
	if created.User.Email != "ops@example.test" {
		t.Fatalf("email not normalized: %q", created.User.Email)
	}
	if created.User.Role != enums.UserRoleStaff {
		t.Fatalf("expected staff default, got %s", created.User.Role)
	}
	if created.User.Locale != "en" {
		t.Fatalf("expected en default locale, got %s", created.User.Locale)
	}
}

func TestCreateGeneratesTempPassword(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{
		Email:   "temp@example.test",
		Name:    "Temp User",
		Role:    enums.UserRoleManager,
		ActorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TempPassword == nil || len(*created.TempPassword) != tempPasswordLength {
		t.Fatalf("expected generated temp password, got %+v", created.TempPassword)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	input := CreateUserInput{Email: "dup@example.test", Password: "hunter22", Name: "First", ActorID: uuid.New()}
	if _, err := svc.Create(ctx, input); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, input); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateChangesPasswordAndRole(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := svc.Create(ctx, CreateUserInput{
		Email:    "rotate@example.test",
		Password: "oldpassword",
		Name:     "Rotate",
		ActorID:  actor,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPassword := "newpassword"
	role := enums.UserRoleAdmin
	updated, err := svc.Update(ctx, created.User.ID, UpdateUserInput{
		Password: &newPassword,
		Role:     &role,
		ActorID:  actor,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != enums.UserRoleAdmin {
		t.Fatalf("role not applied: %s", updated.Role)
	}

	bad := enums.UserRole("owner")
	if _, err := svc.Update(ctx, created.User.ID, UpdateUserInput{Role: &bad, ActorID: actor}); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := svc.Create(ctx, CreateUserInput{
		Email:    "leaver@example.test",
		Password: "hunter22",
		Name:     "Leaver",
		ActorID:  actor,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Deactivate(ctx, created.User.ID, actor); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := svc.Deactivate(ctx, created.User.ID, actor); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}

	got, err := svc.Get(ctx, created.User.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsActive {
		t.Fatalf("expected inactive user")
	}
}

func TestStoredHashVerifies(t *testing.T) {
	t.Parallel()

	cfg := testPasswordConfig()
	hash, err := security.HashPassword("hunter22", cfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := security.VerifyPassword("hunter22", hash)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
}
