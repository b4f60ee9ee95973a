package warehouses

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:warehouses_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Warehouse{}, &models.StockEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn), audit.NewNoop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func TestWarehouseCRUD(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := svc.Create(ctx, WarehouseInput{Name: "Main", ActorID: actor})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	location := "Dock 4"
	updated, err := svc.Update(ctx, created.ID, WarehouseInput{Location: &location, ActorID: actor})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Location == nil || *updated.Location != location {
		t.Fatalf("location not applied: %+v", updated)
	}

	if err := svc.Delete(ctx, created.ID, actor); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWarehouseDeleteBlockedWhileStocked(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := svc.Create(ctx, WarehouseInput{Name: "Main", ActorID: actor})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	entry := models.StockEntry{ProductID: uuid.New(), WarehouseID: created.ID, Quantity: 1}
	if err := conn.Create(&entry).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	if err := svc.Delete(ctx, created.ID, actor); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// A drained entry no longer blocks deletion.
	if err := conn.Model(&models.StockEntry{}).Where("warehouse_id = ?", created.ID).Update("quantity", 0).Error; err != nil {
		t.Fatalf("zero stock: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, actor); err != nil {
		t.Fatalf("delete after drain: %v", err)
	}
}

func TestWarehouseCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), WarehouseInput{Name: "  "}); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
