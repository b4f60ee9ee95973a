package pricelists

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:pricelists_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.PriceList{},
		&models.PriceListProduct{},
		&models.Product{},
		&models.Order{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn), audit.NewNoop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		SKU:      "SKU-" + uuid.NewString()[:8],
		Name:     "Widget",
		IsActive: true,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func TestPriceListCRUD(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := svc.Create(ctx, PriceListInput{Name: "retail", ActorID: actor})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.IsActive {
		t.Fatalf("expected new list active")
	}

	if _, err := svc.Create(ctx, PriceListInput{Name: "retail", ActorID: actor}); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}

	inactive := false
	updated, err := svc.Update(ctx, created.ID, PriceListInput{Name: "wholesale", IsActive: &inactive, ActorID: actor})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "wholesale" || updated.IsActive {
		t.Fatalf("update not applied %+v", updated)
	}

	if err := svc.Delete(ctx, created.ID, actor); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetPriceUpsertsAndRemoves(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()
	productID := seedProduct(t, conn)

	list, err := svc.Create(ctx, PriceListInput{Name: "retail", ActorID: actor})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	entry, err := svc.SetPrice(ctx, list.ID, PriceAssignment{
		ProductID: productID,
		Price:     decimal.RequireFromString("5.00"),
		ActorID:   actor,
	})
	if err != nil {
		t.Fatalf("set price: %v", err)
	}
	if !entry.Price.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("unexpected price %s", entry.Price)
	}

	// setting again overwrites instead of duplicating
	if _, err := svc.SetPrice(ctx, list.ID, PriceAssignment{
		ProductID: productID,
		Price:     decimal.RequireFromString("7.25"),
		ActorID:   actor,
	}); err != nil {
		t.Fatalf("set price again: %v", err)
	}

	entries, err := svc.ListPrices(ctx, list.ID)
	if err != nil {
		t.Fatalf("list prices: %v", err)
	}
	if len(entries) != 1 || !entries[0].Price.Equal(decimal.RequireFromString("7.25")) {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if err := svc.RemovePrice(ctx, list.ID, productID, actor); err != nil {
		t.Fatalf("remove price: %v", err)
	}
	if err := svc.RemovePrice(ctx, list.ID, productID, actor); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestSetPriceValidation(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()
	productID := seedProduct(t, conn)

	list, err := svc.Create(ctx, PriceListInput{Name: "retail", ActorID: actor})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	_, err = svc.SetPrice(ctx, list.ID, PriceAssignment{
		ProductID: productID,
		Price:     decimal.RequireFromString("-1.00"),
		ActorID:   actor,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.SetPrice(ctx, list.ID, PriceAssignment{
		ProductID: uuid.New(),
		Price:     decimal.RequireFromString("1.00"),
		ActorID:   actor,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestDeleteBlockedWhileOrdersReference(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()

	list, err := svc.Create(ctx, PriceListInput{Name: "retail", ActorID: actor})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	order := models.Order{
		ID:          uuid.New(),
		CustomerID:  uuid.New(),
		WarehouseID: uuid.New(),
		PriceListID: list.ID,
		UserID:      actor,
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if err := svc.Delete(ctx, list.ID, actor); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
