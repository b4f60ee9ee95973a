package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pricing_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.PriceList{}, &models.PriceListProduct{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedPriceList(t *testing.T, conn *gorm.DB, prices map[uuid.UUID]string) uuid.UUID {
	t.Helper()
	list := models.PriceList{ID: uuid.New(), Name: "PL-" + uuid.NewString()[:8], IsActive: true}
	if err := conn.Create(&list).Error; err != nil {
		t.Fatalf("seed price list: %v", err)
	}
	for productID, price := range prices {
		row := models.PriceListProduct{
			PriceListID: list.ID,
			ProductID:   productID,
			Price:       decimal.RequireFromString(price),
		}
		if err := conn.Create(&row).Error; err != nil {
			t.Fatalf("seed price row: %v", err)
		}
	}
	return list.ID
}

func TestResolvePricesReturnsAll(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	res, err := NewResolver(NewRepository(conn))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	productA, productB := uuid.New(), uuid.New()
	listID := seedPriceList(t, conn, map[uuid.UUID]string{productA: "5.00", productB: "2.50"})

	prices, err := res.ResolvePrices(context.Background(), nil, listID, []uuid.UUID{productA, productB, productA})
	if err != nil {
		t.Fatalf("resolve prices: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(prices))
	}
	if !prices[productA].Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("unexpected price for A: %s", prices[productA])
	}
	if !prices[productB].Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("unexpected price for B: %s", prices[productB])
	}
}

func TestResolvePricesMissingProductFailsWhole(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	res, err := NewResolver(NewRepository(conn))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	priced := uuid.New()
	unpriced := uuid.New()
	listID := seedPriceList(t, conn, map[uuid.UUID]string{priced: "9.99"})

	_, err = res.ResolvePrices(context.Background(), nil, listID, []uuid.UUID{priced, unpriced})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePriceNotFound {
		t.Fatalf("expected price not found, got %v", err)
	}
	details := typed.Details().(map[string]any)
	if details["product_id"] != unpriced {
		t.Fatalf("expected missing product in details, got %+v", details)
	}
	if details["price_list_id"] != listID {
		t.Fatalf("expected price list in details, got %+v", details)
	}
}

func TestResolvePricesUnknownListIsNotFound(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	res, err := NewResolver(NewRepository(conn))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	_, err = res.ResolvePrices(context.Background(), nil, uuid.New(), []uuid.UUID{uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolvePricesEmptyProductSet(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	res, err := NewResolver(NewRepository(conn))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	listID := seedPriceList(t, conn, nil)
	prices, err := res.ResolvePrices(context.Background(), nil, listID, nil)
	if err != nil {
		t.Fatalf("resolve prices: %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("expected empty map, got %d", len(prices))
	}
}
