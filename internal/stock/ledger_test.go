package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.StockEntry{}, &models.MovementLog{}, &models.Product{}, &models.Warehouse{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestLedger(t *testing.T, conn *gorm.DB) Ledger {
	t.Helper()
	led, err := NewLedger(NewRepository(conn))
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return led
}

func TestLedgerAddCreatesEntryAndMovement(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	led := newTestLedger(t, conn)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		qty, terr := led.Add(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 10, ActorID: actor})
		if terr != nil {
			return terr
		}
		if qty != 10 {
			t.Fatalf("expected balance 10, got %d", qty)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}

	var entry models.StockEntry
	if err := conn.First(&entry, "product_id = ? AND warehouse_id = ?", product, warehouse).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Quantity != 10 {
		t.Fatalf("expected quantity 10, got %d", entry.Quantity)
	}

	var logs []models.MovementLog
	if err := conn.Find(&logs, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(logs))
	}
	if logs[0].Direction != enums.MovementDirectionIn || logs[0].Quantity != 10 || logs[0].UserID != actor {
		t.Fatalf("unexpected movement %+v", logs[0])
	}
}

func TestLedgerAddAccumulates(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	led := newTestLedger(t, conn)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	for _, qty := range []int{4, 6} {
		err := conn.Transaction(func(tx *gorm.DB) error {
			_, terr := led.Add(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: qty, ActorID: actor})
			return terr
		})
		if err != nil {
			t.Fatalf("add %d: %v", qty, err)
		}
	}

	var entry models.StockEntry
	if err := conn.First(&entry, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Quantity != 10 {
		t.Fatalf("expected quantity 10, got %d", entry.Quantity)
	}
}

func TestLedgerRemoveDeductsAndLogs(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	led := newTestLedger(t, conn)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, terr := led.Add(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 10, ActorID: actor}); terr != nil {
			return terr
		}
		qty, terr := led.Remove(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 4, ActorID: actor})
		if terr != nil {
			return terr
		}
		if qty != 6 {
			t.Fatalf("expected balance 6, got %d", qty)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	var logs []models.MovementLog
	if err := conn.Order("created_at ASC").Find(&logs, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(logs))
	}
	outs := 0
	for _, row := range logs {
		if row.Direction == enums.MovementDirectionOut {
			outs++
			if row.Quantity != 4 {
				t.Fatalf("expected out quantity 4, got %d", row.Quantity)
			}
		}
	}
	if outs != 1 {
		t.Fatalf("expected exactly one out movement, got %d", outs)
	}
}

func TestLedgerRemoveInsufficientStock(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	led := newTestLedger(t, conn)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, terr := led.Add(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 3, ActorID: actor}); terr != nil {
			return terr
		}
		_, terr := led.Remove(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 5, ActorID: actor})
		return terr
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["requested"] != 5 || details["available"] != 3 {
		t.Fatalf("unexpected details %+v", details)
	}

	// Rolled back: no entry mutation, no movement rows survive.
	var logs []models.MovementLog
	if err := conn.Find(&logs, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected rollback to drop movements, got %d", len(logs))
	}
}

func TestLedgerRemoveMissingEntryReportsZeroAvailable(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	led := newTestLedger(t, conn)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, terr := led.Remove(ctx, tx, MovementInput{ProductID: uuid.New(), WarehouseID: uuid.New(), Quantity: 1, ActorID: uuid.New()})
		return terr
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details := typed.Details().(map[string]any)
	if details["available"] != 0 {
		t.Fatalf("expected available 0, got %v", details["available"])
	}
}

func TestLedgerConcurrentRemovalsNeverOversell(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	led := newTestLedger(t, conn)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, terr := led.Add(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 5, ActorID: actor})
		return terr
	})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- conn.Transaction(func(tx *gorm.DB) error {
				_, terr := led.Remove(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 5, ActorID: actor})
				return terr
			})
		}()
	}
	wg.Wait()
	close(results)

	failures := 0
	for err := range results {
		if err == nil {
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
			t.Fatalf("unexpected error: %v", err)
		}
		failures++
	}
	if failures != 1 {
		t.Fatalf("expected exactly one removal to fail, got %d failures", failures)
	}

	var entry models.StockEntry
	if err := conn.First(&entry, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Quantity != 0 {
		t.Fatalf("expected final quantity 0, got %d", entry.Quantity)
	}
	var outs int64
	err = conn.Model(&models.MovementLog{}).
		Where("product_id = ? AND direction = ?", product, enums.MovementDirectionOut).
		Count(&outs).Error
	if err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if outs != 1 {
		t.Fatalf("expected exactly one out movement, got %d", outs)
	}
}

func TestLedgerConcurrentFirstMovementsBothLand(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	led := newTestLedger(t, conn)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- conn.Transaction(func(tx *gorm.DB) error {
				_, terr := led.Add(ctx, tx, MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: 5, ActorID: actor})
				return terr
			})
		}()
	}
	wg.Wait()
	close(results)
	for err := range results {
		if err != nil {
			t.Fatalf("first movement failed: %v", err)
		}
	}

	var entry models.StockEntry
	if err := conn.First(&entry, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Quantity != 10 {
		t.Fatalf("expected both additions recorded, got %d", entry.Quantity)
	}
	var ins int64
	err = conn.Model(&models.MovementLog{}).
		Where("product_id = ? AND direction = ?", product, enums.MovementDirectionIn).
		Count(&ins).Error
	if err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if ins != 2 {
		t.Fatalf("expected two in movements, got %d", ins)
	}
}

func TestLedgerRejectsBadInput(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	led := newTestLedger(t, conn)
	ctx := context.Background()

	if _, err := led.Add(ctx, nil, MovementInput{ProductID: uuid.New(), WarehouseID: uuid.New(), Quantity: 1, ActorID: uuid.New()}); err == nil {
		t.Fatal("expected error without transaction")
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, terr := led.Add(ctx, tx, MovementInput{ProductID: uuid.New(), WarehouseID: uuid.New(), Quantity: 0, ActorID: uuid.New()})
		return terr
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
