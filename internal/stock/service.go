package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	ledger Ledger
	tx     txRunner
	trail  audit.Recorder
}

// NewService builds the stock service with the required dependencies.
func NewService(repo Repository, ledger Ledger, tx txRunner, trail audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, ledger: ledger, tx: tx, trail: trail}, nil
}

func (s *service) AddStock(ctx context.Context, input AdjustStockInput) (*StockEntryView, error) {
	return s.adjust(ctx, input, "stock.added", s.ledger.Add)
}

func (s *service) RemoveStock(ctx context.Context, input AdjustStockInput) (*StockEntryView, error) {
	return s.adjust(ctx, input, "stock.removed", s.ledger.Remove)
}

type mutation func(ctx context.Context, tx *gorm.DB, input MovementInput) (int, error)

func (s *service) adjust(ctx context.Context, input AdjustStockInput, action string, apply mutation) (*StockEntryView, error) {
	if err := s.checkReferences(ctx, input.ProductID, input.WarehouseID); err != nil {
		return nil, err
	}

	var quantity int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var terr error
		quantity, terr = apply(ctx, tx, MovementInput{
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			Quantity:    input.Quantity,
			ActorID:     input.ActorID,
			Comment:     input.Comment,
		})
		return terr
	})
	if err != nil {
		return nil, err
	}

	s.trail.Record(ctx, audit.Event{
		ActorID:    &input.ActorID,
		Action:     action,
		EntityType: "stock_entry",
		EntityID:   &input.ProductID,
		Payload: map[string]any{
			"warehouse_id": input.WarehouseID,
			"quantity":     input.Quantity,
			"balance":      quantity,
		},
	})

	entry, err := s.repo.GetEntry(ctx, input.ProductID, input.WarehouseID)
	if err != nil {
		return nil, err
	}
	return entryView(entry), nil
}

func (s *service) GetStock(ctx context.Context, productID, warehouseID uuid.UUID) (*StockEntryView, error) {
	entry, err := s.repo.GetEntry(ctx, productID, warehouseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &StockEntryView{ProductID: productID, WarehouseID: warehouseID}, nil
	}
	if err != nil {
		return nil, err
	}
	return entryView(entry), nil
}

func (s *service) ListWarehouseStock(ctx context.Context, warehouseID uuid.UUID) ([]StockEntryView, error) {
	entries, err := s.repo.ListEntriesByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	views := make([]StockEntryView, 0, len(entries))
	for i := range entries {
		views = append(views, *entryView(&entries[i]))
	}
	return views, nil
}

func (s *service) ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementList, error) {
	rows, next, err := s.repo.ListMovementsByProduct(ctx, productID, params)
	if err != nil {
		return nil, err
	}
	items := make([]MovementView, 0, len(rows))
	for _, row := range rows {
		items = append(items, movementView(row))
	}
	return &MovementList{Items: items, NextCursor: next}, nil
}

func (s *service) checkReferences(ctx context.Context, productID, warehouseID uuid.UUID) error {
	ok, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	ok, err = s.repo.WarehouseExists(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found").
			WithDetails(map[string]any{"warehouse_id": warehouseID})
	}
	return nil
}
