package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

type ledger struct {
	repo Repository
}

// NewLedger builds the stock ledger on top of the repository.
func NewLedger(repo Repository) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &ledger{repo: repo}, nil
}

func (l *ledger) Add(ctx context.Context, tx *gorm.DB, input MovementInput) (int, error) {
	repo, err := l.begin(tx, input)
	if err != nil {
		return 0, err
	}

	// Upsert-then-lock: a plain FOR UPDATE has no row to lock on the first
	// movement for a pair, letting two concurrent creates race.
	if err := repo.EnsureEntry(ctx, input.ProductID, input.WarehouseID); err != nil {
		return 0, err
	}
	entry, err := repo.GetEntryForUpdate(ctx, input.ProductID, input.WarehouseID)
	if err != nil {
		return 0, err
	}

	quantity := input.Quantity
	if entry != nil {
		quantity = entry.Quantity + input.Quantity
	}
	if err := repo.SetEntryQuantity(ctx, input.ProductID, input.WarehouseID, quantity); err != nil {
		return 0, err
	}

	if err := l.logMovement(ctx, repo, input, enums.MovementDirectionIn); err != nil {
		return 0, err
	}
	return quantity, nil
}

func (l *ledger) Remove(ctx context.Context, tx *gorm.DB, input MovementInput) (int, error) {
	repo, err := l.begin(tx, input)
	if err != nil {
		return 0, err
	}

	entry, err := repo.GetEntryForUpdate(ctx, input.ProductID, input.WarehouseID)
	if err != nil {
		return 0, err
	}

	available := 0
	if entry != nil {
		available = entry.Quantity
	}
	if available < input.Quantity {
		return 0, insufficientStock(input, available)
	}

	quantity := available - input.Quantity
	if err := repo.SetEntryQuantity(ctx, input.ProductID, input.WarehouseID, quantity); err != nil {
		return 0, err
	}

	if err := l.logMovement(ctx, repo, input, enums.MovementDirectionOut); err != nil {
		return 0, err
	}
	return quantity, nil
}

func (l *ledger) begin(tx *gorm.DB, input MovementInput) (Repository, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock ledger requires a transaction")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement quantity must be positive").
			WithDetails(map[string]any{"quantity": input.Quantity})
	}
	if input.ProductID == uuid.Nil || input.WarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product and warehouse are required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	return l.repo.WithTx(tx), nil
}

func (l *ledger) logMovement(ctx context.Context, repo Repository, input MovementInput, direction enums.MovementDirection) error {
	return repo.CreateMovement(ctx, &models.MovementLog{
		UserID:      input.ActorID,
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		Direction:   direction,
		Quantity:    input.Quantity,
		Comment:     input.Comment,
	})
}

func insufficientStock(input MovementInput, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for removal").
		WithDetails(map[string]any{
			"product_id":   input.ProductID,
			"warehouse_id": input.WarehouseID,
			"requested":    input.Quantity,
			"available":    available,
		})
}
