package orders

import (
	"github.com/google/uuid"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

// ItemChange pairs a stored item with its desired quantity.
type ItemChange struct {
	Existing    models.OrderItem
	NewQuantity int
}

// Reconciliation buckets a desired item set against the stored one, keyed
// by product. Untouched items never generate stock movements.
type Reconciliation struct {
	Removed   []models.OrderItem
	Added     []OrderItemInput
	Changed   []ItemChange
	Unchanged []models.OrderItem
}

// Reconcile diffs existing order items against the desired set. Desired
// quantities must be positive and product ids unique.
func Reconcile(existing []models.OrderItem, desired []OrderItemInput) (*Reconciliation, error) {
	seen := make(map[uuid.UUID]struct{}, len(desired))
	for _, item := range desired {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID, "quantity": item.Quantity})
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in item set").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		seen[item.ProductID] = struct{}{}
	}

	current := make(map[uuid.UUID]models.OrderItem, len(existing))
	for _, item := range existing {
		current[item.ProductID] = item
	}

	result := &Reconciliation{}
	for _, item := range desired {
		stored, found := current[item.ProductID]
		switch {
		case !found:
			result.Added = append(result.Added, item)
		case stored.Quantity != item.Quantity:
			result.Changed = append(result.Changed, ItemChange{Existing: stored, NewQuantity: item.Quantity})
		default:
			result.Unchanged = append(result.Unchanged, stored)
		}
		delete(current, item.ProductID)
	}
	for _, item := range existing {
		if _, stillThere := current[item.ProductID]; stillThere {
			result.Removed = append(result.Removed, item)
		}
	}
	return result, nil
}
