package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/audit"
	"github.com/stockflowhq/stockflow-backend/internal/pricing"
	"github.com/stockflowhq/stockflow-backend/internal/stock"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger stock.Ledger
	prices pricing.Resolver
	trail  audit.Recorder
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger stock.Ledger, prices pricing.Resolver, trail audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if prices == nil {
		return nil, fmt.Errorf("pricing resolver required")
	}
	if trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger, prices: prices, trail: trail}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderView, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	plan, err := Reconcile(nil, input.Items)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, input.CustomerID, input.WarehouseID); err != nil {
		return nil, err
	}

	orderID := uuid.New()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		priced, terr := s.prices.ResolvePrices(ctx, tx, input.PriceListID, productIDs(input.Items))
		if terr != nil {
			return terr
		}

		repo := s.repo.WithTx(tx)
		order := models.Order{
			ID:          orderID,
			CustomerID:  input.CustomerID,
			WarehouseID: input.WarehouseID,
			PriceListID: input.PriceListID,
			UserID:      input.ActorID,
			Status:      enums.OrderStatusPending,
			Total:       decimal.Zero,
			Notes:       input.Notes,
		}
		if terr := repo.CreateOrder(ctx, &order); terr != nil {
			return terr
		}

		for _, item := range plan.Added {
			if terr := s.deductAndCreateItem(ctx, tx, repo, &order, item, priced[item.ProductID]); terr != nil {
				return terr
			}
		}
		return s.recomputeTotal(ctx, repo, orderID)
	})
	if err != nil {
		return nil, err
	}

	view, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, input.ActorID, "order.created", orderID, view.Total)
	return view, nil
}

func (s *service) Update(ctx context.Context, input UpdateOrderInput) (*OrderView, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be updated").
			WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
	}

	listID := order.PriceListID
	if input.PriceListID != nil && *input.PriceListID != uuid.Nil {
		listID = *input.PriceListID
	}
	listChanged := listID != order.PriceListID

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		priced, terr := s.prices.ResolvePrices(ctx, tx, listID, productIDs(input.Items))
		if terr != nil {
			return terr
		}

		repo := s.repo.WithTx(tx)
		existing, terr := repo.FindItemsByOrder(ctx, order.ID)
		if terr != nil {
			return terr
		}
		plan, terr := Reconcile(existing, input.Items)
		if terr != nil {
			return terr
		}

		for _, item := range plan.Removed {
			if terr := s.refundItem(ctx, tx, order, item, item.Quantity); terr != nil {
				return terr
			}
		}
		if len(plan.Removed) > 0 {
			ids := make([]uuid.UUID, 0, len(plan.Removed))
			for _, item := range plan.Removed {
				ids = append(ids, item.ID)
			}
			if terr := repo.DeleteItems(ctx, ids); terr != nil {
				return terr
			}
		}

		for _, item := range plan.Added {
			if terr := s.deductAndCreateItem(ctx, tx, repo, order, item, priced[item.ProductID]); terr != nil {
				return terr
			}
		}

		for _, change := range plan.Changed {
			if terr := s.applyQuantityChange(ctx, tx, repo, order, change, priced[change.Existing.ProductID]); terr != nil {
				return terr
			}
		}

		// Unchanged items keep their stored price unless the list moved.
		if listChanged {
			for _, item := range plan.Unchanged {
				price := priced[item.ProductID]
				if terr := repo.UpdateItemFields(ctx, item.ID, map[string]any{
					"unit_price": price,
					"total":      price.Mul(decimal.NewFromInt(int64(item.Quantity))),
				}); terr != nil {
					return terr
				}
			}
		}

		updates := map[string]any{}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		if listChanged {
			updates["price_list_id"] = listID
		}
		if len(updates) > 0 {
			if terr := repo.UpdateOrderFields(ctx, order.ID, updates); terr != nil {
				return terr
			}
		}
		return s.recomputeTotal(ctx, repo, order.ID)
	})
	if err != nil {
		return nil, err
	}

	view, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, input.ActorID, "order.updated", order.ID, view.Total)
	return view, nil
}

func (s *service) Delete(ctx context.Context, orderID, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != enums.OrderStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be deleted").
			WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items, terr := repo.FindItemsByOrder(ctx, order.ID)
		if terr != nil {
			return terr
		}
		for _, item := range items {
			refund := stock.MovementInput{
				ProductID:   item.ProductID,
				WarehouseID: order.WarehouseID,
				Quantity:    item.Quantity,
				ActorID:     actorID,
				Comment:     movementComment(order.ID),
			}
			if _, terr := s.ledger.Add(ctx, tx, refund); terr != nil {
				return terr
			}
		}
		return repo.DeleteOrder(ctx, order.ID)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, actorID, "order.deleted", order.ID, order.Total)
	return nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return orderView(order), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	rows, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, err
	}
	items := make([]OrderView, 0, len(rows))
	for i := range rows {
		items = append(items, *orderView(&rows[i]))
	}
	return &OrderList{Items: items, NextCursor: next}, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": orderID})
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) deductAndCreateItem(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, item OrderItemInput, price decimal.Decimal) error {
	deduct := stock.MovementInput{
		ProductID:   item.ProductID,
		WarehouseID: order.WarehouseID,
		Quantity:    item.Quantity,
		ActorID:     order.UserID,
		Comment:     movementComment(order.ID),
	}
	if _, err := s.ledger.Remove(ctx, tx, deduct); err != nil {
		return err
	}
	row := models.OrderItem{
		OrderID:   order.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: price,
		Total:     price.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
	return repo.CreateItem(ctx, &row)
}

func (s *service) refundItem(ctx context.Context, tx *gorm.DB, order *models.Order, item models.OrderItem, quantity int) error {
	refund := stock.MovementInput{
		ProductID:   item.ProductID,
		WarehouseID: order.WarehouseID,
		Quantity:    quantity,
		ActorID:     order.UserID,
		Comment:     movementComment(order.ID),
	}
	_, err := s.ledger.Add(ctx, tx, refund)
	return err
}

func (s *service) applyQuantityChange(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, change ItemChange, price decimal.Decimal) error {
	delta := change.NewQuantity - change.Existing.Quantity
	switch {
	case delta > 0:
		deduct := stock.MovementInput{
			ProductID:   change.Existing.ProductID,
			WarehouseID: order.WarehouseID,
			Quantity:    delta,
			ActorID:     order.UserID,
			Comment:     movementComment(order.ID),
		}
		if _, err := s.ledger.Remove(ctx, tx, deduct); err != nil {
			return err
		}
	case delta < 0:
		if err := s.refundItem(ctx, tx, order, change.Existing, -delta); err != nil {
			return err
		}
	}

	total := price.Mul(decimal.NewFromInt(int64(change.NewQuantity)))
	return repo.UpdateItemFields(ctx, change.Existing.ID, map[string]any{
		"quantity":   change.NewQuantity,
		"unit_price": price,
		"total":      total,
	})
}

func (s *service) recomputeTotal(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	items, err := repo.FindItemsByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return repo.UpdateOrderFields(ctx, orderID, map[string]any{"total": total})
}

func (s *service) checkReferences(ctx context.Context, customerID, warehouseID uuid.UUID) error {
	ok, err := s.repo.CustomerExists(ctx, customerID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
			WithDetails(map[string]any{"customer_id": customerID})
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

func (s *service) audit(ctx context.Context, actorID uuid.UUID, action string, orderID uuid.UUID, total decimal.Decimal) {
	s.trail.Record(ctx, audit.Event{
		ActorID:    &actorID,
		Action:     action,
		EntityType: "order",
		EntityID:   &orderID,
		Payload:    map[string]any{"total": total},
	})
}

func productIDs(items []OrderItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func movementComment(orderID uuid.UUID) *string {
	comment := "order " + orderID.String()
	return &comment
}
