package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

// Resolver resolves unit prices for a set of products against one price
// list. Resolution happens before any stock or order mutation so a missing
// price fails the whole operation up front.
type Resolver interface {
	ResolvePrices(ctx context.Context, tx *gorm.DB, priceListID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

type resolver struct {
	repo Repository
}

// NewResolver builds a Resolver on top of the pricing repository.
func NewResolver(repo Repository) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &resolver{repo: repo}, nil
}

func (r *resolver) ResolvePrices(ctx context.Context, tx *gorm.DB, priceListID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	if priceListID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price list is required")
	}

	repo := r.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	ok, err := repo.PriceListExists(ctx, priceListID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price list not found").
			WithDetails(map[string]any{"price_list_id": priceListID})
	}

	rows, err := repo.FindPrices(ctx, priceListID, dedupe(productIDs))
	if err != nil {
		return nil, err
	}

	prices := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		prices[row.ProductID] = row.Price
	}

	for _, id := range productIDs {
		if _, found := prices[id]; !found {
			return nil, pkgerrors.New(pkgerrors.CodePriceNotFound, "product has no price on the price list").
				WithDetails(map[string]any{
					"product_id":    id,
					"price_list_id": priceListID,
				})
		}
	}
	return prices, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
