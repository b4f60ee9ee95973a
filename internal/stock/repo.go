package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetEntryForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockEntry, error) {
	query := r.db.WithContext(ctx)
	// sqlite has no row locks; serialization there comes from its writer lock.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entry models.StockEntry
	err := query.
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) EnsureEntry(ctx context.Context, productID, warehouseID uuid.UUID) error {
	entry := models.StockEntry{ProductID: productID, WarehouseID: warehouseID, Quantity: 0}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
			DoNothing: true,
		}).
		Create(&entry).Error
}

func (r *repository) SetEntryQuantity(ctx context.Context, productID, warehouseID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.StockEntry{}).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Update("quantity", quantity).Error
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.MovementLog) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) GetEntry(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockEntry, error) {
	var entry models.StockEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntriesByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.StockEntry, error) {
	var entries []models.StockEntry
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("product_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListMovementsByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.MovementLog, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.MovementLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &encoded
	}
	return rows, next, nil
}

func (r *repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) WarehouseExists(ctx context.Context, warehouseID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Warehouse{}).
		Where("id = ?", warehouseID).
		Count(&count).Error
	return count > 0, err
}
