package repository

import (
	"context"
	"errors"

	"agromed-backend/internal/model"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MedicineRepository interface {
	Create(ctx context.Context, medicine *model.Medicine) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
	FindByCode(ctx context.Context, code string) (*model.Medicine, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error)
}

type medicineRepository struct {
	db *gorm.DB
}

func NewMedicineRepository(db *gorm.DB) MedicineRepository {
	return &medicineRepository{db: db}
}

func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	return GetDB(ctx, r.db).Create(medicine).Error
}

func (r *medicineRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).First(&medicine, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("medicine", id)
		}
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepository) FindByCode(ctx context.Context, code string) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&medicine).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("medicine", code)
		}
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepository) List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	var medicines []model.Medicine
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Medicine{})
	if search != "" {
		db = db.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&medicines).Error; err != nil {
		return nil, 0, err
	}

	return medicines, total, nil
}

type StockRepository interface {
	CreateBatch(ctx context.Context, batch *model.StockBatch) error
	FindBatchByID(ctx context.Context, id uuid.UUID) (*model.StockBatch, error)
	ListBatches(ctx context.Context, medicineID *uuid.UUID, page, limit int) ([]model.StockBatch, int64, error)
	// FindBatchesForUpdate returns the medicine's non-empty batches ordered
	// earliest expiry first, row-locked for the current transaction.
	FindBatchesForUpdate(ctx context.Context, medicineID uuid.UUID) ([]model.StockBatch, error)
	// Decrement atomically lowers a batch's stock, refusing to go negative.
	Decrement(ctx context.Context, batchID uuid.UUID, quantity int) (stockAfter int, err error)
	CreateMovement(ctx context.Context, movement *model.StockMovement) error
	ListMovements(ctx context.Context, batchID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
	ListLowStock(ctx context.Context) ([]model.StockBatch, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) CreateBatch(ctx context.Context, batch *model.StockBatch) error {
	return GetDB(ctx, r.db).Create(batch).Error
}

func (r *stockRepository) FindBatchByID(ctx context.Context, id uuid.UUID) (*model.StockBatch, error) {
	var batch model.StockBatch
	if err := GetDB(ctx, r.db).Preload("Medicine").First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("stock batch", id)
		}
		return nil, err
	}
	return &batch, nil
}

func (r *stockRepository) ListBatches(ctx context.Context, medicineID *uuid.UUID, page, limit int) ([]model.StockBatch, int64, error) {
	var batches []model.StockBatch
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockBatch{})
	if medicineID != nil {
		db = db.Where("medicine_id = ?", *medicineID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Medicine").Order("expiry_date asc").
		Offset(offset).Limit(limit).Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (r *stockRepository) FindBatchesForUpdate(ctx context.Context, medicineID uuid.UUID) ([]model.StockBatch, error) {
	var batches []model.StockBatch
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("medicine_id = ? AND current_stock > 0", medicineID).
		Order("expiry_date asc").
		Find(&batches).Error
	return batches, err
}

func (r *stockRepository) Decrement(ctx context.Context, batchID uuid.UUID, quantity int) (int, error) {
	db := GetDB(ctx, r.db)

	// Guarded UPDATE: the WHERE clause re-checks availability so two
	// competing transactions cannot both drain the same units.
	res := db.Model(&model.StockBatch{}).
		Where("id = ? AND current_stock >= ?", batchID, quantity).
		UpdateColumn("current_stock", gorm.Expr("current_stock - ?", quantity))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.InsufficientStock("batch %s has fewer than %d units available", batchID, quantity)
	}

	var batch model.StockBatch
	if err := db.Select("current_stock").First(&batch, "id = ?", batchID).Error; err != nil {
		return 0, err
	}
	return batch.CurrentStock, nil
}

func (r *stockRepository) CreateMovement(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *stockRepository) ListMovements(ctx context.Context, batchID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{})
	if batchID != nil {
		db = db.Where("batch_id = ?", *batchID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

func (r *stockRepository) ListLowStock(ctx context.Context) ([]model.StockBatch, error) {
	var batches []model.StockBatch
	err := GetDB(ctx, r.db).Preload("Medicine").
		Where("current_stock <= min_stock").
		Order("expiry_date asc").
		Find(&batches).Error
	return batches, err
}
