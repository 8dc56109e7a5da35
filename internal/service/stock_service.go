package service

import (
	"context"
	"fmt"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	ws "agromed-backend/internal/websocket"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateMedicineRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Unit     string `json:"unit" binding:"required"`
	Category string `json:"category"`
}

type CreateBatchRequest struct {
	MedicineID   string    `json:"medicine_id" binding:"required"`
	BatchNumber  string    `json:"batch_number" binding:"required"`
	InitialStock int       `json:"initial_stock" binding:"required,gt=0"`
	MinStock     int       `json:"min_stock" binding:"min=0"`
	EntryDate    time.Time `json:"entry_date" binding:"required"`
	ExpiryDate   time.Time `json:"expiry_date" binding:"required"`
}

// --- Interface ---

type StockService interface {
	CreateMedicine(ctx context.Context, actor Actor, req CreateMedicineRequest) (*model.Medicine, error)
	ListMedicines(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error)
	CreateBatch(ctx context.Context, actor Actor, req CreateBatchRequest) (*model.StockBatch, error)
	ListBatches(ctx context.Context, medicineID *uuid.UUID, page, limit int) ([]model.StockBatch, int64, error)
	ListMovements(ctx context.Context, batchID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
	ListLowStock(ctx context.Context) ([]model.StockBatch, error)
}

type stockService struct {
	medicineRepo repository.MedicineRepository
	stockRepo    repository.StockRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewStockService(
	medicineRepo repository.MedicineRepository,
	stockRepo repository.StockRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) StockService {
	return &stockService{
		medicineRepo: medicineRepo,
		stockRepo:    stockRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

func (s *stockService) CreateMedicine(ctx context.Context, actor Actor, req CreateMedicineRequest) (*model.Medicine, error) {
	if existing, _ := s.medicineRepo.FindByCode(ctx, req.Code); existing != nil {
		return nil, apperrors.Validation("medicine code %q already exists", req.Code)
	}

	medicine := &model.Medicine{
		Code:     req.Code,
		Name:     req.Name,
		Unit:     req.Unit,
		Category: req.Category,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.medicineRepo.Create(txCtx, medicine); err != nil {
			return fmt.Errorf("failed to create medicine: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateMedicine,
			model.ResourceMedicine, medicine.ID.String(),
			nil, map[string]interface{}{"code": medicine.Code, "name": medicine.Name})
	})
	if err != nil {
		return nil, err
	}
	return medicine, nil
}

func (s *stockService) ListMedicines(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	return s.medicineRepo.List(ctx, page, limit, search)
}

func (s *stockService) CreateBatch(ctx context.Context, actor Actor, req CreateBatchRequest) (*model.StockBatch, error) {
	medicineID, err := uuid.Parse(req.MedicineID)
	if err != nil {
		return nil, apperrors.Validation("invalid medicine_id %q", req.MedicineID)
	}
	if !req.ExpiryDate.After(req.EntryDate) {
		return nil, apperrors.Validation("expiry_date must be after entry_date")
	}

	medicine, err := s.medicineRepo.FindByID(ctx, medicineID)
	if err != nil {
		return nil, err
	}

	batch := &model.StockBatch{
		MedicineID:   medicine.ID,
		BatchNumber:  req.BatchNumber,
		CurrentStock: req.InitialStock,
		InitialStock: req.InitialStock,
		MinStock:     req.MinStock,
		EntryDate:    req.EntryDate,
		ExpiryDate:   req.ExpiryDate,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.stockRepo.CreateBatch(txCtx, batch); err != nil {
			return fmt.Errorf("failed to create stock batch: %w", err)
		}

		movement := &model.StockMovement{
			BatchID:         batch.ID,
			MedicineID:      medicine.ID,
			MovementType:    model.MovementIn,
			QuantityChanged: req.InitialStock,
			StockAfter:      req.InitialStock,
		}
		if err := s.stockRepo.CreateMovement(txCtx, movement); err != nil {
			return fmt.Errorf("failed to record intake movement: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateStockBatch,
			model.ResourceStockBatch, batch.ID.String(),
			nil, map[string]interface{}{
				"medicine":      medicine.Code,
				"batch_number":  batch.BatchNumber,
				"initial_stock": batch.InitialStock,
			})
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "stock_changed", map[string]interface{}{
		"medicine_id":   medicine.ID.String(),
		"batch_id":      batch.ID.String(),
		"current_stock": batch.CurrentStock,
	})
	return batch, nil
}

func (s *stockService) ListBatches(ctx context.Context, medicineID *uuid.UUID, page, limit int) ([]model.StockBatch, int64, error) {
	return s.stockRepo.ListBatches(ctx, medicineID, page, limit)
}

func (s *stockService) ListMovements(ctx context.Context, batchID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	return s.stockRepo.ListMovements(ctx, batchID, page, limit)
}

func (s *stockService) ListLowStock(ctx context.Context) ([]model.StockBatch, error) {
	return s.stockRepo.ListLowStock(ctx)
}
