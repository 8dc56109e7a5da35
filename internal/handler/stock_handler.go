package handler

import (
	"net/http"

	"agromed-backend/internal/middleware"
	"agromed-backend/internal/model"
	"agromed-backend/internal/service"
	"agromed-backend/pkg/pagination"
	"agromed-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StockHandler struct {
	stockService service.StockService
}

func NewStockHandler(stockService service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	warehouse := middleware.RequireRole(model.RoleWarehouseOfficer, model.RoleAdmin)
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleFieldOfficer, model.RoleReviewer, model.RoleWarehouseOfficer)

	medicines := router.Group("/api/medicines")
	{
		medicines.POST("", warehouse, h.CreateMedicine)
		medicines.GET("", anyRole, h.ListMedicines)
	}

	stock := router.Group("/api/stock")
	{
		stock.POST("/batches", warehouse, h.CreateBatch)
		stock.GET("/batches", warehouse, h.ListBatches)
		stock.GET("/movements", warehouse, h.ListMovements)
		stock.GET("/low", warehouse, h.ListLowStock)
	}
}

// CreateMedicine adds a catalog entry
func (h *StockHandler) CreateMedicine(c *gin.Context) {
	var req service.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	medicine, err := h.stockService.CreateMedicine(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, medicine))
}

// ListMedicines returns the catalog, searchable by name or code
func (h *StockHandler) ListMedicines(c *gin.Context) {
	params := pagination.Parse(c)
	medicines, total, err := h.stockService.ListMedicines(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   medicines,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// CreateBatch records a warehouse intake
func (h *StockHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	batch, err := h.stockService.CreateBatch(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, batch))
}

// ListBatches returns stock batches ordered by expiry, optionally per medicine
func (h *StockHandler) ListBatches(c *gin.Context) {
	params := pagination.Parse(c)

	var medicineID *uuid.UUID
	if raw := c.Query("medicine_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid medicine_id"))
			return
		}
		medicineID = &id
	}

	batches, total, err := h.stockService.ListBatches(c.Request.Context(), medicineID, params.Page, params.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   batches,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// ListMovements returns the per-batch stock ledger
func (h *StockHandler) ListMovements(c *gin.Context) {
	params := pagination.Parse(c)

	var batchID *uuid.UUID
	if raw := c.Query("batch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid batch_id"))
			return
		}
		batchID = &id
	}

	movements, total, err := h.stockService.ListMovements(c.Request.Context(), batchID, params.Page, params.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   movements,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// ListLowStock returns batches at or below their minimum threshold
func (h *StockHandler) ListLowStock(c *gin.Context) {
	batches, err := h.stockService.ListLowStock(c.Request.Context())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, batches))
}
