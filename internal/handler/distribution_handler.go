package handler

import (
	"io"
	"net/http"

	"agromed-backend/internal/middleware"
	"agromed-backend/internal/model"
	"agromed-backend/internal/service"
	"agromed-backend/internal/storage"
	"agromed-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadBytes = 10 << 20 // 10 MiB per file

type DistributionHandler struct {
	distributionService service.DistributionService
	files               storage.FileStore
}

func NewDistributionHandler(distributionService service.DistributionService, files storage.FileStore) *DistributionHandler {
	return &DistributionHandler{distributionService: distributionService, files: files}
}

func (h *DistributionHandler) RegisterRoutes(router *gin.RouterGroup) {
	warehouse := middleware.RequireRole(model.RoleWarehouseOfficer, model.RoleAdmin)
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleFieldOfficer, model.RoleReviewer, model.RoleWarehouseOfficer)

	dist := router.Group("/api/submissions/:id/distribution")
	{
		dist.POST("/begin", warehouse, h.Begin)
		dist.GET("/progress", anyRole, h.Progress)
		dist.POST("/scan", warehouse, h.SubmitScan)
		dist.POST("/photos", warehouse, h.AttachPhoto)
		dist.POST("/document", warehouse, h.GenerateDocument)
		dist.POST("/document/printed", warehouse, h.AcknowledgePrinted)
		dist.POST("/signed-document", warehouse, h.UploadSignedDocument)
		dist.POST("/confirm", warehouse, h.Confirm)
	}

	router.GET("/api/files/*ref", anyRole, h.FetchFile)
}

func (h *DistributionHandler) submissionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid submission id"))
		return uuid.Nil, false
	}
	return id, true
}

// Begin moves an approved submission into ready_distribution and opens the
// wizard record.
func (h *DistributionHandler) Begin(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}
	sub, err := h.distributionService.Begin(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// Progress returns the persisted wizard state so a reconnecting client can
// resume from the last completed step.
func (h *DistributionHandler) Progress(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}
	progress, err := h.distributionService.Progress(c.Request.Context(), id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, progress))
}

// SubmitScan runs step 1: scanned items must match approved quantities
func (h *DistributionHandler) SubmitScan(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}

	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	rec, err := h.distributionService.SubmitScan(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// AttachPhoto runs step 2: multipart upload of a hand-over photo
func (h *DistributionHandler) AttachPhoto(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}

	content, contentType, ok := h.readUpload(c, "photo")
	if !ok {
		return
	}

	photo, err := h.distributionService.AttachPhoto(c.Request.Context(), actorFrom(c), id, content, contentType, c.PostForm("caption"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, photo))
}

// GenerateDocument runs step 3a: renders and stores the handover document
func (h *DistributionHandler) GenerateDocument(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}
	ref, err := h.distributionService.GenerateDocument(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"document_ref": ref}))
}

// AcknowledgePrinted runs step 3b: the explicit printed acknowledgment
func (h *DistributionHandler) AcknowledgePrinted(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}
	rec, err := h.distributionService.AcknowledgePrinted(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// UploadSignedDocument runs step 4: the counter-signed document upload
func (h *DistributionHandler) UploadSignedDocument(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}

	content, contentType, ok := h.readUpload(c, "document")
	if !ok {
		return
	}

	rec, err := h.distributionService.UploadSignedDocument(c.Request.Context(), actorFrom(c), id, content, contentType)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Confirm runs step 5: final hand-over confirmation and stock reconciliation
func (h *DistributionHandler) Confirm(c *gin.Context) {
	id, ok := h.submissionID(c)
	if !ok {
		return
	}

	var req service.ConfirmDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	sub, err := h.distributionService.Confirm(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// FetchFile streams a stored artifact (photo, generated or signed document)
func (h *DistributionHandler) FetchFile(c *gin.Context) {
	ref := c.Param("ref")
	if len(ref) > 0 && ref[0] == '/' {
		ref = ref[1:]
	}

	content, err := h.files.Fetch(c.Request.Context(), ref)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(content), content)
}

func (h *DistributionHandler) readUpload(c *gin.Context, field string) ([]byte, string, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file field '"+field+"' is required"))
		return nil, "", false
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file exceeds the 10MB limit"))
		return nil, "", false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "failed to read uploaded file"))
		return nil, "", false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "failed to read uploaded file"))
		return nil, "", false
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	return content, contentType, true
}
