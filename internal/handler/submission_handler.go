package handler

import (
	"context"
	"net/http"

	"agromed-backend/internal/middleware"
	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	"agromed-backend/internal/service"
	"agromed-backend/pkg/pagination"
	"agromed-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubmissionHandler struct {
	submissionService service.SubmissionService
}

func NewSubmissionHandler(submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleFieldOfficer, model.RoleReviewer, model.RoleWarehouseOfficer)

	submissions := router.Group("/api/submissions")
	{
		submissions.POST("", middleware.RequireRole(model.RoleFieldOfficer, model.RoleAdmin), h.Create)
		submissions.GET("", anyRole, h.List)
		submissions.GET("/:id", anyRole, h.Get)
		submissions.POST("/:id/submit", middleware.RequireRole(model.RoleFieldOfficer, model.RoleAdmin), h.Submit)
		submissions.POST("/:id/review", middleware.RequireRole(model.RoleReviewer, model.RoleAdmin), h.StartReview)
		submissions.POST("/:id/cancel", middleware.RequireRole(model.RoleAdmin, model.RoleFieldOfficer, model.RoleReviewer), h.Cancel)
	}
}

// Create files a new draft submission
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req service.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	sub, err := h.submissionService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sub))
}

// List returns submissions filtered by status/district/priority
func (h *SubmissionHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.SubmissionFilter{
		Status:   c.Query("status"),
		District: c.Query("district"),
		Priority: c.Query("priority"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	subs, total, err := h.submissionService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   subs,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// Get returns one submission with items, approval and distribution state
func (h *SubmissionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid submission id"))
		return
	}

	sub, err := h.submissionService.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// Submit moves a draft submission into the review queue
func (h *SubmissionHandler) Submit(c *gin.Context) {
	h.lifecycle(c, h.submissionService.Submit)
}

// StartReview claims a submitted submission for review
func (h *SubmissionHandler) StartReview(c *gin.Context) {
	h.lifecycle(c, h.submissionService.StartReview)
}

// Cancel aborts a submission from any non-terminal state
func (h *SubmissionHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid submission id"))
		return
	}

	var req service.CancelSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Reason = "" // reason is optional
	}

	sub, err := h.submissionService.Cancel(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

func (h *SubmissionHandler) lifecycle(c *gin.Context,
	fn func(ctx context.Context, actor service.Actor, id uuid.UUID) (*model.Submission, error)) {

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid submission id"))
		return
	}

	sub, err := fn(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}
