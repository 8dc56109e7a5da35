package handler

import (
	"net/http"

	"agromed-backend/internal/middleware"
	"agromed-backend/internal/model"
	"agromed-backend/internal/service"
	"agromed-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	reviewers := middleware.RequireRole(model.RoleReviewer, model.RoleAdmin)

	approvals := router.Group("/api/submissions")
	{
		approvals.POST("/:id/approve", reviewers, h.Approve)
		approvals.POST("/:id/reject", reviewers, h.Reject)
	}
}

// Approve decides per-item approved quantities. The submission moves to
// approved or partially_approved depending on whether any line was reduced.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid submission id"))
		return
	}

	var req service.ApproveSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	sub, err := h.approvalService.Approve(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// Reject declines the submission with a reason for the submitter
func (h *ApprovalHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid submission id"))
		return
	}

	var req service.RejectSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	sub, err := h.approvalService.Reject(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}
