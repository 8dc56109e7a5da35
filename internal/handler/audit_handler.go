package handler

import (
	"net/http"

	"agromed-backend/internal/middleware"
	"agromed-backend/internal/model"
	"agromed-backend/internal/service"
	"agromed-backend/pkg/pagination"
	"agromed-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api/audit-logs")
	{
		audit.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleReviewer), h.GetAuditLogs)
	}
}

// GetAuditLogs returns paginated audit entries, optionally narrowed to one
// resource via resource_type/resource_id query params
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(),
		c.Query("resource_type"), c.Query("resource_id"), params.Page, params.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   logs,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
