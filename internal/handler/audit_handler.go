package handler

import (
	"net/http"

	"sitesupply/internal/authz"
	"sitesupply/internal/middleware"
	"sitesupply/internal/service"
	"sitesupply/pkg/pagination"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService service.AuditService
	logger       *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, logger: logger}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireCapability(authz.CapAuditRead)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records with the acting user
// @Summary      Get audit logs
// @Description  Retrieves the audit trail of order, stock and return changes
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action query     string  false  "Action filter, e.g. TRANSITION_ORDER"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Paged}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), middleware.CurrentActor(c), p.Page, p.Limit, c.Query("action"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(logs, total)))
}
