package handler

import (
	"net/http"
	"time"

	"sitesupply/internal/authz"
	"sitesupply/internal/middleware"
	"sitesupply/internal/service"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	logger            *zap.Logger
}

func NewStatisticsHandler(statisticsService service.StatisticsService, logger *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, logger: logger}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/statistics")
	{
		statsGroup.GET("", middleware.RequireCapability(authz.CapDashboardRead), h.GetStatistics)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Order counts per status, top consumed products and wastage totals bounded by time
// @Tags         Statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      403 {object} response.Response
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	// Default to current month if no dates are provided
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	var err error
	if raw := c.Query("start_date"); raw != "" {
		if startDate, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if endDate, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), middleware.CurrentActor(c), startDate, endDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
