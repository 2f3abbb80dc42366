package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/pkg/response"
)

// DashboardHandler serves admin dashboard stats and health reports.
type DashboardHandler struct {
	service *service.DashboardService
	metrics *service.MetricsService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{service: svc, metrics: metrics}
}

// Stats godoc
// @Summary Dashboard stats
// @Description Aggregate counters for the admin landing page
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCacheOperation(stats.CacheHit)
	}
	response.Success(c, stats, "")
}

// SystemHealth godoc
// @Summary System health
// @Description Per-dependency health report for the admin panel
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/system-health [get]
func (h *DashboardHandler) SystemHealth(c *gin.Context) {
	report := h.service.SystemHealth(c.Request.Context())
	response.Success(c, report, "")
}
