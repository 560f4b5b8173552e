package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/pkg/response"
)

type reportService interface {
	Fetch(ctx context.Context, session models.Session, name string, query url.Values) (json.RawMessage, bool, error)
}

// ReportHandler proxies read-only aggregate reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Register mounts the report routes.
func (h *ReportHandler) Register(r gin.IRouter) {
	r.GET("/reports/:name", h.Fetch)
}

// Fetch godoc
// @Summary Fetch a read-only aggregate report
// @Tags Reports
// @Produce json
// @Param name path string true "Report name"
// @Success 200 {object} response.Envelope
// @Router /reports/{name} [get]
func (h *ReportHandler) Fetch(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	payload, cacheHit, err := h.service.Fetch(c.Request.Context(), session, c.Param("name"), c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, map[string]interface{}{"cache_hit": cacheHit})
}
