package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/internal/service"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
	"github.com/Nakib00/asps-dashboard-api/pkg/response"
)

type attendanceService interface {
	LoadRoster(ctx context.Context, session models.Session, date, classID string) (*service.RosterView, error)
	MarkStatus(session models.Session, studentID, status string) error
	Submit(ctx context.Context, session models.Session) (*service.RosterView, *models.SubmissionResult, error)
	View(session models.Session) *service.RosterView
	History(ctx context.Context, session models.Session, date, classID string) ([]models.RosterEntry, error)
}

type attendanceExporter interface {
	AttendanceSheet(scope models.Scope, entries []models.RosterEntry, format string) (*service.ExportFile, error)
}

// AttendanceHandler wires the attendance marking flow to HTTP endpoints.
type AttendanceHandler struct {
	service  attendanceService
	exporter attendanceExporter
}

// NewAttendanceHandler constructs the handler. The exporter may be nil when
// exports are disabled.
func NewAttendanceHandler(svc attendanceService, exporter attendanceExporter) *AttendanceHandler {
	return &AttendanceHandler{service: svc, exporter: exporter}
}

// Register mounts the attendance routes.
func (h *AttendanceHandler) Register(r gin.IRouter) {
	r.GET("/attendance/roster", h.LoadRoster)
	r.GET("/attendance/session", h.Session)
	r.PATCH("/attendance/roster/:studentId", h.Mark)
	r.POST("/attendance/submit", h.Submit)
	r.GET("/attendance/history", h.History)
	if h.exporter != nil {
		r.GET("/attendance/export", h.Export)
	}
}

// LoadRoster godoc
// @Summary Load the editable roster for a date and class
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param classId query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/roster [get]
func (h *AttendanceHandler) LoadRoster(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	view, err := h.service.LoadRoster(c.Request.Context(), session, date, strings.TrimSpace(c.Query("classId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Session godoc
// @Summary Current attendance editing session
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/session [get]
func (h *AttendanceHandler) Session(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.service.View(session))
}

type markRequest struct {
	Status string `json:"status" binding:"required"`
}

// Mark godoc
// @Summary Locally mark one student's status
// @Tags Attendance
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body markRequest true "New status"
// @Success 204
// @Router /attendance/roster/{studentId} [patch]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status is required"))
		return
	}
	if err := h.service.MarkStatus(session, c.Param("studentId"), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit the draft roster as one batch
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/submit [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	view, result, err := h.service.Submit(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, map[string]interface{}{
		"outcome":  result.Outcome,
		"accepted": len(result.AcceptedIDs),
		"rejected": len(result.RejectedIDs),
	})
}

// History godoc
// @Summary Persisted attendance for the history view
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param classId query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	entries, err := h.service.History(c.Request.Context(), session, date, strings.TrimSpace(c.Query("classId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Export godoc
// @Summary Export the current roster as CSV or PDF
// @Tags Attendance
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	view := h.service.View(session)
	if len(view.Entries) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "no roster loaded to export"))
		return
	}
	file, err := h.exporter.AttendanceSheet(view.Scope, view.Entries, strings.TrimSpace(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
