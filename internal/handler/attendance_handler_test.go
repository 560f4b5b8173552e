package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nakib00/asps-dashboard-api/internal/middleware"
	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/internal/reconcile"
	"github.com/Nakib00/asps-dashboard-api/internal/service"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

type mockAttendanceService struct {
	view      *service.RosterView
	result    *models.SubmissionResult
	loadErr   error
	markErr   error
	submitErr error
	marked    []string
}

func (m *mockAttendanceService) LoadRoster(ctx context.Context, session models.Session, date, classID string) (*service.RosterView, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.view, nil
}

func (m *mockAttendanceService) MarkStatus(session models.Session, studentID, status string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, studentID+":"+status)
	return nil
}

func (m *mockAttendanceService) Submit(ctx context.Context, session models.Session) (*service.RosterView, *models.SubmissionResult, error) {
	if m.submitErr != nil {
		return nil, nil, m.submitErr
	}
	return m.view, m.result, nil
}

func (m *mockAttendanceService) View(session models.Session) *service.RosterView {
	return m.view
}

func (m *mockAttendanceService) History(ctx context.Context, session models.Session, date, classID string) ([]models.RosterEntry, error) {
	return m.view.Entries, nil
}

func attendanceTestRouter(svc attendanceService, exporter attendanceExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSessionKey, models.Session{UserID: "t1", Role: models.RoleTeacher, Token: "tok"})
	})
	NewAttendanceHandler(svc, exporter).Register(r)
	return r
}

func readyView() *service.RosterView {
	return &service.RosterView{
		Scope:    models.Scope{Module: models.ModuleAttendance, Date: "2026-03-02", ClassID: "7A"},
		State:    reconcile.StateReady,
		ViewMode: models.ViewModeMark,
		Entries: []models.RosterEntry{
			{ID: "s1", Status: models.StatusPresent},
			{ID: "s2", Status: models.StatusAbsent},
		},
	}
}

func TestAttendanceHandlerLoadRoster(t *testing.T) {
	svc := &mockAttendanceService{view: readyView()}
	r := attendanceTestRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/roster?date=2026-03-02&classId=7A", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"READY"`)
	assert.Contains(t, w.Body.String(), `"s1"`)
}

func TestAttendanceHandlerLoadRosterRequiresDate(t *testing.T) {
	r := attendanceTestRouter(&mockAttendanceService{view: readyView()}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/roster", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestAttendanceHandlerMark(t *testing.T) {
	svc := &mockAttendanceService{view: readyView()}
	r := attendanceTestRouter(svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/attendance/roster/s1", strings.NewReader(`{"status":"ABSENT"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"s1:ABSENT"}, svc.marked)
}

func TestAttendanceHandlerMarkMissingBody(t *testing.T) {
	r := attendanceTestRouter(&mockAttendanceService{view: readyView()}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/attendance/roster/s1", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerSubmit(t *testing.T) {
	svc := &mockAttendanceService{
		view: readyView(),
		result: &models.SubmissionResult{
			Outcome:     models.OutcomePartial,
			AcceptedIDs: []string{"s1"},
			RejectedIDs: map[string]string{"s2": "LOCKED_PERIOD"},
		},
	}
	r := attendanceTestRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/attendance/submit", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"PARTIAL"`)
	assert.Contains(t, w.Body.String(), `"accepted":1`)
}

func TestAttendanceHandlerSubmitConflict(t *testing.T) {
	svc := &mockAttendanceService{submitErr: appErrors.ErrSubmissionInFlight}
	r := attendanceTestRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/attendance/submit", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SUBMISSION_IN_FLIGHT")
}

func TestAttendanceHandlerExport(t *testing.T) {
	svc := &mockAttendanceService{view: readyView()}
	exporter := service.NewExportService()
	r := attendanceTestRouter(svc, exporter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/export?format=csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance-2026-03-02.csv")
	assert.Contains(t, w.Body.String(), "s2,ABSENT")
}

func TestAttendanceHandlerExportRouteAbsentWhenDisabled(t *testing.T) {
	r := attendanceTestRouter(&mockAttendanceService{view: readyView()}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/export", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
