package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/internal/reconcile"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

type attendanceGateway interface {
	FetchRoster(ctx context.Context, session models.Session, scope models.Scope) ([]models.RosterEntry, error)
	SubmitAttendanceBatch(ctx context.Context, session models.Session, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error)
}

// AttendanceService orchestrates the attendance marking flow: fetch a class
// roster for a date, edit statuses in the draft session, submit the batch and
// reconcile the verdict.
type AttendanceService struct {
	gateway  attendanceGateway
	sessions *SessionManager
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(gateway attendanceGateway, sessions *SessionManager, metrics *MetricsService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{gateway: gateway, sessions: sessions, metrics: metrics, logger: logger}
}

// RosterView is the rendered state of an attendance editing session.
type RosterView struct {
	Scope    models.Scope         `json:"scope"`
	State    reconcile.State      `json:"state"`
	ViewMode models.ViewMode      `json:"view_mode"`
	Outcome  models.Outcome       `json:"outcome,omitempty"`
	Entries  []models.RosterEntry `json:"entries"`
}

// LoadRoster seeds a fresh editing session scope for the given date and
// class, discarding prior unsubmitted edits. A stale fetch result for a
// superseded scope is discarded, not applied.
func (s *AttendanceService) LoadRoster(ctx context.Context, session models.Session, date, classID string) (*RosterView, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	scope := models.Scope{Module: models.ModuleAttendance, Date: date, ClassID: classID}
	edit := s.sessions.Session(session.UserID, models.ModuleAttendance)
	edit.SetViewMode(models.ViewModeMark)

	entries, err := edit.Controller.Load(ctx, scope, func(ctx context.Context, scope models.Scope) ([]models.RosterEntry, error) {
		return s.gateway.FetchRoster(ctx, session, scope)
	})
	if err != nil {
		return nil, err
	}

	return &RosterView{
		Scope:    scope,
		State:    edit.Controller.State(),
		ViewMode: edit.ViewMode(),
		Entries:  entries,
	}, nil
}

// MarkStatus applies one local edit to the active roster. Nothing is sent
// upstream until Submit.
func (s *AttendanceService) MarkStatus(session models.Session, studentID, status string) error {
	st := models.EntryStatus(strings.ToUpper(status))
	if !st.ValidFor(models.ModuleAttendance) || st == models.StatusUnset {
		return appErrors.Validation("validation failed", map[string]string{
			"status": "must be one of PRESENT, ABSENT, LATE",
		})
	}

	edit := s.sessions.Session(session.UserID, models.ModuleAttendance)
	return edit.Controller.SetStatus(studentID, st)
}

// Submit sends the current draft as one atomic batch and reconciles the
// result. On SUCCESS teachers stay in mark mode; every other role is
// switched to the history view.
func (s *AttendanceService) Submit(ctx context.Context, session models.Session) (*RosterView, *models.SubmissionResult, error) {
	edit := s.sessions.Session(session.UserID, models.ModuleAttendance)

	result, err := edit.Controller.Submit(ctx, func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
		return s.gateway.SubmitAttendanceBatch(ctx, session, scope, batch)
	})
	if err != nil {
		s.metrics.ObserveReconcile(string(models.ModuleAttendance), string(models.OutcomeFailure))
		return nil, nil, err
	}

	s.metrics.ObserveReconcile(string(models.ModuleAttendance), string(result.Outcome))

	if result.Outcome == models.OutcomeSuccess && session.Role != models.RoleTeacher {
		edit.SetViewMode(models.ViewModeHistory)
	}

	view := &RosterView{
		Scope:    edit.Controller.Scope(),
		State:    edit.Controller.State(),
		ViewMode: edit.ViewMode(),
		Outcome:  result.Outcome,
		Entries:  edit.Controller.Entries(),
	}
	return view, result, nil
}

// View reports the current session state without touching the network.
func (s *AttendanceService) View(session models.Session) *RosterView {
	edit := s.sessions.Session(session.UserID, models.ModuleAttendance)
	return &RosterView{
		Scope:    edit.Controller.Scope(),
		State:    edit.Controller.State(),
		ViewMode: edit.ViewMode(),
		Outcome:  edit.Controller.LastOutcome(),
		Entries:  edit.Controller.Entries(),
	}
}

// History fetches persisted attendance for the history view. Read-only: it
// does not disturb the editing session.
func (s *AttendanceService) History(ctx context.Context, session models.Session, date, classID string) ([]models.RosterEntry, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	scope := models.Scope{Module: models.ModuleAttendance, Date: date, ClassID: classID}
	return s.gateway.FetchRoster(ctx, session, scope)
}
