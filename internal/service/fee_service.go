package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/internal/reconcile"
	"github.com/Nakib00/asps-dashboard-api/internal/validation"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

type feeGateway interface {
	ListInvoices(ctx context.Context, session models.Session, filter models.InvoiceFilter) ([]models.InvoiceRecord, error)
	CreateInvoice(ctx context.Context, session models.Session, input models.InvoiceInput) (*models.InvoiceRecord, error)
	RecordPayment(ctx context.Context, session models.Session, invoiceID string, input models.PaymentInput) (*models.InvoiceRecord, error)
	ListStudents(ctx context.Context, session models.Session) ([]models.Student, error)
}

// FeeService orchestrates the fee module: invoice generation, single payment
// recording, and the draft flow of marking several invoices paid and
// submitting them together. The upstream API has no fee batch endpoint, so
// the batch submitter records payments per invoice and folds the verdicts
// into one reconciled result.
type FeeService struct {
	gateway   feeGateway
	sessions  *SessionManager
	validator *validation.Validator
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewFeeService constructs the service.
func NewFeeService(gateway feeGateway, sessions *SessionManager, v *validation.Validator, metrics *MetricsService, logger *zap.Logger) *FeeService {
	if v == nil {
		v = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{gateway: gateway, sessions: sessions, validator: v, metrics: metrics, logger: logger}
}

// InvoiceView is the rendered state of a fee editing session.
type InvoiceView struct {
	Scope    models.Scope         `json:"scope"`
	State    reconcile.State      `json:"state"`
	ViewMode models.ViewMode      `json:"view_mode"`
	Outcome  models.Outcome       `json:"outcome,omitempty"`
	Entries  []models.RosterEntry `json:"entries"`
}

// LoadInvoices seeds the fee editing session from the invoice list matching
// the filter. Pending invoices stay editable; paid ones arrive finalized by
// the server and only their display changes.
func (s *FeeService) LoadInvoices(ctx context.Context, session models.Session, filter models.InvoiceFilter) (*InvoiceView, error) {
	scope := filter.AsScope()
	edit := s.sessions.Session(session.UserID, models.ModuleFees)
	edit.SetViewMode(models.ViewModeOverview)

	entries, err := edit.Controller.Load(ctx, scope, func(ctx context.Context, scope models.Scope) ([]models.RosterEntry, error) {
		invoices, err := s.gateway.ListInvoices(ctx, session, filter)
		if err != nil {
			return nil, err
		}
		return invoiceEntries(invoices, time.Now()), nil
	})
	if err != nil {
		return nil, err
	}

	return &InvoiceView{
		Scope:    scope,
		State:    edit.Controller.State(),
		ViewMode: edit.ViewMode(),
		Entries:  entries,
	}, nil
}

func invoiceEntries(invoices []models.InvoiceRecord, now time.Time) []models.RosterEntry {
	entries := make([]models.RosterEntry, 0, len(invoices))
	for _, inv := range invoices {
		status := models.StatusPending
		final := false
		if inv.Status == models.InvoicePaid {
			// The server already owns this payment; the entry renders but is
			// never editable or resubmitted.
			status = models.StatusPaid
			final = true
		}
		entries = append(entries, models.RosterEntry{
			ID:     inv.ID,
			Status: status,
			Final:  final,
			Display: map[string]string{
				"student":  inv.StudentName,
				"amount":   fmt.Sprintf("%.2f", inv.Amount),
				"due_date": inv.DueDate,
				"status":   string(inv.DisplayStatus(now)),
			},
		})
	}
	return entries
}

// GenerateInvoice validates the input against the loaded student directory
// before anything is sent upstream, then creates the invoice.
func (s *FeeService) GenerateInvoice(ctx context.Context, session models.Session, input models.InvoiceInput) (*models.InvoiceRecord, error) {
	students, err := s.gateway.ListStudents(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateInvoice(input, students); err != nil {
		return nil, err
	}
	return s.gateway.CreateInvoice(ctx, session, input)
}

// RecordPayment validates and records a single payment. Paying an already
// paid invoice surfaces the server's conflict as a non-retryable notice.
func (s *FeeService) RecordPayment(ctx context.Context, session models.Session, invoiceID string, input models.PaymentInput) (*models.InvoiceRecord, error) {
	if err := s.validator.ValidatePayment(input); err != nil {
		return nil, err
	}
	return s.gateway.RecordPayment(ctx, session, invoiceID, input)
}

// MarkPaid locally marks an invoice paid in the draft session. Repeating the
// same mark is a no-op.
func (s *FeeService) MarkPaid(session models.Session, invoiceID string) error {
	edit := s.sessions.Session(session.UserID, models.ModuleFees)
	return edit.Controller.SetStatus(invoiceID, models.StatusPaid)
}

// MarkPending reverts a local paid mark.
func (s *FeeService) MarkPending(session models.Session, invoiceID string) error {
	edit := s.sessions.Session(session.UserID, models.ModuleFees)
	return edit.Controller.SetStatus(invoiceID, models.StatusPending)
}

// SubmitPayments submits every locally marked invoice as one batch using a
// single payment method, recording payments per invoice upstream and
// reconciling into one result. Accepted invoices finalize; rejected ones keep
// their draft status with the rejection code surfaced for re-edit.
func (s *FeeService) SubmitPayments(ctx context.Context, session models.Session, input models.PaymentInput) (*InvoiceView, *models.SubmissionResult, error) {
	if err := s.validator.ValidatePayment(input); err != nil {
		return nil, nil, err
	}

	edit := s.sessions.Session(session.UserID, models.ModuleFees)

	marked := 0
	for _, entry := range edit.Controller.Entries() {
		if entry.Status == models.StatusPaid && !entry.Final {
			marked++
		}
	}
	if marked == 0 {
		return nil, nil, reconcile.ErrNothingToSubmit
	}

	result, err := edit.Controller.Submit(ctx, func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
		return s.payBatch(ctx, session, batch, input)
	})
	if err != nil {
		s.metrics.ObserveReconcile(string(models.ModuleFees), string(models.OutcomeFailure))
		return nil, nil, err
	}

	s.metrics.ObserveReconcile(string(models.ModuleFees), string(result.Outcome))

	if result.Outcome == models.OutcomeSuccess && session.Role != models.RoleTeacher {
		edit.SetViewMode(models.ViewModeHistory)
	}

	view := &InvoiceView{
		Scope:    edit.Controller.Scope(),
		State:    edit.Controller.State(),
		ViewMode: edit.ViewMode(),
		Outcome:  result.Outcome,
		Entries:  edit.Controller.Entries(),
	}
	return view, result, nil
}

// payBatch fans the marked entries out as individual payment calls and folds
// the verdicts into one SubmissionResult. Entries left pending are not acted
// on. A network failure aborts the fan-out so the remaining batch stays
// intact for retry.
func (s *FeeService) payBatch(ctx context.Context, session models.Session, batch models.DraftBatch, input models.PaymentInput) (*models.SubmissionResult, error) {
	result := &models.SubmissionResult{RejectedIDs: map[string]string{}}

	for i, entry := range batch.Entries {
		if entry.Status != models.StatusPaid {
			continue
		}
		if _, err := s.gateway.RecordPayment(ctx, session, entry.ID, input); err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Code == appErrors.ErrNetwork.Code || appErr.Code == appErrors.ErrAuth.Code {
				// The upstream is unreachable; nothing before this entry was
				// accepted means total failure, the batch stays intact.
				if len(result.AcceptedIDs) == 0 {
					return nil, err
				}
				// Entries already accepted stay accepted on the server. The
				// rest of the fan-out is pointless now, so the current and
				// remaining marked entries fold in as rejected.
				for _, rest := range batch.Entries[i:] {
					if rest.Status == models.StatusPaid {
						result.RejectedIDs[rest.ID] = appErr.Code
					}
				}
				break
			}
			result.RejectedIDs[entry.ID] = appErr.Code
			continue
		}
		result.AcceptedIDs = append(result.AcceptedIDs, entry.ID)
	}

	if len(result.RejectedIDs) == 0 {
		result.RejectedIDs = nil
	}
	result.Outcome = result.Classify()
	return result, nil
}

// View reports the current fee session state without touching the network.
func (s *FeeService) View(session models.Session) *InvoiceView {
	edit := s.sessions.Session(session.UserID, models.ModuleFees)
	return &InvoiceView{
		Scope:    edit.Controller.Scope(),
		State:    edit.Controller.State(),
		ViewMode: edit.ViewMode(),
		Outcome:  edit.Controller.LastOutcome(),
		Entries:  edit.Controller.Entries(),
	}
}

// Invoice looks an invoice up in the upstream list, for receipts and detail
// views. Display status is derived at read time.
func (s *FeeService) Invoice(ctx context.Context, session models.Session, invoiceID string) (*models.InvoiceRecord, error) {
	invoices, err := s.gateway.ListInvoices(ctx, session, models.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		if invoices[i].ID == invoiceID {
			return &invoices[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
}
