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

type feeService interface {
	LoadInvoices(ctx context.Context, session models.Session, filter models.InvoiceFilter) (*service.InvoiceView, error)
	GenerateInvoice(ctx context.Context, session models.Session, input models.InvoiceInput) (*models.InvoiceRecord, error)
	RecordPayment(ctx context.Context, session models.Session, invoiceID string, input models.PaymentInput) (*models.InvoiceRecord, error)
	MarkPaid(session models.Session, invoiceID string) error
	MarkPending(session models.Session, invoiceID string) error
	SubmitPayments(ctx context.Context, session models.Session, input models.PaymentInput) (*service.InvoiceView, *models.SubmissionResult, error)
	View(session models.Session) *service.InvoiceView
	Invoice(ctx context.Context, session models.Session, invoiceID string) (*models.InvoiceRecord, error)
}

type receiptExporter interface {
	PaymentReceipt(centerName string, invoice models.InvoiceRecord) (*service.ExportFile, error)
}

// FeeHandler wires the fee module to HTTP endpoints.
type FeeHandler struct {
	service  feeService
	exporter receiptExporter
}

// NewFeeHandler constructs the handler. The exporter may be nil when exports
// are disabled.
func NewFeeHandler(svc feeService, exporter receiptExporter) *FeeHandler {
	return &FeeHandler{service: svc, exporter: exporter}
}

// Register mounts the fee routes.
func (h *FeeHandler) Register(r gin.IRouter) {
	r.GET("/fees", h.LoadInvoices)
	r.GET("/fees/session", h.Session)
	r.POST("/fees/generate", h.Generate)
	r.PUT("/fees/:id/pay", h.Pay)
	r.PATCH("/fees/:id/mark", h.Mark)
	r.POST("/fees/submit", h.Submit)
	if h.exporter != nil {
		r.GET("/fees/:id/receipt", h.Receipt)
	}
}

// LoadInvoices godoc
// @Summary Load the invoice list into an editing session
// @Tags Fees
// @Produce json
// @Param student_id query string false "Student ID"
// @Param status query string false "Invoice status filter"
// @Param month query string false "Billing month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) LoadInvoices(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	filter := models.InvoiceFilter{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		Status:    strings.TrimSpace(c.Query("status")),
		Month:     strings.TrimSpace(c.Query("month")),
	}
	view, err := h.service.LoadInvoices(c.Request.Context(), session, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Session godoc
// @Summary Current fee editing session
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/session [get]
func (h *FeeHandler) Session(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.service.View(session))
}

// Generate godoc
// @Summary Generate a new fee invoice
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body models.InvoiceInput true "Invoice input"
// @Success 201 {object} response.Envelope
// @Router /fees/generate [post]
func (h *FeeHandler) Generate(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var input models.InvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed invoice payload"))
		return
	}
	invoice, err := h.service.GenerateInvoice(c.Request.Context(), session, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// Pay godoc
// @Summary Record a payment against one invoice
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body models.PaymentInput true "Payment input"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/pay [put]
func (h *FeeHandler) Pay(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var input models.PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed payment payload"))
		return
	}
	invoice, err := h.service.RecordPayment(c.Request.Context(), session, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice)
}

type feeMarkRequest struct {
	Status string `json:"status" binding:"required"`
}

// Mark godoc
// @Summary Locally mark an invoice paid or pending
// @Tags Fees
// @Accept json
// @Param id path string true "Invoice ID"
// @Param payload body feeMarkRequest true "PAID or PENDING"
// @Success 204
// @Router /fees/{id}/mark [patch]
func (h *FeeHandler) Mark(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req feeMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status is required"))
		return
	}

	var err error
	switch models.EntryStatus(strings.ToUpper(req.Status)) {
	case models.StatusPaid:
		err = h.service.MarkPaid(session, c.Param("id"))
	case models.StatusPending:
		err = h.service.MarkPending(session, c.Param("id"))
	default:
		err = appErrors.Validation("validation failed", map[string]string{"status": "must be PAID or PENDING"})
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit locally marked invoices as one payment batch
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body models.PaymentInput true "Payment method applied to the batch"
// @Success 200 {object} response.Envelope
// @Router /fees/submit [post]
func (h *FeeHandler) Submit(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var input models.PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed payment payload"))
		return
	}
	view, result, err := h.service.SubmitPayments(c.Request.Context(), session, input)
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

// Receipt godoc
// @Summary Download a PDF receipt for a paid invoice
// @Tags Fees
// @Produce octet-stream
// @Param id path string true "Invoice ID"
// @Success 200
// @Router /fees/{id}/receipt [get]
func (h *FeeHandler) Receipt(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	invoice, err := h.service.Invoice(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.PaymentReceipt(session.CenterID, *invoice)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
