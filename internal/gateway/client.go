package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/pkg/config"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

// Observer receives timing for upstream calls, labelled by logical endpoint.
type Observer interface {
	ObserveUpstreamCall(endpoint, outcome string, duration time.Duration)
}

// Client is the typed wrapper around the learning-center REST API. Every call
// takes the acting session explicitly and forwards its bearer token. Calls
// are side-effecting and non-idempotent unless noted; callers must not retry
// batch submissions blindly.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	submitClient *http.Client
	logger       *zap.Logger
	observer     Observer
}

// NewClient constructs the gateway client. Submissions get a longer timeout
// than reads. Observer may be nil.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger, observer Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		submitClient: &http.Client{Timeout: cfg.SubmitTimeout},
		logger:       logger,
		observer:     observer,
	}
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// FetchRoster retrieves the editable roster for the given scope.
func (c *Client) FetchRoster(ctx context.Context, session models.Session, scope models.Scope) ([]models.RosterEntry, error) {
	query := url.Values{}
	if scope.Date != "" {
		query.Set("date", scope.Date)
	}
	if scope.ClassID != "" {
		query.Set("class_id", scope.ClassID)
	}
	for k, v := range scope.Filters {
		query.Set(k, v)
	}

	var entries []models.RosterEntry
	if err := c.get(ctx, session, "roster.fetch", "/roster", query, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type attendanceBatchItem struct {
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	Date      string `json:"date"`
}

type attendanceBatchRequest struct {
	Attendance []attendanceBatchItem `json:"attendance"`
}

type attendanceBatchResponse struct {
	Accepted []string `json:"accepted"`
	Rejected []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	} `json:"rejected"`
}

// SubmitAttendanceBatch submits the whole batch as one request. A client
// generated X-Batch-ID lets the server detect duplicates, but the call is
// still not safe to retry without user intent.
func (c *Client) SubmitAttendanceBatch(ctx context.Context, session models.Session, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
	body := attendanceBatchRequest{Attendance: make([]attendanceBatchItem, 0, len(batch.Entries))}
	for _, entry := range batch.Entries {
		body.Attendance = append(body.Attendance, attendanceBatchItem{
			StudentID: entry.ID,
			Status:    string(entry.Status),
			Date:      scope.Date,
		})
	}

	headers := map[string]string{"X-Batch-ID": uuid.NewString()}
	var resp attendanceBatchResponse
	if err := c.call(ctx, c.submitClient, session, "attendance.submit", http.MethodPost, "/attendance/batch", nil, body, &resp, headers); err != nil {
		return nil, err
	}

	result := &models.SubmissionResult{AcceptedIDs: resp.Accepted}
	if len(resp.Rejected) > 0 {
		result.RejectedIDs = make(map[string]string, len(resp.Rejected))
		for _, r := range resp.Rejected {
			result.RejectedIDs[r.ID] = r.Reason
		}
	}
	result.Outcome = result.Classify()
	return result, nil
}

// ListInvoices retrieves fee invoices matching the filter.
func (c *Client) ListInvoices(ctx context.Context, session models.Session, filter models.InvoiceFilter) ([]models.InvoiceRecord, error) {
	query := url.Values{}
	if filter.StudentID != "" {
		query.Set("student_id", filter.StudentID)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Month != "" {
		query.Set("month", filter.Month)
	}

	var invoices []models.InvoiceRecord
	if err := c.get(ctx, session, "fees.list", "/fees", query, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// CreateInvoice generates a new fee invoice.
func (c *Client) CreateInvoice(ctx context.Context, session models.Session, input models.InvoiceInput) (*models.InvoiceRecord, error) {
	var invoice models.InvoiceRecord
	if err := c.call(ctx, c.httpClient, session, "fees.create", http.MethodPost, "/fees/generate", nil, input, &invoice, nil); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// RecordPayment marks an invoice paid. Paying an already-paid invoice yields
// a conflict error.
func (c *Client) RecordPayment(ctx context.Context, session models.Session, invoiceID string, input models.PaymentInput) (*models.InvoiceRecord, error) {
	path := fmt.Sprintf("/fees/%s/pay", url.PathEscape(invoiceID))
	var invoice models.InvoiceRecord
	if err := c.call(ctx, c.httpClient, session, "fees.pay", http.MethodPut, path, nil, input, &invoice, nil); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListStudents returns the student directory visible to the session.
func (c *Client) ListStudents(ctx context.Context, session models.Session) ([]models.Student, error) {
	var students []models.Student
	if err := c.get(ctx, session, "students.list", "/students", nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// FetchReport proxies a read-only aggregate report. Idempotent.
func (c *Client) FetchReport(ctx context.Context, session models.Session, name string, query url.Values) (json.RawMessage, error) {
	path := "/reports/" + url.PathEscape(name)
	var raw json.RawMessage
	if err := c.get(ctx, session, "reports.fetch", path, query, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Ping checks upstream availability for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, appErrors.ErrNetwork.Message)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return appErrors.Clone(appErrors.ErrNetwork, fmt.Sprintf("upstream health returned %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) get(ctx context.Context, session models.Session, label, path string, query url.Values, out interface{}) error {
	return c.call(ctx, c.httpClient, session, label, http.MethodGet, path, query, nil, out, nil)
}

func (c *Client) call(ctx context.Context, client *http.Client, session models.Session, label, method, path string, query url.Values, body, out interface{}, headers map[string]string) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request body")
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.observe(label, "network_error", time.Since(start))
		c.logger.Warn("upstream_call_failed",
			zap.String("endpoint", label),
			zap.String("path", path),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, appErrors.ErrNetwork.Message)
	}
	defer resp.Body.Close()

	outcome := "ok"
	if resp.StatusCode >= http.StatusBadRequest {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	c.observe(label, outcome, time.Since(start))

	c.logger.Debug("upstream_call",
		zap.String("endpoint", label),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "read upstream response")
	}

	// List endpoints wrap their payload in { data: ... }; mutation endpoints
	// answer with the bare object.
	var envelope dataEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Data != nil {
		payload = envelope.Data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "malformed upstream response")
	}
	return nil
}

func (c *Client) observe(label, outcome string, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstreamCall(label, outcome, duration)
	}
}

// decodeError maps a non-2xx upstream response onto the error taxonomy. The
// upstream message is surfaced verbatim; field errors ride along for
// validation failures.
func (c *Client) decodeError(resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	message := body.Message
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrAuth, message)
	case resp.StatusCode == http.StatusConflict:
		return appErrors.Clone(appErrors.ErrConflict, message)
	case resp.StatusCode == http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, message)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return appErrors.Validation(message, body.Errors)
	default:
		if message == "" {
			message = fmt.Sprintf("upstream returned %d", resp.StatusCode)
		}
		return appErrors.Clone(appErrors.ErrNetwork, message)
	}
}
