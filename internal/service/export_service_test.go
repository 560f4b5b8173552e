package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

func TestExportAttendanceSheetCSV(t *testing.T) {
	svc := NewExportService()
	scope := models.Scope{Module: models.ModuleAttendance, Date: "2026-03-02", ClassID: "7A"}
	entries := []models.RosterEntry{
		{ID: "s1", Display: map[string]string{"student": "Rafi Ahmed"}, Status: models.StatusPresent},
		{ID: "s2", Status: models.StatusAbsent, Reason: "LOCKED_PERIOD"},
	}

	file, err := svc.AttendanceSheet(scope, entries, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "attendance-2026-03-02.csv", file.Filename)
	assert.Contains(t, string(file.Content), "Rafi Ahmed,PRESENT")
	assert.Contains(t, string(file.Content), "s2,ABSENT,LOCKED_PERIOD")
}

func TestExportAttendanceSheetPDF(t *testing.T) {
	svc := NewExportService()
	scope := models.Scope{Module: models.ModuleAttendance, Date: "2026-03-02"}

	file, err := svc.AttendanceSheet(scope, []models.RosterEntry{{ID: "s1"}}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportAttendanceSheetBadFormat(t *testing.T) {
	svc := NewExportService()
	_, err := svc.AttendanceSheet(models.Scope{}, nil, "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportPaymentReceipt(t *testing.T) {
	svc := NewExportService()
	paidAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	file, err := svc.PaymentReceipt("Sunrise Learning Center", models.InvoiceRecord{
		ID:          "inv-9",
		StudentName: "Rafi Ahmed",
		Amount:      150,
		Status:      models.InvoicePaid,
		Method:      models.PaymentCash,
		PaidAt:      &paidAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "receipt-inv-9.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportPaymentReceiptRequiresPaidInvoice(t *testing.T) {
	svc := NewExportService()
	_, err := svc.PaymentReceipt("", models.InvoiceRecord{ID: "inv-1", Status: models.InvoicePending})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}
