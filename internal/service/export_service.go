package service

import (
	"fmt"
	"time"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
	"github.com/Nakib00/asps-dashboard-api/pkg/export"
)

// ExportService renders attendance sheets and payment receipts for download.
type ExportService struct {
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	receipt *export.ReceiptExporter
}

// NewExportService constructs the service.
func NewExportService() *ExportService {
	return &ExportService{
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		receipt: export.NewReceiptExporter(),
	}
}

// ExportFile is a rendered download.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// AttendanceSheet renders the roster of one scope as CSV or PDF.
func (s *ExportService) AttendanceSheet(scope models.Scope, entries []models.RosterEntry, format string) (*ExportFile, error) {
	data := export.Dataset{
		Title:   fmt.Sprintf("Attendance %s", scope.Date),
		Headers: []string{"Student", "Status", "Note"},
	}
	for _, entry := range entries {
		name := entry.Display["student"]
		if name == "" {
			name = entry.ID
		}
		data.Rows = append(data.Rows, []string{name, string(entry.Status), entry.Reason})
	}

	base := fmt.Sprintf("attendance-%s", scope.Date)
	switch format {
	case "csv", "":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv")
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	case "pdf":
		content, err := s.pdf.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf")
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	default:
		return nil, appErrors.Validation("validation failed", map[string]string{"format": "must be csv or pdf"})
	}
}

// PaymentReceipt renders a PDF receipt for a paid invoice.
func (s *ExportService) PaymentReceipt(centerName string, invoice models.InvoiceRecord) (*ExportFile, error) {
	if invoice.Status != models.InvoicePaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invoice has not been paid")
	}

	paidAt := ""
	if invoice.PaidAt != nil {
		paidAt = invoice.PaidAt.Format(time.RFC3339)
	}
	content, err := s.receipt.Render(export.Receipt{
		CenterName:    centerName,
		InvoiceID:     invoice.ID,
		StudentName:   invoice.StudentName,
		Amount:        fmt.Sprintf("%.2f", invoice.Amount),
		Method:        string(invoice.Method),
		TransactionID: invoice.TransactionID,
		PaidAt:        paidAt,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render receipt")
	}
	return &ExportFile{
		Content:     content,
		ContentType: "application/pdf",
		Filename:    fmt.Sprintf("receipt-%s.pdf", invoice.ID),
	}, nil
}
