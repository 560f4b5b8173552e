package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Receipt describes a payment receipt document.
type Receipt struct {
	CenterName    string
	InvoiceID     string
	StudentName   string
	Amount        string
	Method        string
	TransactionID string
	PaidAt        string
}

// ReceiptExporter renders payment receipts as PDF.
type ReceiptExporter struct{}

// NewReceiptExporter constructs a receipt exporter.
func NewReceiptExporter() *ReceiptExporter {
	return &ReceiptExporter{}
}

// Render produces a one-page PDF receipt.
func (e *ReceiptExporter) Render(r Receipt) ([]byte, error) {
	if r.InvoiceID == "" {
		return nil, fmt.Errorf("receipt requires an invoice id")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	title := r.CenterName
	if title == "" {
		title = "PAYMENT RECEIPT"
	}
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	if r.CenterName != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, "Payment Receipt", "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	rows := [][2]string{
		{"Invoice", r.InvoiceID},
		{"Student", r.StudentName},
		{"Amount", r.Amount},
		{"Method", r.Method},
	}
	if r.TransactionID != "" {
		rows = append(rows, [2]string{"Transaction", r.TransactionID})
	}
	if r.PaidAt != "" {
		rows = append(rows, [2]string{"Paid at", r.PaidAt})
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 8, row[0], "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, row[1], "", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
