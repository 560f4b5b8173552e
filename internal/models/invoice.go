package models

import "time"

// InvoiceStatus represents the lifecycle of a fee invoice. OVERDUE is a
// read-time projection of PENDING past its due date; it is never stored or
// submitted by this service as authoritative state.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "PENDING"
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceOverdue InvoiceStatus = "OVERDUE"
)

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "CASH"
	PaymentBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentCreditCard    PaymentMethod = "CREDIT_CARD"
	PaymentMobileBanking PaymentMethod = "MOBILE_BANKING"
)

// Valid returns true when the method is a supported value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentBankTransfer, PaymentCreditCard, PaymentMobileBanking:
		return true
	default:
		return false
	}
}

// InvoiceRecord is a fee invoice as the upstream API reports it.
type InvoiceRecord struct {
	ID            string        `json:"id"`
	StudentID     string        `json:"student_id"`
	StudentName   string        `json:"student_name,omitempty"`
	Amount        float64       `json:"amount"`
	DueDate       string        `json:"due_date"`
	Description   string        `json:"description,omitempty"`
	Status        InvoiceStatus `json:"status"`
	Method        PaymentMethod `json:"payment_method,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// DisplayStatus derives the status shown to the user at read time. A pending
// invoice past its due date renders as OVERDUE without mutating the record.
func (inv InvoiceRecord) DisplayStatus(now time.Time) InvoiceStatus {
	if inv.Status != InvoicePending {
		return inv.Status
	}
	due, err := time.Parse("2006-01-02", inv.DueDate)
	if err != nil {
		return inv.Status
	}
	if due.Before(now.Truncate(24 * time.Hour)) {
		return InvoiceOverdue
	}
	return inv.Status
}

// InvoiceInput is the payload for generating a new invoice.
type InvoiceInput struct {
	StudentID   int64   `json:"student_id" validate:"required,min=1"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	DueDate     string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	Description string  `json:"description"`
}

// PaymentInput is the payload for recording a payment against an invoice.
type PaymentInput struct {
	Method        string `json:"payment_method" validate:"required,payment_method"`
	TransactionID string `json:"transaction_id"`
}

// InvoiceFilter scopes invoice listing.
type InvoiceFilter struct {
	StudentID string `json:"student_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Month     string `json:"month,omitempty"`
}

// AsScope converts the filter into the generic scope used by the draft engine.
func (f InvoiceFilter) AsScope() Scope {
	filters := map[string]string{}
	if f.StudentID != "" {
		filters["student_id"] = f.StudentID
	}
	if f.Status != "" {
		filters["status"] = f.Status
	}
	if f.Month != "" {
		filters["month"] = f.Month
	}
	return Scope{Module: ModuleFees, Filters: filters}
}
