package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

// Schema names the input shapes this layer knows how to validate.
const (
	SchemaInvoiceCreate = "invoice_create"
	SchemaPaymentRecord = "payment_record"
)

// Validator performs synchronous, client-side validation of record-creation
// inputs against named schemas. Passing here does not guarantee server-side
// acceptance; the server may still reject on business rules.
type Validator struct {
	validate *validator.Validate
}

// New builds the validator and registers domain validations.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		method := models.PaymentMethod(strings.ToUpper(fl.Field().String()))
		return method.Valid()
	})

	return &Validator{validate: v}
}

// Validate checks input against the named schema and returns a validation
// error carrying per-field messages on failure.
func (v *Validator) Validate(schema string, input interface{}) error {
	switch schema {
	case SchemaInvoiceCreate, SchemaPaymentRecord:
	default:
		return appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unknown validation schema %q", schema))
	}

	if err := v.validate.Struct(input); err != nil {
		return v.fieldErrors(err)
	}
	return nil
}

// ValidateInvoice runs the invoice_create schema and additionally requires
// the student to exist in the currently loaded student list.
func (v *Validator) ValidateInvoice(input models.InvoiceInput, students []models.Student) error {
	if err := v.Validate(SchemaInvoiceCreate, input); err != nil {
		return err
	}

	for _, student := range students {
		if student.ID == input.StudentID {
			return nil
		}
	}
	return appErrors.Validation("validation failed", map[string]string{
		"student_id": "student is not in the loaded student list",
	})
}

// ValidatePayment runs the payment_record schema.
func (v *Validator) ValidatePayment(input models.PaymentInput) error {
	return v.Validate(SchemaPaymentRecord, input)
}

func (v *Validator) fieldErrors(err error) error {
	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}

	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Field()] = messageFor(fe)
	}
	return appErrors.Validation("validation failed", fields)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "payment_method":
		return "must be one of CASH, BANK_TRANSFER, CREDIT_CARD, MOBILE_BANKING"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
