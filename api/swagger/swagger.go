package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ASPS Dashboard API",
        "description": "Backend facade for the after-school program dashboard",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Roster marking and batch submission"},
        {"name": "Fees", "description": "Invoices and payments"},
        {"name": "Reports", "description": "Read-only aggregates"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check (pings the upstream API)",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Upstream unreachable"}
                }
            }
        },
        "/attendance/roster": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Load the editable roster for a date and class",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "classId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/roster/{studentId}": {
            "patch": {
                "tags": ["Attendance"],
                "summary": "Locally mark one student's status",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/attendance/submit": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Submit the draft roster as one batch",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/history": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Persisted attendance for the history view",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "classId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Export the current roster as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/fees": {
            "get": {
                "tags": ["Fees"],
                "summary": "Load the invoice list into an editing session",
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "month", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/generate": {
            "post": {
                "tags": ["Fees"],
                "summary": "Generate a new fee invoice",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InvoiceInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}/pay": {
            "put": {
                "tags": ["Fees"],
                "summary": "Record a payment against one invoice",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PaymentInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invoice already paid"}
                }
            }
        },
        "/fees/{id}/mark": {
            "patch": {
                "tags": ["Fees"],
                "summary": "Locally mark an invoice paid or pending",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/fees/submit": {
            "post": {
                "tags": ["Fees"],
                "summary": "Submit locally marked invoices as one payment batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PaymentInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}/receipt": {
            "get": {
                "tags": ["Fees"],
                "summary": "Download a PDF receipt for a paid invoice",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/reports/{name}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Fetch a read-only aggregate report",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RosterEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "display": {"type": "object"},
                "status": {"type": "string"},
                "final": {"type": "boolean"},
                "reason": {"type": "string"}
            }
        },
        "MarkRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            },
            "required": ["status"]
        },
        "InvoiceInput": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "amount": {"type": "number"},
                "due_date": {"type": "string"},
                "description": {"type": "string"}
            },
            "required": ["student_id", "amount", "due_date"]
        },
        "PaymentInput": {
            "type": "object",
            "properties": {
                "payment_method": {"type": "string"},
                "transaction_id": {"type": "string"}
            },
            "required": ["payment_method"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
