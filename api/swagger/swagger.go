package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Bimbel API",
        "description": "Enrollment, billing and scheduling backend for tutoring programs",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and profile"},
        {"name": "Enrollments", "description": "Enrollment lifecycle and waiting list"},
        {"name": "Payments", "description": "Checkout sessions and gateway callbacks"},
        {"name": "Invoices", "description": "Billing documents and exports"},
        {"name": "Sections", "description": "Section roster and seat availability"},
        {"name": "Meetings", "description": "Meeting scheduling"},
        {"name": "Notifications", "description": "Per-user notification feed"},
        {"name": "Cron", "description": "Externally-triggered batch jobs"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "section_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student into a section",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Section full or student already enrolled"}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/checkout": {
            "post": {
                "tags": ["Payments"],
                "summary": "Open a payment session for a pending enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Enrollment not pending"}
                }
            }
        },
        "/enrollments/{id}/activate": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Activate a paid enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/waitlist": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List a program's waiting list",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "program_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Join a program waiting list",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinWaitlistRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/waitlist/approve": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Approve a waiting-list entry into a section",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveWaitlistRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "tags": ["Payments"],
                "summary": "Process payment gateway notification",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WebhookPayload"}}
                ],
                "responses": {
                    "200": {"description": "Processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid signature, amount mismatch or unmapped status"}
                }
            }
        },
        "/invoices": {
            "get": {
                "tags": ["Invoices"],
                "summary": "List invoices",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "enrollment_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invoices/{id}": {
            "get": {
                "tags": ["Invoices"],
                "summary": "Get invoice",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Invoices"],
                "summary": "Cancel an unpaid invoice",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/invoices/{id}/pdf": {
            "get": {
                "tags": ["Invoices"],
                "summary": "Download invoice PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/invoices/{id}/discount": {
            "patch": {
                "tags": ["Invoices"],
                "summary": "Update invoice discount",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDiscountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invoice already paid"}
                }
            }
        },
        "/invoices/export/csv": {
            "get": {
                "tags": ["Invoices"],
                "summary": "Export invoices as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/sections": {
            "get": {
                "tags": ["Sections"],
                "summary": "List sections",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "program_id", "in": "query", "type": "string"},
                    {"name": "tutor_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/availability": {
            "get": {
                "tags": ["Sections"],
                "summary": "Section seat availability for a program",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "program_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}": {
            "get": {
                "tags": ["Sections"],
                "summary": "Get section detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/meetings": {
            "post": {
                "tags": ["Meetings"],
                "summary": "Schedule a section meeting",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleMeetingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Conflict with existing meeting or outside tutor availability"}
                }
            }
        },
        "/meetings/{id}": {
            "get": {
                "tags": ["Meetings"],
                "summary": "Get meeting detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Meetings"],
                "summary": "Cancel a scheduled meeting",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/cron/grace-period": {
            "get": {
                "tags": ["Cron"],
                "summary": "Expire active enrollments and release grace-expired slots",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CronSummary"}},
                    "401": {"description": "Invalid cron secret"}
                }
            }
        },
        "/cron/payment-expiry": {
            "get": {
                "tags": ["Cron"],
                "summary": "Void lapsed checkout sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CronSummary"}},
                    "401": {"description": "Invalid cron secret"}
                }
            }
        },
        "/cron/renewal-reminder": {
            "get": {
                "tags": ["Cron"],
                "summary": "Open renewal checkouts and remind expiring students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CronSummary"}},
                    "401": {"description": "Invalid cron secret"}
                }
            }
        },
        "/cron/meeting-reminder": {
            "get": {
                "tags": ["Cron"],
                "summary": "Notify students of imminent meetings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CronSummary"}},
                    "401": {"description": "Invalid cron secret"}
                }
            }
        },
        "/cron/section-reconcile": {
            "get": {
                "tags": ["Cron"],
                "summary": "Resync drifted section seat counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CronSummary"}},
                    "401": {"description": "Invalid cron secret"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "section_id": {"type": "string"}
            },
            "required": ["student_id", "section_id"]
        },
        "JoinWaitlistRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "program_id": {"type": "string"}
            },
            "required": ["student_id", "program_id"]
        },
        "ApproveWaitlistRequest": {
            "type": "object",
            "properties": {
                "waitlist_id": {"type": "string"},
                "section_id": {"type": "string"}
            },
            "required": ["waitlist_id", "section_id"]
        },
        "ScheduleMeetingRequest": {
            "type": "object",
            "properties": {
                "section_id": {"type": "string"},
                "topic": {"type": "string"},
                "scheduled_at": {"type": "string"},
                "duration_min": {"type": "integer"}
            },
            "required": ["section_id", "topic", "scheduled_at", "duration_min"]
        },
        "UpdateDiscountRequest": {
            "type": "object",
            "properties": {
                "discount": {"type": "integer"}
            }
        },
        "WebhookPayload": {
            "type": "object",
            "properties": {
                "project": {"type": "string"},
                "order_id": {"type": "string"},
                "amount": {"type": "integer"},
                "status": {"type": "string"},
                "payment_method": {"type": "string"},
                "completed_at": {"type": "string"},
                "signature": {"type": "string"}
            },
            "required": ["order_id", "amount", "status"]
        },
        "CronSummary": {
            "type": "object",
            "properties": {
                "job": {"type": "string"},
                "total": {"type": "integer"},
                "processed": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
