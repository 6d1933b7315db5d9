// Package docs registers the OpenAPI document served by Swagger UI at
// /swagger/index.html. Regenerate with `swag init -g internal/http/router.go
// -o internal/http/docs` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/receipts": {
            "post": {
                "description": "Renders the appointment receipt to PDF, stores it and emails it when a mail backend is configured. Email failure does not fail the request (emailed=false).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Receipts"],
                "summary": "Create a receipt",
                "operationId": "createReceipt",
                "parameters": [
                    {"type": "string", "description": "Replay-safe key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Appointment form", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.ReceiptRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ReceiptResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/receipts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Receipts"],
                "summary": "Receipt metadata",
                "operationId": "getReceipt",
                "parameters": [
                    {"type": "string", "description": "Receipt id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ReceiptRecord"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ReceiptRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Ana Pérez"},
                "email": {"type": "string", "example": "ana@example.com"},
                "phone": {"type": "string", "example": "+34 600 000 000"},
                "date": {"type": "string", "example": "2025-06-01 10:30"},
                "notes": {"type": "string", "example": "First visit"}
            }
        },
        "domain.ReceiptRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "filename": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "emailed": {"type": "boolean"},
                "size_bytes": {"type": "integer"},
                "url": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.ReceiptResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean", "example": true},
                "id": {"type": "string", "example": "AGR-1717236000000-X7K2QD"},
                "url": {"type": "string", "example": "/receipts/1717236000000-AGR-1717236000000-X7K2QD.pdf"},
                "download": {"type": "string", "example": "/receipts/1717236000000-AGR-1717236000000-X7K2QD.pdf?download=1"},
                "name": {"type": "string", "example": "Ana Pérez"},
                "email": {"type": "string", "example": "ana@example.com"},
                "emailed": {"type": "boolean", "example": false}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean", "example": false},
                "error": {"type": "string", "example": "name and email are required"},
                "code": {"type": "string", "example": "validation_failed"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        }
    }
}`

// SwaggerInfo holds the exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Receipt Service API",
	Description:      "Appointment receipts rendered to PDF, stored and emailed.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
