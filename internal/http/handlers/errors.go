// Package handlers implements the HTTP endpoints. This file lists the stable
// machine-readable error codes carried in ErrorResponse.Code.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Receipt workflow
	ErrCodeValidation = "validation_failed"
	ErrCodeRender     = "render_failed"
	ErrCodeStorage    = "storage_failed"

	// Integrations
	ErrCodeNotConfigured = "not_configured"
	ErrCodeUpstream      = "upstream_unreachable"
	ErrCodeWriteFailed   = "write_failed"
)
