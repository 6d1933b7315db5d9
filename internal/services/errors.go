// Package services holds the receipt workflow and the appointment webhook
// sink. This file centralizes the service-level error values; handlers map
// them to HTTP statuses with errors.Is.
package services

import "errors"

var (
	// ErrValidation is returned when a required field is missing. No side
	// effects have happened when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrRender is returned when the PDF could not be produced. Nothing was
	// persisted.
	ErrRender = errors.New("pdf render failed")

	// ErrStorage is returned when a rendered receipt could not be saved. No
	// email was sent.
	ErrStorage = errors.New("receipt storage failed")

	// ErrDelivery marks a failed email. It is logged and never returned from
	// Create.
	ErrDelivery = errors.New("receipt delivery failed")

	// ErrReceiptNotFound is returned when no index row exists for an id.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrInvalidPayload is returned when a webhook body is not a JSON object.
	ErrInvalidPayload = errors.New("payload must be a JSON object")
)
