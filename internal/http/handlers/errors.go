package handlers

// Error codes carried in ErrorResponse.Code. Generic codes mirror the HTTP
// status; the domain codes name outcomes the status alone cannot convey.
// Codes are lowercase snake_case and never change once published.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "message": "invalid medication: name: required",
//	  "fields": [{"field": "name", "reason": "required"}]
//	}
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeTooLarge     = "payload_too_large"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeValidation         = "validation_failed"
	ErrCodeStorageUnavailable = "storage_unavailable"
	ErrCodeLocked             = "locked"
	ErrCodeWrongPIN           = "wrong_pin"
	ErrCodeResetDisabled      = "reset_disabled"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)
