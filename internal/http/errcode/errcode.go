// Package errcode defines the error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings carried in the `code` field
// of the error envelope. Clients branch on them instead of on message text.
// Middleware and handlers both write them, so they live here.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "a lead with this email already exists"
//	}
package errcode

const (
	Unauthorized     = "unauthorized"
	NotFound         = "not_found"
	Conflict         = "conflict"
	TooManyRequests  = "too_many_requests"
	Internal         = "internal_error"
	MethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	Validation        = "validation_failed"
	BadIdempotencyKey = "bad_idempotency_key"
)
