package services

import "errors"

// Error taxonomy shared by the service layer. Handlers map these to HTTP
// status codes; everything else is wrapped with fmt.Errorf("%w", ...).
var (
	// ErrValidation covers malformed or missing request fields. Surfaced as
	// 4xx, never retried.
	ErrValidation = errors.New("validation failed")

	// ErrAuthzDenied means the access-control policy said no. Callers must
	// return no employee data at all when they see this.
	ErrAuthzDenied = errors.New("access denied")

	// ErrUpstream covers document-store, auth-provider, or model-endpoint
	// failures. Surfaced as 5xx with a generic message; detail stays in logs.
	ErrUpstream = errors.New("upstream service failure")

	// ErrDataIntegrity flags cyclic hierarchies or orphaned manager edges.
	// The hierarchy engine truncates the offending subtree instead of
	// failing the whole query.
	ErrDataIntegrity = errors.New("data integrity violation")

	// Transcription adapter failures.
	ErrInvalidAudio       = errors.New("invalid audio payload")
	ErrServiceUnavailable = errors.New("speech service unavailable")
	ErrUnauthorized       = errors.New("speech service rejected credentials")
)
