package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeQuotaExceeded = "QUOTA_EXCEEDED"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeUnavailable   = "STORE_UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyText            = NewDomainError(ErrCodeValidation, "text must be a non-empty string")
	ErrMissingQuery         = NewDomainError(ErrCodeValidation, "query is required")
	ErrMissingDocuments     = NewDomainError(ErrCodeValidation, "at least one document is required")
	ErrMissingSessionID     = NewDomainError(ErrCodeValidation, "session id is required")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrOwnerNotFound         = NewDomainError(ErrCodeNotFound, "owner not found")
	ErrSessionNotFound       = NewDomainError(ErrCodeNotFound, "session not found")
	ErrAPIKeyNotFound        = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrOwnerAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "owner already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrNotOwner      = NewDomainError(ErrCodeForbidden, "knowledge base belongs to another owner")
)

// Provider errors
var (
	ErrEmbeddingExhausted = NewDomainError(ErrCodeRateLimited, "exceeded maximum retries due to rate limits")
	ErrDailyQuotaReached  = NewDomainError(ErrCodeQuotaExceeded, "daily request limit reached")
)
