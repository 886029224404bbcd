package errorx

import (
	"errors"
	"fmt"
)

// Category classifies client-visible errors. Every rejected request is
// answered with exactly one of these, never silently dropped.
type Category string

const (
	// CategoryAuth covers everything from a missing credential to a deleted
	// account. Deliberately coarse: the client must not be able to tell
	// "wrong token" from "user not found".
	CategoryAuth Category = "auth"
	// CategoryAccessDenied is an authenticated caller lacking scope or
	// permission for the requested room or command.
	CategoryAccessDenied Category = "access_denied"
	// CategoryValidation is a malformed request; no state was mutated.
	CategoryValidation Category = "validation"
	// CategoryNotFound is a subject id unknown to the platform.
	CategoryNotFound Category = "not_found"
	// CategoryStoreUnavailable is a degraded shared-store operation. It is
	// logged server-side and never surfaces as a hard failure to clients.
	CategoryStoreUnavailable Category = "store_unavailable"
)

// ClientError is the error shape serialized into an `error` event reply.
type ClientError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
	Resource string   `json:"resource,omitempty"`
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// ErrAuthRequired is the single auth rejection clients ever see. The precise
// cause (no credential, expired token, inactive account) stays in server logs.
func ErrAuthRequired() *ClientError {
	return &ClientError{
		Code:     "AUTH_REQUIRED",
		Message:  "authentication required",
		Category: CategoryAuth,
	}
}

// NewAccessDenied names the resource; an authenticated caller is allowed to
// learn what it was denied access to.
func NewAccessDenied(resource string) *ClientError {
	return &ClientError{
		Code:     "ACCESS_DENIED",
		Message:  fmt.Sprintf("access denied to %s", resource),
		Category: CategoryAccessDenied,
		Resource: resource,
	}
}

// NewValidation reports a malformed request field.
func NewValidation(message string) *ClientError {
	return &ClientError{
		Code:     "VALIDATION_FAILED",
		Message:  message,
		Category: CategoryValidation,
	}
}

// NewNotFound reports an unknown subject id.
func NewNotFound(resource, id string) *ClientError {
	return &ClientError{
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s %s not found", resource, id),
		Category: CategoryNotFound,
		Resource: resource,
	}
}

// AsClientError unwraps err to a *ClientError if one is in the chain.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
