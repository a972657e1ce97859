package errors

import "fmt"

// ErrorCode represents a Pith error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrWorkspaceMismatch ErrorCode = "WORKSPACE_MISMATCH" // 403
	ErrConflict          ErrorCode = "CONFLICT"           // 409
	ErrManifestTooLarge  ErrorCode = "MANIFEST_TOO_LARGE" // 413
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// PithError represents a structured error with code, status, and details.
type PithError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *PithError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PithError {
	return &PithError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(kind, identifier string) *PithError {
	return &PithError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewWorkspaceMismatch creates a 403 error for a record that exists but
// belongs to a different workspace than the caller claimed.
func NewWorkspaceMismatch(workspace, id string) *PithError {
	return &PithError{
		Code:    ErrWorkspaceMismatch,
		Status:  403,
		Message: fmt.Sprintf("record %q does not belong to workspace %q", id, workspace),
		Details: map[string]any{"workspace": workspace, "id": id},
	}
}

// NewConflict creates a 409 error for version conflicts.
func NewConflict(msg string) *PithError {
	return &PithError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewManifestTooLarge creates a 413 error when a raw context document
// exceeds the manifest pipeline's input bound.
func NewManifestTooLarge(max, actual int) *PithError {
	return &PithError{
		Code:    ErrManifestTooLarge,
		Status:  413,
		Message: fmt.Sprintf("raw context document exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *PithError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &PithError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a PithError with the given code.
func Is(err error, code ErrorCode) bool {
	if pErr, ok := err.(*PithError); ok {
		return pErr.Code == code
	}
	return false
}
