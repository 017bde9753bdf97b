package errors

import "net/http"

// AppError is a custom error type that includes an HTTP status code and a
// short machine-usable reason code for clients.
type AppError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates a new AppError
func NewAppError(code int, reason, message string) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// Common errors
var (
	ErrInvalidRequest = NewAppError(http.StatusBadRequest, "invalid_request", "Invalid request parameters")
	ErrUnauthorized   = NewAppError(http.StatusUnauthorized, "unauthorized", "Unauthorized access")
	ErrForbidden      = NewAppError(http.StatusForbidden, "forbidden", "Access denied")
	ErrNotFound       = NewAppError(http.StatusNotFound, "not_found", "Resource not found")
	ErrInternalServer = NewAppError(http.StatusInternalServerError, "internal_error", "Internal server error")
	ErrRateLimit      = NewAppError(http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
)

// Messaging domain errors. NotParticipant maps to 404 so the existence of a
// thread never leaks to outsiders.
var (
	ErrInvalidParticipants = NewAppError(http.StatusBadRequest, "invalid_participants", "Cannot start a conversation with yourself")
	ErrNotParticipant      = NewAppError(http.StatusNotFound, "not_participant", "Thread not found")
	ErrEmptyMessage        = NewAppError(http.StatusBadRequest, "empty_message", "Message requires text or an attachment")
	ErrInvalidFolder       = NewAppError(http.StatusBadRequest, "invalid_folder", "Folder does not exist or is not yours")
	ErrFolderNotEmpty      = NewAppError(http.StatusConflict, "folder_not_empty", "Folder still contains conversations")
	ErrAttachmentRejected  = NewAppError(http.StatusBadRequest, "attachment_rejected", "Attachment type or size not allowed")
	ErrExternalFailure     = NewAppError(http.StatusBadGateway, "external_failure", "Upstream service unavailable")
)

// Helper functions to create specific errors
func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, "invalid_request", msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, "not_found", msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, "unauthorized", msg)
}

func Forbidden(msg string) *AppError {
	return NewAppError(http.StatusForbidden, "forbidden", msg)
}

func Conflict(msg string) *AppError {
	return NewAppError(http.StatusConflict, "conflict", msg)
}

func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, "internal_error", msg)
}
