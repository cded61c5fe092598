package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// User-facing messages for errors the console normalizes.
const (
	MsgRequestTimeout = "Request timeout - please try again"
	MsgNetwork        = "Network error - please check your connection"
	MsgSessionExpired = "Session expired - please log in again"
)

// Common reusable console errors
var (
	// transport
	ErrRequestTimeout = errors.New(MsgRequestTimeout)
	ErrNetwork        = errors.New(MsgNetwork)

	// authentication
	ErrSessionExpired   = errors.New(MsgSessionExpired)
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrNoIdentity       = errors.New("no identity session")

	// validation
	ErrInvalidInput = errors.New("invalid input")
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrFileType     = errors.New("file type not allowed")

	// realtime
	ErrNotConnected = errors.New("realtime connection not established")
	ErrAuthRejected = errors.New("realtime authentication rejected")

	// storage
	ErrInvalidSession = errors.New("session requires both token and user")
	ErrDecrypt        = errors.New("failed to decrypt stored data")

	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("insufficient permissions")
	ErrInternal          = errors.New("internal server error")
)

// APIError is a structured failure returned by the backend in its response
// envelope. Callers extract it with errors.As; the code and message are the
// backend's own and are never rewritten.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.Status, e.Message)
}

// NewAPIError builds an APIError, filling the message from the HTTP status
// text when the backend sent none.
func NewAPIError(status int, code, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", status)
	}
	return &APIError{Status: status, Code: code, Message: message}
}

// IsAPIError reports whether err is an *APIError with the given code.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Invalid wraps ErrInvalidInput with a field-specific reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
