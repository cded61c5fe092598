package identity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is a provider failure. Message is always safe to show an operator.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity %s: %s", e.Code, e.Message)
}

var messages = map[string]string{
	"EMAIL_NOT_FOUND":             "No account found with this email address",
	"INVALID_PASSWORD":            "Incorrect password",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password",
	"EMAIL_EXISTS":                "An account with this email already exists",
	"USER_DISABLED":               "This account has been disabled",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many failed attempts. Please try again later",
	"WEAK_PASSWORD":               "Password should be at least 6 characters",
	"INVALID_EMAIL":               "Invalid email address",
	"OPERATION_NOT_ALLOWED":       "Email/password sign-in is not enabled",
	"MISSING_PASSWORD":            "Password is required",
}

// Message maps a provider error code to its user-facing text, falling back
// to raw.
func Message(code, raw string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	if raw != "" {
		return raw
	}
	return code
}

// parseError turns a provider error body into an *Error. Provider messages
// look like "WEAK_PASSWORD : Password should be at least 6 characters".
func parseError(status int, body []byte) *Error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error.Message == "" {
		return &Error{Code: fmt.Sprintf("HTTP_%d", status), Message: "Authentication failed"}
	}
	code, detail, _ := strings.Cut(er.Error.Message, " : ")
	code = strings.TrimSpace(code)
	raw := strings.TrimSpace(detail)
	if raw == "" {
		raw = er.Error.Message
	}
	return &Error{Code: code, Message: Message(code, raw)}
}
