package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Envelope is the backend's standard response format. Both the console
// (decoding) and the mock backend (encoding) speak it.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the structured error inside an envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts both the structured form and a bare string, which
// older backend routes still send.
func (e *ErrorBody) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var msg string
		if err := json.Unmarshal(b, &msg); err != nil {
			return err
		}
		e.Message = msg
		return nil
	}
	type plain ErrorBody
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = ErrorBody(p)
	return nil
}

// Decode parses an envelope. A body that is not an envelope, including a
// JSON object carrying neither "success" nor "error", yields ok=false.
func Decode(body []byte) (env Envelope, ok bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return env, false
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return env, false
	}
	_, hasSuccess := keys["success"]
	_, hasError := keys["error"]
	if !hasSuccess && !hasError {
		return env, false
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, false
	}
	return env, true
}

// DecodeData unmarshals the envelope's data into out. Nil out or empty data
// is a no-op.
func (e Envelope) DecodeData(out any) error {
	if out == nil || len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

// ---------- gin helpers (mock backend) ----------

type body struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data any) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, body{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string) {
	// Abort before writing so later handlers in the chain are skipped.
	c.Abort()

	c.JSON(status, body{
		Success: false,
		Message: message,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, err error) {
	Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, "FORBIDDEN", message)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message)
}

// FromError maps a service error onto the matching status and code.
func FromError(c *gin.Context, err error) {
	var apiErr *xerrors.APIError
	switch {
	case errors.As(err, &apiErr):
		Error(c, apiErr.Status, apiErr.Code, apiErr.Message)
	case errors.Is(err, xerrors.ErrInvalidInput):
		ValidationError(c, err)
	case errors.Is(err, xerrors.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, xerrors.ErrConflict):
		Error(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, xerrors.ErrInvalidTransition):
		Error(c, http.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, xerrors.ErrForbidden):
		Forbidden(c, err.Error())
	default:
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
