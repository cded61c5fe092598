package xerrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_PassesBackendCodeThrough(t *testing.T) {
	err := fmt.Errorf("list drivers: %w", &APIError{Status: 409, Code: "DRIVER_BUSY", Message: "driver is on a trip"})

	var apiErr *APIError
	require.True(t, As(err, &apiErr))
	assert.Equal(t, "DRIVER_BUSY", apiErr.Code)
	assert.Equal(t, "driver is on a trip", apiErr.Message)
	assert.True(t, IsAPIError(err, "DRIVER_BUSY"))
	assert.False(t, IsAPIError(err, "OTHER"))
}

func TestNewAPIError_FillsDefaults(t *testing.T) {
	err := NewAPIError(http.StatusBadGateway, "", "")
	assert.Equal(t, "HTTP_502", err.Code)
	assert.Equal(t, "Bad Gateway", err.Message)
}

func TestInvalid_WrapsSentinel(t *testing.T) {
	err := Invalid("email %q is malformed", "x@")
	assert.True(t, Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "x@")
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.Equal(t, "fallback", MessageOrDefault(nil, "fallback"))
}
