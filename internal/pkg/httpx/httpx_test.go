package httpx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeResponse(strings.NewReader(`{"name":"console"}`), &out))
	assert.Equal(t, "console", out.Name)
	assert.Error(t, DecodeResponse(strings.NewReader(`not json`), &out))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("send: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(errors.New("connection refused")))
	assert.False(t, IsTimeout(nil))
}
