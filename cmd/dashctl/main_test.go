package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerConfig_DebugUsesDevelopmentFormat(t *testing.T) {
	cfg := loggerConfig("debug")
	assert.True(t, cfg.Development)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)

	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestLoggerConfig_OtherLevelsUseJSON(t *testing.T) {
	cfg := loggerConfig("info")
	assert.False(t, cfg.Development)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())

	cfg = loggerConfig("chatty")
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}

func TestCommands_OrderMatchesTable(t *testing.T) {
	assert.Len(t, commandOrder, len(commands))
	for _, name := range commandOrder {
		cmd, ok := commands[name]
		if assert.True(t, ok, name) {
			assert.NotEmpty(t, cmd.summary, name)
			assert.NotNil(t, cmd.run, name)
		}
	}
	for _, name := range []string{"customers", "customer", "tickets", "ticket", "settings", "analytics", "driver", "booking"} {
		assert.Contains(t, commands, name)
	}
}

func TestParseWithID(t *testing.T) {
	fs := pflag.NewFlagSet("driver", pflag.ContinueOnError)
	suspend := fs.String("suspend", "", "")
	id, err := parseWithID(fs, []string{"drv_1", "--suspend", "late"})
	require.NoError(t, err)
	assert.Equal(t, "drv_1", id)
	assert.Equal(t, "late", *suspend)

	_, err = parseWithID(pflag.NewFlagSet("driver", pflag.ContinueOnError), nil)
	assert.EqualError(t, err, "expected exactly one ID, got 0 arguments")
}
