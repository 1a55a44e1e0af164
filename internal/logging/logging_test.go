package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lburgazzoli/kpipe/internal/config"
	"github.com/lburgazzoli/kpipe/internal/logging"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		enabled zapcore.Level
		skipped zapcore.Level
	}{
		{name: "debug console", level: config.LogLevelDebug, format: config.LogFormatConsole, enabled: zapcore.DebugLevel, skipped: zapcore.DebugLevel - 1},
		{name: "info json", level: config.LogLevelInfo, format: config.LogFormatJSON, enabled: zapcore.InfoLevel, skipped: zapcore.DebugLevel},
		{name: "error console", level: config.LogLevelError, format: config.LogFormatConsole, enabled: zapcore.ErrorLevel, skipped: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logging.New(tt.level, tt.format)
			require.NoError(t, err)

			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.skipped))
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := logging.New("verbose", config.LogFormatConsole)
	require.Error(t, err)

	_, err = logging.New(config.LogLevelInfo, "xml")
	require.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	l, err := logging.FromConfig(config.Default())
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
