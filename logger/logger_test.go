package logger_test

import (
	"bytes"
	"io"
	"log"
	"regexp"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/switchback/logger"
)

var (
	logLevelRegexp = regexp.MustCompile(`^\[[A-Z]+\]`)
	fpRegexp       = regexp.MustCompile(`logger_test\.go:\d+`)
)

func newTestLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

func TestNewLogLevel(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected logger.LogLevel
	}{
		{"DEBUG", logger.LogLevelDebug},
		{"INFO", logger.LogLevelInfo},
		{"WARN", logger.LogLevelWarn},
		{"ERROR", logger.LogLevelError},
		{"FATAL", logger.LogLevelFatal},
		{"", logger.LogLevelUnk},
		{"verbose", logger.LogLevelUnk},
	} {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.expected, logger.NewLogLevel(tc.input))
		})
	}
}

func TestSwitchbackLogger(t *testing.T) {
	color.NoColor = true

	// Arrange
	b := new(bytes.Buffer)
	l := logger.NewLogger(logger.WithLogger(newTestLogger(b)), logger.WithLevel(logger.LogLevelDebug))

	// Act
	l.Debug("are we having fun yet", nil)

	// Assert
	out := b.String()
	require.Regexp(t, logLevelRegexp, out)
	require.Regexp(t, fpRegexp, out)
	require.Contains(t, out, "[DEBUG]")
	require.Contains(t, out, "'are we having fun yet'")

	// Arrange
	b.Reset()

	// Act
	l.Info("well marked", &logger.LogContext{Data: map[string]any{"blaze": true}})

	// Assert
	out = b.String()
	require.Contains(t, out, "[INFO]")
	require.Contains(t, out, "log_context:")
	require.Contains(t, out, "blaze")
}

func TestSwitchbackLoggerLevelGate(t *testing.T) {
	color.NoColor = true

	// Arrange
	b := new(bytes.Buffer)
	l := logger.NewLogger(logger.WithLogger(newTestLogger(b)), logger.WithLevel(logger.LogLevelError))

	// Act
	l.Debug("quiet", nil)
	l.Info("quiet", nil)
	l.Warn("quiet", nil)

	// Assert
	require.Zero(t, b.Len())

	// Act
	l.Error("loud", nil)

	// Assert
	require.Contains(t, b.String(), "[ERROR]")
	require.Equal(t, logger.LogLevelError, l.LogLevel())
}

func TestSwitchbackLoggerAddSkip(t *testing.T) {
	color.NoColor = true

	// Arrange
	b := new(bytes.Buffer)
	l := logger.NewLogger(logger.WithLogger(newTestLogger(b)), logger.WithLevel(logger.LogLevelDebug))
	sl, ok := l.(logger.SkipLogger)
	require.True(t, ok)

	// Act
	skipped := sl.AddSkip(1)

	// Assert
	require.Equal(t, 1, skipped.Skip())
	require.Zero(t, sl.Skip())
}
