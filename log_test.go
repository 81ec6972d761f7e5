//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LogQuiet, "quiet"},
		{LogPanic, "panic"},
		{LogError, "error"},
		{LogWarning, "warning"},
		{LogInfo, "info"},
		{LogDebug, "debug"},
		{LogTrace, "trace"},
		{LogLevel(20), "warning"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLogLevelFor(t *testing.T) {
	tests := []struct {
		level zapcore.Level
		want  LogLevel
	}{
		{zapcore.DebugLevel, LogVerbose},
		{zapcore.InfoLevel, LogInfo},
		{zapcore.WarnLevel, LogWarning},
		{zapcore.ErrorLevel, LogError},
		{zapcore.DPanicLevel, LogFatal},
		{zapcore.PanicLevel, LogFatal},
		{zapcore.FatalLevel, LogQuiet},
	}
	for _, tt := range tests {
		if got := LogLevelFor(tt.level); got != tt.want {
			t.Errorf("LogLevelFor(%s) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
