//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"github.com/obinnaokechukwu/ffio/avutil"
	"go.uber.org/zap/zapcore"
)

// LogLevel is an FFmpeg AV_LOG_* verbosity.
type LogLevel int32

const (
	LogQuiet   LogLevel = -8
	LogPanic   LogLevel = 0
	LogFatal   LogLevel = 8
	LogError   LogLevel = 16
	LogWarning LogLevel = 24
	LogInfo    LogLevel = 32
	LogVerbose LogLevel = 40
	LogDebug   LogLevel = 48
	LogTrace   LogLevel = 56
)

var logLevelNames = []struct {
	max  LogLevel
	name string
}{
	{LogQuiet, "quiet"},
	{LogPanic, "panic"},
	{LogFatal, "fatal"},
	{LogError, "error"},
	{LogWarning, "warning"},
	{LogInfo, "info"},
	{LogVerbose, "verbose"},
	{LogDebug, "debug"},
}

func (l LogLevel) String() string {
	for _, n := range logLevelNames {
		if l <= n.max {
			return n.name
		}
	}
	return "trace"
}

// LogLevelFor maps a zap level to the FFmpeg verbosity that prints about
// as much, so library output follows the application's logger.
func LogLevelFor(lvl zapcore.Level) LogLevel {
	switch {
	case lvl <= zapcore.DebugLevel:
		return LogVerbose
	case lvl == zapcore.InfoLevel:
		return LogInfo
	case lvl == zapcore.WarnLevel:
		return LogWarning
	case lvl == zapcore.ErrorLevel:
		return LogError
	case lvl < zapcore.FatalLevel:
		return LogFatal
	default:
		return LogQuiet
	}
}

// SetLogLevel sets how much FFmpeg itself prints to stderr. It loads the
// libraries if needed.
func SetLogLevel(level LogLevel) error {
	if err := Init(); err != nil {
		return err
	}
	return avutil.LogSetLevel(int32(level))
}

// GetLogLevel returns FFmpeg's current log level.
func GetLogLevel() LogLevel {
	return LogLevel(avutil.LogGetLevel())
}
