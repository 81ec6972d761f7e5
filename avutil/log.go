//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

var (
	avLogSetLevel func(level int32)
	avLogGetLevel func() int32
)

func registerLog(lib uintptr) {
	purego.RegisterLibFunc(&avLogSetLevel, lib, "av_log_set_level")
	purego.RegisterLibFunc(&avLogGetLevel, lib, "av_log_get_level")
}

// LogSetLevel sets FFmpeg's global log verbosity (AV_LOG_*).
func LogSetLevel(level int32) error {
	if avLogSetLevel == nil {
		return bindings.ErrNotLoaded
	}
	avLogSetLevel(level)
	return nil
}

// LogGetLevel returns FFmpeg's global log verbosity.
func LogGetLevel() int32 {
	if avLogGetLevel == nil {
		return 0
	}
	return avLogGetLevel()
}
