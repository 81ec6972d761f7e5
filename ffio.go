//go:build !ios && !android && (amd64 || arm64)

// Package ffio is a frame-level video engine. A Context decodes a file or
// network stream into packed RGB24 images, or encodes RGB24 images into
// one, a frame per call.
//
// On top of the codec and container plumbing it adds selectable
// timestamp strategies (see package pts), optional hardware acceleration,
// zero-copy frame exchange through named shared memory (package shm) and
// per-frame SEI metadata (package sei).
//
// FFmpeg is loaded at runtime through purego; no cgo is involved.
package ffio

import (
	"sync"

	"github.com/obinnaokechukwu/ffio/avformat"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// TimeBase is the number of timestamp ticks per second of encoded streams.
const TimeBase = 1000

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the FFmpeg libraries and initializes networking. It is
// called by the first Initialize and is safe to call multiple times.
func Init() error {
	initOnce.Do(func() {
		if initErr = bindings.Load(); initErr != nil {
			return
		}
		initErr = avformat.NetworkInit()
	})
	return initErr
}

// IsLoaded returns true if FFmpeg libraries have been successfully loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}

// Version returns FFmpeg library versions.
func Version() (avutil, avcodec, avformat uint32) {
	return bindings.AVUtilVersion(), bindings.AVCodecVersion(), bindings.AVFormatVersion()
}
