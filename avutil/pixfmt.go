//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"github.com/ebitengine/purego"
)

// PixelFormat represents FFmpeg pixel formats.
type PixelFormat int32

// Pixel formats whose values are stable across FFmpeg releases. Hardware
// formats move between releases and are resolved by name.
const (
	PixelFormatNone    PixelFormat = -1
	PixelFormatYUV420P PixelFormat = 0
	PixelFormatRGB24   PixelFormat = 2
	PixelFormatBGR24   PixelFormat = 3
	PixelFormatNV12    PixelFormat = 23
)

// MediaType represents FFmpeg media types.
type MediaType int32

// MediaTypeVideo is AVMEDIA_TYPE_VIDEO.
const MediaTypeVideo MediaType = 0

var (
	avGetPixFmt     func(name string) int32
	avGetPixFmtName func(pixFmt int32) uintptr
)

func registerPixFmt(lib uintptr) {
	purego.RegisterLibFunc(&avGetPixFmt, lib, "av_get_pix_fmt")
	purego.RegisterLibFunc(&avGetPixFmtName, lib, "av_get_pix_fmt_name")
}

// PixelFormatByName resolves a name such as "yuv420p" or "cuda".
// Unknown names yield PixelFormatNone.
func PixelFormatByName(name string) PixelFormat {
	if avGetPixFmt == nil || name == "" {
		return PixelFormatNone
	}
	return PixelFormat(avGetPixFmt(name))
}

// String returns FFmpeg's name for the format.
func (p PixelFormat) String() string {
	if avGetPixFmtName == nil {
		switch p {
		case PixelFormatYUV420P:
			return "yuv420p"
		case PixelFormatRGB24:
			return "rgb24"
		case PixelFormatNV12:
			return "nv12"
		}
		return "unknown"
	}
	if name := GoString(avGetPixFmtName(int32(p))); name != "" {
		return name
	}
	return "none"
}
