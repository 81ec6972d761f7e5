//go:build !ios && !android && (amd64 || arm64)

// Package avutil provides the libavutil calls the engine needs: frame
// management, memory, dictionaries, options, pixel formats, hardware
// contexts and logging.
package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// Frame is an opaque FFmpeg AVFrame pointer.
type Frame = unsafe.Pointer

// Dictionary is an opaque FFmpeg AVDictionary pointer.
type Dictionary = unsafe.Pointer

var (
	avFrameAlloc        func() unsafe.Pointer
	avFrameFree         func(frame *unsafe.Pointer)
	avFrameUnref        func(frame unsafe.Pointer)
	avFrameGetBuffer    func(frame unsafe.Pointer, align int32) int32
	avFrameMakeWritable func(frame unsafe.Pointer) int32

	avMalloc func(size uintptr) unsafe.Pointer
	avFree   func(ptr unsafe.Pointer)

	avDictSet  func(pm *unsafe.Pointer, key, value string, flags int32) int32
	avDictFree func(pm *unsafe.Pointer)

	avStrerror func(errnum int32, errbuf unsafe.Pointer, errbufSize uintptr) int32

	bindingsRegistered bool
)

func init() {
	registerBindings()
}

func registerBindings() {
	if bindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avFrameAlloc, lib, "av_frame_alloc")
	purego.RegisterLibFunc(&avFrameFree, lib, "av_frame_free")
	purego.RegisterLibFunc(&avFrameUnref, lib, "av_frame_unref")
	purego.RegisterLibFunc(&avFrameGetBuffer, lib, "av_frame_get_buffer")
	purego.RegisterLibFunc(&avFrameMakeWritable, lib, "av_frame_make_writable")

	purego.RegisterLibFunc(&avMalloc, lib, "av_malloc")
	purego.RegisterLibFunc(&avFree, lib, "av_free")

	purego.RegisterLibFunc(&avDictSet, lib, "av_dict_set")
	purego.RegisterLibFunc(&avDictFree, lib, "av_dict_free")

	purego.RegisterLibFunc(&avStrerror, lib, "av_strerror")

	registerPixFmt(lib)
	registerOpt(lib)
	registerHWContext(lib)
	registerLog(lib)

	bindingsRegistered = true
}

// FrameAlloc allocates an AVFrame. Free it with FrameFree.
func FrameAlloc() Frame {
	if avFrameAlloc == nil {
		return nil
	}
	return avFrameAlloc()
}

// FrameFree frees an AVFrame and sets the pointer to nil.
func FrameFree(frame *Frame) {
	if frame == nil || *frame == nil || avFrameFree == nil {
		return
	}
	avFrameFree(frame)
	*frame = nil
}

// FrameUnref drops all buffers referenced by frame.
func FrameUnref(frame Frame) {
	if frame == nil || avFrameUnref == nil {
		return
	}
	avFrameUnref(frame)
}

// FrameGetBuffer allocates buffers for a frame whose format, width and
// height are already set.
func FrameGetBuffer(frame Frame, align int32) error {
	if avFrameGetBuffer == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameGetBuffer(frame, align), "av_frame_get_buffer")
}

// FrameMakeWritable ensures the frame data is not shared with the codec.
func FrameMakeWritable(frame Frame) error {
	if avFrameMakeWritable == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameMakeWritable(frame), "av_frame_make_writable")
}

// NoPTSValue is AV_NOPTS_VALUE.
const NoPTSValue int64 = -9223372036854775808

// AVFrame field offsets (FFmpeg 6.x / avutil 58.x).
const (
	offsetData     = 0
	offsetLinesize = 64
	offsetWidth    = 104
	offsetHeight   = 108
	offsetFormat   = 116
	offsetPts      = 136
)

func field32(frame Frame, off uintptr) *int32 {
	return (*int32)(unsafe.Add(frame, off))
}

// GetFrameWidth returns the width of the frame.
func GetFrameWidth(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *field32(frame, offsetWidth)
}

// GetFrameHeight returns the height of the frame.
func GetFrameHeight(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *field32(frame, offsetHeight)
}

// GetFrameFormat returns the frame pixel format.
func GetFrameFormat(frame Frame) PixelFormat {
	if frame == nil {
		return PixelFormatNone
	}
	return PixelFormat(*field32(frame, offsetFormat))
}

// SetFrameGeometry sets width, height and pixel format before FrameGetBuffer.
func SetFrameGeometry(frame Frame, width, height int32, format PixelFormat) {
	if frame == nil {
		return
	}
	*field32(frame, offsetWidth) = width
	*field32(frame, offsetHeight) = height
	*field32(frame, offsetFormat) = int32(format)
}

// GetFramePTS returns the presentation timestamp.
func GetFramePTS(frame Frame) int64 {
	if frame == nil {
		return NoPTSValue
	}
	return *(*int64)(unsafe.Add(frame, offsetPts))
}

// SetFramePTS sets the presentation timestamp.
func SetFramePTS(frame Frame, pts int64) {
	if frame == nil {
		return
	}
	*(*int64)(unsafe.Add(frame, offsetPts)) = pts
}

// GetFrameDataPlane returns the data pointer for a plane.
func GetFrameDataPlane(frame Frame, plane int) unsafe.Pointer {
	if frame == nil || plane < 0 || plane >= 8 {
		return nil
	}
	return (*[8]unsafe.Pointer)(unsafe.Add(frame, offsetData))[plane]
}

// GetFrameLinesizePlane returns the line size for a plane.
func GetFrameLinesizePlane(frame Frame, plane int) int32 {
	if frame == nil || plane < 0 || plane >= 8 {
		return 0
	}
	return (*[8]int32)(unsafe.Add(frame, offsetLinesize))[plane]
}

// Malloc allocates memory using FFmpeg's allocator.
func Malloc(size uintptr) unsafe.Pointer {
	if avMalloc == nil {
		return nil
	}
	return avMalloc(size)
}

// Free frees memory allocated by Malloc.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || avFree == nil {
		return
	}
	avFree(ptr)
}

// DictSet sets a key-value pair in a dictionary, allocating it if needed.
func DictSet(dict *Dictionary, key, value string, flags int32) error {
	if avDictSet == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avDictSet(dict, key, value, flags), "av_dict_set")
}

// DictFree frees a dictionary.
func DictFree(dict *Dictionary) {
	if dict == nil || *dict == nil || avDictFree == nil {
		return
	}
	avDictFree(dict)
}

// ErrorString returns FFmpeg's message for an error code.
func ErrorString(errnum int32) string {
	if avStrerror == nil {
		return "unknown error (FFmpeg not loaded)"
	}
	buf := make([]byte, 256)
	avStrerror(errnum, unsafe.Pointer(&buf[0]), uintptr(len(buf)))
	return cString(buf)
}

func cString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// GoString copies a NUL-terminated C string.
func GoString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(ptr + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}

// Rational is AVRational.
type Rational struct {
	Num int32
	Den int32
}

// Float64 returns the value of r, or 0 for a zero denominator.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// RescaleQ converts a from time base bq to cq, rounding to nearest.
func RescaleQ(a int64, bq, cq Rational) int64 {
	b := int64(bq.Num) * int64(cq.Den)
	c := int64(bq.Den) * int64(cq.Num)
	if c == 0 {
		return 0
	}
	if a >= 0 {
		return (a*b + c/2) / c
	}
	return (a*b - c/2) / c
}

// CString returns a NUL-terminated copy of s, or nil for an empty string,
// for C parameters where NULL and "" mean different things.
func CString(s string) *byte {
	if s == "" {
		return nil
	}
	b := append([]byte(s), 0)
	return &b[0]
}
