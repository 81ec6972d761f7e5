//go:build !ios && !android && (amd64 || arm64)

// Package swscale provides libswscale pixel-format conversion between
// FFmpeg frames and packed caller buffers.
package swscale

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/avutil"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// Context is an opaque SwsContext pointer.
type Context = unsafe.Pointer

// Scaling algorithm flags.
const (
	FlagFastBilinear = 1
	FlagBilinear     = 2
	FlagBicubic      = 4
	FlagPoint        = 0x10
	FlagArea         = 0x20
)

var (
	swsGetContext     func(srcW, srcH, srcFormat, dstW, dstH, dstFormat, flags int32, srcFilter, dstFilter, param unsafe.Pointer) uintptr
	swsScale          func(ctx unsafe.Pointer, srcSlice, srcStride unsafe.Pointer, srcSliceY, srcSliceH int32, dst, dstStride unsafe.Pointer) int32
	swsFreeContext    func(ctx unsafe.Pointer)
	swsIsSupportedIn  func(format int32) int32
	swsIsSupportedOut func(format int32) int32

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
	lib := bindings.LibSWScale()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&swsGetContext, lib, "sws_getContext")
	purego.RegisterLibFunc(&swsScale, lib, "sws_scale")
	purego.RegisterLibFunc(&swsFreeContext, lib, "sws_freeContext")
	purego.RegisterLibFunc(&swsIsSupportedIn, lib, "sws_isSupportedInput")
	purego.RegisterLibFunc(&swsIsSupportedOut, lib, "sws_isSupportedOutput")

	bindingsRegistered = true
}

// GetContext creates a conversion context, or returns nil when the
// formats or sizes are unsupported.
func GetContext(srcW, srcH int, srcFormat avutil.PixelFormat, dstW, dstH int, dstFormat avutil.PixelFormat, flags int32) Context {
	if swsGetContext == nil {
		return nil
	}
	return unsafe.Pointer(swsGetContext(
		int32(srcW), int32(srcH), int32(srcFormat),
		int32(dstW), int32(dstH), int32(dstFormat),
		flags, nil, nil, nil,
	))
}

// FreeContext frees a conversion context. Safe to call with nil.
func FreeContext(ctx Context) {
	if ctx == nil || swsFreeContext == nil {
		return
	}
	swsFreeContext(ctx)
}

func planes(frame avutil.Frame) (data [8]unsafe.Pointer, stride [8]int32) {
	for i := range data {
		data[i] = avutil.GetFrameDataPlane(frame, i)
		stride[i] = avutil.GetFrameLinesizePlane(frame, i)
	}
	return data, stride
}

// FrameToPacked converts a frame into a single-plane packed buffer
// (RGB24 for the engine) with the given row stride. It returns the number
// of output rows, or a negative value on failure.
func FrameToPacked(ctx Context, src avutil.Frame, dst []byte, dstStride int) int32 {
	if ctx == nil || swsScale == nil || len(dst) == 0 {
		return -1
	}
	srcData, srcStride := planes(src)
	dstData := [8]unsafe.Pointer{unsafe.Pointer(&dst[0])}
	dstLines := [8]int32{int32(dstStride)}

	ret := swsScale(ctx,
		unsafe.Pointer(&srcData), unsafe.Pointer(&srcStride),
		0, avutil.GetFrameHeight(src),
		unsafe.Pointer(&dstData), unsafe.Pointer(&dstLines),
	)
	runtime.KeepAlive(dst)
	return ret
}

// PackedToFrame converts a packed buffer of height rows into an allocated
// frame. It returns the number of output rows, or a negative value on failure.
func PackedToFrame(ctx Context, src []byte, srcStride, height int, dst avutil.Frame) int32 {
	if ctx == nil || swsScale == nil || len(src) == 0 {
		return -1
	}
	srcData := [8]unsafe.Pointer{unsafe.Pointer(&src[0])}
	srcLines := [8]int32{int32(srcStride)}
	dstData, dstStride := planes(dst)

	ret := swsScale(ctx,
		unsafe.Pointer(&srcData), unsafe.Pointer(&srcLines),
		0, int32(height),
		unsafe.Pointer(&dstData), unsafe.Pointer(&dstStride),
	)
	runtime.KeepAlive(src)
	return ret
}

// IsSupportedInput returns true if the pixel format is supported as input.
func IsSupportedInput(format avutil.PixelFormat) bool {
	return swsIsSupportedIn != nil && swsIsSupportedIn(int32(format)) > 0
}

// IsSupportedOutput returns true if the pixel format is supported as output.
func IsSupportedOutput(format avutil.PixelFormat) bool {
	return swsIsSupportedOut != nil && swsIsSupportedOut(int32(format)) > 0
}
