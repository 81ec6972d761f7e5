//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// BufferRef is an opaque AVBufferRef pointer.
type BufferRef = unsafe.Pointer

// HWDeviceType is enum AVHWDeviceType.
type HWDeviceType int32

// HWDeviceTypeNone is AV_HWDEVICE_TYPE_NONE.
const HWDeviceTypeNone HWDeviceType = 0

var (
	avHWDeviceFindTypeByName func(name string) int32
	avHWDeviceGetTypeName    func(t int32) uintptr
	avHWDeviceCtxCreate      func(ref *unsafe.Pointer, t int32, device *byte, opts unsafe.Pointer, flags int32) int32
	avHWFrameCtxAlloc        func(deviceRef unsafe.Pointer) unsafe.Pointer
	avHWFrameCtxInit         func(ref unsafe.Pointer) int32
	avHWFrameGetBuffer       func(framesRef, frame unsafe.Pointer, flags int32) int32
	avHWFrameTransferData    func(dst, src unsafe.Pointer, flags int32) int32
	avBufferRef              func(buf unsafe.Pointer) unsafe.Pointer
	avBufferUnref            func(buf *unsafe.Pointer)
)

func registerHWContext(lib uintptr) {
	purego.RegisterLibFunc(&avHWDeviceFindTypeByName, lib, "av_hwdevice_find_type_by_name")
	purego.RegisterLibFunc(&avHWDeviceGetTypeName, lib, "av_hwdevice_get_type_name")
	purego.RegisterLibFunc(&avHWDeviceCtxCreate, lib, "av_hwdevice_ctx_create")
	purego.RegisterLibFunc(&avHWFrameCtxAlloc, lib, "av_hwframe_ctx_alloc")
	purego.RegisterLibFunc(&avHWFrameCtxInit, lib, "av_hwframe_ctx_init")
	purego.RegisterLibFunc(&avHWFrameGetBuffer, lib, "av_hwframe_get_buffer")
	purego.RegisterLibFunc(&avHWFrameTransferData, lib, "av_hwframe_transfer_data")
	purego.RegisterLibFunc(&avBufferRef, lib, "av_buffer_ref")
	purego.RegisterLibFunc(&avBufferUnref, lib, "av_buffer_unref")
}

// HWDeviceFindTypeByName maps "cuda", "vaapi", "videotoolbox", ... to a type.
func HWDeviceFindTypeByName(name string) HWDeviceType {
	if avHWDeviceFindTypeByName == nil {
		return HWDeviceTypeNone
	}
	return HWDeviceType(avHWDeviceFindTypeByName(name))
}

// String returns FFmpeg's name for the device type.
func (t HWDeviceType) String() string {
	if avHWDeviceGetTypeName == nil {
		return "none"
	}
	if s := GoString(avHWDeviceGetTypeName(int32(t))); s != "" {
		return s
	}
	return "none"
}

// HWDeviceCtxCreate opens a hardware device. An empty device string lets
// FFmpeg pick the default device for the type.
func HWDeviceCtxCreate(t HWDeviceType, device string) (BufferRef, error) {
	if avHWDeviceCtxCreate == nil {
		return nil, bindings.ErrNotLoaded
	}
	var ref unsafe.Pointer
	if err := NewError(avHWDeviceCtxCreate(&ref, int32(t), CString(device), nil, 0), "av_hwdevice_ctx_create"); err != nil {
		return nil, err
	}
	return ref, nil
}

// BufferRefNew returns a new reference to buf.
func BufferRefNew(buf BufferRef) BufferRef {
	if buf == nil || avBufferRef == nil {
		return nil
	}
	return avBufferRef(buf)
}

// BufferUnref drops a reference and nils the pointer.
func BufferUnref(buf *BufferRef) {
	if buf == nil || *buf == nil || avBufferUnref == nil {
		return
	}
	avBufferUnref(buf)
	*buf = nil
}

// HWFramesConfig describes a pool of device frames.
type HWFramesConfig struct {
	Format   PixelFormat // device format, e.g. "cuda"
	SWFormat PixelFormat // host format uploaded into it
	Width    int32
	Height   int32
	PoolSize int32
}

// AVBufferRef.data offset, and AVHWFramesContext offsets for avutil 58.
// avutil 59 dropped the internal pointer, shifting everything by 8.
const (
	offsetBufferData           = 8
	offsetFramesInitialPool    = 64
	offsetFramesFormat         = 68
	offsetFramesSWFormat       = 72
	offsetFramesWidth          = 76
	offsetFramesHeight         = 80
	framesInternalRemovedMajor = 59
)

// HWFrameCtxCreate allocates and initializes a frames pool on a device.
func HWFrameCtxCreate(device BufferRef, cfg HWFramesConfig) (BufferRef, error) {
	if avHWFrameCtxAlloc == nil {
		return nil, bindings.ErrNotLoaded
	}
	ref := avHWFrameCtxAlloc(device)
	if ref == nil {
		return nil, &Error{Code: AVERROR_ENOMEM, Message: "out of memory", Op: "av_hwframe_ctx_alloc"}
	}

	ctx := *(*unsafe.Pointer)(unsafe.Add(ref, offsetBufferData))
	var shift uintptr
	if bindings.AVUtilVersion()>>16 >= framesInternalRemovedMajor {
		shift = 8
	}
	*(*int32)(unsafe.Add(ctx, offsetFramesInitialPool-shift)) = cfg.PoolSize
	*(*int32)(unsafe.Add(ctx, offsetFramesFormat-shift)) = int32(cfg.Format)
	*(*int32)(unsafe.Add(ctx, offsetFramesSWFormat-shift)) = int32(cfg.SWFormat)
	*(*int32)(unsafe.Add(ctx, offsetFramesWidth-shift)) = cfg.Width
	*(*int32)(unsafe.Add(ctx, offsetFramesHeight-shift)) = cfg.Height

	if err := NewError(avHWFrameCtxInit(ref), "av_hwframe_ctx_init"); err != nil {
		BufferUnref(&ref)
		return nil, err
	}
	return ref, nil
}

// HWFrameGetBuffer allocates a device frame from a frames pool.
func HWFrameGetBuffer(framesRef BufferRef, frame Frame) error {
	if avHWFrameGetBuffer == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avHWFrameGetBuffer(framesRef, frame, 0), "av_hwframe_get_buffer")
}

// HWFrameTransferData copies between host and device frames in either direction.
func HWFrameTransferData(dst, src Frame) error {
	if avHWFrameTransferData == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avHWFrameTransferData(dst, src, 0), "av_hwframe_transfer_data")
}
