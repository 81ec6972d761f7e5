//go:build !ios && !android && (amd64 || arm64)

// Package avcodec provides the libavcodec calls used by the frame engine:
// codec lookup, the send/receive codec loop, packets and the codec
// context fields a video encoder needs.
package avcodec

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/avutil"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// Codec is an opaque FFmpeg AVCodec pointer.
type Codec = unsafe.Pointer

// Context is an opaque FFmpeg AVCodecContext pointer.
type Context = unsafe.Pointer

// Packet is an opaque FFmpeg AVPacket pointer.
type Packet = unsafe.Pointer

// Parameters is an opaque FFmpeg AVCodecParameters pointer.
type Parameters = unsafe.Pointer

// CodecID is enum AVCodecID.
type CodecID int32

// Codec IDs the engine recognizes for SEI handling.
const (
	CodecIDNone CodecID = 0
	CodecIDH264 CodecID = 27
	CodecIDHEVC CodecID = 173
)

var (
	avcodecFindDecoder       func(id int32) uintptr
	avcodecFindEncoderByName func(name string) uintptr
	avcodecGetName           func(id int32) uintptr
	avcodecAllocContext3     func(codec uintptr) uintptr
	avcodecFreeContext       func(ctx *unsafe.Pointer)
	avcodecOpen2             func(ctx, codec uintptr, options *unsafe.Pointer) int32
	avcodecSendPacket        func(ctx, pkt uintptr) int32
	avcodecReceiveFrame      func(ctx, frame uintptr) int32
	avcodecSendFrame         func(ctx, frame uintptr) int32
	avcodecReceivePacket     func(ctx, pkt uintptr) int32
	avcodecParametersToCtx   func(ctx, par uintptr) int32
	avcodecParametersFromCtx func(par, ctx uintptr) int32

	avPacketAlloc     func() uintptr
	avPacketFree      func(pkt *unsafe.Pointer)
	avPacketUnref     func(pkt uintptr)
	avNewPacket       func(pkt uintptr, size int32) int32
	avPacketCopyProps func(dst, src uintptr) int32

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
	lib := bindings.LibAVCodec()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avcodecFindDecoder, lib, "avcodec_find_decoder")
	purego.RegisterLibFunc(&avcodecFindEncoderByName, lib, "avcodec_find_encoder_by_name")
	purego.RegisterLibFunc(&avcodecGetName, lib, "avcodec_get_name")
	purego.RegisterLibFunc(&avcodecAllocContext3, lib, "avcodec_alloc_context3")
	purego.RegisterLibFunc(&avcodecFreeContext, lib, "avcodec_free_context")
	purego.RegisterLibFunc(&avcodecOpen2, lib, "avcodec_open2")
	purego.RegisterLibFunc(&avcodecSendPacket, lib, "avcodec_send_packet")
	purego.RegisterLibFunc(&avcodecReceiveFrame, lib, "avcodec_receive_frame")
	purego.RegisterLibFunc(&avcodecSendFrame, lib, "avcodec_send_frame")
	purego.RegisterLibFunc(&avcodecReceivePacket, lib, "avcodec_receive_packet")
	purego.RegisterLibFunc(&avcodecParametersToCtx, lib, "avcodec_parameters_to_context")
	purego.RegisterLibFunc(&avcodecParametersFromCtx, lib, "avcodec_parameters_from_context")

	purego.RegisterLibFunc(&avPacketAlloc, lib, "av_packet_alloc")
	purego.RegisterLibFunc(&avPacketFree, lib, "av_packet_free")
	purego.RegisterLibFunc(&avPacketUnref, lib, "av_packet_unref")
	purego.RegisterLibFunc(&avNewPacket, lib, "av_new_packet")
	purego.RegisterLibFunc(&avPacketCopyProps, lib, "av_packet_copy_props")

	bindingsRegistered = true
}

// FindDecoder finds a decoder by codec ID.
func FindDecoder(id CodecID) Codec {
	if avcodecFindDecoder == nil {
		return nil
	}
	return unsafe.Pointer(avcodecFindDecoder(int32(id)))
}

// FindEncoderByName finds an encoder such as "libx264" or "h264_nvenc".
func FindEncoderByName(name string) Codec {
	if avcodecFindEncoderByName == nil || name == "" {
		return nil
	}
	codec := unsafe.Pointer(avcodecFindEncoderByName(name))
	runtime.KeepAlive(name)
	return codec
}

// CodecName returns the canonical short name of a codec ID ("h264", "hevc").
func CodecName(id CodecID) string {
	if avcodecGetName == nil {
		return ""
	}
	return avutil.GoString(avcodecGetName(int32(id)))
}

// AllocContext3 allocates a codec context.
func AllocContext3(codec Codec) Context {
	if avcodecAllocContext3 == nil {
		return nil
	}
	return unsafe.Pointer(avcodecAllocContext3(uintptr(codec)))
}

// FreeContext frees a codec context and nils the pointer.
func FreeContext(ctx *Context) {
	if ctx == nil || *ctx == nil || avcodecFreeContext == nil {
		return
	}
	// Stage the pointer in FFmpeg memory: some platforms abort when C code
	// writes through a pointer into Go memory.
	tmp := avutil.Malloc(unsafe.Sizeof(uintptr(0)))
	if tmp != nil {
		*(*unsafe.Pointer)(tmp) = *ctx
		avcodecFreeContext((*unsafe.Pointer)(tmp))
		avutil.Free(tmp)
		*ctx = nil
		return
	}
	avcodecFreeContext(ctx)
	*ctx = nil
}

// Open2 opens a codec context.
func Open2(ctx Context, codec Codec, options *avutil.Dictionary) error {
	if avcodecOpen2 == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecOpen2(uintptr(ctx), uintptr(codec), options), "avcodec_open2")
}

// SendPacket sends a packet to the decoder. A nil packet starts draining.
// EAGAIN and EOF are returned so the caller can drain before resending.
func SendPacket(ctx Context, pkt Packet) error {
	if avcodecSendPacket == nil {
		return bindings.ErrNotLoaded
	}
	ret := avcodecSendPacket(uintptr(ctx), uintptr(pkt))
	runtime.KeepAlive(pkt)
	return avutil.NewError(ret, "avcodec_send_packet")
}

// ReceiveFrame receives a decoded frame. EAGAIN means more input is needed.
func ReceiveFrame(ctx Context, frame avutil.Frame) error {
	if avcodecReceiveFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecReceiveFrame(uintptr(ctx), uintptr(frame)), "avcodec_receive_frame")
}

// SendFrame sends a frame to the encoder. A nil frame starts draining.
func SendFrame(ctx Context, frame avutil.Frame) error {
	if avcodecSendFrame == nil {
		return bindings.ErrNotLoaded
	}
	ret := avcodecSendFrame(uintptr(ctx), uintptr(frame))
	runtime.KeepAlive(frame)
	return avutil.NewError(ret, "avcodec_send_frame")
}

// ReceivePacket receives an encoded packet. EAGAIN means the encoder wants more frames.
func ReceivePacket(ctx Context, pkt Packet) error {
	if avcodecReceivePacket == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecReceivePacket(uintptr(ctx), uintptr(pkt)), "avcodec_receive_packet")
}

// ParametersToContext copies stream parameters into a decoder context.
func ParametersToContext(ctx Context, par Parameters) error {
	if avcodecParametersToCtx == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecParametersToCtx(uintptr(ctx), uintptr(par)), "avcodec_parameters_to_context")
}

// ParametersFromContext copies an opened encoder's parameters into a stream.
func ParametersFromContext(par Parameters, ctx Context) error {
	if avcodecParametersFromCtx == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecParametersFromCtx(uintptr(par), uintptr(ctx)), "avcodec_parameters_from_context")
}

// PacketAlloc allocates a packet.
func PacketAlloc() Packet {
	if avPacketAlloc == nil {
		return nil
	}
	return unsafe.Pointer(avPacketAlloc())
}

// PacketFree frees a packet and nils the pointer.
func PacketFree(pkt *Packet) {
	if pkt == nil || *pkt == nil || avPacketFree == nil {
		return
	}
	avPacketFree(pkt)
	*pkt = nil
}

// PacketUnref drops the packet's buffer.
func PacketUnref(pkt Packet) {
	if pkt == nil || avPacketUnref == nil {
		return
	}
	avPacketUnref(uintptr(pkt))
}

// NewPacketFrom fills pkt with a fresh buffer holding a copy of data and
// the timing/flags of props.
func NewPacketFrom(pkt Packet, data []byte, props Packet) error {
	if avNewPacket == nil || avPacketCopyProps == nil {
		return bindings.ErrNotLoaded
	}
	if err := avutil.NewError(avNewPacket(uintptr(pkt), int32(len(data))), "av_new_packet"); err != nil {
		return err
	}
	copy(PacketBytes(pkt), data)
	if props != nil {
		if err := avutil.NewError(avPacketCopyProps(uintptr(pkt), uintptr(props)), "av_packet_copy_props"); err != nil {
			PacketUnref(pkt)
			return err
		}
		SetPacketStreamIndex(pkt, GetPacketStreamIndex(props))
	}
	return nil
}

// AVPacket field offsets (FFmpeg 6.x).
const (
	offsetPacketPts         = 8
	offsetPacketDts         = 16
	offsetPacketData        = 24
	offsetPacketSize        = 32
	offsetPacketStreamIndex = 36
	offsetPacketFlags       = 40
	offsetPacketDuration    = 64
)

// PacketFlagKey is AV_PKT_FLAG_KEY.
const PacketFlagKey = 0x0001

// GetPacketPTS returns the presentation timestamp.
func GetPacketPTS(pkt Packet) int64 {
	if pkt == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Add(pkt, offsetPacketPts))
}

// SetPacketPTS sets the presentation timestamp.
func SetPacketPTS(pkt Packet, pts int64) {
	if pkt != nil {
		*(*int64)(unsafe.Add(pkt, offsetPacketPts)) = pts
	}
}

// GetPacketDTS returns the decompression timestamp.
func GetPacketDTS(pkt Packet) int64 {
	if pkt == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Add(pkt, offsetPacketDts))
}

// SetPacketDTS sets the decompression timestamp.
func SetPacketDTS(pkt Packet, dts int64) {
	if pkt != nil {
		*(*int64)(unsafe.Add(pkt, offsetPacketDts)) = dts
	}
}

// PacketBytes views the packet payload. The slice aliases FFmpeg memory
// and is valid until the packet is unreferenced.
func PacketBytes(pkt Packet) []byte {
	if pkt == nil {
		return nil
	}
	data := *(*unsafe.Pointer)(unsafe.Add(pkt, offsetPacketData))
	size := *(*int32)(unsafe.Add(pkt, offsetPacketSize))
	if data == nil || size <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(data), int(size))
}

// GetPacketStreamIndex returns the stream index.
func GetPacketStreamIndex(pkt Packet) int32 {
	if pkt == nil {
		return -1
	}
	return *(*int32)(unsafe.Add(pkt, offsetPacketStreamIndex))
}

// SetPacketStreamIndex sets the stream index.
func SetPacketStreamIndex(pkt Packet, idx int32) {
	if pkt != nil {
		*(*int32)(unsafe.Add(pkt, offsetPacketStreamIndex)) = idx
	}
}

// GetPacketFlags returns AV_PKT_FLAG_* bits.
func GetPacketFlags(pkt Packet) int32 {
	if pkt == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(pkt, offsetPacketFlags))
}

// RescalePacketTS rescales pts, dts and duration between time bases.
func RescalePacketTS(pkt Packet, src, dst avutil.Rational) {
	if pkt == nil {
		return
	}
	if pts := GetPacketPTS(pkt); pts != avutil.NoPTSValue {
		SetPacketPTS(pkt, avutil.RescaleQ(pts, src, dst))
	}
	if dts := GetPacketDTS(pkt); dts != avutil.NoPTSValue {
		SetPacketDTS(pkt, avutil.RescaleQ(dts, src, dst))
	}
	dur := (*int64)(unsafe.Add(pkt, offsetPacketDuration))
	if *dur > 0 {
		*dur = avutil.RescaleQ(*dur, src, dst)
	}
}

// AVCodecContext field offsets (FFmpeg 6.x / avcodec 60.x). Fields that
// have an AVOption are set through the option API instead.
const (
	offsetCtxPrivData    = 32
	offsetCtxCodecID     = 24
	offsetCtxFlags       = 76
	offsetCtxTimeBase    = 100
	offsetCtxWidth       = 116
	offsetCtxHeight      = 120
	offsetCtxPixFmt      = 136
	offsetCtxFramerate   = 704
	offsetCtxHWFramesCtx = 840
	offsetCtxHWDeviceCtx = 864
)

// CodecFlagGlobalHeader is AV_CODEC_FLAG_GLOBAL_HEADER.
const CodecFlagGlobalHeader = 1 << 22

// GetCtxCodecID returns the codec ID of a context.
func GetCtxCodecID(ctx Context) CodecID {
	if ctx == nil {
		return CodecIDNone
	}
	return CodecID(*(*int32)(unsafe.Add(ctx, offsetCtxCodecID)))
}

// GetCtxWidth returns the coded width.
func GetCtxWidth(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(ctx, offsetCtxWidth))
}

// GetCtxHeight returns the coded height.
func GetCtxHeight(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(ctx, offsetCtxHeight))
}

// SetCtxSize sets width and height.
func SetCtxSize(ctx Context, width, height int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxWidth)) = width
	*(*int32)(unsafe.Add(ctx, offsetCtxHeight)) = height
}

// GetCtxPixFmt returns the context pixel format.
func GetCtxPixFmt(ctx Context) avutil.PixelFormat {
	if ctx == nil {
		return avutil.PixelFormatNone
	}
	return avutil.PixelFormat(*(*int32)(unsafe.Add(ctx, offsetCtxPixFmt)))
}

// SetCtxPixFmt sets the context pixel format.
func SetCtxPixFmt(ctx Context, pixFmt avutil.PixelFormat) {
	if ctx != nil {
		*(*int32)(unsafe.Add(ctx, offsetCtxPixFmt)) = int32(pixFmt)
	}
}

// GetCtxTimeBase returns the context time base.
func GetCtxTimeBase(ctx Context) avutil.Rational {
	if ctx == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(ctx, offsetCtxTimeBase))
}

// SetCtxTimeBase sets the context time base.
func SetCtxTimeBase(ctx Context, tb avutil.Rational) {
	if ctx != nil {
		*(*avutil.Rational)(unsafe.Add(ctx, offsetCtxTimeBase)) = tb
	}
}

// SetCtxFramerate sets the nominal frame rate.
func SetCtxFramerate(ctx Context, fr avutil.Rational) {
	if ctx != nil {
		*(*avutil.Rational)(unsafe.Add(ctx, offsetCtxFramerate)) = fr
	}
}

// AddCtxFlags ORs flags into AVCodecContext.flags.
func AddCtxFlags(ctx Context, flags int32) {
	if ctx != nil {
		*(*int32)(unsafe.Add(ctx, offsetCtxFlags)) |= flags
	}
}

// GetCtxPrivData returns the codec-private options object (libx264 preset, tune, ...).
func GetCtxPrivData(ctx Context) unsafe.Pointer {
	if ctx == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxPrivData))
}

// SetCtxHWDeviceCtx attaches a new reference to a hardware device. Call before Open2.
func SetCtxHWDeviceCtx(ctx Context, device avutil.BufferRef) {
	if ctx != nil {
		*(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxHWDeviceCtx)) = avutil.BufferRefNew(device)
	}
}

// SetCtxHWFramesCtx attaches a new reference to a device frames pool. Call before Open2.
func SetCtxHWFramesCtx(ctx Context, frames avutil.BufferRef) {
	if ctx != nil {
		*(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxHWFramesCtx)) = avutil.BufferRefNew(frames)
	}
}
