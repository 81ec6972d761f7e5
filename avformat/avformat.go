//go:build !ios && !android && (amd64 || arm64)

// Package avformat provides the libavformat calls used by the frame
// engine: opening a source, reading packets, and muxing one video stream.
package avformat

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/avcodec"
	"github.com/obinnaokechukwu/ffio/avutil"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// FormatContext is an opaque FFmpeg AVFormatContext pointer.
type FormatContext = unsafe.Pointer

// Stream is an opaque FFmpeg AVStream pointer.
type Stream = unsafe.Pointer

// IOContext is an opaque FFmpeg AVIOContext pointer.
type IOContext = unsafe.Pointer

var (
	avformatNetworkInit     func() int32
	avformatOpenInput       func(ctx *unsafe.Pointer, url string, fmt unsafe.Pointer, options *unsafe.Pointer) int32
	avformatCloseInput      func(ctx *unsafe.Pointer)
	avformatFindStreamInfo  func(ctx unsafe.Pointer, options unsafe.Pointer) int32
	avformatFreeContext     func(ctx unsafe.Pointer)
	avformatAllocOutputCtx2 func(ctx *unsafe.Pointer, oformat unsafe.Pointer, formatName, filename *byte) int32
	avformatNewStream       func(ctx, codec unsafe.Pointer) unsafe.Pointer
	avformatWriteHeader     func(ctx unsafe.Pointer, options *unsafe.Pointer) int32
	avWriteTrailer          func(ctx unsafe.Pointer) int32
	avReadFrame             func(ctx, pkt unsafe.Pointer) int32
	avInterleavedWriteFrame func(ctx, pkt unsafe.Pointer) int32
	avFindBestStream        func(ctx unsafe.Pointer, mediaType, wanted, related int32, decoder *unsafe.Pointer, flags int32) int32
	avioOpen                func(ctx *unsafe.Pointer, url string, flags int32) int32
	avioClosep              func(ctx *unsafe.Pointer) int32

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
	lib := bindings.LibAVFormat()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avformatNetworkInit, lib, "avformat_network_init")
	purego.RegisterLibFunc(&avformatOpenInput, lib, "avformat_open_input")
	purego.RegisterLibFunc(&avformatCloseInput, lib, "avformat_close_input")
	purego.RegisterLibFunc(&avformatFindStreamInfo, lib, "avformat_find_stream_info")
	purego.RegisterLibFunc(&avformatFreeContext, lib, "avformat_free_context")
	purego.RegisterLibFunc(&avformatAllocOutputCtx2, lib, "avformat_alloc_output_context2")
	purego.RegisterLibFunc(&avformatNewStream, lib, "avformat_new_stream")
	purego.RegisterLibFunc(&avformatWriteHeader, lib, "avformat_write_header")
	purego.RegisterLibFunc(&avWriteTrailer, lib, "av_write_trailer")
	purego.RegisterLibFunc(&avReadFrame, lib, "av_read_frame")
	purego.RegisterLibFunc(&avInterleavedWriteFrame, lib, "av_interleaved_write_frame")
	purego.RegisterLibFunc(&avFindBestStream, lib, "av_find_best_stream")
	purego.RegisterLibFunc(&avioOpen, lib, "avio_open")
	purego.RegisterLibFunc(&avioClosep, lib, "avio_closep")

	bindingsRegistered = true
}

// NetworkInit initializes network protocols (rtmp, rtsp, srt, ...).
func NetworkInit() error {
	if avformatNetworkInit == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatNetworkInit(), "avformat_network_init")
}

// OpenInput opens a file or URL. options may be nil; entries FFmpeg
// consumed are removed from it.
func OpenInput(ctx *FormatContext, url string, options *avutil.Dictionary) error {
	if avformatOpenInput == nil {
		return bindings.ErrNotLoaded
	}
	ret := avformatOpenInput(ctx, url, nil, options)
	runtime.KeepAlive(url)
	return avutil.NewError(ret, "avformat_open_input")
}

// CloseInput closes an input and nils the pointer.
func CloseInput(ctx *FormatContext) {
	if ctx == nil || *ctx == nil || avformatCloseInput == nil {
		return
	}
	avformatCloseInput(ctx)
	*ctx = nil
}

// FindStreamInfo probes packets to fill in stream parameters.
func FindStreamInfo(ctx FormatContext) error {
	if avformatFindStreamInfo == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatFindStreamInfo(ctx, nil), "avformat_find_stream_info")
}

// FreeContext frees an output context.
func FreeContext(ctx FormatContext) {
	if ctx == nil || avformatFreeContext == nil {
		return
	}
	avformatFreeContext(ctx)
}

// AllocOutputContext2 allocates a muxer. An empty formatName lets FFmpeg
// guess from the filename.
func AllocOutputContext2(ctx *FormatContext, formatName, filename string) error {
	if avformatAllocOutputCtx2 == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(
		avformatAllocOutputCtx2(ctx, nil, avutil.CString(formatName), avutil.CString(filename)),
		"avformat_alloc_output_context2")
}

// NewStream adds a stream to an output context.
func NewStream(ctx FormatContext, codec avcodec.Codec) Stream {
	if avformatNewStream == nil {
		return nil
	}
	return avformatNewStream(ctx, codec)
}

// WriteHeader writes the container header.
func WriteHeader(ctx FormatContext, options *avutil.Dictionary) error {
	if avformatWriteHeader == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatWriteHeader(ctx, options), "avformat_write_header")
}

// WriteTrailer writes the container trailer.
func WriteTrailer(ctx FormatContext) error {
	if avWriteTrailer == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avWriteTrailer(ctx), "av_write_trailer")
}

// ReadFrame reads the next packet of any stream.
func ReadFrame(ctx FormatContext, pkt avcodec.Packet) error {
	if avReadFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avReadFrame(ctx, pkt), "av_read_frame")
}

// InterleavedWriteFrame muxes a packet. FFmpeg takes ownership of its data.
func InterleavedWriteFrame(ctx FormatContext, pkt avcodec.Packet) error {
	if avInterleavedWriteFrame == nil {
		return bindings.ErrNotLoaded
	}
	ret := avInterleavedWriteFrame(ctx, pkt)
	runtime.KeepAlive(pkt)
	return avutil.NewError(ret, "av_interleaved_write_frame")
}

// FindBestStream returns the best stream index of a type, or a negative error.
func FindBestStream(ctx FormatContext, mediaType avutil.MediaType) int32 {
	if avFindBestStream == nil {
		return -1
	}
	return avFindBestStream(ctx, int32(mediaType), -1, -1, nil, 0)
}

// IOFlagWrite is AVIO_FLAG_WRITE.
const IOFlagWrite = 2

// IOOpen opens the output I/O context of a muxer.
func IOOpen(ctx *IOContext, url string, flags int32) error {
	if avioOpen == nil {
		return bindings.ErrNotLoaded
	}
	ret := avioOpen(ctx, url, flags)
	runtime.KeepAlive(url)
	return avutil.NewError(ret, "avio_open")
}

// IOCloseP closes an I/O context and nils the pointer.
func IOCloseP(ctx *IOContext) error {
	if ctx == nil || *ctx == nil || avioClosep == nil {
		return nil
	}
	ret := avioClosep(ctx)
	*ctx = nil
	return avutil.NewError(ret, "avio_closep")
}

// AVFormatContext, AVStream, AVCodecParameters and AVOutputFormat field
// offsets (FFmpeg 6.x / avformat 60.x).
const (
	offsetOformat    = 16
	offsetIOContext  = 32
	offsetNumStreams = 44
	offsetStreams    = 48

	offsetStreamCodecPar     = 16
	offsetStreamTimeBase     = 32
	offsetStreamAvgFrameRate = 88

	offsetCodecParCodecID = 4
	offsetCodecParFormat  = 28
	offsetCodecParWidth   = 56
	offsetCodecParHeight  = 60

	offsetOutputFormatFlags = 44
)

// Output format flags.
const (
	AVFMT_NOFILE       = 0x0001
	AVFMT_GLOBALHEADER = 0x0040
)

// GetStream returns stream i, or nil when out of range.
func GetStream(ctx FormatContext, i int) Stream {
	if ctx == nil || i < 0 {
		return nil
	}
	n := int(*(*uint32)(unsafe.Add(ctx, offsetNumStreams)))
	if i >= n {
		return nil
	}
	streams := *(*unsafe.Pointer)(unsafe.Add(ctx, offsetStreams))
	return *(*unsafe.Pointer)(unsafe.Add(streams, uintptr(i)*unsafe.Sizeof(uintptr(0))))
}

// GetIOContext returns the muxer's AVIOContext slot.
func GetIOContext(ctx FormatContext) *IOContext {
	if ctx == nil {
		return nil
	}
	return (*IOContext)(unsafe.Add(ctx, offsetIOContext))
}

// GetStreamCodecPar returns a stream's codec parameters.
func GetStreamCodecPar(stream Stream) avcodec.Parameters {
	if stream == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(stream, offsetStreamCodecPar))
}

// GetStreamTimeBase returns a stream's time base.
func GetStreamTimeBase(stream Stream) avutil.Rational {
	if stream == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(stream, offsetStreamTimeBase))
}

// SetStreamTimeBase sets a stream's time base; the muxer may change it in WriteHeader.
func SetStreamTimeBase(stream Stream, tb avutil.Rational) {
	if stream != nil {
		*(*avutil.Rational)(unsafe.Add(stream, offsetStreamTimeBase)) = tb
	}
}

// GetStreamAvgFrameRate returns avg_frame_rate.
func GetStreamAvgFrameRate(stream Stream) avutil.Rational {
	if stream == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(stream, offsetStreamAvgFrameRate))
}

// SetStreamAvgFrameRate sets avg_frame_rate on an output stream.
func SetStreamAvgFrameRate(stream Stream, fr avutil.Rational) {
	if stream != nil {
		*(*avutil.Rational)(unsafe.Add(stream, offsetStreamAvgFrameRate)) = fr
	}
}

// GetCodecParCodecID returns the codec ID in codec parameters.
func GetCodecParCodecID(par avcodec.Parameters) avcodec.CodecID {
	if par == nil {
		return avcodec.CodecIDNone
	}
	return avcodec.CodecID(*(*int32)(unsafe.Add(par, offsetCodecParCodecID)))
}

// GetCodecParFormat returns the pixel format in codec parameters.
func GetCodecParFormat(par avcodec.Parameters) avutil.PixelFormat {
	if par == nil {
		return avutil.PixelFormatNone
	}
	return avutil.PixelFormat(*(*int32)(unsafe.Add(par, offsetCodecParFormat)))
}

// GetCodecParSize returns width and height in codec parameters.
func GetCodecParSize(par avcodec.Parameters) (width, height int32) {
	if par == nil {
		return 0, 0
	}
	return *(*int32)(unsafe.Add(par, offsetCodecParWidth)), *(*int32)(unsafe.Add(par, offsetCodecParHeight))
}

func outputFormatFlags(ctx FormatContext) int32 {
	if ctx == nil {
		return 0
	}
	oformat := *(*unsafe.Pointer)(unsafe.Add(ctx, offsetOformat))
	if oformat == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(oformat, offsetOutputFormatFlags))
}

// NeedsGlobalHeader reports whether the muxer wants codec extradata out of band.
func NeedsGlobalHeader(ctx FormatContext) bool {
	return outputFormatFlags(ctx)&AVFMT_GLOBALHEADER != 0
}

// HasNoFile reports whether the muxer does its own I/O.
func HasNoFile(ctx FormatContext) bool {
	return outputFormatFlags(ctx)&AVFMT_NOFILE != 0
}
