//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/ffio/avcodec"
	"github.com/obinnaokechukwu/ffio/avformat"
	"github.com/obinnaokechukwu/ffio/avutil"
	"go.uber.org/multierr"
)

// hwFramePoolSize is the number of device frames preallocated for the encoder.
const hwFramePoolSize = 20

var codecTimeBase = avutil.Rational{Num: 1, Den: TimeBase}

// ffmpegEncoder encodes one video stream and muxes it into an output.
type ffmpegEncoder struct {
	formatCtx avformat.FormatContext
	codecCtx  avcodec.Context
	stream    avformat.Stream
	packet    avcodec.Packet
	frame     avutil.Frame
	hwFrame   avutil.Frame

	hwDevice avutil.BufferRef
	hwFrames avutil.BufferRef

	info          StreamInfo
	pic, hwPic    picture
	ioOpened      bool
	headerWritten bool
	closed        bool
}

func openFFmpegEncoder(cfg EncoderConfig) (*ffmpegEncoder, error) {
	e := &ffmpegEncoder{}
	if err := e.open(cfg); err != nil {
		e.release()
		return nil, err
	}
	return e, nil
}

func (e *ffmpegEncoder) open(cfg EncoderConfig) error {
	p := cfg.Params
	if err := avformat.AllocOutputContext2(&e.formatCtx, p.Format, cfg.URL); err != nil || e.formatCtx == nil {
		if err == nil {
			err = errors.New("no muxer for output")
		}
		return newError(AvformatFailure, "alloc output context", err)
	}

	codec := avcodec.FindEncoderByName(p.Codec)
	if codec == nil {
		return newError(WrongCodecParams, "find encoder", fmt.Errorf("unknown encoder %q", p.Codec))
	}
	if e.stream = avformat.NewStream(e.formatCtx, nil); e.stream == nil {
		return newError(AvformatFailure, "new stream", errors.New("out of memory"))
	}
	if e.codecCtx = avcodec.AllocContext3(codec); e.codecCtx == nil {
		return newError(AvcodecFailure, "alloc codec context", errors.New("out of memory"))
	}

	swFmt := avutil.PixelFormatByName(p.PixFmt)
	if swFmt == avutil.PixelFormatNone {
		return newError(WrongCodecParams, "pixel format", fmt.Errorf("unknown pixel format %q", p.PixFmt))
	}
	avcodec.SetCtxSize(e.codecCtx, int32(p.Width), int32(p.Height))
	avcodec.SetCtxTimeBase(e.codecCtx, codecTimeBase)
	avcodec.SetCtxFramerate(e.codecCtx, avutil.Rational{Num: int32(p.FPS), Den: 1})
	if err := applyCodecParams(e.codecCtx, p); err != nil {
		return err
	}

	if cfg.HWDevice != "" {
		hwFmt, err := e.openDevice(cfg.HWDevice, swFmt, p)
		if err != nil {
			return err
		}
		avcodec.SetCtxPixFmt(e.codecCtx, hwFmt)
	} else {
		avcodec.SetCtxPixFmt(e.codecCtx, swFmt)
	}

	if avformat.NeedsGlobalHeader(e.formatCtx) {
		avcodec.AddCtxFlags(e.codecCtx, avcodec.CodecFlagGlobalHeader)
	}
	if err := avcodec.Open2(e.codecCtx, codec, nil); err != nil {
		return newError(AvcodecFailure, "open codec", err)
	}
	if err := avcodec.ParametersFromContext(avformat.GetStreamCodecPar(e.stream), e.codecCtx); err != nil {
		return newError(AvcodecFailure, "copy codec parameters", err)
	}
	avformat.SetStreamTimeBase(e.stream, codecTimeBase)
	avformat.SetStreamAvgFrameRate(e.stream, avutil.Rational{Num: int32(p.FPS), Den: 1})

	if !avformat.HasNoFile(e.formatCtx) {
		if err := avformat.IOOpen(avformat.GetIOContext(e.formatCtx), cfg.URL, avformat.IOFlagWrite); err != nil {
			return newError(ReadOrWriteTarget, "open output", err)
		}
		e.ioOpened = true
	}
	dict, err := dictionary(cfg.Streaming.dictionary())
	if err != nil {
		return newError(AvformatFailure, "output options", err)
	}
	err = avformat.WriteHeader(e.formatCtx, &dict)
	avutil.DictFree(&dict)
	if err != nil {
		return newError(AvformatFailure, "write header", err)
	}
	e.headerWritten = true

	e.packet = avcodec.PacketAlloc()
	e.frame = avutil.FrameAlloc()
	if e.packet == nil || e.frame == nil {
		return newError(FrameAllocation, "open encoder", errors.New("out of memory"))
	}
	avutil.SetFrameGeometry(e.frame, int32(p.Width), int32(p.Height), swFmt)
	if err := avutil.FrameGetBuffer(e.frame, 0); err != nil {
		return newError(FrameAllocation, "frame buffer", err)
	}
	e.pic.frame = e.frame
	if e.hwFrames != nil {
		if e.hwFrame = avutil.FrameAlloc(); e.hwFrame == nil {
			return newError(FrameAllocation, "open encoder", errors.New("out of memory"))
		}
		e.hwPic = picture{frame: e.hwFrame, device: true}
	}

	e.info = StreamInfo{
		Width:       p.Width,
		Height:      p.Height,
		FrameRate:   float64(p.FPS),
		Codec:       avcodec.CodecName(avcodec.GetCtxCodecID(e.codecCtx)),
		PixelFormat: p.PixFmt,
	}
	return nil
}

// openDevice attaches a device and a frames pool to the codec and returns
// the device pixel format.
func (e *ffmpegEncoder) openDevice(name string, swFmt avutil.PixelFormat, p CodecParams) (avutil.PixelFormat, error) {
	ref, hwFmt, err := openDevice(name)
	if err != nil {
		return hwFmt, err
	}
	e.hwDevice = ref
	if hwFmt == avutil.PixelFormatNone {
		return hwFmt, newError(HardwareAcceleration, "open device", fmt.Errorf("no frame format for %q", name))
	}
	e.hwFrames, err = avutil.HWFrameCtxCreate(e.hwDevice, avutil.HWFramesConfig{
		Format:   hwFmt,
		SWFormat: swFmt,
		Width:    int32(p.Width),
		Height:   int32(p.Height),
		PoolSize: hwFramePoolSize,
	})
	if err != nil {
		return hwFmt, newError(HardwareAcceleration, "frames context", err)
	}
	avcodec.SetCtxHWDeviceCtx(e.codecCtx, e.hwDevice)
	avcodec.SetCtxHWFramesCtx(e.codecCtx, e.hwFrames)
	return hwFmt, nil
}

// applyCodecParams sets rate control and codec options. It must run
// before the codec is opened.
func applyCodecParams(ctx avcodec.Context, p CodecParams) error {
	ints := []struct {
		name  string
		value int64
		set   bool
	}{
		{"b", int64(p.Bitrate), p.Bitrate > 0},
		{"maxrate", int64(p.MaxBitrate), p.MaxBitrate > 0},
		{"bufsize", int64(p.MaxBitrate), p.MaxBitrate > 0},
		{"g", int64(p.GOP), p.GOP > 0},
		{"bf", int64(p.BFrames), true},
	}
	for _, o := range ints {
		if !o.set {
			continue
		}
		if err := avutil.OptSetInt(ctx, o.name, o.value, 0); err != nil {
			return newError(WrongCodecParams, "set "+o.name, err)
		}
	}

	strs := []struct {
		name, value string
		private     bool
	}{
		{"flags", p.Flags, false},
		{"flags2", p.Flags2, false},
		{"profile", p.Profile, true},
		{"preset", p.Preset, true},
		{"tune", p.Tune, true},
	}
	for _, o := range strs {
		if o.value == "" {
			continue
		}
		if err := setCodecOption(ctx, o.name, o.value, o.private); err != nil {
			return newError(WrongCodecParams, "set "+o.name, err)
		}
	}
	return nil
}

// setCodecOption sets an option on the codec's private data first when
// private is set, then on the context and its children.
func setCodecOption(ctx avcodec.Context, name, value string, private bool) error {
	if private {
		if priv := avcodec.GetCtxPrivData(ctx); priv != nil {
			if err := avutil.OptSet(priv, name, value, 0); err == nil {
				return nil
			}
		}
	}
	return avutil.OptSet(ctx, name, value, avutil.AV_OPT_SEARCH_CHILDREN)
}

func (e *ffmpegEncoder) Info() StreamInfo { return e.info }

func (e *ffmpegEncoder) Picture(onDevice bool) (Picture, error) {
	if onDevice {
		if e.hwFrames == nil {
			return nil, errors.New("ffio: encoder has no device frames")
		}
		avutil.FrameUnref(e.hwFrame)
		if err := avutil.HWFrameGetBuffer(e.hwFrames, e.hwFrame); err != nil {
			return nil, err
		}
		return &e.hwPic, nil
	}
	// The codec may still reference the previous frame's buffers.
	if err := avutil.FrameMakeWritable(e.frame); err != nil {
		return nil, err
	}
	return &e.pic, nil
}

func (e *ffmpegEncoder) Upload(pic Picture) (Picture, error) {
	src, err := frameOf(pic)
	if err != nil {
		return nil, err
	}
	dst, err := e.Picture(true)
	if err != nil {
		return nil, err
	}
	if err := avutil.HWFrameTransferData(e.hwFrame, src); err != nil {
		return nil, err
	}
	return dst, nil
}

func (e *ffmpegEncoder) SendFrame(pic Picture, pts int64) error {
	if pic == nil {
		return codecError(avcodec.SendFrame(e.codecCtx, nil))
	}
	f, err := frameOf(pic)
	if err != nil {
		return err
	}
	avutil.SetFramePTS(f, pts)
	return codecError(avcodec.SendFrame(e.codecCtx, f))
}

// ReceivePacket returns the next encoded packet with timestamps in the
// codec time base. Its data aliases the encoder's packet until the next
// ReceivePacket or WritePacket.
func (e *ffmpegEncoder) ReceivePacket() (Packet, error) {
	avcodec.PacketUnref(e.packet)
	if err := codecError(avcodec.ReceivePacket(e.codecCtx, e.packet)); err != nil {
		return Packet{}, err
	}
	return Packet{
		Data:     avcodec.PacketBytes(e.packet),
		PTS:      avcodec.GetPacketPTS(e.packet),
		DTS:      avcodec.GetPacketDTS(e.packet),
		KeyFrame: avcodec.GetPacketFlags(e.packet)&avcodec.PacketFlagKey != 0,
	}, nil
}

// WritePacket muxes the packet last returned by ReceivePacket. When p.Data
// was replaced, for instance by an SEI insertion, the new bytes are
// written with the original packet's timing.
func (e *ffmpegEncoder) WritePacket(p Packet) error {
	out := e.packet
	if !sameBytes(p.Data, avcodec.PacketBytes(e.packet)) {
		out = avcodec.PacketAlloc()
		if out == nil {
			return errors.New("ffio: out of memory")
		}
		defer avcodec.PacketFree(&out)
		if err := avcodec.NewPacketFrom(out, p.Data, e.packet); err != nil {
			return err
		}
	}
	avcodec.SetPacketStreamIndex(out, 0)
	avcodec.RescalePacketTS(out, codecTimeBase, avformat.GetStreamTimeBase(e.stream))
	return avformat.InterleavedWriteFrame(e.formatCtx, out)
}

func sameBytes(a, b []byte) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

// Close writes the trailer and releases the output. It is safe to call
// more than once.
func (e *ffmpegEncoder) Close() error {
	if e.closed {
		return nil
	}
	var err error
	if e.headerWritten {
		err = avformat.WriteTrailer(e.formatCtx)
	}
	return multierr.Append(err, e.release())
}

func (e *ffmpegEncoder) release() error {
	e.closed = true
	if e.hwFrame != nil {
		avutil.FrameFree(&e.hwFrame)
	}
	if e.frame != nil {
		avutil.FrameFree(&e.frame)
	}
	if e.packet != nil {
		avcodec.PacketFree(&e.packet)
	}
	if e.codecCtx != nil {
		avcodec.FreeContext(&e.codecCtx)
	}
	if e.hwFrames != nil {
		avutil.BufferUnref(&e.hwFrames)
	}
	if e.hwDevice != nil {
		avutil.BufferUnref(&e.hwDevice)
	}
	var err error
	if e.ioOpened {
		err = avformat.IOCloseP(avformat.GetIOContext(e.formatCtx))
		e.ioOpened = false
	}
	if e.formatCtx != nil {
		avformat.FreeContext(e.formatCtx)
		e.formatCtx = nil
	}
	return err
}
