//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/ffio/avcodec"
	"github.com/obinnaokechukwu/ffio/avformat"
	"github.com/obinnaokechukwu/ffio/avutil"
)

// ffmpegDecoder demuxes and decodes the best video stream of an input.
type ffmpegDecoder struct {
	formatCtx avformat.FormatContext
	codecCtx  avcodec.Context
	packet    avcodec.Packet
	frame     avutil.Frame
	hostFrame avutil.Frame

	hwDevice  avutil.BufferRef
	hwPixFmt  avutil.PixelFormat
	streamIdx int32
	info      StreamInfo
	pic, host picture
	closed    bool
}

func openFFmpegDecoder(cfg DecoderConfig) (*ffmpegDecoder, error) {
	d := &ffmpegDecoder{streamIdx: -1, hwPixFmt: avutil.PixelFormatNone}
	if err := d.open(cfg); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *ffmpegDecoder) open(cfg DecoderConfig) error {
	dict, err := dictionary(inputOptions(cfg.URL, cfg.Streaming))
	if err != nil {
		return newError(AvformatFailure, "input options", err)
	}
	err = avformat.OpenInput(&d.formatCtx, cfg.URL, &dict)
	// FFmpeg leaves unconsumed entries in the dictionary.
	avutil.DictFree(&dict)
	if err != nil {
		return newError(AvformatFailure, "open input", err)
	}
	if err := avformat.FindStreamInfo(d.formatCtx); err != nil {
		return newError(AvformatFailure, "find stream info", err)
	}

	d.streamIdx = avformat.FindBestStream(d.formatCtx, avutil.MediaTypeVideo)
	if d.streamIdx < 0 {
		return newError(AvformatFailure, "find video stream", fmt.Errorf("no video stream in %q", cfg.URL))
	}
	stream := avformat.GetStream(d.formatCtx, int(d.streamIdx))
	par := avformat.GetStreamCodecPar(stream)
	id := avformat.GetCodecParCodecID(par)

	codec := avcodec.FindDecoder(id)
	if codec == nil {
		return newError(AvcodecFailure, "find decoder", fmt.Errorf("no decoder for codec id %d", id))
	}
	d.codecCtx = avcodec.AllocContext3(codec)
	if d.codecCtx == nil {
		return newError(AvcodecFailure, "alloc codec context", errors.New("out of memory"))
	}
	if err := avcodec.ParametersToContext(d.codecCtx, par); err != nil {
		return newError(AvcodecFailure, "copy codec parameters", err)
	}
	if cfg.Flags != "" {
		if err := avutil.OptSet(d.codecCtx, "flags", cfg.Flags, 0); err != nil {
			return newError(WrongCodecParams, "set flags", err)
		}
	}
	if cfg.Flags2 != "" {
		if err := avutil.OptSet(d.codecCtx, "flags2", cfg.Flags2, 0); err != nil {
			return newError(WrongCodecParams, "set flags2", err)
		}
	}

	if cfg.HWDevice != "" {
		if d.hwDevice, d.hwPixFmt, err = openDevice(cfg.HWDevice); err != nil {
			return err
		}
		avcodec.SetCtxHWDeviceCtx(d.codecCtx, d.hwDevice)
	}
	if err := avcodec.Open2(d.codecCtx, codec, nil); err != nil {
		return newError(AvcodecFailure, "open codec", err)
	}

	d.packet = avcodec.PacketAlloc()
	d.frame = avutil.FrameAlloc()
	d.hostFrame = avutil.FrameAlloc()
	if d.packet == nil || d.frame == nil || d.hostFrame == nil {
		return newError(FrameAllocation, "open decoder", errors.New("out of memory"))
	}
	d.pic.frame = d.frame
	d.host.frame = d.hostFrame

	w, h := avformat.GetCodecParSize(par)
	d.info = StreamInfo{
		Width:       int(w),
		Height:      int(h),
		FrameRate:   avformat.GetStreamAvgFrameRate(stream).Float64(),
		Codec:       avcodec.CodecName(id),
		PixelFormat: avformat.GetCodecParFormat(par).String(),
	}
	return nil
}

func (d *ffmpegDecoder) Info() StreamInfo { return d.info }

// ReadPacket skips packets of other streams. The returned data aliases
// the decoder's packet until the next ReadPacket.
func (d *ffmpegDecoder) ReadPacket() (Packet, error) {
	for {
		avcodec.PacketUnref(d.packet)
		if err := avformat.ReadFrame(d.formatCtx, d.packet); err != nil {
			if avutil.IsEOF(err) {
				return Packet{}, ErrEndOfStream
			}
			return Packet{}, err
		}
		if avcodec.GetPacketStreamIndex(d.packet) != d.streamIdx {
			continue
		}
		return Packet{
			Data:     avcodec.PacketBytes(d.packet),
			PTS:      avcodec.GetPacketPTS(d.packet),
			DTS:      avcodec.GetPacketDTS(d.packet),
			KeyFrame: avcodec.GetPacketFlags(d.packet)&avcodec.PacketFlagKey != 0,
		}, nil
	}
}

// SendPacket sends the packet last returned by ReadPacket, or starts
// flushing when p carries no data.
func (d *ffmpegDecoder) SendPacket(p Packet) error {
	pkt := d.packet
	if p.Data == nil {
		pkt = nil
	}
	return codecError(avcodec.SendPacket(d.codecCtx, pkt))
}

func (d *ffmpegDecoder) ReceiveFrame() (Picture, error) {
	if err := codecError(avcodec.ReceiveFrame(d.codecCtx, d.frame)); err != nil {
		return nil, err
	}
	d.pic.device = d.hwDevice != nil && avutil.GetFrameFormat(d.frame) == d.hwPixFmt
	return &d.pic, nil
}

func (d *ffmpegDecoder) TransferToHost(pic Picture) (Picture, error) {
	src, err := frameOf(pic)
	if err != nil {
		return nil, err
	}
	avutil.FrameUnref(d.hostFrame)
	if err := avutil.HWFrameTransferData(d.hostFrame, src); err != nil {
		return nil, err
	}
	avutil.SetFramePTS(d.hostFrame, avutil.GetFramePTS(src))
	return &d.host, nil
}

// Close releases all resources. It is safe to call more than once.
func (d *ffmpegDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	if d.hostFrame != nil {
		avutil.FrameFree(&d.hostFrame)
	}
	if d.frame != nil {
		avutil.FrameFree(&d.frame)
	}
	if d.packet != nil {
		avcodec.PacketFree(&d.packet)
	}
	if d.codecCtx != nil {
		avcodec.FreeContext(&d.codecCtx)
	}
	if d.hwDevice != nil {
		avutil.BufferUnref(&d.hwDevice)
	}
	if d.formatCtx != nil {
		avformat.CloseInput(&d.formatCtx)
	}
	return nil
}

// codecError maps EAGAIN and EOF to the backend sentinels.
func codecError(err error) error {
	switch {
	case err == nil:
		return nil
	case avutil.IsAgain(err):
		return ErrAgain
	case avutil.IsEOF(err):
		return ErrEndOfStream
	}
	return err
}
