//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/ffio/avcodec"
	"github.com/obinnaokechukwu/ffio/avutil"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// ffmpegBackend opens pipelines on the FFmpeg libraries loaded by Init.
type ffmpegBackend struct{}

func defaultBackend() (Backend, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	if !bindings.HasSWScale() {
		return nil, errors.New("ffio: libswscale not found")
	}
	return ffmpegBackend{}, nil
}

func (ffmpegBackend) OpenDecoder(cfg DecoderConfig) (Decoder, error) {
	d, err := openFFmpegDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (ffmpegBackend) OpenEncoder(cfg EncoderConfig) (Encoder, error) {
	e, err := openFFmpegEncoder(cfg)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (ffmpegBackend) NewConverter(width, height int) (Converter, error) {
	s, err := newSwsConverter(width, height)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (ffmpegBackend) HasEncoder(name string) bool {
	return avcodec.FindEncoderByName(name) != nil
}

func (ffmpegBackend) HasPixelFormat(name string) bool {
	return avutil.PixelFormatByName(name) != avutil.PixelFormatNone
}

// picture is an AVFrame owned by a decoder or encoder.
type picture struct {
	frame  avutil.Frame
	device bool
}

func (p *picture) PTS() int64     { return avutil.GetFramePTS(p.frame) }
func (p *picture) OnDevice() bool { return p.device }

func frameOf(pic Picture) (avutil.Frame, error) {
	p, ok := pic.(*picture)
	if !ok || p == nil || p.frame == nil {
		return nil, fmt.Errorf("ffio: %T is not an ffmpeg picture", pic)
	}
	return p.frame, nil
}

// devicePixelFormats maps device types to the pixel format of frames that
// live in their memory.
var devicePixelFormats = map[string]string{
	"cuda":         "cuda",
	"vaapi":        "vaapi",
	"qsv":          "qsv",
	"videotoolbox": "videotoolbox_vld",
	"d3d11va":      "d3d11",
	"vulkan":       "vulkan",
	"drm":          "drm_prime",
}

// openDevice creates a device context for a normalized "type[:device]"
// name and returns it with the pixel format of its frames.
func openDevice(name string) (avutil.BufferRef, avutil.PixelFormat, error) {
	typ, dev := SplitHWDevice(name)
	t := avutil.HWDeviceFindTypeByName(typ)
	if t == avutil.HWDeviceTypeNone {
		return nil, avutil.PixelFormatNone, newError(HardwareAcceleration, "open device", fmt.Errorf("unknown device type %q", typ))
	}
	ref, err := avutil.HWDeviceCtxCreate(t, dev)
	if err != nil {
		return nil, avutil.PixelFormatNone, newError(HardwareAcceleration, "open device", err)
	}
	return ref, avutil.PixelFormatByName(devicePixelFormats[typ]), nil
}

// dictionary converts options to an AVDictionary the caller must free.
func dictionary(opts map[string]string) (avutil.Dictionary, error) {
	var dict avutil.Dictionary
	for k, v := range opts {
		if err := avutil.DictSet(&dict, k, v, 0); err != nil {
			avutil.DictFree(&dict)
			return nil, err
		}
	}
	return dict, nil
}
