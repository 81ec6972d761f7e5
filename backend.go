//go:build !ios && !android && (amd64 || arm64)

package ffio

import "errors"

// Backend sentinels. Decoder.ReceiveFrame and Encoder.ReceivePacket
// return ErrAgain when more input is needed and ErrEndOfStream once a
// flushed codec is drained. Decoder.ReadPacket returns ErrEndOfStream at
// the end of the input.
var (
	ErrAgain       = errors.New("ffio: codec needs more input")
	ErrEndOfStream = errors.New("ffio: end of stream")
)

// StreamInfo describes the video stream a backend opened.
type StreamInfo struct {
	Width       int
	Height      int
	FrameRate   float64
	Codec       string // "h264", "hevc", ...
	PixelFormat string // codec-side format, e.g. "yuv420p"
}

// Packet is one compressed video packet. Data may alias backend memory
// and is only valid until the next call on the same decoder or encoder.
type Packet struct {
	Data     []byte
	PTS      int64
	DTS      int64
	KeyFrame bool
}

// Picture is an uncompressed frame owned by a backend. It is valid until
// the next call that produces a picture of the same kind.
type Picture interface {
	PTS() int64
	OnDevice() bool
}

// DecoderConfig is what a backend needs to open an input.
type DecoderConfig struct {
	URL string
	// HWDevice is the normalized "type[:device]" name, empty for software.
	HWDevice string
	// KeepOnDevice leaves decoded pictures in device memory for a
	// DeviceConverter instead of transferring them to the host.
	KeepOnDevice bool
	Flags        string
	Flags2       string
	Streaming    *StreamingOptions
}

// EncoderConfig is what a backend needs to open an output.
type EncoderConfig struct {
	URL       string
	Params    CodecParams // defaults applied, Format resolved
	HWDevice  string
	Streaming *StreamingOptions
}

// Decoder reads and decodes the best video stream of an input.
type Decoder interface {
	Info() StreamInfo
	// ReadPacket returns the next packet of the video stream.
	ReadPacket() (Packet, error)
	// SendPacket feeds the codec. A zero Packet starts flushing.
	SendPacket(Packet) error
	ReceiveFrame() (Picture, error)
	// TransferToHost copies a device picture into host memory.
	TransferToHost(Picture) (Picture, error)
	Close() error
}

// Encoder encodes pictures and muxes the packets into an output.
type Encoder interface {
	Info() StreamInfo
	// Picture returns a writable picture in the codec pixel format, in
	// device memory when onDevice is set.
	Picture(onDevice bool) (Picture, error)
	// Upload copies a host picture into device memory.
	Upload(Picture) (Picture, error)
	// SendFrame feeds the codec with pts in the 1/1000 time base. A nil
	// picture starts flushing.
	SendFrame(pic Picture, pts int64) error
	ReceivePacket() (Packet, error)
	WritePacket(Packet) error
	// Close writes the trailer and releases the output.
	Close() error
}

// Converter converts between packed RGB24 buffers and host pictures.
type Converter interface {
	ToRGB(dst []byte, pic Picture) error
	FromRGB(dst Picture, src []byte) error
	Close() error
}

// Backend opens codec pipelines. The default backend is FFmpeg loaded at
// runtime; tests substitute their own.
type Backend interface {
	OpenDecoder(DecoderConfig) (Decoder, error)
	OpenEncoder(EncoderConfig) (Encoder, error)
	// NewConverter returns a software converter for width x height pictures.
	NewConverter(width, height int) (Converter, error)
	HasEncoder(name string) bool
	HasPixelFormat(name string) bool
}
