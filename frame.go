//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"fmt"
	"image"
)

// ColorDepth is the number of bytes per pixel of the packed RGB24 images
// the engine exchanges.
const ColorDepth = 3

// FrameType tells what a Frame descriptor carries.
type FrameType int

const (
	FrameError FrameType = -1
	FrameRGB   FrameType = 0
	FrameEOF   FrameType = 1
)

// String returns "rgb", "eof" or "error".
func (t FrameType) String() string {
	switch t {
	case FrameRGB:
		return "rgb"
	case FrameEOF:
		return "eof"
	case FrameError:
		return "error"
	}
	return fmt.Sprintf("frame_type(%d)", int(t))
}

// Frame describes the result of one decode call. It is owned by the
// Context and overwritten by the next decode call; copy what must outlive it.
type Frame struct {
	Type   FrameType
	Err    Code
	Width  int
	Height int
	PTS    int64
	Seq    int64 // index of this frame in the stream, from 0

	// SEI is the matching SEI payload, nil when absent or not requested.
	SEI []byte

	// Data views the context's RGB24 buffer. It is nil for shared-memory
	// frames, whose pixels live at ShmOffset in the segment.
	Data      []byte
	ShmOffset int
}

// IsRGB reports whether the frame carries pixels.
func (f *Frame) IsRGB() bool { return f != nil && f.Type == FrameRGB }

// IsEOF reports whether the stream has ended.
func (f *Frame) IsEOF() bool { return f != nil && f.Type == FrameEOF }

// Failure returns the failure carried by an error frame, or nil.
func (f *Frame) Failure() error {
	if f == nil || f.Type != FrameError {
		return nil
	}
	return f.Err
}

// Image copies the pixels of a local RGB frame into an *image.RGBA.
// It returns nil for shared-memory, EOF and error frames.
func (f *Frame) Image() *image.RGBA {
	if !f.IsRGB() || f.Data == nil {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	src, dst := f.Data, img.Pix
	for i, j := 0, 0; i+2 < len(src) && j+3 < len(dst); i, j = i+3, j+4 {
		dst[j], dst[j+1], dst[j+2], dst[j+3] = src[i], src[i+1], src[i+2], 0xFF
	}
	return img
}

// RGBFromImage packs any image into an RGB24 buffer suitable for
// EncodeOneFrame.
func RGBFromImage(img image.Image) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*ColorDepth)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return out
}

// String summarizes the frame for logs.
func (f *Frame) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s frame seq=%d pts=%d %dx%d", f.Type, f.Seq, f.PTS, f.Width, f.Height)
}
