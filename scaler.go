//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/ffio/avutil"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
	"github.com/obinnaokechukwu/ffio/swscale"
)

// ErrSWScaleNotLoaded is returned when libswscale is not available.
var ErrSWScaleNotLoaded = errors.New("ffio: libswscale not loaded")

// scaleFlags selects the interpolation used when source and destination
// sizes differ.
const scaleFlags = swscale.FlagBilinear

// scaleKey identifies a cached swscale context.
type scaleKey struct {
	width, height int
	format        avutil.PixelFormat
}

// swsConverter converts between packed RGB24 images of a fixed size and
// codec pictures. Contexts are created lazily and rebuilt when the
// picture's format or size changes mid-stream.
type swsConverter struct {
	width  int
	height int

	toRGB      swscale.Context
	toRGBKey   scaleKey
	fromRGB    swscale.Context
	fromRGBKey scaleKey
}

func newSwsConverter(width, height int) (*swsConverter, error) {
	if !bindings.HasSWScale() {
		return nil, ErrSWScaleNotLoaded
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("ffio: invalid converter size %dx%d", width, height)
	}
	return &swsConverter{width: width, height: height}, nil
}

func (s *swsConverter) imageSize() int { return s.width * s.height * ColorDepth }

// ToRGB scales pic into dst, which must hold a full RGB24 image.
func (s *swsConverter) ToRGB(dst []byte, pic Picture) error {
	f, err := frameOf(pic)
	if err != nil {
		return err
	}
	if len(dst) < s.imageSize() {
		return fmt.Errorf("ffio: rgb buffer is %d bytes, want %d", len(dst), s.imageSize())
	}
	key := scaleKey{int(avutil.GetFrameWidth(f)), int(avutil.GetFrameHeight(f)), avutil.GetFrameFormat(f)}
	if s.toRGB == nil || key != s.toRGBKey {
		swscale.FreeContext(s.toRGB)
		s.toRGB = swscale.GetContext(key.width, key.height, key.format,
			s.width, s.height, avutil.PixelFormatRGB24, scaleFlags)
		if s.toRGB == nil {
			return fmt.Errorf("ffio: cannot convert %s %dx%d to rgb24", key.format, key.width, key.height)
		}
		s.toRGBKey = key
	}
	if rows := swscale.FrameToPacked(s.toRGB, f, dst, s.width*ColorDepth); int(rows) != s.height {
		return fmt.Errorf("ffio: sws_scale wrote %d of %d rows", rows, s.height)
	}
	return nil
}

// FromRGB scales a full RGB24 image into dst, a writable picture.
func (s *swsConverter) FromRGB(dst Picture, src []byte) error {
	f, err := frameOf(dst)
	if err != nil {
		return err
	}
	if len(src) < s.imageSize() {
		return fmt.Errorf("ffio: rgb buffer is %d bytes, want %d", len(src), s.imageSize())
	}
	key := scaleKey{int(avutil.GetFrameWidth(f)), int(avutil.GetFrameHeight(f)), avutil.GetFrameFormat(f)}
	if s.fromRGB == nil || key != s.fromRGBKey {
		swscale.FreeContext(s.fromRGB)
		s.fromRGB = swscale.GetContext(s.width, s.height, avutil.PixelFormatRGB24,
			key.width, key.height, key.format, scaleFlags)
		if s.fromRGB == nil {
			return fmt.Errorf("ffio: cannot convert rgb24 to %s %dx%d", key.format, key.width, key.height)
		}
		s.fromRGBKey = key
	}
	if rows := swscale.PackedToFrame(s.fromRGB, src, s.width*ColorDepth, s.height, f); int(rows) != key.height {
		return fmt.Errorf("ffio: sws_scale wrote %d of %d rows", rows, key.height)
	}
	return nil
}

// Close frees the swscale contexts.
func (s *swsConverter) Close() error {
	swscale.FreeContext(s.toRGB)
	swscale.FreeContext(s.fromRGB)
	s.toRGB, s.fromRGB = nil, nil
	return nil
}
