//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestFrameImage(t *testing.T) {
	f := &Frame{Type: FrameRGB, Width: 2, Height: 1, Data: []byte{10, 20, 30, 40, 50, 60}}
	img := f.Image()
	if img == nil || img.Bounds().Dx() != 2 {
		t.Fatalf("Image() = %v", img)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{40, 50, 60, 255}) {
		t.Errorf("pixel = %v", got)
	}
	if !bytes.Equal(RGBFromImage(img), f.Data) {
		t.Errorf("RGBFromImage = %v", RGBFromImage(img))
	}

	shared := &Frame{Type: FrameRGB, Width: 2, Height: 1, ShmOffset: 64}
	if shared.Image() != nil {
		t.Error("shared-memory frame produced an image")
	}
}

func TestRGBFromImageBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.Set(6, 5, color.RGBA{1, 2, 3, 255})
	if got := RGBFromImage(img); !bytes.Equal(got, []byte{0, 0, 0, 1, 2, 3}) {
		t.Errorf("RGBFromImage = %v", got)
	}
}

func TestFrameKinds(t *testing.T) {
	eof := &Frame{Type: FrameEOF, Err: StreamEOF}
	if !eof.IsEOF() || eof.IsRGB() || eof.Failure() != nil {
		t.Errorf("EOF frame: %s", eof)
	}
	bad := &Frame{Type: FrameError, Err: SwsFailure}
	if bad.Failure() != SwsFailure {
		t.Errorf("Failure() = %v", bad.Failure())
	}
	var none *Frame
	if none.IsRGB() || none.IsEOF() || none.Failure() != nil || none.String() != "<nil>" {
		t.Error("nil frame methods")
	}
	if s := (&Frame{Type: FrameRGB, Seq: 3, PTS: 120, Width: 4, Height: 2}).String(); s != "rgb frame seq=3 pts=120 4x2" {
		t.Errorf("String() = %q", s)
	}
	if _, ok := any(bad).(error); ok {
		t.Error("*Frame satisfies error")
	}
	if FrameType(9).String() != "frame_type(9)" {
		t.Error("unknown frame type string")
	}
}
