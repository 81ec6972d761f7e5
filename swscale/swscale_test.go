//go:build !ios && !android && (amd64 || arm64)

package swscale

import (
	"os"
	"testing"

	"github.com/obinnaokechukwu/ffio/avutil"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

var swscaleAvailable bool

func TestMain(m *testing.M) {
	if err := bindings.Load(); err == nil && bindings.HasSWScale() {
		swscaleAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoSWScale(t *testing.T) {
	t.Helper()
	if !swscaleAvailable {
		t.Skip("swscale not available")
	}
}

func TestSupportedFormats(t *testing.T) {
	skipIfNoSWScale(t)
	for _, f := range []avutil.PixelFormat{avutil.PixelFormatYUV420P, avutil.PixelFormatRGB24, avutil.PixelFormatNV12} {
		if !IsSupportedInput(f) || !IsSupportedOutput(f) {
			t.Errorf("format %d should be supported both ways", f)
		}
	}
}

func TestPackedRoundTripKeepsFlatColor(t *testing.T) {
	skipIfNoSWScale(t)
	const w, h = 32, 16

	toYUV := GetContext(w, h, avutil.PixelFormatRGB24, w, h, avutil.PixelFormatYUV420P, FlagPoint)
	toRGB := GetContext(w, h, avutil.PixelFormatYUV420P, w, h, avutil.PixelFormatRGB24, FlagPoint)
	if toYUV == nil || toRGB == nil {
		t.Fatal("GetContext returned nil")
	}
	defer FreeContext(toYUV)
	defer FreeContext(toRGB)

	frame := avutil.FrameAlloc()
	defer avutil.FrameFree(&frame)
	avutil.SetFrameGeometry(frame, w, h, avutil.PixelFormatYUV420P)
	if err := avutil.FrameGetBuffer(frame, 0); err != nil {
		t.Fatalf("FrameGetBuffer: %v", err)
	}

	src := make([]byte, w*h*3)
	for i := 0; i < len(src); i += 3 {
		src[i], src[i+1], src[i+2] = 128, 128, 128
	}
	if n := PackedToFrame(toYUV, src, w*3, h, frame); n != h {
		t.Fatalf("PackedToFrame rows = %d", n)
	}

	dst := make([]byte, w*h*3)
	if n := FrameToPacked(toRGB, frame, dst, w*3); n != h {
		t.Fatalf("FrameToPacked rows = %d", n)
	}
	for i, v := range dst {
		if v < 124 || v > 132 {
			t.Fatalf("byte %d = %d, flat gray drifted", i, v)
		}
	}
}

func TestNilContext(t *testing.T) {
	if FrameToPacked(nil, nil, []byte{0}, 3) >= 0 {
		t.Error("nil context should fail")
	}
	FreeContext(nil)
}
