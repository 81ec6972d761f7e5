//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"bytes"
	"os"
	"testing"

	"github.com/obinnaokechukwu/ffio/avutil"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	if err := bindings.Load(); err == nil {
		ffmpegAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg not available")
	}
}

func TestFindDecoder(t *testing.T) {
	skipIfNoFFmpeg(t)
	if FindDecoder(CodecIDH264) == nil {
		t.Fatal("FindDecoder(H264) returned nil")
	}
	if name := CodecName(CodecIDH264); name != "h264" {
		t.Errorf("CodecName(H264) = %q", name)
	}
	if name := CodecName(CodecIDHEVC); name != "hevc" {
		t.Errorf("CodecName(HEVC) = %q", name)
	}
}

func TestFindEncoderByName(t *testing.T) {
	skipIfNoFFmpeg(t)
	if FindEncoderByName("no-such-encoder") != nil {
		t.Error("unknown encoder should be nil")
	}
	if FindEncoderByName("") != nil {
		t.Error("empty name should be nil")
	}
	if FindEncoderByName("mpeg4") == nil && FindEncoderByName("libx264") == nil {
		t.Skip("no common video encoder built in")
	}
}

func TestContextFields(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx := AllocContext3(nil)
	if ctx == nil {
		t.Fatal("AllocContext3 returned nil")
	}
	defer FreeContext(&ctx)

	SetCtxSize(ctx, 320, 240)
	if GetCtxWidth(ctx) != 320 || GetCtxHeight(ctx) != 240 {
		t.Errorf("size = %dx%d", GetCtxWidth(ctx), GetCtxHeight(ctx))
	}
	SetCtxPixFmt(ctx, avutil.PixelFormatYUV420P)
	if GetCtxPixFmt(ctx) != avutil.PixelFormatYUV420P {
		t.Errorf("pix_fmt = %d", GetCtxPixFmt(ctx))
	}
	tb := avutil.Rational{Num: 1, Den: 1000}
	SetCtxTimeBase(ctx, tb)
	if GetCtxTimeBase(ctx) != tb {
		t.Errorf("time base = %+v", GetCtxTimeBase(ctx))
	}

	// The option API and the offset table must agree.
	if err := avutil.OptSetInt(ctx, "g", 50, 0); err != nil {
		t.Errorf("OptSetInt(g): %v", err)
	}
}

func TestFreeContextNil(t *testing.T) {
	var ctx Context
	FreeContext(&ctx)
	FreeContext(nil)
}

func TestNewPacketFrom(t *testing.T) {
	skipIfNoFFmpeg(t)
	src := PacketAlloc()
	dst := PacketAlloc()
	if src == nil || dst == nil {
		t.Fatal("PacketAlloc returned nil")
	}
	defer PacketFree(&src)
	defer PacketFree(&dst)

	SetPacketPTS(src, 40)
	SetPacketDTS(src, 20)
	SetPacketStreamIndex(src, 0)

	payload := []byte{0, 0, 0, 1, 0x65, 0x88}
	if err := NewPacketFrom(dst, payload, src); err != nil {
		t.Fatalf("NewPacketFrom: %v", err)
	}
	defer PacketUnref(dst)

	if !bytes.Equal(PacketBytes(dst), payload) {
		t.Errorf("payload = %x", PacketBytes(dst))
	}
	if GetPacketPTS(dst) != 40 || GetPacketDTS(dst) != 20 {
		t.Errorf("timestamps = %d/%d", GetPacketPTS(dst), GetPacketDTS(dst))
	}

	RescalePacketTS(dst, avutil.Rational{Num: 1, Den: 1000}, avutil.Rational{Num: 1, Den: 90000})
	if GetPacketPTS(dst) != 3600 {
		t.Errorf("rescaled pts = %d, want 3600", GetPacketPTS(dst))
	}
}
