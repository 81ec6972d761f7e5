//go:build linux && !android && (amd64 || arm64)

package ffio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/obinnaokechukwu/ffio/shm"
)

// newSegment creates a shared segment removed at the end of the test.
func newSegment(t *testing.T, size int) string {
	t.Helper()
	name := "ffio-test-" + uuid.NewString()
	if err := shm.Create(name, size); err != nil {
		t.Skipf("shared memory not available: %v", err)
	}
	t.Cleanup(func() { shm.Unlink(name) })
	return name
}

func TestDecodeToShm(t *testing.T) {
	const imageSize = 4 * 2 * ColorDepth
	name := newSegment(t, 16+2*imageSize)

	b := newDecodeBackend(3, 4, 2)
	c := openDecode(t, b, Config{ShmName: name, ShmSize: 16 + 2*imageSize, ShmOffset: 16})
	if !c.ShmEnabled() {
		t.Fatal("shm not enabled")
	}

	peer, err := shm.Open(name, 16+2*imageSize, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	f := c.DecodeOneFrameToShm(0, nil)
	if !f.IsRGB() || f.Data != nil || f.ShmOffset != 0 {
		t.Fatalf("got %s data=%v offset=%d", f, f.Data, f.ShmOffset)
	}
	f = c.DecodeOneFrameToShm(imageSize, nil)
	if !f.IsRGB() || f.ShmOffset != imageSize {
		t.Fatalf("got %s offset=%d", f, f.ShmOffset)
	}

	region, _ := peer.Region(16, 2*imageSize)
	if !bytes.Equal(region[:imageSize], bytes.Repeat([]byte{0}, imageSize)) ||
		!bytes.Equal(region[imageSize:], bytes.Repeat([]byte{40}, imageSize)) {
		t.Errorf("segment = %v", region)
	}
	head, _ := peer.Region(0, 16)
	if !bytes.Equal(head, make([]byte, 16)) {
		t.Errorf("bytes before the base offset were written: %v", head)
	}

	// Out of range leaves the sequence alone.
	if f := c.DecodeOneFrameToShm(imageSize+1, nil); f.Err != ShmFailure {
		t.Fatalf("out of range = %s", f)
	}
	if c.FrameSeq() != 2 {
		t.Errorf("FrameSeq = %d, want 2", c.FrameSeq())
	}

	// The local buffer still works next to the segment.
	if f := c.DecodeOneFrame(nil); !f.IsRGB() || f.Data == nil {
		t.Errorf("local decode = %s", f)
	}
}

func TestEncodeFromShm(t *testing.T) {
	const imageSize = 4 * 2 * ColorDepth
	name := newSegment(t, imageSize)

	peer, err := shm.Open(name, imageSize, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()
	region, _ := peer.Region(0, imageSize)
	copy(region, bytes.Repeat([]byte{9}, imageSize))

	b := &fakeBackend{}
	c, err := Open(ModeEncode, "out.mp4", Config{ShmName: name, ShmSize: imageSize, Params: DefaultParams(4, 2, 25)}, WithBackend(b))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Finalize()

	if err := c.EncodeOneFrameFromShm(0, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.enc.frames[0], region) {
		t.Errorf("encoded %v", b.enc.frames[0])
	}
	if err := c.EncodeOneFrameFromShm(1, nil); !errors.Is(err, ShmFailure) {
		t.Errorf("out of range = %v", err)
	}
}

func TestShmTooSmall(t *testing.T) {
	name := newSegment(t, 64)
	b := newDecodeBackend(1, 4, 2)
	c := New(WithBackend(b))
	err := c.Initialize(ModeDecode, "in.mp4", false, false, "", true, name, 64, 48, CodecParams{})
	if !errors.Is(err, ShmFailure) {
		t.Fatalf("Initialize = %v, want ShmFailure", err)
	}
	if c.State() != StateInit || b.dec.closed != 1 {
		t.Errorf("state = %s, decoder closed %d times", c.State(), b.dec.closed)
	}

	err = c.Initialize(ModeDecode, "in.mp4", false, false, "", true, "ffio-missing-"+uuid.NewString(), 64, 0, CodecParams{})
	if !errors.Is(err, ShmFailure) {
		t.Errorf("missing segment = %v, want ShmFailure", err)
	}
}

func TestFinalizeReleasesShm(t *testing.T) {
	name := newSegment(t, 64)
	c := openDecode(t, newDecodeBackend(1, 4, 2), Config{ShmName: name, ShmSize: 64})
	if err := c.Finalize(); err != nil {
		t.Fatal(err)
	}
	if c.ShmEnabled() {
		t.Error("segment still mapped after Finalize")
	}
}
