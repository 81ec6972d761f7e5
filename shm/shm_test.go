//go:build linux

package shm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"
)

func newSegment(t *testing.T, size int) string {
	t.Helper()
	name := fmt.Sprintf("ffio-test-%d-%s", os.Getpid(), t.Name())
	if err := Create(name, size); err != nil {
		t.Skipf("shared memory unavailable: %v", err)
	}
	t.Cleanup(func() { Unlink(name) })
	return name
}

func TestOpenRegionAndShare(t *testing.T) {
	name := newSegment(t, 4096)

	w, err := Open("/"+name, 4096, 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()
	r, err := Open(name, 4096, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	region, err := w.Region(10, 4)
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	copy(region, "ffio")

	got, err := r.Region(110, 4)
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if !bytes.Equal(got, []byte("ffio")) {
		t.Fatalf("second mapping sees %q", got)
	}
	if w.Size() != 4096 || w.Offset() != 100 || w.Name() != "/"+name {
		t.Errorf("accessors: %d %d %q", w.Size(), w.Offset(), w.Name())
	}
}

func TestRegionBounds(t *testing.T) {
	name := newSegment(t, 1024)
	s, err := Open(name, 1024, 24)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Region(0, 1000); err != nil {
		t.Errorf("exact fit: %v", err)
	}
	for _, c := range [][2]int{{0, 1001}, {1000, 1}, {-1, 4}, {0, -1}, {2000, 0}} {
		if _, err := s.Region(c[0], c[1]); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Region(%d, %d) = %v", c[0], c[1], err)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	name := newSegment(t, 512)
	if _, err := Open(name, 512, 512); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("base offset at end: %v", err)
	}
	if _, err := Open(name, 4096, 0); err == nil {
		t.Error("size larger than segment should fail")
	}
	if _, err := Open(name+"-missing", 512, 0); err == nil {
		t.Error("missing segment should fail")
	}
	if _, err := Open("", 512, 0); err == nil {
		t.Error("empty name should fail")
	}
}

func TestCloseIdempotent(t *testing.T) {
	name := newSegment(t, 256)
	s, err := Open(name, 256, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := s.Region(0, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Region after Close: %v", err)
	}
}
