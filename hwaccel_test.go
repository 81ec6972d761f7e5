//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"testing"

	"github.com/obinnaokechukwu/ffio/internal/platform"
)

func TestNormalizeHWDevice(t *testing.T) {
	tests := []struct {
		in, want string
		err      bool
	}{
		{"cuda", "cuda:0", false},
		{" CUDA ", "cuda:0", false},
		{"cuda:1", "cuda:1", false},
		{"cuda:15", "cuda:15", false},
		{"cuda:100", "", true},
		{"cuda:gpu", "", true},
		{"vaapi", "vaapi", false},
		{"VAAPI:/dev/dri/renderD128", "vaapi:/dev/dri/renderD128", false},
		{"cuda:", "", true},
		{":0", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeHWDevice(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("NormalizeHWDevice(%q) = %q, %v", tt.in, got, err)
		}
	}

	def, err := NormalizeHWDevice("")
	if err != nil {
		t.Fatal(err)
	}
	if want := platform.DefaultHWDevice(); def != want && !(want == "cuda" && def == "cuda:0") {
		t.Errorf("default device = %q, platform default %q", def, want)
	}
}

func TestSplitHWDevice(t *testing.T) {
	typ, dev := SplitHWDevice("cuda:1")
	if typ != "cuda" || dev != "1" {
		t.Errorf("SplitHWDevice = %q, %q", typ, dev)
	}
	typ, dev = SplitHWDevice("videotoolbox")
	if typ != "videotoolbox" || dev != "" {
		t.Errorf("SplitHWDevice = %q, %q", typ, dev)
	}
}

func TestAcquireDevice(t *testing.T) {
	_, release, err := acquireDevice(DeviceConverterFunc(func(w, h int) (*DeviceBuffers, error) {
		return nil, errInjected
	}), 4, 2)
	release()
	if !errors.Is(err, errInjected) {
		t.Errorf("err = %v", err)
	}

	_, release, err = acquireDevice(DeviceConverterFunc(func(w, h int) (*DeviceBuffers, error) {
		return nil, nil
	}), 4, 2)
	release()
	if err == nil {
		t.Error("nil buffers accepted")
	}

	var gotW, gotH int
	bufs, release, err := acquireDevice(DeviceConverterFunc(func(w, h int) (*DeviceBuffers, error) {
		gotW, gotH = w, h
		return &DeviceBuffers{}, nil
	}), 4, 2)
	if err != nil || bufs == nil || gotW != 4 || gotH != 2 {
		t.Fatalf("acquire = %v, %v (%dx%d)", bufs, err, gotW, gotH)
	}
	release() // nil Release is allowed
}
