//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/obinnaokechukwu/ffio/internal/platform"
)

var cudaDevicePattern = regexp.MustCompile(`^cuda:\d{1,2}$`)

// NormalizeHWDevice turns a "type[:device]" name into the form the
// backend opens. An empty name selects the platform default accelerator,
// and a bare "cuda" selects the first GPU.
func NormalizeHWDevice(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = platform.DefaultHWDevice()
	}
	typ, dev, hasDev := strings.Cut(name, ":")
	typ = strings.ToLower(typ)
	switch {
	case typ == "":
		return "", fmt.Errorf("ffio: invalid hardware device %q", name)
	case !hasDev && typ == "cuda":
		return "cuda:0", nil
	case !hasDev:
		return typ, nil
	}
	name = typ + ":" + dev
	if typ == "cuda" && !cudaDevicePattern.MatchString(name) {
		return "", fmt.Errorf("ffio: cuda device must look like cuda:0, got %q", name)
	}
	return name, nil
}

// SplitHWDevice splits "type[:device]" into its parts.
func SplitHWDevice(name string) (typ, device string) {
	typ, device, _ = strings.Cut(name, ":")
	return typ, device
}

// DeviceBuffers are device-resident conversion resources for one frame.
// They are acquired and released within a single decode or encode call.
type DeviceBuffers struct {
	// ToRGB converts a decoded device picture into packed RGB24.
	ToRGB func(dst []byte, pic Picture) error
	// FromRGB converts packed RGB24 into a device picture for the encoder.
	FromRGB func(dst Picture, src []byte) error
	// Release returns the buffers. It may be nil.
	Release func()
}

// DeviceConverter performs pixel conversion on the accelerator. It is
// required when pixel-format conversion on the device is enabled.
type DeviceConverter interface {
	Acquire(width, height int) (*DeviceBuffers, error)
}

// DeviceConverterFunc adapts a function to DeviceConverter.
type DeviceConverterFunc func(width, height int) (*DeviceBuffers, error)

// Acquire calls f.
func (f DeviceConverterFunc) Acquire(width, height int) (*DeviceBuffers, error) {
	return f(width, height)
}

// acquireDevice returns buffers and a release func that is always safe
// to defer.
func acquireDevice(dc DeviceConverter, width, height int) (*DeviceBuffers, func(), error) {
	bufs, err := dc.Acquire(width, height)
	if err != nil {
		return nil, func() {}, err
	}
	if bufs == nil {
		return nil, func() {}, fmt.Errorf("ffio: device converter returned no buffers")
	}
	release := func() {
		if bufs.Release != nil {
			bufs.Release()
		}
	}
	return bufs, release, nil
}
