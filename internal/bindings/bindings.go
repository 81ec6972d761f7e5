//go:build !ios && !android && (amd64 || arm64)

// Package bindings loads the FFmpeg shared libraries through purego.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/internal/platform"
)

// ErrNotLoaded is returned when FFmpeg functions are called before Load().
var ErrNotLoaded = errors.New("ffio: FFmpeg libraries not loaded; call ffio.Init() first")

// ErrLibraryNotFound is returned when a required FFmpeg library cannot be found.
var ErrLibraryNotFound = errors.New("ffio: FFmpeg library not found")

// Supported major versions, newest first.
var (
	AVUtilVersions   = []int{59, 58, 57, 56}
	AVCodecVersions  = []int{61, 60, 59, 58}
	AVFormatVersions = []int{61, 60, 59, 58}
	SWScaleVersions  = []int{8, 7, 6, 5}
)

type library struct {
	name     string
	versions []int
	required bool
	handle   uintptr
	version  func() uint32
}

var (
	libs = []*library{
		{name: "avutil", versions: AVUtilVersions, required: true},
		{name: "avcodec", versions: AVCodecVersions, required: true},
		{name: "avformat", versions: AVFormatVersions, required: true},
		{name: "swscale", versions: SWScaleVersions},
	}

	loaded   bool
	loadOnce sync.Once
	loadErr  error
)

const (
	idxAVUtil = iota
	idxAVCodec
	idxAVFormat
	idxSWScale
)

// IsLoaded returns true if FFmpeg libraries have been successfully loaded.
func IsLoaded() bool {
	return loaded
}

// Load loads the FFmpeg libraries once. Later calls return the first result.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		loaded = loadErr == nil
	})
	return loadErr
}

// Libraries depend on each other, so avutil goes first.
func doLoad() error {
	for _, l := range libs {
		h, err := open(l.name, l.versions)
		if err != nil {
			if l.required {
				return fmt.Errorf("loading lib%s: %w", l.name, err)
			}
			continue
		}
		l.handle = h
		purego.RegisterLibFunc(&l.version, h, l.name+"_version")
	}
	return nil
}

func open(name string, versions []int) (uintptr, error) {
	candidates := platform.CandidateNames(name, versions)
	for _, dir := range platform.SearchPaths() {
		for _, file := range candidates {
			if h, err := tryOpen(filepath.Join(dir, file)); err == nil {
				return h, nil
			}
		}
	}
	// Fall back to the dynamic loader's own search.
	for _, file := range candidates {
		if h, err := tryOpen(file); err == nil {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// RTLD_GLOBAL is required: the FFmpeg libraries resolve symbols from each other.
func tryOpen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

// FindLibrary returns the first existing file for a library, for diagnostics.
func FindLibrary(name string, versions []int) (string, error) {
	candidates := platform.CandidateNames(name, versions)
	for _, dir := range platform.SearchPaths() {
		for _, file := range candidates {
			full := filepath.Join(dir, file)
			if _, err := os.Stat(full); err == nil {
				return full, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

func handle(i int) uintptr {
	return libs[i].handle
}

func version(i int) uint32 {
	l := libs[i]
	if !loaded || l.version == nil {
		return 0
	}
	return l.version()
}

// LibAVUtil returns the avutil library handle.
func LibAVUtil() uintptr { return handle(idxAVUtil) }

// LibAVCodec returns the avcodec library handle.
func LibAVCodec() uintptr { return handle(idxAVCodec) }

// LibAVFormat returns the avformat library handle.
func LibAVFormat() uintptr { return handle(idxAVFormat) }

// LibSWScale returns the swscale library handle, or 0 when it is missing.
func LibSWScale() uintptr { return handle(idxSWScale) }

// HasSWScale returns true if the swscale library is available.
func HasSWScale() bool { return handle(idxSWScale) != 0 }

// AVUtilVersion returns the packed avutil version, or 0 before Load.
func AVUtilVersion() uint32 { return version(idxAVUtil) }

// AVCodecVersion returns the packed avcodec version, or 0 before Load.
func AVCodecVersion() uint32 { return version(idxAVCodec) }

// AVFormatVersion returns the packed avformat version, or 0 before Load.
func AVFormatVersion() uint32 { return version(idxAVFormat) }

// SWScaleVersion returns the packed swscale version, or 0 when unavailable.
func SWScaleVersion() uint32 { return version(idxSWScale) }

// RegisterOptional binds a symbol that older FFmpeg builds may lack.
// The function pointer stays nil when the symbol is missing.
func RegisterOptional(fptr any, lib uintptr, name string) {
	if lib == 0 {
		return
	}
	defer func() { _ = recover() }()
	purego.RegisterLibFunc(fptr, lib, name)
}
