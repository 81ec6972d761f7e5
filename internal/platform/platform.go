//go:build !ios && !android && (amd64 || arm64)

// Package platform knows how shared libraries are named and where they
// live on each supported operating system.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// LibraryExtension is the file extension for shared libraries on this platform.
var LibraryExtension string

// LibraryPrefix is the prefix for shared library names on this platform.
var LibraryPrefix string

func init() {
	switch runtime.GOOS {
	case "darwin":
		LibraryExtension = ".dylib"
		LibraryPrefix = "lib"
	case "windows":
		LibraryExtension = ".dll"
		LibraryPrefix = ""
	default:
		LibraryExtension = ".so"
		LibraryPrefix = "lib"
	}
}

// FormatLibraryName returns the platform-specific library filename.
// A version of 0 yields the unversioned name.
//
//   - Linux:   FormatLibraryName("avcodec", 60) -> "libavcodec.so.60"
//   - macOS:   FormatLibraryName("avcodec", 60) -> "libavcodec.60.dylib"
//   - Windows: FormatLibraryName("avcodec", 60) -> "avcodec-60.dll"
func FormatLibraryName(name string, version int) string {
	if version <= 0 {
		return LibraryPrefix + name + LibraryExtension
	}
	switch runtime.GOOS {
	case "darwin":
		return fmt.Sprintf("%s%s.%d%s", LibraryPrefix, name, version, LibraryExtension)
	case "windows":
		return fmt.Sprintf("%s%s-%d%s", LibraryPrefix, name, version, LibraryExtension)
	default:
		return fmt.Sprintf("%s%s%s.%d", LibraryPrefix, name, LibraryExtension, version)
	}
}

// CandidateNames lists the filenames tried for a library, most specific first.
func CandidateNames(name string, versions []int) []string {
	names := make([]string, 0, len(versions)+1)
	for _, v := range versions {
		names = append(names, FormatLibraryName(name, v))
	}
	return append(names, FormatLibraryName(name, 0))
}

// SearchPaths returns the directories probed for FFmpeg libraries.
// Environment overrides come first.
func SearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "linux", "freebsd":
		paths = appendEnvList(paths, "LD_LIBRARY_PATH")
		if runtime.GOOS == "linux" {
			paths = append(paths,
				"/usr/lib/x86_64-linux-gnu",
				"/usr/lib/aarch64-linux-gnu",
				"/lib/x86_64-linux-gnu",
			)
		}
		paths = append(paths, "/usr/local/lib", "/usr/lib", "/lib")

	case "darwin":
		paths = appendEnvList(paths, "DYLD_LIBRARY_PATH")
		paths = append(paths,
			"/opt/homebrew/lib",
			"/usr/local/lib",
			"/opt/homebrew/opt/ffmpeg/lib",
			"/usr/local/opt/ffmpeg/lib",
		)

	case "windows":
		paths = appendEnvList(paths, "PATH")
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
		paths = append(paths,
			"C:\\ffmpeg\\bin",
			"C:\\Program Files\\ffmpeg\\bin",
		)
	}

	return paths
}

func appendEnvList(paths []string, key string) []string {
	if v := os.Getenv(key); v != "" {
		paths = append(paths, filepath.SplitList(v)...)
	}
	return paths
}

// DefaultHWDevice is the accelerator tried when none is named.
func DefaultHWDevice() string {
	if runtime.GOOS == "darwin" {
		return "videotoolbox"
	}
	return "cuda"
}
