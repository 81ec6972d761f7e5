//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// StreamingOptions are protocol-level options for network inputs and
// outputs. Support varies by protocol.
type StreamingOptions struct {
	Timeout    time.Duration
	BufferSize int
	MaxDelay   time.Duration

	// IOOptions are additional raw protocol options.
	IOOptions map[string]string
}

// dictionary flattens the options into FFmpeg option names.
func (s *StreamingOptions) dictionary() map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	for k, v := range s.IOOptions {
		out[k] = v
	}
	if s.Timeout > 0 {
		// FFmpeg uses microseconds for timeout-like options.
		out["timeout"] = strconv.FormatInt(s.Timeout.Microseconds(), 10)
		out["rw_timeout"] = strconv.FormatInt(s.Timeout.Microseconds(), 10)
	}
	if s.BufferSize > 0 {
		out["buffer_size"] = strconv.Itoa(s.BufferSize)
	}
	if s.MaxDelay > 0 {
		out["max_delay"] = strconv.FormatInt(s.MaxDelay.Microseconds(), 10)
	}
	return out
}

// GuessFormat picks a muxer for an output URL:
//   - rtmp/rtmps -> flv
//   - udp/srt    -> mpegts
//   - rtp        -> rtp
//   - rtsp       -> rtsp
//
// Files are left to FFmpeg's extension lookup, except for the raw
// elementary-stream extensions FFmpeg does not map on its own.
func GuessFormat(target string) string {
	u, err := url.Parse(target)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "rtmp", "rtmps":
			return "flv"
		case "udp", "srt":
			return "mpegts"
		case "rtp":
			return "rtp"
		case "rtsp":
			return "rtsp"
		}
	}
	switch strings.ToLower(path.Ext(target)) {
	case ".264", ".h264":
		return "h264"
	case ".265", ".h265", ".hevc":
		return "hevc"
	}
	return ""
}

// IsLiveURL reports whether target is a network stream rather than a file.
func IsLiveURL(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "rtmp", "rtmps", "rtsp", "srt", "udp", "rtp", "tcp", "http", "https":
		return true
	}
	return false
}

// inputOptions returns the demuxer options used to open target.
func inputOptions(target string, s *StreamingOptions) map[string]string {
	opts := s.dictionary()
	if strings.HasPrefix(strings.ToLower(target), "rtsp://") {
		if _, ok := opts["rtsp_transport"]; !ok {
			opts["rtsp_transport"] = "tcp"
		}
	}
	return opts
}
