//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"time"

	"go.uber.org/zap"
)

// DefaultSEIBufferSize bounds the SEI payload a decoded frame can carry.
const DefaultSEIBufferSize = 4096

// Option configures a Context created with New.
type Option func(*Context)

// WithBackend replaces the FFmpeg backend.
func WithBackend(b Backend) Option {
	return func(c *Context) { c.backend = b }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now for timestamp generation.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records frame counts, failures and latency into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Context) { c.metrics = m }
}

// WithDeviceConverter supplies the accelerator-side pixel converter.
func WithDeviceConverter(dc DeviceConverter) Option {
	return func(c *Context) { c.device = dc }
}

// WithSEIBufferSize sets the largest SEI payload returned with a frame.
// Larger payloads are dropped.
func WithSEIBufferSize(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.seiBufSize = n
		}
	}
}

// WithStreamingOptions sets protocol options for network URLs.
func WithStreamingOptions(s *StreamingOptions) Option {
	return func(c *Context) { c.streaming = s }
}
