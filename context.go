//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/obinnaokechukwu/ffio/pts"
	"github.com/obinnaokechukwu/ffio/sei"
	"github.com/obinnaokechukwu/ffio/shm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MaxURLLength bounds the source or target URL.
const MaxURLLength = 256

// State is the lifecycle state of a Context.
type State int

const (
	StateInit State = iota
	StateReady
	StateRunning
	StateEnd
	StateClosed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateEnd:
		return "end"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// maxSEIEntries bounds the SEI messages waiting for their frame.
const maxSEIEntries = 256

// Context decodes one input or encodes one output, a frame per call.
//
// A Context is not safe for concurrent use. Run several contexts for
// parallelism.
type Context struct {
	backend    Backend
	log        *zap.Logger
	now        func() time.Time
	metrics    *Metrics
	device     DeviceConverter
	seiBufSize int
	streaming  *StreamingOptions

	state           State
	mode            Mode
	url             string
	seq             int64
	hwEnabled       bool
	pixFmtHWEnabled bool
	hwDevice        string
	shm             *shm.Segment

	width     int
	height    int
	imageSize int
	frameRate float64
	ptsAnchor int64
	pts       *pts.Strategy

	rgb    []byte
	seiBuf []byte
	frame  Frame
	params CodecParams

	dec  Decoder
	enc  Encoder
	conv Converter

	seiCodec   sei.Codec
	seiCache   map[int64][]sei.Message
	pendingSEI map[int64][]byte
	draining   bool
	flushed    bool
}

// New returns a Context in the INIT state.
func New(opts ...Option) *Context {
	c := &Context{
		mode:       ModeUnset,
		log:        zap.NewNop(),
		now:        time.Now,
		seiBufSize: DefaultSEIBufferSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config bundles the Initialize arguments for Open.
type Config struct {
	HWEnabled       bool
	PixFmtHWEnabled bool
	HWDevice        string

	// ShmName enables shared memory when non-empty.
	ShmName   string
	ShmSize   int
	ShmOffset int

	Params CodecParams
}

// Open creates and initializes a Context.
func Open(mode Mode, url string, cfg Config, opts ...Option) (*Context, error) {
	c := New(opts...)
	err := c.Initialize(mode, url, cfg.HWEnabled, cfg.PixFmtHWEnabled, cfg.HWDevice,
		cfg.ShmName != "", cfg.ShmName, cfg.ShmSize, cfg.ShmOffset, cfg.Params)
	if err != nil {
		c.Finalize()
		return nil, err
	}
	return c, nil
}

// wrap attaches code to err unless err already carries one.
func wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(code, op, err)
}

// Initialize opens the stream and moves the context to READY. On failure
// every resource acquired so far is released and the context stays in INIT.
func (c *Context) Initialize(mode Mode, url string, hwEnabled, pixFmtHWEnabled bool,
	hwDevice string, shmEnabled bool, shmName string, shmSize, shmOffset int,
	params CodecParams) (err error) {

	if c.state != StateInit {
		return newError(NotAvailable, "initialize", fmt.Errorf("context is %s", c.state))
	}
	log := c.log.With(zap.Stringer("mode", mode), zap.String("url", url))
	start := time.Now()

	defer func() {
		c.metrics.initialized(mode, err)
		if err == nil {
			return
		}
		if rerr := c.release(); rerr != nil {
			log.Warn("release after failed initialize", zap.Error(rerr))
		}
		c.resetStream()
		log.Error("initialize failed", zap.Stringer("code", CodeOf(err)), zap.Error(err))
	}()

	if mode != ModeDecode && mode != ModeEncode {
		return newError(WrongCodecParams, "initialize", fmt.Errorf("unknown mode %d", int(mode)))
	}
	if url == "" || len(url) > MaxURLLength {
		return newError(WrongCodecParams, "initialize", fmt.Errorf("url must be 1 to %d bytes", MaxURLLength))
	}
	if err := params.Validate(mode); err != nil {
		return err
	}

	if pixFmtHWEnabled && !hwEnabled {
		log.Warn("pixel conversion on device needs hardware acceleration, disabling it")
		pixFmtHWEnabled = false
	}
	if hwEnabled {
		dev, err := NormalizeHWDevice(hwDevice)
		if err != nil {
			return newError(HardwareAcceleration, "initialize", err)
		}
		c.hwDevice = dev
	}
	if pixFmtHWEnabled && c.device == nil {
		return newError(HardwareAcceleration, "initialize", errors.New("no device converter configured"))
	}

	if c.backend == nil {
		b, err := defaultBackend()
		if err != nil {
			return newError(AvformatFailure, "load ffmpeg", err)
		}
		c.backend = b
	}

	c.mode = mode
	c.url = url
	c.hwEnabled = hwEnabled
	c.pixFmtHWEnabled = pixFmtHWEnabled
	c.params = params.withDefaults(mode, url)

	switch mode {
	case ModeDecode:
		err = c.openDecoder()
	case ModeEncode:
		err = c.openEncoder()
	}
	if err != nil {
		return err
	}

	c.imageSize = c.width * c.height * ColorDepth
	if !c.pixFmtHWEnabled {
		if c.conv, err = c.backend.NewConverter(c.width, c.height); err != nil {
			return wrap(SwsFailure, "new converter", err)
		}
	}
	if shmEnabled {
		if shmSize-shmOffset < c.imageSize {
			return newError(ShmFailure, "open shm", fmt.Errorf("%d bytes after offset %d cannot hold a %d byte image",
				shmSize-shmOffset, shmOffset, c.imageSize))
		}
		if c.shm, err = shm.Open(shmName, shmSize, shmOffset); err != nil {
			return newError(ShmFailure, "open shm", err)
		}
	}

	c.rgb = make([]byte, c.imageSize)
	c.seiBuf = make([]byte, 0, c.seiBufSize)
	c.state = StateReady
	c.log = log

	log.Info("initialized",
		zap.Int("width", c.width),
		zap.Int("height", c.height),
		zap.Float64("fps", c.frameRate),
		zap.Bool("hw", c.hwEnabled),
		zap.Bool("pix_fmt_hw", c.pixFmtHWEnabled),
		zap.Bool("shm", c.shm != nil),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (c *Context) openDecoder() error {
	dec, err := c.backend.OpenDecoder(DecoderConfig{
		URL:          c.url,
		HWDevice:     c.hwDevice,
		KeepOnDevice: c.pixFmtHWEnabled,
		Flags:        c.params.Flags,
		Flags2:       c.params.Flags2,
		Streaming:    c.streaming,
	})
	if err != nil {
		return wrap(AvformatFailure, "open decoder", err)
	}
	c.dec = dec

	info := dec.Info()
	if info.Width <= 0 || info.Height <= 0 {
		return newError(AvcodecFailure, "open decoder", fmt.Errorf("invalid stream geometry %dx%d", info.Width, info.Height))
	}
	c.width, c.height, c.frameRate = info.Width, info.Height, info.FrameRate
	c.seiCodec = seiCodecFor(info.Codec)
	c.seiCache = make(map[int64][]sei.Message)
	return nil
}

func (c *Context) openEncoder() error {
	p := c.params
	if !c.backend.HasEncoder(p.Codec) {
		return newError(WrongCodecParams, "open encoder", fmt.Errorf("unknown encoder %q", p.Codec))
	}
	if !c.backend.HasPixelFormat(p.PixFmt) {
		return newError(WrongCodecParams, "open encoder", fmt.Errorf("unknown pixel format %q", p.PixFmt))
	}
	strategy, err := pts.New(p.PTSTrick, p.FPS)
	if err != nil {
		return newError(WrongCodecParams, "open encoder", err)
	}

	enc, err := c.backend.OpenEncoder(EncoderConfig{
		URL:       c.url,
		Params:    p,
		HWDevice:  c.hwDevice,
		Streaming: c.streaming,
	})
	if err != nil {
		return wrap(AvcodecFailure, "open encoder", err)
	}
	c.enc = enc
	c.pts = strategy
	c.width, c.height, c.frameRate = p.Width, p.Height, float64(p.FPS)
	c.seiCodec = seiCodecFor(enc.Info().Codec)
	c.pendingSEI = make(map[int64][]byte)
	return nil
}

func seiCodecFor(codec string) sei.Codec {
	switch strings.ToLower(codec) {
	case "hevc", "h265":
		return sei.HEVC
	}
	return sei.H264
}

// SetPTSAnchor sets the timestamp the Direct trick uses for the next frame.
func (c *Context) SetPTSAnchor(v int64) { c.ptsAnchor = v }

// Flush drains a running encoder and writes out the buffered packets.
// The context moves to END; Finalize still has to be called.
func (c *Context) Flush() error {
	if c.mode != ModeEncode || (c.state != StateReady && c.state != StateRunning) {
		return newError(NotAvailable, "flush", fmt.Errorf("%s context is %s", c.mode, c.state))
	}
	if err := c.flush(); err != nil {
		return err
	}
	c.state = StateEnd
	c.log.Info("flushed", zap.Int64("seq", c.seq))
	return nil
}

func (c *Context) flush() error {
	c.flushed = true
	if err := c.enc.SendFrame(nil, 0); err != nil && !errors.Is(err, ErrEndOfStream) {
		return wrap(AvcodecFailure, "flush encoder", err)
	}
	err := c.drain()
	clear(c.pendingSEI)
	return err
}

// Finalize flushes an encoder, releases everything and moves the context
// to CLOSED. Calling it again is a no-op.
func (c *Context) Finalize() error {
	if c.state == StateClosed {
		return nil
	}
	initialized := c.state != StateInit

	var err error
	if c.enc != nil && !c.flushed && (c.state == StateReady || c.state == StateRunning) {
		err = multierr.Append(err, c.flush())
	}
	err = multierr.Append(err, c.release())
	c.state = StateClosed

	if initialized {
		c.metrics.finalized(c.mode)
		c.log.Info("finalized", zap.Int64("seq", c.seq), zap.Error(err))
	}
	return err
}

// release closes every owned resource exactly once.
func (c *Context) release() error {
	var err error
	if c.conv != nil {
		err = multierr.Append(err, wrap(SwsFailure, "close converter", c.conv.Close()))
		c.conv = nil
	}
	if c.dec != nil {
		err = multierr.Append(err, wrap(AvformatFailure, "close decoder", c.dec.Close()))
		c.dec = nil
	}
	if c.enc != nil {
		err = multierr.Append(err, wrap(ReadOrWriteTarget, "close encoder", c.enc.Close()))
		c.enc = nil
	}
	if c.shm != nil {
		err = multierr.Append(err, wrap(ShmFailure, "close shm", c.shm.Close()))
		c.shm = nil
	}
	c.rgb = nil
	c.seiBuf = nil
	c.seiCache = nil
	c.pendingSEI = nil
	return err
}

// resetStream returns a context whose Initialize failed to a clean INIT.
func (c *Context) resetStream() {
	c.state = StateInit
	c.mode = ModeUnset
	c.url = ""
	c.hwEnabled, c.pixFmtHWEnabled = false, false
	c.hwDevice = ""
	c.width, c.height, c.imageSize = 0, 0, 0
	c.frameRate = 0
	c.pts = nil
	c.params = CodecParams{}
	c.draining, c.flushed = false, false
}

// State returns the lifecycle state.
func (c *Context) State() State { return c.state }

// Mode returns the direction fixed at Initialize, or ModeUnset before it.
func (c *Context) Mode() Mode { return c.mode }

// FrameSeq returns the number of frames decoded or encoded so far.
func (c *Context) FrameSeq() int64 { return c.seq }

// Width returns the image width in pixels.
func (c *Context) Width() int { return c.width }

// Height returns the image height in pixels.
func (c *Context) Height() int { return c.height }

// ImageByteSize returns width x height x 3.
func (c *Context) ImageByteSize() int { return c.imageSize }

// FrameRate returns the stream frame rate.
func (c *Context) FrameRate() float64 { return c.frameRate }

// URL returns the source or target.
func (c *Context) URL() string { return c.url }

// HWEnabled reports whether the codec runs on an accelerator.
func (c *Context) HWEnabled() bool { return c.hwEnabled }

// PixFmtHWEnabled reports whether pixel conversion runs on the accelerator.
func (c *Context) PixFmtHWEnabled() bool { return c.pixFmtHWEnabled }

// HWDevice returns the normalized accelerator name, empty without hardware.
func (c *Context) HWDevice() string { return c.hwDevice }

// ShmEnabled reports whether a shared segment is mapped.
func (c *Context) ShmEnabled() bool { return c.shm != nil }

// Params returns the parameters in effect, defaults applied.
func (c *Context) Params() CodecParams { return c.params }

// String summarizes the context.
func (c *Context) String() string {
	shmState, hwState := "shm_disabled", "hw_disabled"
	if c.shm != nil {
		shmState = "shm_enabled"
	}
	if c.hwEnabled {
		hwState = "hw_enabled:" + c.hwDevice
	}
	return fmt.Sprintf("ffio.Context(%s, %s, %dx%d@%g, %s, %s, %s, seq=%d)",
		c.mode, c.url, c.width, c.height, c.frameRate, shmState, hwState, c.state, c.seq)
}
