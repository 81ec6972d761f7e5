//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
)

// The fakes below stand in for FFmpeg so the engine can be tested without
// the libraries. Every packet becomes one picture with the packet's PTS,
// and the converter paints the image with the low byte of that PTS.

var errInjected = errors.New("injected failure")

// slice is an Annex-B H.264 IDR slice NAL unit.
var slice = []byte{0, 0, 0, 1, 0x65, 0x88, 0x84, 0x21}

type fakePicture struct {
	pts    int64
	device bool
	rgb    []byte
}

func (p *fakePicture) PTS() int64     { return p.pts }
func (p *fakePicture) OnDevice() bool { return p.device }

type fakeDecoder struct {
	info     StreamInfo
	packets  []Packet
	next     int
	queue    []*fakePicture
	flushing bool
	device   bool

	readErr, sendErr, recvErr error

	transfers int
	closed    int
}

func (d *fakeDecoder) Info() StreamInfo { return d.info }

func (d *fakeDecoder) ReadPacket() (Packet, error) {
	if d.readErr != nil {
		return Packet{}, d.readErr
	}
	if d.next >= len(d.packets) {
		return Packet{}, ErrEndOfStream
	}
	p := d.packets[d.next]
	d.next++
	return p, nil
}

func (d *fakeDecoder) SendPacket(p Packet) error {
	if p.Data == nil {
		d.flushing = true
		return nil
	}
	if d.sendErr != nil {
		return d.sendErr
	}
	d.queue = append(d.queue, &fakePicture{pts: p.PTS, device: d.device})
	return nil
}

func (d *fakeDecoder) ReceiveFrame() (Picture, error) {
	if d.recvErr != nil {
		return nil, d.recvErr
	}
	if len(d.queue) > 0 {
		p := d.queue[0]
		d.queue = d.queue[1:]
		return p, nil
	}
	if d.flushing {
		return nil, ErrEndOfStream
	}
	return nil, ErrAgain
}

func (d *fakeDecoder) TransferToHost(pic Picture) (Picture, error) {
	d.transfers++
	return &fakePicture{pts: pic.PTS()}, nil
}

func (d *fakeDecoder) Close() error {
	d.closed++
	return nil
}

type fakeEncoder struct {
	info    StreamInfo
	sent    []int64
	frames  [][]byte
	queue   []Packet
	written []Packet
	flushed bool
	uploads int

	// accessUnit replaces slice as the payload of every packet.
	accessUnit []byte

	sendErr, writeErr error

	closed int
}

func (e *fakeEncoder) Info() StreamInfo { return e.info }

func (e *fakeEncoder) Picture(onDevice bool) (Picture, error) {
	return &fakePicture{device: onDevice}, nil
}

func (e *fakeEncoder) Upload(pic Picture) (Picture, error) {
	e.uploads++
	return &fakePicture{device: true, rgb: pic.(*fakePicture).rgb}, nil
}

func (e *fakeEncoder) SendFrame(pic Picture, pts int64) error {
	if pic == nil {
		e.flushed = true
		return nil
	}
	if e.sendErr != nil {
		return e.sendErr
	}
	e.sent = append(e.sent, pts)
	e.frames = append(e.frames, pic.(*fakePicture).rgb)
	data := slice
	if e.accessUnit != nil {
		data = e.accessUnit
	}
	e.queue = append(e.queue, Packet{Data: append([]byte(nil), data...), PTS: pts, DTS: pts, KeyFrame: true})
	return nil
}

func (e *fakeEncoder) ReceivePacket() (Packet, error) {
	if len(e.queue) > 0 {
		p := e.queue[0]
		e.queue = e.queue[1:]
		return p, nil
	}
	if e.flushed {
		return Packet{}, ErrEndOfStream
	}
	return Packet{}, ErrAgain
}

func (e *fakeEncoder) WritePacket(p Packet) error {
	if e.writeErr != nil {
		return e.writeErr
	}
	p.Data = append([]byte(nil), p.Data...)
	e.written = append(e.written, p)
	return nil
}

func (e *fakeEncoder) Close() error {
	e.closed++
	return nil
}

type fakeConverter struct {
	width, height int
	toErr         error
	closed        int
}

func (c *fakeConverter) ToRGB(dst []byte, pic Picture) error {
	if c.toErr != nil {
		return c.toErr
	}
	for i := range dst[:c.width*c.height*ColorDepth] {
		dst[i] = byte(pic.PTS())
	}
	return nil
}

func (c *fakeConverter) FromRGB(dst Picture, src []byte) error {
	dst.(*fakePicture).rgb = append([]byte(nil), src...)
	return nil
}

func (c *fakeConverter) Close() error {
	c.closed++
	return nil
}

type fakeBackend struct {
	dec  *fakeDecoder
	enc  *fakeEncoder
	conv *fakeConverter

	openErr error
	convErr error
	missing map[string]bool

	decCfg DecoderConfig
	encCfg EncoderConfig
}

// newDecodeBackend serves n frames of width x height, 40 ms apart.
func newDecodeBackend(n, width, height int) *fakeBackend {
	dec := &fakeDecoder{info: StreamInfo{Width: width, Height: height, FrameRate: 25, Codec: "h264", PixelFormat: "yuv420p"}}
	for i := 0; i < n; i++ {
		pts := int64(i * 40)
		dec.packets = append(dec.packets, Packet{Data: append([]byte(nil), slice...), PTS: pts, DTS: pts, KeyFrame: i == 0})
	}
	return &fakeBackend{dec: dec}
}

// decodeBackendFrom serves the packets an encoder wrote.
func decodeBackendFrom(enc *fakeEncoder) *fakeBackend {
	info := enc.info
	return &fakeBackend{dec: &fakeDecoder{info: info, packets: enc.written}}
}

func (b *fakeBackend) OpenDecoder(cfg DecoderConfig) (Decoder, error) {
	b.decCfg = cfg
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.dec == nil {
		b.dec = &fakeDecoder{info: StreamInfo{Width: 4, Height: 2, FrameRate: 25, Codec: "h264"}}
	}
	return b.dec, nil
}

func (b *fakeBackend) OpenEncoder(cfg EncoderConfig) (Encoder, error) {
	b.encCfg = cfg
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.enc == nil {
		p := cfg.Params
		b.enc = &fakeEncoder{info: StreamInfo{Width: p.Width, Height: p.Height, FrameRate: float64(p.FPS), Codec: "h264", PixelFormat: p.PixFmt}}
	}
	return b.enc, nil
}

func (b *fakeBackend) NewConverter(width, height int) (Converter, error) {
	if b.convErr != nil {
		return nil, b.convErr
	}
	b.conv = &fakeConverter{width: width, height: height}
	return b.conv, nil
}

func (b *fakeBackend) HasEncoder(name string) bool     { return !b.missing[name] }
func (b *fakeBackend) HasPixelFormat(name string) bool { return !b.missing[name] }
