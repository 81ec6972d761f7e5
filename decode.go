//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/obinnaokechukwu/ffio/sei"
	"go.uber.org/zap"
)

// DecodeOneFrame decodes the next frame into the context's RGB24 buffer.
//
// seiFilter selects the SEI payload returned with the frame: nil returns
// none, an empty slice returns the first one, anything else returns the
// first payload containing it or whose UUID it spells.
//
// The returned Frame is reused by the next call. After the last frame
// every call returns an EOF frame; failures return an error frame and
// leave the sequence unchanged.
func (c *Context) DecodeOneFrame(seiFilter []byte) *Frame {
	return c.decode(false, 0, seiFilter)
}

// DecodeOneFrameToShm is DecodeOneFrame writing the pixels into the
// shared segment at offset, relative to the base offset given to
// Initialize.
func (c *Context) DecodeOneFrameToShm(offset int, seiFilter []byte) *Frame {
	return c.decode(true, offset, seiFilter)
}

func (c *Context) decode(toShm bool, offset int, filter []byte) *Frame {
	if c.mode == ModeDecode && c.state == StateEnd {
		return &c.frame
	}
	if c.mode != ModeDecode || (c.state != StateReady && c.state != StateRunning) {
		return &Frame{Type: FrameError, Err: NotAvailable}
	}
	start := time.Now()

	dst := c.rgb
	if toShm {
		if c.shm == nil {
			return c.decodeFailed(newError(ShmFailure, "decode", errors.New("shared memory not enabled")))
		}
		region, err := c.shm.Region(offset, c.imageSize)
		if err != nil {
			return c.decodeFailed(newError(ShmFailure, "decode", err))
		}
		dst = region
	}

	pic, err := c.nextPicture()
	if errors.Is(err, ErrEndOfStream) {
		c.state = StateEnd
		c.frame = Frame{Type: FrameEOF, Err: StreamEOF, Width: c.width, Height: c.height, Seq: c.seq}
		c.metrics.eof()
		c.log.Info("end of stream", zap.Int64("seq", c.seq))
		return &c.frame
	}
	if err != nil {
		return c.decodeFailed(err)
	}

	if pic.OnDevice() && !c.pixFmtHWEnabled {
		if pic, err = c.dec.TransferToHost(pic); err != nil {
			return c.decodeFailed(wrap(HardwareAcceleration, "transfer to host", err))
		}
	}
	if err := c.toRGB(dst, pic); err != nil {
		return c.decodeFailed(err)
	}

	c.frame = Frame{
		Type:   FrameRGB,
		Width:  c.width,
		Height: c.height,
		PTS:    pic.PTS(),
		Seq:    c.seq,
		SEI:    c.takeSEI(pic.PTS(), filter),
	}
	if toShm {
		c.frame.ShmOffset = offset
	} else {
		c.frame.Data = dst
	}
	c.seq++
	c.state = StateRunning
	c.metrics.frame(c.mode, start)
	c.log.Debug("decoded", zap.Int64("seq", c.frame.Seq), zap.Int64("pts", c.frame.PTS))
	return &c.frame
}

func (c *Context) decodeFailed(err error) *Frame {
	code := CodeOf(err)
	c.frame = Frame{Type: FrameError, Err: code, Width: c.width, Height: c.height, Seq: c.seq}
	c.metrics.failure(c.mode, code)
	c.log.Debug("decode failed", zap.Int64("seq", c.seq), zap.Stringer("code", code), zap.Error(err))
	return &c.frame
}

// nextPicture runs the read/send/receive loop until the codec yields a
// picture, flushing the codec once the input is exhausted.
func (c *Context) nextPicture() (Picture, error) {
	for {
		pic, err := c.dec.ReceiveFrame()
		switch {
		case err == nil:
			return pic, nil
		case errors.Is(err, ErrEndOfStream):
			return nil, ErrEndOfStream
		case !errors.Is(err, ErrAgain):
			return nil, wrap(RecvFromCodec, "receive frame", err)
		case c.draining:
			return nil, ErrEndOfStream
		}

		pkt, err := c.dec.ReadPacket()
		if errors.Is(err, ErrEndOfStream) {
			c.draining = true
			if err := c.dec.SendPacket(Packet{}); err != nil && !errors.Is(err, ErrEndOfStream) {
				return nil, wrap(SendToCodec, "flush decoder", err)
			}
			continue
		}
		if err != nil {
			return nil, wrap(ReadOrWriteTarget, "read packet", err)
		}

		c.cacheSEI(pkt)
		if err := c.dec.SendPacket(pkt); err != nil {
			return nil, wrap(SendToCodec, "send packet", err)
		}
	}
}

func (c *Context) toRGB(dst []byte, pic Picture) error {
	if !c.pixFmtHWEnabled {
		return wrap(SwsFailure, "convert to rgb", c.conv.ToRGB(dst, pic))
	}
	bufs, release, err := acquireDevice(c.device, c.width, c.height)
	defer release()
	if err != nil {
		return newError(HardwareAcceleration, "acquire device buffers", err)
	}
	if bufs.ToRGB == nil {
		return newError(SwsFailure, "convert to rgb", errors.New("device converter cannot convert to rgb"))
	}
	return wrap(SwsFailure, "convert to rgb", bufs.ToRGB(dst, pic))
}

// cacheSEI keeps the SEI messages of a packet until the frame with the
// same timestamp is delivered.
func (c *Context) cacheSEI(pkt Packet) {
	if len(pkt.Data) == 0 {
		return
	}
	msgs := sei.Parse(pkt.Data, c.seiCodec)
	if c.params.SEIUUID != uuid.Nil {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.UUID == c.params.SEIUUID {
				kept = append(kept, m)
			}
		}
		msgs = kept
	}
	if len(msgs) == 0 {
		return
	}
	if len(c.seiCache) >= maxSEIEntries {
		dropOldest(c.seiCache)
	}
	c.seiCache[pkt.PTS] = append(c.seiCache[pkt.PTS], msgs...)
}

// takeSEI returns the payload for the frame at pts that matches filter,
// copied into the scratch buffer, and forgets entries up to pts.
func (c *Context) takeSEI(pts int64, filter []byte) []byte {
	msgs := c.seiCache[pts]
	for k := range c.seiCache {
		if k <= pts {
			delete(c.seiCache, k)
		}
	}
	if filter == nil {
		return nil
	}
	for _, m := range msgs {
		if !m.Contains(filter) {
			continue
		}
		if len(m.Payload) > cap(c.seiBuf) {
			c.log.Debug("sei payload exceeds buffer, dropped",
				zap.Int("size", len(m.Payload)), zap.Int("limit", cap(c.seiBuf)))
			return nil
		}
		c.seiBuf = append(c.seiBuf[:0], m.Payload...)
		c.metrics.sei(c.mode)
		return c.seiBuf
	}
	return nil
}

func dropOldest[V any](m map[int64]V) {
	first := true
	var oldest int64
	for k := range m {
		if first || k < oldest {
			oldest, first = k, false
		}
	}
	if !first {
		delete(m, oldest)
	}
}
