//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"
	"time"

	"github.com/obinnaokechukwu/ffio/sei"
	"go.uber.org/zap"
)

// EncodeOneFrame encodes one RGB24 image of exactly ImageByteSize bytes.
// A non-empty seiMsg is attached to the frame as a user-data SEI message
// tagged with the configured UUID.
//
// The frame counts toward FrameSeq once the codec accepts it. A later
// failure to write its packets still returns ReadOrWriteTarget, with the
// sequence already advanced.
func (c *Context) EncodeOneFrame(rgb []byte, seiMsg []byte) error {
	if err := c.checkEncode("encode"); err != nil {
		return err
	}
	if len(rgb) != c.imageSize {
		return c.encodeFailed(newError(WrongCodecParams, "encode",
			fmt.Errorf("image is %d bytes, want %d", len(rgb), c.imageSize)))
	}
	return c.encode(rgb, seiMsg)
}

// EncodeOneFrameFromShm encodes the image stored in the shared segment at
// offset, relative to the base offset given to Initialize.
func (c *Context) EncodeOneFrameFromShm(offset int, seiMsg []byte) error {
	if err := c.checkEncode("encode from shm"); err != nil {
		return err
	}
	if c.shm == nil {
		return c.encodeFailed(newError(ShmFailure, "encode from shm", errors.New("shared memory not enabled")))
	}
	region, err := c.shm.Region(offset, c.imageSize)
	if err != nil {
		return c.encodeFailed(newError(ShmFailure, "encode from shm", err))
	}
	return c.encode(region, seiMsg)
}

func (c *Context) checkEncode(op string) error {
	if c.mode != ModeEncode || (c.state != StateReady && c.state != StateRunning) {
		return newError(NotAvailable, op, fmt.Errorf("%s context is %s", c.mode, c.state))
	}
	return nil
}

func (c *Context) encodeFailed(err error) error {
	code := CodeOf(err)
	c.metrics.failure(c.mode, code)
	c.log.Debug("encode failed", zap.Int64("seq", c.seq), zap.Stringer("code", code), zap.Error(err))
	return err
}

func (c *Context) encode(src, seiMsg []byte) error {
	start := time.Now()

	v, err := c.pts.Next(c.seq, c.now(), c.ptsAnchor)
	if err != nil {
		return c.encodeFailed(newError(WrongCodecParams, "next pts", err))
	}
	pic, err := c.fromRGB(src)
	if err != nil {
		return c.encodeFailed(err)
	}

	if len(seiMsg) > 0 {
		if len(c.pendingSEI) >= maxSEIEntries {
			dropOldest(c.pendingSEI)
		}
		c.pendingSEI[v] = sei.BuildNAL(c.seiCodec, c.params.SEIUUID, seiMsg)
	}
	if err := c.enc.SendFrame(pic, v); err != nil {
		delete(c.pendingSEI, v)
		return c.encodeFailed(wrap(AvcodecFailure, "send frame", err))
	}
	c.pts.Commit(v)
	c.seq++
	c.state = StateRunning

	if err := c.drain(); err != nil {
		return c.encodeFailed(err)
	}
	c.metrics.frame(c.mode, start)
	c.log.Debug("encoded", zap.Int64("seq", c.seq-1), zap.Int64("pts", v), zap.Int("sei", len(seiMsg)))
	return nil
}

// fromRGB fills a codec picture from packed RGB24, on the device or on
// the host followed by an upload when the codec runs on the accelerator.
func (c *Context) fromRGB(src []byte) (Picture, error) {
	if c.pixFmtHWEnabled {
		pic, err := c.enc.Picture(true)
		if err != nil {
			return nil, wrap(HardwareAcceleration, "device picture", err)
		}
		bufs, release, err := acquireDevice(c.device, c.width, c.height)
		defer release()
		if err != nil {
			return nil, newError(HardwareAcceleration, "acquire device buffers", err)
		}
		if bufs.FromRGB == nil {
			return nil, newError(SwsFailure, "convert from rgb", errors.New("device converter cannot convert from rgb"))
		}
		if err := bufs.FromRGB(pic, src); err != nil {
			return nil, wrap(SwsFailure, "convert from rgb", err)
		}
		return pic, nil
	}

	pic, err := c.enc.Picture(false)
	if err != nil {
		return nil, wrap(FrameAllocation, "host picture", err)
	}
	if err := c.conv.FromRGB(pic, src); err != nil {
		return nil, wrap(SwsFailure, "convert from rgb", err)
	}
	if c.hwEnabled {
		if pic, err = c.enc.Upload(pic); err != nil {
			return nil, wrap(HardwareAcceleration, "upload", err)
		}
	}
	return pic, nil
}

// drain writes every packet the encoder has ready, inserting pending SEI
// units into the packets with matching timestamps. SEI units follow the
// packet's framing; UseAnnexBSEI decides only when the packet shows none.
func (c *Context) drain() error {
	fallback := sei.AVCC
	if c.params.UseAnnexBSEI {
		fallback = sei.AnnexB
	}
	for {
		pkt, err := c.enc.ReceivePacket()
		if errors.Is(err, ErrAgain) || errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return wrap(AvcodecFailure, "receive packet", err)
		}
		if nal, ok := c.pendingSEI[pkt.PTS]; ok {
			pkt.Data = sei.Insert(pkt.Data, c.seiCodec, nal, fallback)
			delete(c.pendingSEI, pkt.PTS)
			c.metrics.sei(c.mode)
		}
		if err := c.enc.WritePacket(pkt); err != nil {
			return wrap(ReadOrWriteTarget, "write packet", err)
		}
	}
}
