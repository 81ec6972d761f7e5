//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/obinnaokechukwu/ffio/pts"
)

// Mode is the direction a Context works in. It is fixed at Initialize.
type Mode int

const (
	ModeDecode Mode = iota
	ModeEncode

	// ModeUnset is the mode of a context that has not been initialized.
	ModeUnset Mode = -1
)

// String returns "decode", "encode" or "unset".
func (m Mode) String() string {
	switch m {
	case ModeDecode:
		return "decode"
	case ModeEncode:
		return "encode"
	case ModeUnset:
		return "unset"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts "decode", "decoder", "encode" and "encoder".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "decode", "decoder":
		return ModeDecode, nil
	case "encode", "encoder":
		return ModeEncode, nil
	}
	return ModeDecode, fmt.Errorf("ffio: invalid mode %q", s)
}

// MaxParamLength bounds every string field of CodecParams.
const MaxParamLength = 24

// Encoder defaults applied to empty fields.
const (
	DefaultCodec  = "libx264"
	DefaultPixFmt = "yuv420p"
)

// DefaultSEIUUID tags SEI messages when CodecParams.SEIUUID is unset.
var DefaultSEIUUID = uuid.MustParse("a8f1e4a2-3c62-4f0e-9b7d-6c1f0d9e2b57")

// CodecParams configures a Context. Encoders use every field; decoders
// only honour Flags, Flags2, SEIUUID and UseAnnexBSEI.
type CodecParams struct {
	Width      int
	Height     int
	Bitrate    int
	MaxBitrate int
	FPS        int
	GOP        int
	BFrames    int
	PTSTrick   pts.Trick

	Flags   string // codec "flags" option, e.g. "+low_delay"
	Flags2  string // codec "flags2" option
	Profile string
	Preset  string
	Tune    string
	PixFmt  string // codec-side pixel format
	Format  string // container; guessed from the URL when empty
	Codec   string // encoder name

	SEIUUID      uuid.UUID
	UseAnnexBSEI bool // SEI framing for packets whose own framing cannot be detected
}

// DefaultParams returns encoder parameters for a width x height stream at fps.
func DefaultParams(width, height, fps int) CodecParams {
	return CodecParams{
		Width:    width,
		Height:   height,
		FPS:      fps,
		GOP:      fps,
		PTSTrick: pts.Auto,
		Codec:    DefaultCodec,
		PixFmt:   DefaultPixFmt,
	}
}

func (p CodecParams) strings() map[string]string {
	return map[string]string{
		"flags":   p.Flags,
		"flags2":  p.Flags2,
		"profile": p.Profile,
		"preset":  p.Preset,
		"tune":    p.Tune,
		"pix_fmt": p.PixFmt,
		"format":  p.Format,
		"codec":   p.Codec,
	}
}

// Validate checks the parameters for mode. Failures carry WrongCodecParams.
// Backend-dependent checks (known codec and pixel format) happen in
// Initialize.
func (p CodecParams) Validate(mode Mode) error {
	fail := func(format string, args ...any) error {
		return newError(WrongCodecParams, "validate", fmt.Errorf(format, args...))
	}
	for name, v := range p.strings() {
		if len(v) > MaxParamLength {
			return fail("%s is %d bytes, limit %d", name, len(v), MaxParamLength)
		}
	}

	switch mode {
	case ModeDecode:
		if p.Width != 0 || p.Height != 0 || p.Bitrate != 0 || p.MaxBitrate != 0 ||
			p.FPS != 0 || p.GOP != 0 || p.BFrames != 0 {
			return fail("decode mode only accepts flags, flags2, sei uuid and annexb sei")
		}
		if p.PTSTrick != pts.Auto && p.PTSTrick != pts.Even {
			return fail("decode mode does not take a pts trick")
		}
		for name, v := range p.strings() {
			if v != "" && name != "flags" && name != "flags2" {
				return fail("decode mode does not take %s", name)
			}
		}
		return nil

	case ModeEncode:
		if p.Width <= 0 || p.Height <= 0 {
			return fail("invalid geometry %dx%d", p.Width, p.Height)
		}
		if p.FPS <= 0 || p.FPS > 1000 {
			return fail("fps %d outside (0, 1000]", p.FPS)
		}
		if p.GOP < 0 || p.BFrames < 0 {
			return fail("negative gop %d or b_frames %d", p.GOP, p.BFrames)
		}
		if p.Bitrate < 0 || p.MaxBitrate < 0 {
			return fail("negative bitrate")
		}
		if p.Bitrate > 0 && p.MaxBitrate > 0 && p.Bitrate > p.MaxBitrate {
			return fail("bitrate %d above max_bitrate %d", p.Bitrate, p.MaxBitrate)
		}
		if !p.PTSTrick.Valid() {
			return fail("unknown pts trick %d", int(p.PTSTrick))
		}
		return nil
	}
	return fail("unknown mode %d", int(mode))
}

// withDefaults fills empty encoder fields. Decode parameters are returned
// unchanged: a nil SEIUUID there accepts messages under any UUID.
func (p CodecParams) withDefaults(mode Mode, url string) CodecParams {
	if mode != ModeEncode {
		return p
	}
	if p.SEIUUID == uuid.Nil {
		p.SEIUUID = DefaultSEIUUID
	}
	if p.Codec == "" {
		p.Codec = DefaultCodec
	}
	if p.PixFmt == "" {
		p.PixFmt = DefaultPixFmt
	}
	if p.Format == "" {
		p.Format = GuessFormat(url)
	}
	if p.PTSTrick == pts.Auto {
		p.PTSTrick = pts.AutoTrick(url)
	}
	return p
}
