// Package sei builds and parses user-data-unregistered SEI NAL units for
// H.264 and HEVC, in Annex-B or AVCC (4-byte length) framing.
package sei

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
)

// Codec selects the NAL header syntax.
type Codec int

const (
	H264 Codec = iota
	HEVC
)

// String returns the codec name.
func (c Codec) String() string {
	if c == HEVC {
		return "hevc"
	}
	return "h264"
}

// Framing is how NAL units are delimited inside a packet.
type Framing int

const (
	// AnnexB prefixes each unit with a 00 00 00 01 start code.
	AnnexB Framing = iota
	// AVCC prefixes each unit with its 4-byte big-endian length.
	AVCC
)

// String returns the framing name.
func (f Framing) String() string {
	if f == AVCC {
		return "avcc"
	}
	return "annexb"
}

// PayloadTypeUserDataUnregistered is the SEI payload type carrying a UUID
// followed by arbitrary bytes.
const PayloadTypeUserDataUnregistered = 5

// NAL unit types.
const (
	h264NALSEI       = 6
	hevcNALSEIPrefix = 39
	hevcNALSEISuffix = 40
)

var startCode = []byte{0, 0, 0, 1}

// Message is one user-data-unregistered SEI message.
type Message struct {
	UUID    uuid.UUID
	Payload []byte
}

// Contains reports whether the message matches a filter: either the
// payload contains filter, or filter is the UUID in raw or textual form.
// An empty filter matches every message.
func (m Message) Contains(filter []byte) bool {
	if len(filter) == 0 || bytes.Contains(m.Payload, filter) {
		return true
	}
	if len(filter) == 16 {
		return uuid.UUID(filter) == m.UUID
	}
	id, err := uuid.ParseBytes(filter)
	return err == nil && id == m.UUID
}

// EncodeMessage encodes an SEI message header (payload type and size with
// 0xFF run coding) followed by the payload.
func EncodeMessage(payloadType int, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2+len(payload)/255)
	pt := payloadType
	for pt >= 255 {
		out = append(out, 0xFF)
		pt -= 255
	}
	out = append(out, byte(pt))

	ps := len(payload)
	for ps >= 255 {
		out = append(out, 0xFF)
		ps -= 255
	}
	out = append(out, byte(ps))
	return append(out, payload...)
}

// AddEPB inserts emulation prevention bytes: 0x03 before any byte <= 0x03
// that follows two zero bytes.
func AddEPB(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/64)
	zeroCount := 0
	for _, b := range data {
		if zeroCount >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeroCount = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeroCount++
		} else {
			zeroCount = 0
		}
	}
	return out
}

// RemoveEPB strips emulation prevention bytes (00 00 03 -> 00 00).
func RemoveEPB(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+2 < len(data) && data[i] == 0x00 && data[i+1] == 0x00 && data[i+2] == 0x03 &&
			(i+3 >= len(data) || data[i+3] <= 0x03) {
			out = append(out, 0x00, 0x00)
			i += 2
		} else {
			out = append(out, data[i])
		}
	}
	return out
}

// BuildNAL returns an unframed SEI NAL unit carrying msg under id.
func BuildNAL(codec Codec, id uuid.UUID, msg []byte) []byte {
	body := make([]byte, 0, len(id)+len(msg))
	body = append(body, id[:]...)
	body = append(body, msg...)

	rbsp := EncodeMessage(PayloadTypeUserDataUnregistered, body)
	rbsp = append(rbsp, 0x80) // rbsp_trailing_bits

	var nal []byte
	if codec == HEVC {
		nal = []byte{hevcNALSEIPrefix << 1, 0x01}
	} else {
		nal = []byte{h264NALSEI}
	}
	return append(nal, AddEPB(rbsp)...)
}

// Frame prefixes a NAL unit for the given framing.
func Frame(nal []byte, f Framing) []byte {
	out := make([]byte, 4, len(nal)+4)
	if f == AVCC {
		binary.BigEndian.PutUint32(out, uint32(len(nal)))
	} else {
		copy(out, startCode)
	}
	return append(out, nal...)
}

// DetectFraming guesses the framing of a packet: a leading 3- or 4-byte
// start code means Annex-B, otherwise AVCC.
func DetectFraming(data []byte) Framing {
	if len(data) >= 3 && data[0] == 0 && data[1] == 0 {
		if data[2] == 1 || (len(data) >= 4 && data[2] == 0 && data[3] == 1) {
			return AnnexB
		}
	}
	return AVCC
}

// SplitNALs returns the units of a packet without their prefixes. The
// returned slices alias data. Truncated AVCC units end the walk.
func SplitNALs(data []byte, f Framing) [][]byte {
	if f == AVCC {
		var nals [][]byte
		for len(data) >= 4 {
			n := int(binary.BigEndian.Uint32(data))
			data = data[4:]
			if n <= 0 || n > len(data) {
				break
			}
			nals = append(nals, data[:n])
			data = data[n:]
		}
		return nals
	}

	starts := findNALStarts(data)
	nals := make([][]byte, 0, len(starts))
	for i, s := range starts {
		end := len(data)
		if i+1 < len(starts) {
			// Back up over the next start code and any zero padding.
			end = starts[i+1] - 1
			for end > s && data[end-1] == 0 {
				end--
			}
		}
		if end > s {
			nals = append(nals, data[s:end])
		}
	}
	return nals
}

// findNALStarts returns the offsets just past each 3- or 4-byte start code.
func findNALStarts(data []byte) []int {
	var starts []int
	for i := 0; i+2 < len(data); i++ {
		if data[i] != 0 || data[i+1] != 0 {
			continue
		}
		if data[i+2] == 1 {
			starts = append(starts, i+3)
			i += 2
		} else if i+3 < len(data) && data[i+2] == 0 && data[i+3] == 1 {
			starts = append(starts, i+4)
			i += 3
		}
	}
	return starts
}

// NALType returns the unit type of a NAL for codec.
func NALType(codec Codec, nal []byte) int {
	if len(nal) == 0 {
		return -1
	}
	if codec == HEVC {
		return int(nal[0]>>1) & 0x3F
	}
	return int(nal[0] & 0x1F)
}

// IsVCL reports whether nal is a coded slice.
func IsVCL(codec Codec, nal []byte) bool {
	t := NALType(codec, nal)
	if codec == HEVC {
		return t >= 0 && t <= 31
	}
	return t >= 1 && t <= 5
}

func isSEI(codec Codec, nal []byte) bool {
	t := NALType(codec, nal)
	if codec == HEVC {
		return t == hevcNALSEIPrefix || t == hevcNALSEISuffix
	}
	return t == h264NALSEI
}

// PacketFraming returns the framing a packet is written in: Annex-B when
// it starts with a start code, AVCC when its length prefixes cover it
// exactly. Packets that are neither get fallback.
func PacketFraming(data []byte, fallback Framing) Framing {
	if DetectFraming(data) == AnnexB {
		return AnnexB
	}
	if validAVCC(data) {
		return AVCC
	}
	return fallback
}

func validAVCC(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for len(data) > 0 {
		if len(data) < 4 {
			return false
		}
		n := int(binary.BigEndian.Uint32(data))
		data = data[4:]
		if n <= 0 || n > len(data) {
			return false
		}
		data = data[n:]
	}
	return true
}

// Insert returns a copy of packet with seiNAL placed before its first VCL
// unit, or at the end when there is none. The SEI unit is framed like the
// rest of the packet; fallback is used only when the packet's framing
// cannot be told, such as for an empty packet.
func Insert(packet []byte, codec Codec, seiNAL []byte, fallback Framing) []byte {
	pf := PacketFraming(packet, fallback)
	nals := SplitNALs(packet, pf)

	out := make([]byte, 0, len(packet)+len(seiNAL)+8)
	inserted := false
	for _, nal := range nals {
		if !inserted && IsVCL(codec, nal) {
			out = append(out, Frame(seiNAL, pf)...)
			inserted = true
		}
		out = append(out, Frame(nal, pf)...)
	}
	if !inserted {
		out = append(out, Frame(seiNAL, pf)...)
	}
	return out
}

// Parse returns the user-data-unregistered messages found in a packet.
// Payloads are copies; malformed units are skipped.
func Parse(packet []byte, codec Codec) []Message {
	var msgs []Message
	for _, nal := range SplitNALs(packet, DetectFraming(packet)) {
		if !isSEI(codec, nal) {
			continue
		}
		hdr := 1
		if codec == HEVC {
			hdr = 2
		}
		if len(nal) <= hdr {
			continue
		}
		msgs = append(msgs, parseRBSP(RemoveEPB(nal[hdr:]))...)
	}
	return msgs
}

func parseRBSP(rbsp []byte) []Message {
	var msgs []Message
	for moreData(rbsp) {
		pt, n := readRun(rbsp)
		if n == 0 {
			return msgs
		}
		rbsp = rbsp[n:]
		size, n := readRun(rbsp)
		if n == 0 {
			return msgs
		}
		rbsp = rbsp[n:]
		if size > len(rbsp) {
			return msgs
		}
		body := rbsp[:size]
		rbsp = rbsp[size:]

		if pt != PayloadTypeUserDataUnregistered || len(body) < 16 {
			continue
		}
		var m Message
		copy(m.UUID[:], body[:16])
		m.Payload = append([]byte(nil), body[16:]...)
		msgs = append(msgs, m)
	}
	return msgs
}

// moreData reports whether rbsp holds more than the trailing bits.
func moreData(rbsp []byte) bool {
	if len(rbsp) == 0 {
		return false
	}
	if rbsp[0] != 0x80 {
		return true
	}
	for _, b := range rbsp[1:] {
		if b != 0 {
			return true
		}
	}
	return false
}

// readRun decodes a 0xFF run coded value and returns it with the number
// of bytes consumed, or 0 consumed when data ends mid-value.
func readRun(data []byte) (v, n int) {
	for n < len(data) {
		b := data[n]
		n++
		v += int(b)
		if b != 0xFF {
			return v, n
		}
	}
	return 0, 0
}
