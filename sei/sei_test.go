package sei

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

var testUUID = uuid.MustParse("dc45e9bd-e6d9-48b7-962c-d820d923eeef")

// Minimal access units: parameter sets followed by one slice.
var (
	h264AU = [][]byte{
		{0x67, 0x42, 0x00, 0x1e, 0x95}, // SPS
		{0x68, 0xce, 0x38, 0x80},       // PPS
		{0x65, 0x88, 0x84, 0x00, 0x33}, // IDR slice
	}
	hevcAU = [][]byte{
		{0x40, 0x01, 0x0c}, // VPS
		{0x42, 0x01, 0x01}, // SPS
		{0x44, 0x01, 0xc1}, // PPS
		{0x26, 0x01, 0xaf}, // IDR_W_RADL slice
	}
)

func pack(nals [][]byte, f Framing) []byte {
	var out []byte
	for _, n := range nals {
		out = append(out, Frame(n, f)...)
	}
	return out
}

func TestEPBRoundTrip(t *testing.T) {
	tests := [][]byte{
		{0x00, 0x00, 0x00},
		{0x00, 0x00, 0x01, 0x00, 0x00, 0x02},
		{0x11, 0x00, 0x00, 0x03, 0x00},
		{0xff, 0xfe},
	}
	for _, in := range tests {
		esc := AddEPB(in)
		for i := 0; i+2 < len(esc); i++ {
			if esc[i] == 0 && esc[i+1] == 0 && esc[i+2] <= 0x02 {
				t.Fatalf("%x: start-code emulation left at %d in %x", in, i, esc)
			}
		}
		if got := RemoveEPB(esc); !bytes.Equal(got, in) {
			t.Errorf("RemoveEPB(AddEPB(%x)) = %x", in, got)
		}
	}
}

func TestEncodeMessageSizeCoding(t *testing.T) {
	msg := EncodeMessage(PayloadTypeUserDataUnregistered, make([]byte, 300))
	if msg[0] != 5 || msg[1] != 0xFF || msg[2] != 45 {
		t.Fatalf("header = %x", msg[:3])
	}
	if len(msg) != 3+300 {
		t.Fatalf("len = %d", len(msg))
	}
}

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("frame-42"),
		{0x00, 0x00, 0x01, 0x00, 0x00, 0x00}, // needs emulation prevention
		bytes.Repeat([]byte("x"), 600),       // multi-byte size
	}
	for _, codec := range []Codec{H264, HEVC} {
		au := h264AU
		if codec == HEVC {
			au = hevcAU
		}
		// The configured framing must not leak into a packet framed the
		// other way.
		for _, framing := range []Framing{AnnexB, AVCC} {
			for _, fallback := range []Framing{AnnexB, AVCC} {
				for _, payload := range payloads {
					pkt := Insert(pack(au, framing), codec, BuildNAL(codec, testUUID, payload), fallback)

					if got := PacketFraming(pkt, -1); got != framing {
						t.Fatalf("%v/%v/%v: framing detected as %v", codec, framing, fallback, got)
					}
					if n := len(SplitNALs(pkt, framing)); n != len(au)+1 {
						t.Fatalf("%v/%v/%v: %d units, want %d", codec, framing, fallback, n, len(au)+1)
					}
					msgs := Parse(pkt, codec)
					if len(msgs) != 1 {
						t.Fatalf("%v/%v/%v: got %d messages", codec, framing, fallback, len(msgs))
					}
					if msgs[0].UUID != testUUID {
						t.Errorf("%v/%v/%v: uuid = %v", codec, framing, fallback, msgs[0].UUID)
					}
					if !bytes.Equal(msgs[0].Payload, payload) {
						t.Errorf("%v/%v/%v: payload = %x, want %x", codec, framing, fallback, msgs[0].Payload, payload)
					}
				}
			}
		}
	}
}

func TestPacketFraming(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		fallback Framing
		want     Framing
	}{
		{"annexb", pack(h264AU, AnnexB), AVCC, AnnexB},
		{"three byte start code", []byte{0, 0, 1, 0x65, 0x88}, AVCC, AnnexB},
		{"avcc", pack(h264AU, AVCC), AnnexB, AVCC},
		{"empty", nil, AnnexB, AnnexB},
		{"empty avcc", nil, AVCC, AVCC},
		{"truncated avcc", []byte{0, 0, 0, 9, 0x65}, AnnexB, AnnexB},
		{"trailing bytes", append(pack(h264AU, AVCC), 0x01), AnnexB, AnnexB},
	}
	for _, tt := range tests {
		if got := PacketFraming(tt.data, tt.fallback); got != tt.want {
			t.Errorf("%s: PacketFraming = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInsertEmptyPacketUsesFallback(t *testing.T) {
	nal := BuildNAL(H264, testUUID, []byte("m"))
	for _, f := range []Framing{AnnexB, AVCC} {
		pkt := Insert(nil, H264, nal, f)
		if !bytes.Equal(pkt, Frame(nal, f)) {
			t.Errorf("%v: packet = %x", f, pkt)
		}
	}
}

func TestInsertBeforeFirstSlice(t *testing.T) {
	for _, codec := range []Codec{H264, HEVC} {
		au := h264AU
		if codec == HEVC {
			au = hevcAU
		}
		pkt := Insert(pack(au, AnnexB), codec, BuildNAL(codec, testUUID, []byte("m")), AnnexB)
		nals := SplitNALs(pkt, AnnexB)
		if len(nals) != len(au)+1 {
			t.Fatalf("%v: %d units", codec, len(nals))
		}
		seiAt := len(au) - 1
		if !isSEI(codec, nals[seiAt]) {
			t.Fatalf("%v: unit %d has type %d, want SEI", codec, seiAt, NALType(codec, nals[seiAt]))
		}
		if !IsVCL(codec, nals[seiAt+1]) {
			t.Fatalf("%v: slice does not follow SEI", codec)
		}
		for i := 0; i < seiAt; i++ {
			if !bytes.Equal(nals[i], au[i]) {
				t.Errorf("%v: unit %d changed", codec, i)
			}
		}
	}
}

func TestInsertWithoutSliceAppends(t *testing.T) {
	pkt := Insert(pack(h264AU[:2], AVCC), H264, BuildNAL(H264, testUUID, []byte("m")), AVCC)
	nals := SplitNALs(pkt, AVCC)
	if len(nals) != 3 || !isSEI(H264, nals[2]) {
		t.Fatalf("SEI not appended: %d units", len(nals))
	}
}

func TestSplitThreeByteStartCodes(t *testing.T) {
	data := []byte{0, 0, 1, 0x67, 0xaa, 0, 0, 0, 1, 0x68, 0xbb, 0, 0, 1, 0x65, 0xcc}
	nals := SplitNALs(data, AnnexB)
	want := [][]byte{{0x67, 0xaa}, {0x68, 0xbb}, {0x65, 0xcc}}
	if len(nals) != len(want) {
		t.Fatalf("got %d units", len(nals))
	}
	for i := range want {
		if !bytes.Equal(nals[i], want[i]) {
			t.Errorf("unit %d = %x, want %x", i, nals[i], want[i])
		}
	}
}

func TestParseSkipsOtherPayloads(t *testing.T) {
	// pic_timing (type 1) followed by user data unregistered.
	body := append([]byte{}, testUUID[:]...)
	body = append(body, 'h', 'i')
	rbsp := append(EncodeMessage(1, []byte{0x10, 0x20}), EncodeMessage(5, body)...)
	rbsp = append(rbsp, 0x80)
	nal := append([]byte{h264NALSEI}, AddEPB(rbsp)...)

	msgs := Parse(Frame(nal, AnnexB), H264)
	if len(msgs) != 1 || string(msgs[0].Payload) != "hi" {
		t.Fatalf("msgs = %+v", msgs)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{0, 0, 0, 1, 0x06},
		{0, 0, 0, 1, 0x06, 0x05, 0xFF},
		{0, 0, 0, 1, 0x06, 0x05, 0x40, 0x01},
		{0, 0, 0, 9, 0x06, 0x05},
	} {
		if msgs := Parse(data, H264); len(msgs) != 0 {
			t.Errorf("Parse(%x) = %v", data, msgs)
		}
	}
}

func TestMessageContains(t *testing.T) {
	m := Message{UUID: testUUID, Payload: []byte(`{"cam":"front","ts":17}`)}
	tests := []struct {
		filter []byte
		want   bool
	}{
		{[]byte{}, true},
		{[]byte(`"cam":"front"`), true},
		{[]byte("rear"), false},
		{[]byte(testUUID.String()), true},
		{testUUID[:], true},
		{make([]byte, 16), false},
		{[]byte(uuid.New().String()), false},
	}
	for _, tt := range tests {
		if got := m.Contains(tt.filter); got != tt.want {
			t.Errorf("Contains(%q) = %v", tt.filter, got)
		}
	}
}
