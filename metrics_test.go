//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// gather returns the value of the metric name with the given labels, or
// -1 when it was never recorded.
func gather(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if labels[l.GetName()] != l.GetValue() {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return -1
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	decode := map[string]string{"mode": "decode"}

	b := newDecodeBackend(2, 4, 2)
	c := openDecode(t, b, Config{}, WithMetrics(m))
	if got := gather(t, reg, "ffio_active_contexts", decode); got != 1 {
		t.Errorf("active contexts = %v, want 1", got)
	}

	c.DecodeOneFrame(nil)
	b.dec.sendErr = errInjected
	c.DecodeOneFrame(nil)
	b.dec.sendErr = nil
	c.DecodeOneFrame(nil) // EOF: the failed packet was consumed
	c.DecodeOneFrame(nil)

	if got := gather(t, reg, "ffio_frames_total", decode); got != 1 {
		t.Errorf("frames = %v, want 1", got)
	}
	if got := gather(t, reg, "ffio_frame_duration_seconds", decode); got != 1 {
		t.Errorf("latency samples = %v, want 1", got)
	}
	failures := map[string]string{"mode": "decode", "code": "-98"}
	if got := gather(t, reg, "ffio_failures_total", failures); got != 1 {
		t.Errorf("send failures = %v, want 1", got)
	}
	if got := gather(t, reg, "ffio_end_of_stream_total", nil); got != 1 {
		t.Errorf("end of stream = %v, want 1", got)
	}

	c.Finalize()
	if got := gather(t, reg, "ffio_active_contexts", decode); got != 0 {
		t.Errorf("active contexts after Finalize = %v, want 0", got)
	}

	bad := newDecodeBackend(1, 4, 2)
	bad.openErr = errInjected
	New(WithBackend(bad), WithMetrics(m)).Initialize(ModeDecode, "in.mp4", false, false, "", false, "", 0, 0, CodecParams{})
	ok := map[string]string{"mode": "decode", "result": "ok"}
	failed := map[string]string{"mode": "decode", "result": "-94"}
	if gather(t, reg, "ffio_initializations_total", ok) != 1 || gather(t, reg, "ffio_initializations_total", failed) != 1 {
		t.Error("initializations not counted by result")
	}
}

func TestMetricsSEI(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	eb := &fakeBackend{}
	params := DefaultParams(4, 2, 25)
	params.UseAnnexBSEI = true
	enc := openEncode(t, eb, "out.mp4", params, WithMetrics(m))
	img := make([]byte, enc.ImageByteSize())
	enc.EncodeOneFrame(img, []byte("a"))
	enc.EncodeOneFrame(img, nil)
	enc.Finalize()

	dec := openDecode(t, decodeBackendFrom(eb.enc), Config{}, WithMetrics(m))
	dec.DecodeOneFrame([]byte("a"))

	for mode, want := range map[string]float64{"encode": 1, "decode": 1} {
		if got := gather(t, reg, "ffio_sei_messages_total", map[string]string{"mode": mode}); got != want {
			t.Errorf("%s sei = %v, want %v", mode, got, want)
		}
	}
	if got := gather(t, reg, "ffio_frames_total", map[string]string{"mode": "encode"}); got != 2 {
		t.Errorf("encoded frames = %v, want 2", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.frame(ModeDecode, time.Now())
	m.failure(ModeEncode, SwsFailure)
	m.sei(ModeDecode)
	m.initialized(ModeDecode, nil)
	m.finalized(ModeDecode)
	m.eof()
}
