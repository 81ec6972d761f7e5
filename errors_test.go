//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCodeValues(t *testing.T) {
	// The numeric values are part of the public surface.
	want := map[Code]int{
		NotAvailable: -100, RecvFromCodec: -99, SendToCodec: -98, ReadOrWriteTarget: -97,
		StreamEOF: -96, FrameAllocation: -95, AvformatFailure: -94, AvcodecFailure: -93,
		ShmFailure: -92, SwsFailure: -91, HardwareAcceleration: -90, WrongCodecParams: -89,
	}
	for code, v := range want {
		if int(code) != v {
			t.Errorf("%s = %d, want %d", code, int(code), v)
		}
		if strings.HasPrefix(code.String(), "code(") {
			t.Errorf("%d has no name", v)
		}
	}
	if Code(-5).String() != "code(-5)" {
		t.Errorf("unknown code string = %q", Code(-5).String())
	}
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", newError(SwsFailure, "convert", cause))

	if !errors.Is(err, SwsFailure) {
		t.Error("errors.Is did not match the code")
	}
	if errors.Is(err, ShmFailure) {
		t.Error("errors.Is matched the wrong code")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable")
	}
	if CodeOf(err) != SwsFailure {
		t.Errorf("CodeOf = %s", CodeOf(err))
	}
	if got := newError(ShmFailure, "open shm", cause).Error(); got != "ffio: open shm: shared memory failure: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != Success {
		t.Error("nil is not Success")
	}
	if CodeOf(errors.New("plain")) != NotAvailable {
		t.Error("plain error is not NotAvailable")
	}
	if CodeOf(StreamEOF) != StreamEOF {
		t.Error("bare code not recognized")
	}
}

func TestWrapKeepsExistingCode(t *testing.T) {
	if wrap(AvcodecFailure, "op", nil) != nil {
		t.Fatal("wrap(nil) is not nil")
	}
	inner := newError(WrongCodecParams, "find encoder", errors.New("unknown"))
	if CodeOf(wrap(AvcodecFailure, "open encoder", inner)) != WrongCodecParams {
		t.Error("wrap replaced an existing code")
	}
	if CodeOf(wrap(AvcodecFailure, "open encoder", errors.New("x"))) != AvcodecFailure {
		t.Error("wrap did not attach the code")
	}
}
