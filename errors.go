//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"errors"
	"fmt"
)

// Code is the closed set of engine status codes. The values are stable and
// match the C surface of earlier releases. Code implements error so it can
// be used as an errors.Is target.
type Code int

const (
	Success              Code = 0
	NotAvailable         Code = -100
	RecvFromCodec        Code = -99
	SendToCodec          Code = -98
	ReadOrWriteTarget    Code = -97
	StreamEOF            Code = -96
	FrameAllocation      Code = -95
	AvformatFailure      Code = -94
	AvcodecFailure       Code = -93
	ShmFailure           Code = -92
	SwsFailure           Code = -91
	HardwareAcceleration Code = -90
	WrongCodecParams     Code = -89
)

var codeNames = map[Code]string{
	Success:              "success",
	NotAvailable:         "not available",
	RecvFromCodec:        "receive from codec",
	SendToCodec:          "send to codec",
	ReadOrWriteTarget:    "read or write target",
	StreamEOF:            "stream eof",
	FrameAllocation:      "frame allocation",
	AvformatFailure:      "avformat failure",
	AvcodecFailure:       "avcodec failure",
	ShmFailure:           "shared memory failure",
	SwsFailure:           "pixel conversion failure",
	HardwareAcceleration: "hardware acceleration",
	WrongCodecParams:     "wrong codec params",
}

// String returns a short description of the code.
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error implements error.
func (c Code) Error() string {
	return "ffio: " + c.String()
}

// Error is a failed engine operation: the status code, the step that
// failed and the underlying cause (an *avutil.Error for FFmpeg failures).
type Error struct {
	Code Code
	Op   string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ffio: %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("ffio: %s: %s", e.Op, e.Code)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches a Code target, so errors.Is(err, ffio.SwsFailure) works.
func (e *Error) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.Code
}

func newError(code Code, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Err: cause}
}

// CodeOf returns the status code carried by err: Success for nil and
// NotAvailable when err carries no code.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return NotAvailable
}
