//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"errors"
	"fmt"
	"syscall"
)

// AVERROR values the engine distinguishes.
const (
	AVERROR_EOF               int32 = -541478725
	AVERROR_EAGAIN            int32 = -int32(syscall.EAGAIN)
	AVERROR_EINVAL            int32 = -int32(syscall.EINVAL)
	AVERROR_ENOMEM            int32 = -int32(syscall.ENOMEM)
	AVERROR_ENCODER_NOT_FOUND int32 = -1129203192
	AVERROR_INVALIDDATA       int32 = -1094995529
)

// Error is a failed FFmpeg call.
type Error struct {
	Code    int32  // raw FFmpeg return value
	Message string // av_strerror text
	Op      string // C function that failed
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// Is matches another *Error by code, so errors.Is(err, ErrEOF) works
// whatever the failing operation was.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrEOF   = &Error{Code: AVERROR_EOF, Message: "end of file"}
	ErrAgain = &Error{Code: AVERROR_EAGAIN, Message: "resource temporarily unavailable"}
)

// NewError wraps a negative FFmpeg return code. Non-negative codes yield nil.
func NewError(code int32, op string) error {
	if code >= 0 {
		return nil
	}
	return &Error{
		Code:    code,
		Message: ErrorString(code),
		Op:      op,
	}
}

// IsEOF returns true if the error is AVERROR_EOF.
func IsEOF(err error) bool {
	return Code(err) == AVERROR_EOF
}

// IsAgain returns true if the error is AVERROR(EAGAIN): more input is needed.
func IsAgain(err error) bool {
	return Code(err) == AVERROR_EAGAIN
}

// Code returns the FFmpeg code carried by err, or 0.
func Code(err error) int32 {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code
	}
	return 0
}
