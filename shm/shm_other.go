//go:build !linux

package shm

const shmDir = "/dev/shm"

func mapSegment(string, int) ([]byte, error) { return nil, ErrUnsupported }

func unmapSegment([]byte) error { return nil }

// Create is unsupported on this platform.
func Create(string, int) error { return ErrUnsupported }

// Unlink is unsupported on this platform.
func Unlink(string) error { return ErrUnsupported }
