// Package shm maps named POSIX shared-memory segments so frames can be
// exchanged with other processes without copying.
//
// Segments are created by the caller (or Create) and referenced by name.
// Access is unsynchronized: producer and consumer coordinate turns
// themselves.
package shm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange is returned when a region falls outside the segment.
	ErrOutOfRange = errors.New("shm: region out of range")
	// ErrClosed is returned by Region after Close.
	ErrClosed = errors.New("shm: segment closed")
	// ErrUnsupported is returned on platforms without POSIX shared memory.
	ErrUnsupported = errors.New("shm: shared memory not supported on this platform")
)

// Segment is a mapped shared-memory segment with a base offset. Region
// offsets are relative to the base.
type Segment struct {
	name   string
	data   []byte
	offset int
}

// Open maps an existing segment of size bytes read-write. offset is the
// base every Region call is relative to.
func Open(name string, size, offset int) (*Segment, error) {
	if name == "" {
		return nil, errors.New("shm: empty segment name")
	}
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid size %d", size)
	}
	if offset < 0 || offset >= size {
		return nil, fmt.Errorf("%w: base offset %d in segment of %d bytes", ErrOutOfRange, offset, size)
	}
	data, err := mapSegment(Path(name), size)
	if err != nil {
		return nil, fmt.Errorf("shm: open %q: %w", name, err)
	}
	return &Segment{name: name, data: data, offset: offset}, nil
}

// Path returns the file backing a segment name. A leading "/" as used by
// shm_open is accepted.
func Path(name string) string {
	return shmDir + "/" + strings.TrimLeft(name, "/")
}

// Name returns the segment name.
func (s *Segment) Name() string { return s.name }

// Size returns the mapped size in bytes.
func (s *Segment) Size() int { return len(s.data) }

// Offset returns the base offset.
func (s *Segment) Offset() int { return s.offset }

// Region returns n bytes at base+offset. The slice aliases the mapping and
// is invalid after Close.
func (s *Segment) Region(offset, n int) ([]byte, error) {
	if s.data == nil {
		return nil, ErrClosed
	}
	start := s.offset + offset
	if offset < 0 || n < 0 || start > len(s.data) || n > len(s.data)-start {
		return nil, fmt.Errorf("%w: %d bytes at %d+%d in segment of %d bytes",
			ErrOutOfRange, n, s.offset, offset, len(s.data))
	}
	return s.data[start : start+n : start+n], nil
}

// Close unmaps the segment. The segment itself is left for its owner.
// Closing twice is a no-op.
func (s *Segment) Close() error {
	if s.data == nil {
		return nil
	}
	data := s.data
	s.data = nil
	return unmapSegment(data)
}
