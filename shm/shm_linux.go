//go:build linux

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const shmDir = "/dev/shm"

func mapSegment(path string, size int) ([]byte, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, err
	}
	if st.Size < int64(size) {
		return nil, fmt.Errorf("segment is %d bytes, need %d", st.Size, size)
	}
	return unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func unmapSegment(data []byte) error {
	return unix.Munmap(data)
}

// Create creates (or resizes) a zero-filled segment of size bytes.
func Create(name string, size int) error {
	fd, err := unix.Open(Path(name), unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return fmt.Errorf("shm: create %q: %w", name, err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return fmt.Errorf("shm: truncate %q: %w", name, err)
	}
	return nil
}

// Unlink removes a segment. A missing segment is not an error.
func Unlink(name string) error {
	if err := unix.Unlink(Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("shm: unlink %q: %w", name, err)
	}
	return nil
}
