//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// PageSize returns the mapping granularity of the host.
func PageSize() int64 {
	return int64(unix.Getpagesize())
}

func mapRange(f *os.File, off, length int64, mode Mode) (*Mapping, error) {
	prot, flags := unix.PROT_READ, unix.MAP_SHARED
	switch mode {
	case ReadWrite:
		prot |= unix.PROT_WRITE
	case CopyOnWrite:
		prot |= unix.PROT_WRITE
		flags = unix.MAP_PRIVATE
	}
	data, err := unix.Mmap(int(f.Fd()), off, int(length), prot, flags)
	if err != nil {
		return nil, fmt.Errorf("mmap %s [%d,+%d) %s: %w", f.Name(), off, length, mode, err)
	}
	return &Mapping{data: data, mode: mode, off: off}, nil
}

// Sync flushes a ReadWrite mapping to its backing file.
func (m *Mapping) Sync() error {
	if m == nil || m.data == nil {
		return ErrClosed
	}
	if m.mode != ReadWrite || len(m.data) == 0 {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Unmap releases the view. Calling it twice is a no-op.
func (m *Mapping) Unmap() error {
	if m == nil || m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if len(data) == 0 {
		return nil
	}
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
