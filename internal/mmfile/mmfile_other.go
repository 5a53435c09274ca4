//go:build !unix

package mmfile

import (
	"fmt"
	"io"
	"os"
)

// PageSize returns the granularity used for region layout when mmap is not
// available.
func PageSize() int64 {
	return int64(os.Getpagesize())
}

// mapRange reads the range into memory when mmap isn't used.
func mapRange(f *os.File, off, length int64, mode Mode) (*Mapping, error) {
	data := make([]byte, length)
	if _, err := f.ReadAt(data, off); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s [%d,+%d): %w", f.Name(), off, length, err)
	}
	m := &Mapping{data: data, mode: mode, off: off}
	if mode == ReadWrite {
		m.f = f
	}
	return m, nil
}

// Sync writes a ReadWrite view back to its file.
func (m *Mapping) Sync() error {
	if m == nil || m.data == nil {
		return ErrClosed
	}
	if m.f == nil || len(m.data) == 0 {
		return nil
	}
	if _, err := m.f.WriteAt(m.data, m.off); err != nil {
		return err
	}
	return m.f.Sync()
}

// Unmap writes back a ReadWrite view and drops it.
func (m *Mapping) Unmap() error {
	if m == nil || m.data == nil {
		return nil
	}
	var err error
	if m.f != nil && len(m.data) > 0 {
		_, err = m.f.WriteAt(m.data, m.off)
	}
	m.data = nil
	m.f = nil
	return err
}
