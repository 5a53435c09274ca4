// Package mmfile provides platform-specific helpers for memory-mapping ranges
// of segment files.
package mmfile

import (
	"errors"
	"os"
)

// ErrClosed is returned when a mapping is used after Unmap.
var ErrClosed = errors.New("mmfile: mapping released")

// Mode selects how a range is mapped.
type Mode int

const (
	// ReadOnly maps the range shared and read-only.
	ReadOnly Mode = iota
	// ReadWrite maps the range shared; writes reach the file.
	ReadWrite
	// CopyOnWrite maps the range private; writes stay in this process and
	// never reach the file.
	CopyOnWrite
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	case CopyOnWrite:
		return "cow"
	default:
		return "invalid"
	}
}

// Mapping is a view of a byte range of a file. On unix systems it is an
// mmap, so ReadWrite views are visible to every process mapping the same
// file. Elsewhere it is a heap copy, written back on Sync and Unmap for
// ReadWrite views.
type Mapping struct {
	data []byte
	mode Mode
	f    *os.File // fallback write-back target; nil on unix
	off  int64
}

// Bytes returns the mapped view. The slice is invalid after Unmap.
func (m *Mapping) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.data
}

// Len returns the mapped length.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.data)
}

// Mode returns the mode the view was mapped with.
func (m *Mapping) Mode() Mode { return m.mode }

// Map maps length bytes of f starting at off. off must be a multiple of
// PageSize. A zero length yields an empty mapping that needs no syscall.
func Map(f *os.File, off, length int64, mode Mode) (*Mapping, error) {
	if off < 0 || length < 0 {
		return nil, errors.New("mmfile: negative offset or length")
	}
	if length > int64(^uint(0)>>1) {
		return nil, errors.New("mmfile: range too large to map")
	}
	if mode < ReadOnly || mode > CopyOnWrite {
		return nil, errors.New("mmfile: invalid mode")
	}
	if length == 0 {
		return &Mapping{data: []byte{}, mode: mode}, nil
	}
	return mapRange(f, off, length, mode)
}
