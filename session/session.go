// Package session defines the host interpreter session a segment is
// materialized into, and provides Memory, an in-process implementation used
// by tools and tests.
package session

import (
	"errors"

	"github.com/joshuapare/dfseg/bridge"
)

var (
	// ErrAllocRefused indicates the session declined an allocation.
	ErrAllocRefused = errors.New("session: allocation refused")
	// ErrForeignBuffer indicates a buffer not allocated by this session.
	ErrForeignBuffer = errors.New("session: buffer not owned by session")
	// ErrBackingSize indicates a substitute backing of the wrong length.
	ErrBackingSize = errors.New("session: backing length does not match buffer")
	// ErrInterpret indicates raw bytes could not be decoded into a value.
	ErrInterpret = errors.New("session: cannot interpret payload")
	// ErrClosed indicates use of a session after Close.
	ErrClosed = errors.New("session: closed")
)

// Session is the host runtime a segment payload is handed to.
type Session interface {
	// Alloc returns a raw buffer of exactly n bytes for an opaque value.
	Alloc(n int64) (*Buffer, error)
	// Substitute replaces buf's backing bytes with backing, which must have
	// the same length. The session calls release when it drops the buffer.
	Substitute(buf *Buffer, backing []byte, release func() error) error
	// Interpret decodes the buffer into a structured value.
	Interpret(buf *Buffer) (any, error)
	// Bind makes v visible under name.
	Bind(name string, v any) error
}

// Buffer is a raw byte buffer owned by a session.
type Buffer struct {
	data        []byte
	release     func() error
	substituted bool
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the buffer length.
func (b *Buffer) Len() int { return len(b.data) }

// Addr returns the address of the first byte, or 0 when empty.
func (b *Buffer) Addr() uintptr { return bridge.Addr(b.data) }

// Substituted reports whether the backing bytes were replaced.
func (b *Buffer) Substituted() bool { return b.substituted }
