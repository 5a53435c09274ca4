package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/joshuapare/dfseg/internal/logger"
)

// DefaultMaxAlloc bounds a single Memory allocation.
const DefaultMaxAlloc = int64(1) << 40

// Decoder turns raw payload bytes into a session value.
type Decoder func(raw []byte) (any, error)

// Opaque is the default Decoder: the value is the raw bytes themselves.
func Opaque(raw []byte) (any, error) { return raw, nil }

// MemoryOptions configures a Memory session.
type MemoryOptions struct {
	Allocator Allocator    // default HeapAllocator
	Decoder   Decoder      // default Opaque
	MaxAlloc  int64        // default DefaultMaxAlloc
	Logger    *slog.Logger // default logger.L
}

// Memory is an in-process Session holding bound values in a map.
//
// NOT thread-safe.
type Memory struct {
	alloc    Allocator
	decode   Decoder
	maxAlloc int64
	log      *slog.Logger

	owned  map[*Buffer]struct{}
	vars   map[string]any
	closed bool
}

// NewMemory returns an empty session.
func NewMemory(opts MemoryOptions) *Memory {
	if opts.Allocator == nil {
		opts.Allocator = HeapAllocator{}
	}
	if opts.Decoder == nil {
		opts.Decoder = Opaque
	}
	if opts.MaxAlloc <= 0 {
		opts.MaxAlloc = DefaultMaxAlloc
	}
	if opts.Logger == nil {
		opts.Logger = logger.L
	}
	return &Memory{
		alloc:    opts.Allocator,
		decode:   opts.Decoder,
		maxAlloc: opts.MaxAlloc,
		log:      opts.Logger,
		owned:    make(map[*Buffer]struct{}),
		vars:     make(map[string]any),
	}
}

// Alloc implements Session.
func (m *Memory) Alloc(n int64) (*Buffer, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if n < 0 || n > m.maxAlloc || n > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("%d bytes (limit %d): %w", n, m.maxAlloc, ErrAllocRefused)
	}
	data, err := m.alloc.Alloc(int(n))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocRefused, err)
	}
	buf := &Buffer{data: data}
	m.owned[buf] = struct{}{}
	return buf, nil
}

// Substitute implements Session. The previous backing is returned to the
// allocator.
func (m *Memory) Substitute(buf *Buffer, backing []byte, release func() error) error {
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.owned[buf]; !ok {
		return ErrForeignBuffer
	}
	if len(backing) != len(buf.data) {
		return fmt.Errorf("%d != %d: %w", len(backing), len(buf.data), ErrBackingSize)
	}
	if err := m.releaseBacking(buf); err != nil {
		return err
	}
	buf.data = backing
	buf.release = release
	buf.substituted = true
	m.log.Debug("buffer backing substituted", "bytes", len(backing))
	return nil
}

// Interpret implements Session.
func (m *Memory) Interpret(buf *Buffer) (any, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if _, ok := m.owned[buf]; !ok {
		return nil, ErrForeignBuffer
	}
	v, err := m.decode(buf.data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterpret, err)
	}
	return v, nil
}

// Bind implements Session. Rebinding a name replaces the previous value.
func (m *Memory) Bind(name string, v any) error {
	if m.closed {
		return ErrClosed
	}
	if name == "" {
		return errors.New("session: empty variable name")
	}
	m.vars[name] = v
	return nil
}

// Lookup returns the value bound to name.
func (m *Memory) Lookup(name string) (any, bool) {
	v, ok := m.vars[name]
	return v, ok
}

// Names returns the bound variable names, sorted.
func (m *Memory) Names() []string {
	out := make([]string, 0, len(m.vars))
	for k := range m.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Free drops buf, releasing any substituted backing.
func (m *Memory) Free(buf *Buffer) error {
	if _, ok := m.owned[buf]; !ok {
		return ErrForeignBuffer
	}
	delete(m.owned, buf)
	err := m.releaseBacking(buf)
	buf.data = nil
	return err
}

// Close releases every buffer and drops all bindings. Values that alias
// substituted buffers must not be used afterwards.
func (m *Memory) Close() error {
	if m.closed {
		return nil
	}
	var errs []error
	for buf := range m.owned {
		if err := m.releaseBacking(buf); err != nil {
			errs = append(errs, err)
		}
		buf.data = nil
	}
	m.owned = nil
	m.vars = nil
	m.closed = true
	return errors.Join(errs...)
}

func (m *Memory) releaseBacking(buf *Buffer) error {
	if buf.release != nil {
		rel := buf.release
		buf.release = nil
		return rel()
	}
	if !buf.substituted {
		m.alloc.Free(buf.data)
	}
	return nil
}
