// Package bridge tracks host buffers whose allocation was intercepted, so a
// materialization can tell whether a buffer's backing memory may be replaced
// by a mapping of a segment instead of receiving a copy.
package bridge

import (
	"sync"
	"unsafe"
)

// Bridge answers whether addr was issued by an intercepted allocation and,
// if so, how many bytes were allocated there.
type Bridge interface {
	Lookup(addr uintptr) (size int, ok bool)
}

// Table is an address to allocation-size table filled by an allocation hook.
// It is safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	sizes map[uintptr]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{sizes: make(map[uintptr]int)}
}

// Record notes that size bytes were allocated at addr. A zero addr is ignored.
func (t *Table) Record(addr uintptr, size int) {
	if addr == 0 {
		return
	}
	t.mu.Lock()
	t.sizes[addr] = size
	t.mu.Unlock()
}

// Forget drops addr, typically because the allocation was freed or its
// backing storage was replaced.
func (t *Table) Forget(addr uintptr) {
	t.mu.Lock()
	delete(t.sizes, addr)
	t.mu.Unlock()
}

// Lookup implements Bridge.
func (t *Table) Lookup(addr uintptr) (int, bool) {
	if t == nil || addr == 0 {
		return 0, false
	}
	t.mu.RLock()
	size, ok := t.sizes[addr]
	t.mu.RUnlock()
	return size, ok
}

// Len returns the number of tracked allocations.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sizes)
}

// Addr returns the address of b's first byte, or 0 for an empty slice.
func Addr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
