package session

import "github.com/joshuapare/dfseg/bridge"

// Allocator supplies the raw bytes behind session buffers.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

// HeapAllocator allocates from the Go heap without telling anyone.
type HeapAllocator struct{}

// Alloc implements Allocator.
func (HeapAllocator) Alloc(n int) ([]byte, error) { return make([]byte, n), nil }

// Free implements Allocator.
func (HeapAllocator) Free([]byte) {}

// InterceptingAllocator allocates from the Go heap and records every
// allocation in a bridge table, so segments may substitute its backing.
type InterceptingAllocator struct {
	Table *bridge.Table
}

// Alloc implements Allocator.
func (a InterceptingAllocator) Alloc(n int) ([]byte, error) {
	b := make([]byte, n)
	a.Table.Record(bridge.Addr(b), n)
	return b, nil
}

// Free implements Allocator.
func (a InterceptingAllocator) Free(b []byte) {
	a.Table.Forget(bridge.Addr(b))
}
