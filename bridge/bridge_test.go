package bridge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRecordLookupForget(t *testing.T) {
	tbl := NewTable()
	buf := make([]byte, 64)
	addr := Addr(buf)
	require.NotZero(t, addr)

	_, ok := tbl.Lookup(addr)
	assert.False(t, ok)

	tbl.Record(addr, len(buf))
	size, ok := tbl.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, 64, size)
	assert.Equal(t, 1, tbl.Len())

	tbl.Forget(addr)
	_, ok = tbl.Lookup(addr)
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableIgnoresZeroAddr(t *testing.T) {
	tbl := NewTable()
	tbl.Record(0, 10)
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.Lookup(0)
	assert.False(t, ok)
}

func TestNilTableLookup(t *testing.T) {
	var tbl *Table
	_, ok := tbl.Lookup(1)
	assert.False(t, ok)
}

func TestAddrEmpty(t *testing.T) {
	assert.Zero(t, Addr(nil))
	assert.Zero(t, Addr([]byte{}))
}

func TestTableConcurrentUse(t *testing.T) {
	tbl := NewTable()
	bufs := make([][]byte, 32)
	for i := range bufs {
		bufs[i] = make([]byte, i+1)
	}

	var wg sync.WaitGroup
	for i := range bufs {
		wg.Add(1)
		go func(b []byte) {
			defer wg.Done()
			tbl.Record(Addr(b), len(b))
			_, _ = tbl.Lookup(Addr(b))
		}(bufs[i])
	}
	wg.Wait()
	assert.Equal(t, len(bufs), tbl.Len())
}
