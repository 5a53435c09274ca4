package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/dfseg/bridge"
)

func TestMemoryAllocBindLookup(t *testing.T) {
	m := NewMemory(MemoryOptions{})
	defer m.Close()

	buf, err := m.Alloc(4)
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Len())
	copy(buf.Bytes(), "abcd")

	v, err := m.Interpret(buf)
	require.NoError(t, err)
	require.NoError(t, m.Bind("x", v))

	got, ok := m.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, []byte("abcd"), got)
	assert.Equal(t, []string{"x"}, m.Names())
}

func TestMemoryAllocRefused(t *testing.T) {
	m := NewMemory(MemoryOptions{MaxAlloc: 16})
	_, err := m.Alloc(17)
	require.ErrorIs(t, err, ErrAllocRefused)
	_, err = m.Alloc(-1)
	require.ErrorIs(t, err, ErrAllocRefused)
}

func TestInterceptingAllocatorRecordsAndForgets(t *testing.T) {
	tbl := bridge.NewTable()
	m := NewMemory(MemoryOptions{Allocator: InterceptingAllocator{Table: tbl}})

	buf, err := m.Alloc(32)
	require.NoError(t, err)
	size, ok := tbl.Lookup(buf.Addr())
	require.True(t, ok)
	assert.Equal(t, 32, size)

	require.NoError(t, m.Free(buf))
	assert.Equal(t, 0, tbl.Len())
}

func TestHeapAllocatorInvisibleToBridge(t *testing.T) {
	tbl := bridge.NewTable()
	m := NewMemory(MemoryOptions{})
	buf, err := m.Alloc(32)
	require.NoError(t, err)
	_, ok := tbl.Lookup(buf.Addr())
	assert.False(t, ok)
}

func TestSubstituteReplacesBackingAndReleasesOnClose(t *testing.T) {
	tbl := bridge.NewTable()
	m := NewMemory(MemoryOptions{Allocator: InterceptingAllocator{Table: tbl}})

	buf, err := m.Alloc(3)
	require.NoError(t, err)

	released := 0
	backing := []byte("xyz")
	require.NoError(t, m.Substitute(buf, backing, func() error { released++; return nil }))
	assert.True(t, buf.Substituted())
	assert.Equal(t, bridge.Addr(backing), buf.Addr())
	assert.Equal(t, 0, tbl.Len(), "old allocation forgotten")

	require.NoError(t, m.Close())
	assert.Equal(t, 1, released)
	require.NoError(t, m.Close())
	assert.Equal(t, 1, released)
}

func TestSubstituteErrors(t *testing.T) {
	m := NewMemory(MemoryOptions{})
	buf, err := m.Alloc(3)
	require.NoError(t, err)

	require.ErrorIs(t, m.Substitute(buf, []byte("toolong"), nil), ErrBackingSize)
	require.ErrorIs(t, m.Substitute(&Buffer{}, nil, nil), ErrForeignBuffer)

	other := NewMemory(MemoryOptions{})
	_, err = other.Interpret(buf)
	require.ErrorIs(t, err, ErrForeignBuffer)
}

func TestInterpretFailure(t *testing.T) {
	boom := errors.New("malformed frame")
	m := NewMemory(MemoryOptions{Decoder: func([]byte) (any, error) { return nil, boom }})
	buf, err := m.Alloc(1)
	require.NoError(t, err)

	_, err = m.Interpret(buf)
	require.ErrorIs(t, err, ErrInterpret)
	require.ErrorIs(t, err, boom)
}

func TestClosedSession(t *testing.T) {
	m := NewMemory(MemoryOptions{})
	require.NoError(t, m.Close())
	_, err := m.Alloc(1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, m.Bind("x", 1), ErrClosed)
}

func TestBindEmptyName(t *testing.T) {
	m := NewMemory(MemoryOptions{})
	require.Error(t, m.Bind("", 1))
}
