package dframe

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/joshuapare/dfseg/session"
	"github.com/joshuapare/dfseg/shm"
)

// testOptions returns options whose tier directories live under t.TempDir().
func testOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	return Options{
		Dirs: shm.Dirs{
			Memory:   filepath.Join(root, "mem"),
			External: filepath.Join(root, "spill"),
		},
	}
}

func payloadOf(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*31 + 7)
	}
	return p
}

// fakeBridge answers lookups from a fixed map.
type fakeBridge struct {
	mu    sync.Mutex
	sizes map[uintptr]int
}

func (f *fakeBridge) Lookup(addr uintptr) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.sizes[addr]
	return size, ok
}

// spySession counts backing substitutions on top of session.Memory.
type spySession struct {
	*session.Memory
	substitutions int
}

func newSpySession(opts session.MemoryOptions) *spySession {
	return &spySession{Memory: session.NewMemory(opts)}
}

func (s *spySession) Substitute(buf *session.Buffer, backing []byte, release func() error) error {
	s.substitutions++
	return s.Memory.Substitute(buf, backing, release)
}

func (s *spySession) bytes(t *testing.T, name string) []byte {
	t.Helper()
	v, ok := s.Lookup(name)
	if !ok {
		t.Fatalf("variable %q not bound", name)
	}
	b, ok := v.([]byte)
	if !ok {
		t.Fatalf("variable %q is %T, want []byte", name, v)
	}
	return b
}

// recordingCatalog keeps every recorded header.
type recordingCatalog struct {
	headers map[string]Header
}

func (c *recordingCatalog) Record(name string, h Header) error {
	if c.headers == nil {
		c.headers = make(map[string]Header)
	}
	c.headers[name] = h
	return nil
}
