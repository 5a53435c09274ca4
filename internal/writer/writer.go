// Package writer provides sinks for materialized payloads leaving a process.
package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink receives a complete payload.
type Sink interface {
	WritePayload(p []byte) error
}

// File replaces Path with the payload atomically, via a temp file in the
// same directory and a rename.
type File struct {
	Path string
	Perm os.FileMode // default 0o644
}

// WritePayload implements Sink.
func (w File) WritePayload(p []byte) (err error) {
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	tmp, err := os.CreateTemp(filepath.Dir(w.Path), ".dfseg-out-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(p); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, w.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Stream writes the payload to W in one call.
type Stream struct {
	W io.Writer
}

// WritePayload implements Sink.
func (w Stream) WritePayload(p []byte) error {
	_, err := w.W.Write(p)
	return err
}

// Memory keeps a private copy of the last payload.
type Memory struct {
	Buf []byte
}

// WritePayload implements Sink.
func (w *Memory) WritePayload(p []byte) error {
	w.Buf = append(w.Buf[:0], p...)
	return nil
}

// For returns the sink for a CLI destination: "-" is stdout, anything else
// a file path.
func For(dest string) Sink {
	if dest == "-" {
		return Stream{W: os.Stdout}
	}
	return File{Path: dest}
}
