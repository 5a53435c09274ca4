package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshuapare/dfseg/internal/logger"
	"github.com/joshuapare/dfseg/internal/writer"
)

// testConfig writes a config rooted in a temp dir, points --config at it
// and resets every command flag. It returns the temp root.
func testConfig(t *testing.T, inmemLimit string, withCatalog bool) string {
	t.Helper()
	root := t.TempDir()

	var b strings.Builder
	b.WriteString("shm_dir: " + filepath.Join(root, "shm") + "\n")
	b.WriteString("spill_dir: " + filepath.Join(root, "spill") + "\n")
	b.WriteString("inmem_limit: " + inmemLimit + "\n")
	if withCatalog {
		b.WriteString("catalog_dir: " + filepath.Join(root, "catalog") + "\n")
	}
	path := filepath.Join(root, "dfseg.yaml")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	resetFlags()
	cfgPath = path
	t.Cleanup(func() {
		resetFlags()
		_ = logger.Close()
	})
	return root
}

func resetFlags() {
	verbose, quiet, jsonOut, cfgPath = false, false, false, ""
	createSize, createRole = "0", "worker"
	populateFrom, populateRole, populateRows, populateCols = "-", "worker", -1, -1
	materializeOut, materializeZeroCopy, materializeVar = "-", false, "value"
	outputSink = writer.For
}

// captureSink routes materialized payloads to an in-memory sink and
// returns it.
func captureSink(t *testing.T) *writer.Memory {
	t.Helper()
	m := &writer.Memory{}
	outputSink = func(string) writer.Sink { return m }
	return m
}

// writeTemp writes data to a file under t.TempDir and returns its path.
func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large payloads cannot fill the pipe.
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		defer close(done)
		_, _ = buf.ReadFrom(r)
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	<-done
	r.Close()

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON and decodes it into v.
func assertJSON(t *testing.T, output string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
