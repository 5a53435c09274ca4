// Package names canonicalises segment names so every process that agrees on
// a name out of band resolves it to the same file in a tier directory.
package names

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxLen is the longest canonical name accepted, in bytes. It leaves room for
// FilePrefix inside the usual 255-byte file name limit.
const MaxLen = 200

// FilePrefix is prepended to every region file name.
const FilePrefix = "dfseg."

var (
	// ErrEmpty indicates an empty (or all-space) name.
	ErrEmpty = errors.New("names: empty segment name")
	// ErrInvalid indicates a name that cannot be mapped to a file.
	ErrInvalid = errors.New("names: invalid segment name")
)

// Canonical returns the NFC form of name with surrounding space removed.
// Two names that render identically but differ in Unicode composition map to
// the same segment.
func Canonical(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalid)
	}
	c := norm.NFC.String(strings.TrimSpace(name))
	if c == "" {
		return "", ErrEmpty
	}
	if len(c) > MaxLen {
		return "", fmt.Errorf("%q longer than %d bytes: %w", c, MaxLen, ErrInvalid)
	}
	if c == "." || c == ".." {
		return "", fmt.Errorf("%q: %w", c, ErrInvalid)
	}
	for _, r := range c {
		if r == '/' || r == '\\' || r == 0 || unicode.IsControl(r) {
			return "", fmt.Errorf("%q contains %U: %w", c, r, ErrInvalid)
		}
	}
	return c, nil
}

// FileName returns the file name used for name inside a tier directory.
func FileName(name string) (string, error) {
	c, err := Canonical(name)
	if err != nil {
		return "", err
	}
	return FilePrefix + c, nil
}

// FromFileName reverses FileName. ok is false for files that are not regions.
func FromFileName(file string) (name string, ok bool) {
	if !strings.HasPrefix(file, FilePrefix) || len(file) == len(FilePrefix) {
		return "", false
	}
	return file[len(FilePrefix):], true
}
