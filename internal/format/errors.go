package format

import "errors"

var (
	// ErrSignatureMismatch indicates a header had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrUnsupported indicates an unknown layout version.
	ErrUnsupported = errors.New("format: unsupported layout version")
	// ErrBadGranularity indicates a mapping granularity that is not a power of two.
	ErrBadGranularity = errors.New("format: granularity must be a power of two")
	// ErrNegativeSize indicates a negative payload length.
	ErrNegativeSize = errors.New("format: negative payload size")
)
