package dframe

import "errors"

var (
	// ErrInvalidInput indicates a nil payload, negative size or bad name.
	ErrInvalidInput = errors.New("dframe: invalid input")
	// ErrInvalidState indicates an operation the segment's role or lifecycle
	// state does not allow, such as materializing a master-side segment.
	ErrInvalidState = errors.New("dframe: invalid state")
	// ErrWriteTargetUnavailable indicates the region could not be opened,
	// truncated or mapped.
	ErrWriteTargetUnavailable = errors.New("dframe: write target unavailable")
	// ErrMaterialization indicates the host session refused the allocation or
	// could not interpret the payload.
	ErrMaterialization = errors.New("dframe: materialization failed")
)
