package format

// Alignment utilities for segment regions.
// A region can only be truncated and mapped in units of the mapping
// granularity, so both the header block and the payload block are rounded up
// to it independently.

// Align returns n aligned up to the next multiple of granularity.
// granularity must be a power of two.
//
// Example:
//
//	Align(1, 4096)    = 4096
//	Align(4096, 4096) = 4096
//	Align(4097, 4096) = 8192
//	Align(0, 4096)    = 0
func Align(n, granularity int64) int64 {
	mask := granularity - 1
	return (n + mask) & ^mask
}

// IsPowerOfTwo reports whether g is a positive power of two.
func IsPowerOfTwo(g int64) bool {
	return g > 0 && g&(g-1) == 0
}
