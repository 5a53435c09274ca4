package format

import "fmt"

// Layout is the byte layout of one region:
//
//	[ header block, HeaderLen bytes ][ payload block, PayloadLen bytes ]
//
// Both blocks are multiples of Granularity, so the payload always begins on a
// mappable boundary. Every offset into a region is derived from a Layout.
type Layout struct {
	Granularity int64
	HeaderLen   int64 // aligned header block length
	PayloadLen  int64 // aligned payload block length
	Size        int64 // exact payload bytes
}

// NewLayout computes the layout for a payload of size bytes.
func NewLayout(size int64, granularity int64) (Layout, error) {
	if !IsPowerOfTwo(granularity) {
		return Layout{}, fmt.Errorf("granularity %d: %w", granularity, ErrBadGranularity)
	}
	if size < 0 {
		return Layout{}, fmt.Errorf("payload size %d: %w", size, ErrNegativeSize)
	}
	return Layout{
		Granularity: granularity,
		HeaderLen:   Align(HeaderSize, granularity),
		PayloadLen:  Align(size, granularity),
		Size:        size,
	}, nil
}

// PayloadOffset is the region offset at which payload bytes begin.
func (l Layout) PayloadOffset() int64 { return l.HeaderLen }

// Total is the region length: aligned header plus aligned payload.
func (l Layout) Total() int64 { return l.HeaderLen + l.PayloadLen }
