package format

import (
	"bytes"
	"fmt"
)

// Header describes the value stored in a segment. The diagram below is the
// encoded form at offset 0 of a region.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'd' 'f' 's' 'g'
//	 0x004   2    Layout version
//	 0x006   2    Flags (populated, external tier)
//	 0x008   4    Kind (value type tag)
//	 0x00C   4    Store (creating role)
//	 0x010   8    Payload size in bytes
//	 0x018   8    Rows hint
//	 0x020   8    Columns hint
//	 0x028  24    Reserved, zero
//
// Size is always the exact number of payload bytes written. A header without
// FlagPopulated describes a placeholder.
type Header struct {
	Version uint16
	Flags   uint16
	Kind    Kind
	Store   Store
	Size    uint64
	Dims    [2]int64
}

// Populated reports whether the payload has been written.
func (h Header) Populated() bool { return h.Flags&FlagPopulated != 0 }

// External reports whether the region lives in the externally-backed tier.
func (h Header) External() bool { return h.Flags&FlagExternal != 0 }

// Encode writes h into b, which must hold at least HeaderSize bytes.
// The version field is always written as LayoutVersion.
func (h Header) Encode(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("segment header: %w", ErrTruncated)
	}
	copy(b[SignatureOffset:SignatureOffset+SignatureSize], Signature)
	PutU16(b, VersionOffset, LayoutVersion)
	PutU16(b, FlagsOffset, h.Flags)
	PutU32(b, KindOffset, uint32(h.Kind))
	PutU32(b, StoreOffset, uint32(h.Store))
	PutU64(b, SizeOffset, h.Size)
	PutI64(b, RowsOffset, h.Dims[0])
	PutI64(b, ColsOffset, h.Dims[1])
	clear(b[ReservedOffset:HeaderSize])
	return nil
}

// MarshalBinary returns the HeaderSize-byte encoding of h.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	if err := h.Encode(b); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary decodes a header previously produced by MarshalBinary.
func (h *Header) UnmarshalBinary(b []byte) error {
	parsed, err := ParseHeader(b)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHeader validates and decodes a segment header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("segment header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[SignatureOffset:SignatureOffset+SignatureSize], Signature) {
		return Header{}, fmt.Errorf("segment header: %w", ErrSignatureMismatch)
	}
	version := ReadU16(b, VersionOffset)
	if version != LayoutVersion {
		return Header{}, fmt.Errorf("segment header version %d: %w", version, ErrUnsupported)
	}
	return Header{
		Version: version,
		Flags:   ReadU16(b, FlagsOffset),
		Kind:    Kind(ReadU32(b, KindOffset)),
		Store:   Store(ReadU32(b, StoreOffset)),
		Size:    ReadU64(b, SizeOffset),
		Dims:    [2]int64{ReadI64(b, RowsOffset), ReadI64(b, ColsOffset)},
	}, nil
}
