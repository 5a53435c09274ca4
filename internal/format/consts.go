// Package format houses the on-region layout of a data frame segment: the
// fixed header record, its little-endian codec, and the layout descriptor
// that computes every offset inside a region. Nothing here touches the OS.
package format

// Signature is the four-byte magic at offset 0 of every segment region.
// Layout:
//
//	0x00  'd' 'f' 's' 'g'
var Signature = []byte{'d', 'f', 's', 'g'}

const (
	// LayoutVersion is the header layout written by this package.
	LayoutVersion = 1

	// HeaderSize is the encoded size of the header record in bytes. Inside a
	// region the header block is padded up to the mapping granularity.
	HeaderSize = 0x40

	// Header field offsets.
	SignatureOffset = 0x00 // 4
	SignatureSize   = 4
	VersionOffset   = 0x04 // 2
	FlagsOffset     = 0x06 // 2
	KindOffset      = 0x08 // 4
	StoreOffset     = 0x0C // 4
	SizeOffset      = 0x10 // 8
	RowsOffset      = 0x18 // 8
	ColsOffset      = 0x20 // 8
	ReservedOffset  = 0x28 // 24, zero
)

// Header flags.
const (
	// FlagPopulated is set once the payload has been fully copied in.
	FlagPopulated uint16 = 1 << 0
	// FlagExternal marks a region that lives in the externally-backed tier.
	FlagExternal uint16 = 1 << 1
)

// Kind tags the logical value stored in a segment.
type Kind uint32

const (
	KindUnknown   Kind = 0
	KindArray     Kind = 1 // reserved for dense arrays
	KindDataFrame Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindDataFrame:
		return "dataframe"
	default:
		return "unknown"
	}
}

// Store records which role created a header.
type Store uint32

const (
	// StoreMaster is the non-owning role: metadata only, never maps a region.
	StoreMaster Store = 0
	// StoreWorker is the owning role: allocates, truncates and writes regions.
	StoreWorker Store = 1
)

func (s Store) String() string {
	switch s {
	case StoreMaster:
		return "master"
	case StoreWorker:
		return "worker"
	default:
		return "invalid"
	}
}
