package dframe

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/dfseg/bridge"
	"github.com/joshuapare/dfseg/internal/format"
	"github.com/joshuapare/dfseg/internal/logger"
	"github.com/joshuapare/dfseg/shm"
)

// DefaultInmemLimit is the aligned region length at and above which a region
// goes to the externally-backed tier.
const DefaultInmemLimit = int64(1) << 30

// Catalog receives the header of every segment this process constructs.
type Catalog interface {
	Record(name string, h format.Header) error
}

// Options configures segment construction and materialization.
type Options struct {
	// Dirs holds the tier directories. Default shm.DefaultDirs().
	Dirs shm.Dirs
	// InmemLimit is the tiering threshold in bytes. Default DefaultInmemLimit.
	InmemLimit int64
	// Granularity rounds header and payload blocks. It must be a multiple of
	// the OS page size. Default shm.PageSize().
	Granularity int64
	// Bridge decides zero-copy materialization. Nil always copies.
	Bridge bridge.Bridge
	// Catalog, when set, records headers on construction.
	Catalog Catalog
	// Unlink removes the named region when an owning segment is closed.
	Unlink bool
	// Logger defaults to logger.L.
	Logger *slog.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.Dirs == (shm.Dirs{}) {
		o.Dirs = shm.DefaultDirs()
	}
	if o.InmemLimit <= 0 {
		o.InmemLimit = DefaultInmemLimit
	}
	page := shm.PageSize()
	if o.Granularity == 0 {
		o.Granularity = page
	}
	if !format.IsPowerOfTwo(o.Granularity) || o.Granularity%page != 0 {
		return o, fmt.Errorf("%w: granularity %d is not a power-of-two multiple of page size %d",
			ErrInvalidInput, o.Granularity, page)
	}
	if o.Logger == nil {
		o.Logger = logger.L
	}
	return o, nil
}

// TierFor applies the tiering policy to an aligned region length.
func TierFor(total, limit int64) shm.Tier {
	if total < limit {
		return shm.TierMemory
	}
	return shm.TierExternal
}
