// Package catalog persists segment headers by name so the master can plan
// placement from sizes and shapes without mapping any region.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/joshuapare/dfseg/internal/format"
	"github.com/joshuapare/dfseg/internal/logger"
	"github.com/joshuapare/dfseg/internal/names"
)

const keyPrefix = "seg/"

var (
	// ErrNotFound indicates no header is recorded under the name.
	ErrNotFound = errors.New("catalog: segment not recorded")
	// ErrNoDir indicates a persistent catalog without a directory.
	ErrNoDir = errors.New("catalog: directory required unless in-memory")
)

// Config configures a Catalog.
type Config struct {
	Dir        string       // badger directory
	InMemory   bool         // keep everything in memory; Dir is ignored
	SyncWrites bool         // fsync every write
	Logger     *slog.Logger // default logger.L
}

// Entry is one recorded segment.
type Entry struct {
	Name   string
	Header format.Header
}

// Catalog is a BadgerDB-backed name to header store. It is safe for
// concurrent use.
type Catalog struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens (or creates) the catalog described by cfg.
func Open(cfg Config) (*Catalog, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.L
	}
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Dir == "":
		return nil, ErrNoDir
	default:
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(nil).WithSyncWrites(cfg.SyncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", cfg.Dir, err)
	}
	return &Catalog{db: db, log: cfg.Logger}, nil
}

func key(name string) ([]byte, error) {
	c, err := names.Canonical(name)
	if err != nil {
		return nil, err
	}
	return []byte(keyPrefix + c), nil
}

// Record stores h under name, replacing any previous entry.
func (c *Catalog) Record(name string, h format.Header) error {
	k, err := key(name)
	if err != nil {
		return err
	}
	v, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
	if err != nil {
		return fmt.Errorf("catalog: record %q: %w", name, err)
	}
	c.log.Debug("catalog recorded segment", "segment", name, "size", h.Size, "store", h.Store)
	return nil
}

// Get returns the header recorded for name.
func (c *Catalog) Get(name string) (format.Header, error) {
	k, err := key(name)
	if err != nil {
		return format.Header{}, err
	}
	var h format.Header
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return h.UnmarshalBinary(val)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return format.Header{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return format.Header{}, fmt.Errorf("catalog: get %q: %w", name, err)
	}
	return h, nil
}

// Delete removes the entry for name. Deleting a missing name is not an error.
func (c *Catalog) Delete(name string) error {
	k, err := key(name)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// List returns every entry in name order.
func (c *Catalog) List() ([]Entry, error) {
	var out []Entry
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var h format.Header
			if err := item.Value(func(val []byte) error { return h.UnmarshalBinary(val) }); err != nil {
				return fmt.Errorf("entry %q: %w", item.Key(), err)
			}
			out = append(out, Entry{Name: strings.TrimPrefix(string(item.KeyCopy(nil)), keyPrefix), Header: h})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return out, nil
}

// TotalSize sums the recorded payload sizes.
func (c *Catalog) TotalSize() (uint64, error) {
	entries, err := c.List()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, e := range entries {
		total += e.Header.Size
	}
	return total, nil
}

// Close flushes and closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
