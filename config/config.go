// Package config loads dfseg settings from YAML and turns them into segment
// options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/mem"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/dfseg/bridge"
	"github.com/joshuapare/dfseg/dframe"
	"github.com/joshuapare/dfseg/internal/logger"
	"github.com/joshuapare/dfseg/shm"
)

// AutoLimit is the inmem_limit value that sizes the limit from host memory.
const AutoLimit = "auto"

// DefaultAutoFraction is the share of available memory used by AutoLimit.
const DefaultAutoFraction = 0.25

// Log configures logging.
type Log struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // "text" or "json"
	Dir     string `yaml:"dir"`
}

// Config is the on-disk configuration.
//
//	shm_dir: /dev/shm
//	spill_dir: /var/lib/dfseg/spill
//	inmem_limit: 1 GiB      # or "auto"
//	auto_fraction: 0.25
//	catalog_dir: /var/lib/dfseg/catalog
//	unlink_on_close: false
//	log:
//	  enabled: true
//	  level: info
//	  format: json
type Config struct {
	ShmDir        string  `yaml:"shm_dir"`
	SpillDir      string  `yaml:"spill_dir"`
	InmemLimit    string  `yaml:"inmem_limit"`
	AutoFraction  float64 `yaml:"auto_fraction"`
	CatalogDir    string  `yaml:"catalog_dir"`
	UnlinkOnClose bool    `yaml:"unlink_on_close"`
	Log           Log     `yaml:"log"`
}

// MemoryProbe reports available host memory in bytes.
type MemoryProbe func() (uint64, error)

// HostAvailable reads available memory through gopsutil.
func HostAvailable() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	dirs := shm.DefaultDirs()
	return Config{
		ShmDir:       dirs.Memory,
		SpillDir:     dirs.External,
		InmemLimit:   humanize.IBytes(uint64(dframe.DefaultInmemLimit)),
		AutoFraction: DefaultAutoFraction,
		Log:          Log{Level: "info", Format: "text"},
	}
}

// Load reads path and fills unset fields from Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and fills unset fields from Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values without touching the host.
func (c Config) Validate() error {
	var errs []error
	if c.ShmDir == "" {
		errs = append(errs, errors.New("shm_dir is empty"))
	}
	if c.SpillDir == "" {
		errs = append(errs, errors.New("spill_dir is empty"))
	}
	if c.ShmDir != "" && c.SpillDir != "" && filepath.Clean(c.ShmDir) == filepath.Clean(c.SpillDir) {
		errs = append(errs, errors.New("shm_dir and spill_dir must differ"))
	}
	if !strings.EqualFold(strings.TrimSpace(c.InmemLimit), AutoLimit) {
		if _, err := humanize.ParseBytes(c.InmemLimit); err != nil {
			errs = append(errs, fmt.Errorf("inmem_limit %q: %w", c.InmemLimit, err))
		}
	}
	if c.AutoFraction <= 0 || c.AutoFraction > 1 {
		errs = append(errs, fmt.Errorf("auto_fraction %v outside (0, 1]", c.AutoFraction))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Limit resolves inmem_limit in bytes. "auto" takes AutoFraction of the
// memory reported by probe, rounded down to the page size and never below
// one page.
func (c Config) Limit(probe MemoryProbe) (int64, error) {
	if !strings.EqualFold(strings.TrimSpace(c.InmemLimit), AutoLimit) {
		n, err := humanize.ParseBytes(c.InmemLimit)
		if err != nil {
			return 0, fmt.Errorf("config: inmem_limit %q: %w", c.InmemLimit, err)
		}
		if n == 0 || n > uint64(1<<62) {
			return 0, fmt.Errorf("config: inmem_limit %q out of range", c.InmemLimit)
		}
		return int64(n), nil
	}
	if probe == nil {
		probe = HostAvailable
	}
	avail, err := probe()
	if err != nil {
		return 0, fmt.Errorf("config: probe host memory: %w", err)
	}
	page := shm.PageSize()
	limit := int64(float64(avail)*c.AutoFraction) &^ (page - 1)
	if limit < page {
		limit = page
	}
	return limit, nil
}

// LoggerOptions converts c.Log into options for logger.Init.
func (c Config) LoggerOptions() (logger.Options, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{
		Enabled: c.Log.Enabled,
		LogDir:  c.Log.Dir,
		Level:   level,
		JSON:    strings.EqualFold(c.Log.Format, "json"),
	}, nil
}

// SegmentOptions converts c into dframe options. br may be nil.
func (c Config) SegmentOptions(probe MemoryProbe, br bridge.Bridge, l *slog.Logger) (dframe.Options, error) {
	limit, err := c.Limit(probe)
	if err != nil {
		return dframe.Options{}, err
	}
	return dframe.Options{
		Dirs:       shm.Dirs{Memory: c.ShmDir, External: c.SpillDir},
		InmemLimit: limit,
		Bridge:     br,
		Unlink:     c.UnlinkOnClose,
		Logger:     l,
	}, nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
