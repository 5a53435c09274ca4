package shm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/joshuapare/dfseg/internal/mmfile"
	"github.com/joshuapare/dfseg/internal/names"
)

var (
	// ErrNotFound indicates no region exists under the name in either tier.
	ErrNotFound = errors.New("shm: segment not found")
	// ErrExists indicates Create found a region already using the name.
	ErrExists = errors.New("shm: segment already exists")
	// ErrClosed indicates use of a segment after Close.
	ErrClosed = errors.New("shm: segment closed")
)

// View is a mapped range of a region.
type View = mmfile.Mapping

// Mode selects how Map maps a range.
type Mode = mmfile.Mode

const (
	ReadOnly    = mmfile.ReadOnly
	ReadWrite   = mmfile.ReadWrite
	CopyOnWrite = mmfile.CopyOnWrite
)

// PageSize returns the host mapping granularity.
func PageSize() int64 { return mmfile.PageSize() }

// Tier selects where a region's bytes live.
type Tier int

const (
	TierMemory   Tier = iota // tmpfs-backed, not persistent
	TierExternal             // file-backed spill directory
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierExternal:
		return "external"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Dirs holds the directory for each tier.
type Dirs struct {
	Memory   string
	External string
}

// DefaultDirs returns /dev/shm (when present) for the memory tier and a
// dfseg-spill directory under os.TempDir for the external tier.
func DefaultDirs() Dirs {
	mem := os.TempDir()
	if runtime.GOOS == "linux" {
		if st, err := os.Stat("/dev/shm"); err == nil && st.IsDir() {
			mem = "/dev/shm"
		}
	}
	return Dirs{
		Memory:   mem,
		External: filepath.Join(os.TempDir(), "dfseg-spill"),
	}
}

func (d Dirs) dir(t Tier) (string, error) {
	switch t {
	case TierMemory:
		if d.Memory == "" {
			return "", errors.New("shm: memory tier directory not configured")
		}
		return d.Memory, nil
	case TierExternal:
		if d.External == "" {
			return "", errors.New("shm: external tier directory not configured")
		}
		return d.External, nil
	default:
		return "", fmt.Errorf("shm: unknown %s", t)
	}
}

// Path returns the file backing name in tier t.
func (d Dirs) Path(name string, t Tier) (string, error) {
	dir, err := d.dir(t)
	if err != nil {
		return "", err
	}
	file, err := names.FileName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// Locate reports which tier holds name.
func (d Dirs) Locate(name string) (Tier, string, error) {
	for _, t := range []Tier{TierMemory, TierExternal} {
		if _, err := d.dir(t); err != nil {
			continue
		}
		p, err := d.Path(name, t)
		if err != nil {
			return 0, "", err
		}
		if _, err := os.Stat(p); err == nil {
			return t, p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return 0, "", err
		}
	}
	return 0, "", fmt.Errorf("%q: %w", name, ErrNotFound)
}

// Segment is an opened named region.
type Segment struct {
	name string
	tier Tier
	path string
	f    *os.File
	size int64
}

// Create creates a new empty region for name in tier t. It fails with
// ErrExists if either tier already holds the name.
func Create(dirs Dirs, name string, t Tier) (*Segment, error) {
	canon, err := names.Canonical(name)
	if err != nil {
		return nil, err
	}
	if other, _, err := dirs.Locate(canon); err == nil {
		return nil, fmt.Errorf("%q in %s tier: %w", canon, other, ErrExists)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	path, err := dirs.Path(canon, t)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("shm: create %s tier directory: %w", t, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%q: %w", canon, ErrExists)
		}
		return nil, err
	}
	return &Segment{name: canon, tier: t, path: path, f: f}, nil
}

// Open opens an existing region for read/write in whichever tier holds it.
func Open(dirs Dirs, name string) (*Segment, error) {
	canon, err := names.Canonical(name)
	if err != nil {
		return nil, err
	}
	t, path, err := dirs.Locate(canon)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", canon, ErrNotFound)
		}
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Segment{name: canon, tier: t, path: path, f: f, size: st.Size()}, nil
}

// OpenOrCreate opens name if it exists in either tier, keeping that tier,
// or creates it in tier t.
func OpenOrCreate(dirs Dirs, name string, t Tier) (seg *Segment, created bool, err error) {
	seg, err = Open(dirs, name)
	if err == nil {
		return seg, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	seg, err = Create(dirs, name, t)
	if err != nil {
		return nil, false, err
	}
	return seg, true, nil
}

// Name returns the canonical segment name.
func (s *Segment) Name() string { return s.name }

// Tier returns the tier the region lives in.
func (s *Segment) Tier() Tier { return s.tier }

// Path returns the backing file path.
func (s *Segment) Path() string { return s.path }

// Size returns the current region length.
func (s *Segment) Size() int64 { return s.size }

// Refresh re-reads the region length, which another process may have
// changed by truncating the same name.
func (s *Segment) Refresh() (int64, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	st, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	s.size = st.Size()
	return s.size, nil
}

// Truncate sets the region length to n bytes. New bytes read as zero.
func (s *Segment) Truncate(n int64) error {
	if s.f == nil {
		return ErrClosed
	}
	if n < 0 {
		return fmt.Errorf("shm: truncate %q to negative length %d", s.name, n)
	}
	if err := s.f.Truncate(n); err != nil {
		return fmt.Errorf("shm: truncate %q to %d: %w", s.name, n, err)
	}
	s.size = n
	return nil
}

// Map maps [off, off+length) of the region. off must be page aligned and the
// range must lie inside the current region length.
func (s *Segment) Map(off, length int64, mode Mode) (*View, error) {
	if s.f == nil {
		return nil, ErrClosed
	}
	if off < 0 || length < 0 || off+length > s.size {
		return nil, fmt.Errorf("shm: map %q [%d,+%d) outside region of %d bytes", s.name, off, length, s.size)
	}
	return mmfile.Map(s.f, off, length, mode)
}

// Sync flushes file metadata and contents for the externally-backed tier.
// It is a no-op for the memory tier.
func (s *Segment) Sync() error {
	if s.f == nil {
		return ErrClosed
	}
	if s.tier != TierExternal {
		return nil
	}
	return s.f.Sync()
}

// Close releases the file handle. Mappings obtained from Map stay valid until
// they are unmapped. Calling Close twice is a no-op.
func (s *Segment) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Remove unlinks the region file. Processes that still map it keep their view.
func (s *Segment) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Remove unlinks name from whichever tier holds it.
func Remove(dirs Dirs, name string) error {
	_, path, err := dirs.Locate(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Info describes a region found by List.
type Info struct {
	Name string
	Tier Tier
	Path string
	Size int64
}

// List returns every region in both tiers, sorted by name.
func List(dirs Dirs) ([]Info, error) {
	var out []Info
	for _, t := range []Tier{TierMemory, TierExternal} {
		dir, err := dirs.dir(t)
		if err != nil {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			name, ok := names.FromFileName(e.Name())
			if !ok {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, Info{Name: name, Tier: t, Path: filepath.Join(dir, e.Name()), Size: fi.Size()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
