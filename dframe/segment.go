package dframe

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/dfseg/internal/format"
	"github.com/joshuapare/dfseg/internal/names"
	"github.com/joshuapare/dfseg/shm"
)

// Header is the fixed-layout record describing a stored value.
type Header = format.Header

// Role is the role of the process constructing a segment.
type Role = format.Store

const (
	RoleMaster = format.StoreMaster // non-owning
	RoleWorker = format.StoreWorker // owning
)

// backing is what a segment holds for its role: an owned region mapping or a
// heap header, never both.
type backing interface {
	header() (Header, error)
	close(unlink bool) error
}

// ownedBacking is the worker-side backing. The header lives inside the
// mapped header block of the region.
type ownedBacking struct {
	seg    *shm.Segment
	hdr    *shm.View // header block, read/write
	layout format.Layout
}

func (o *ownedBacking) header() (Header, error) {
	return format.ParseHeader(o.hdr.Bytes())
}

func (o *ownedBacking) setHeader(h Header) error {
	return h.Encode(o.hdr.Bytes())
}

func (o *ownedBacking) close(unlink bool) error {
	var errs []error
	if err := o.hdr.Unmap(); err != nil {
		errs = append(errs, fmt.Errorf("unmap header: %w", err))
	}
	if err := o.seg.Close(); err != nil {
		errs = append(errs, err)
	}
	if unlink {
		if err := o.seg.Remove(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// trackedBacking is the master-side backing: metadata only.
type trackedBacking struct {
	hdr *Header
}

func (t *trackedBacking) header() (Header, error) { return *t.hdr, nil }

func (t *trackedBacking) close(bool) error {
	t.hdr = nil
	return nil
}

// Segment is one distributed data frame value's storage.
type Segment struct {
	name string
	opts Options
	log  *slog.Logger
	b    backing // nil once closed
}

// NewPlaceholder constructs a segment whose payload has not been written.
//
// For RoleWorker it creates the named region sized for sizeHint, picks its
// tier, and writes an unpopulated header so other processes can observe the
// name. For RoleMaster it only allocates a heap header carrying sizeHint.
func NewPlaceholder(name string, role Role, sizeHint int64, opts Options) (*Segment, error) {
	s, err := newSegment(name, opts)
	if err != nil {
		return nil, err
	}
	if sizeHint < 0 {
		return nil, fmt.Errorf("%w: size hint %d", ErrInvalidInput, sizeHint)
	}

	switch role {
	case RoleMaster:
		s.b = &trackedBacking{hdr: &Header{Kind: format.KindDataFrame, Store: RoleMaster, Size: uint64(sizeHint)}}
	case RoleWorker:
		layout, err := s.layout(sizeHint)
		if err != nil {
			return nil, err
		}
		seg, err := shm.Create(s.opts.Dirs, s.name, TierFor(layout.Total(), s.opts.InmemLimit))
		if err != nil {
			if errors.Is(err, shm.ErrExists) {
				return nil, fmt.Errorf("%w: placeholder %q: %w", ErrInvalidState, s.name, err)
			}
			return nil, fmt.Errorf("%w: create %q: %w", ErrWriteTargetUnavailable, s.name, err)
		}
		s.logTier(seg, layout)
		if err := s.truncate(seg, layout); err != nil {
			return nil, err
		}
		ob, err := s.open(seg, layout)
		if err != nil {
			return nil, err
		}
		hdr := Header{Kind: format.KindDataFrame, Store: RoleWorker, Flags: tierFlags(seg.Tier())}
		if err := ob.setHeader(hdr); err != nil {
			_ = ob.close(false)
			return nil, fmt.Errorf("%w: write header %q: %w", ErrWriteTargetUnavailable, s.name, err)
		}
		s.b = ob
	default:
		return nil, fmt.Errorf("%w: role %d", ErrInvalidInput, role)
	}

	s.record()
	return s, nil
}

// Populate constructs a segment holding payload.
//
// For RoleWorker the region is created (or reopened, keeping its tier if a
// placeholder already exists), truncated to the aligned header plus aligned
// payload length, and payload is copied in at the payload offset. When
// Populate returns, any process opening the name sees header and payload.
// For RoleMaster only a heap header with size = sizeHint is allocated and
// payload is not read.
//
// A nil payload fails with ErrInvalidInput; an empty non-nil payload is a
// valid zero-length value.
func Populate(name string, role Role, sizeHint int64, payload []byte, opts Options) (*Segment, error) {
	s, err := newSegment(name, opts)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload for %q", ErrInvalidInput, s.name)
	}
	if sizeHint < 0 {
		return nil, fmt.Errorf("%w: size hint %d", ErrInvalidInput, sizeHint)
	}

	switch role {
	case RoleMaster:
		s.b = &trackedBacking{hdr: &Header{Kind: format.KindDataFrame, Store: RoleMaster, Size: uint64(sizeHint)}}
	case RoleWorker:
		ob, err := s.populate(payload)
		if err != nil {
			return nil, err
		}
		s.b = ob
	default:
		return nil, fmt.Errorf("%w: role %d", ErrInvalidInput, role)
	}

	s.record()
	return s, nil
}

// Attach reopens an existing region as an owning segment, for a worker
// that did not create it but must materialize it.
func Attach(name string, opts Options) (*Segment, error) {
	s, err := newSegment(name, opts)
	if err != nil {
		return nil, err
	}
	seg, err := shm.Open(s.opts.Dirs, s.name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	if seg.Size() < format.Align(format.HeaderSize, s.opts.Granularity) {
		_ = seg.Close()
		return nil, fmt.Errorf("%w: %q region is %d bytes", ErrInvalidState, s.name, seg.Size())
	}
	hdrLayout, _ := format.NewLayout(0, s.opts.Granularity)
	ob, err := s.open(seg, hdrLayout)
	if err != nil {
		return nil, err
	}
	hdr, err := ob.header()
	if err != nil {
		_ = ob.close(false)
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidState, s.name, err)
	}
	layout, err := format.NewLayout(int64(hdr.Size), s.opts.Granularity)
	if err != nil || hdr.Populated() && layout.Total() > seg.Size() {
		_ = ob.close(false)
		return nil, fmt.Errorf("%w: %q header size %d exceeds region of %d bytes",
			ErrInvalidState, s.name, hdr.Size, seg.Size())
	}
	ob.layout = layout
	s.b = ob
	return s, nil
}

// Remove unlinks the region for name from whichever tier holds it.
func Remove(name string, opts Options) error {
	o, err := opts.withDefaults()
	if err != nil {
		return err
	}
	if err := shm.Remove(o.Dirs, name); err != nil {
		return fmt.Errorf("%w: remove %q: %w", ErrWriteTargetUnavailable, name, err)
	}
	return nil
}

func newSegment(name string, opts Options) (*Segment, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	canon, err := names.Canonical(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &Segment{name: canon, opts: o, log: o.Logger.With("segment", canon)}, nil
}

func (s *Segment) layout(size int64) (format.Layout, error) {
	l, err := format.NewLayout(size, s.opts.Granularity)
	if err != nil {
		return l, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return l, nil
}

// logTier reports a region that was just created in the externally-backed
// tier.
func (s *Segment) logTier(seg *shm.Segment, l format.Layout) {
	if seg.Tier() == shm.TierExternal {
		s.log.Info("using externally-backed tier",
			"length", l.Total(), "limit", s.opts.InmemLimit, "dir", s.opts.Dirs.External)
	}
}

// open maps the header block of seg. seg is closed on failure.
func (s *Segment) open(seg *shm.Segment, l format.Layout) (*ownedBacking, error) {
	hdr, err := seg.Map(0, l.HeaderLen, shm.ReadWrite)
	if err != nil {
		_ = seg.Close()
		return nil, fmt.Errorf("%w: map header of %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	return &ownedBacking{seg: seg, hdr: hdr, layout: l}, nil
}

// truncate sizes seg to l.Total(). seg is closed on failure.
func (s *Segment) truncate(seg *shm.Segment, l format.Layout) error {
	if err := seg.Truncate(l.Total()); err != nil {
		_ = seg.Close()
		return fmt.Errorf("%w: %w", ErrWriteTargetUnavailable, err)
	}
	return nil
}

func (s *Segment) populate(payload []byte) (*ownedBacking, error) {
	layout, err := s.layout(int64(len(payload)))
	if err != nil {
		return nil, err
	}
	seg, created, err := shm.OpenOrCreate(s.opts.Dirs, s.name, TierFor(layout.Total(), s.opts.InmemLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	if created {
		s.logTier(seg, layout)
	} else {
		s.log.Debug("populating existing region", "tier", seg.Tier())
	}
	if err := s.truncate(seg, layout); err != nil {
		return nil, err
	}
	ob, err := s.open(seg, layout)
	if err != nil {
		return nil, err
	}

	hdr := Header{
		Kind:  format.KindDataFrame,
		Store: RoleWorker,
		Size:  uint64(len(payload)),
		Flags: tierFlags(seg.Tier()),
	}
	if err := ob.setHeader(hdr); err != nil {
		_ = ob.close(false)
		return nil, fmt.Errorf("%w: write header %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}

	if len(payload) > 0 {
		dst, err := seg.Map(layout.PayloadOffset(), layout.Size, shm.ReadWrite)
		if err != nil {
			_ = ob.close(false)
			return nil, fmt.Errorf("%w: map payload of %q: %w", ErrWriteTargetUnavailable, s.name, err)
		}
		copy(dst.Bytes(), payload)
		err = dst.Sync()
		if uerr := dst.Unmap(); err == nil {
			err = uerr
		}
		if err != nil {
			_ = ob.close(false)
			return nil, fmt.Errorf("%w: flush payload of %q: %w", ErrWriteTargetUnavailable, s.name, err)
		}
	}

	// The populated flag goes in last: a reader never sees it before the
	// payload bytes it describes.
	hdr.Flags |= format.FlagPopulated
	if err := ob.setHeader(hdr); err != nil {
		_ = ob.close(false)
		return nil, fmt.Errorf("%w: write header %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	if err := ob.hdr.Sync(); err != nil {
		_ = ob.close(false)
		return nil, fmt.Errorf("%w: flush header of %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	if err := seg.Sync(); err != nil {
		_ = ob.close(false)
		return nil, fmt.Errorf("%w: sync %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	return ob, nil
}

func (s *Segment) record() {
	if s.opts.Catalog == nil {
		return
	}
	h, err := s.b.header()
	if err == nil {
		err = s.opts.Catalog.Record(s.name, h)
	}
	if err != nil {
		s.log.Warn("catalog record failed", "err", err)
	}
}

func tierFlags(t shm.Tier) uint16 {
	if t == shm.TierExternal {
		return format.FlagExternal
	}
	return 0
}

// Name returns the canonical segment name.
func (s *Segment) Name() string { return s.name }

// Role returns RoleWorker for segments holding a region, RoleMaster
// otherwise.
func (s *Segment) Role() Role {
	if _, ok := s.b.(*ownedBacking); ok {
		return RoleWorker
	}
	return RoleMaster
}

// Closed reports whether Close has been called.
func (s *Segment) Closed() bool { return s.b == nil }

// Header returns a copy of the header. It is the zero Header after Close.
func (s *Segment) Header() Header {
	if s.b == nil {
		return Header{}
	}
	h, err := s.b.header()
	if err != nil {
		return Header{}
	}
	return h
}

// Dims returns the (rows, columns) hints from the header. Opaque payloads
// report (0, 0).
func (s *Segment) Dims() (rows, cols int64) {
	h := s.Header()
	return h.Dims[0], h.Dims[1]
}

// SetDims records (rows, cols) shape hints. The storage layer never derives
// them from the payload.
func (s *Segment) SetDims(rows, cols int64) error {
	if rows < 0 || cols < 0 {
		return fmt.Errorf("%w: dims (%d, %d)", ErrInvalidInput, rows, cols)
	}
	switch b := s.b.(type) {
	case *ownedBacking:
		h, err := b.header()
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidState, s.name, err)
		}
		h.Dims = [2]int64{rows, cols}
		if err := b.setHeader(h); err != nil {
			return fmt.Errorf("%w: write header %q: %w", ErrWriteTargetUnavailable, s.name, err)
		}
	case *trackedBacking:
		b.hdr.Dims = [2]int64{rows, cols}
	default:
		return fmt.Errorf("%w: %q is closed", ErrInvalidState, s.name)
	}
	s.record()
	return nil
}

// Len returns the region length, or 0 for master-side segments.
func (s *Segment) Len() int64 {
	if ob, ok := s.b.(*ownedBacking); ok {
		return ob.seg.Size()
	}
	return 0
}

// Layout returns the region layout for the current payload size.
func (s *Segment) Layout() format.Layout {
	if ob, ok := s.b.(*ownedBacking); ok {
		return ob.layout
	}
	l, _ := format.NewLayout(int64(s.Header().Size), s.opts.Granularity)
	return l
}

// Tier returns the region's tier. For master-side segments it is the tier
// an owning segment of the hinted size would be placed in.
func (s *Segment) Tier() shm.Tier {
	if ob, ok := s.b.(*ownedBacking); ok {
		return ob.seg.Tier()
	}
	return TierFor(s.Layout().Total(), s.opts.InmemLimit)
}

// Close releases the one resource the segment's role holds: the region
// mapping for RoleWorker, the heap header for RoleMaster. With
// Options.Unlink a worker-side segment also removes the named region.
// Calling Close twice is a no-op.
func (s *Segment) Close() error {
	if s.b == nil {
		return nil
	}
	var err error
	switch b := s.b.(type) {
	case *ownedBacking:
		err = b.close(s.opts.Unlink)
	case *trackedBacking:
		err = b.close(false)
	}
	s.b = nil
	return err
}
