package dframe

import (
	"errors"
	"fmt"

	"github.com/joshuapare/dfseg/internal/format"
	"github.com/joshuapare/dfseg/session"
	"github.com/joshuapare/dfseg/shm"
)

// Materialize binds the stored payload into sess under varName.
//
// The session allocates an opaque buffer of exactly the payload size. If the
// bridge knows the buffer's address, its backing is replaced by a private
// mapping of the payload region and no bytes are copied. Otherwise the
// payload is mapped read-only, copied in, and unmapped. The session then
// interprets the bytes and binds the value. The region is never modified.
func (s *Segment) Materialize(varName string, sess session.Session) error {
	ob, ok := s.b.(*ownedBacking)
	if !ok {
		if s.b == nil {
			return fmt.Errorf("%w: %q is closed", ErrInvalidState, s.name)
		}
		return fmt.Errorf("%w: %q has no payload in the %s role", ErrInvalidState, s.name, RoleMaster)
	}
	if varName == "" || sess == nil {
		return fmt.Errorf("%w: materialize %q needs a variable name and a session", ErrInvalidInput, s.name)
	}
	hdr, err := ob.header()
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidState, s.name, err)
	}
	if !hdr.Populated() {
		return fmt.Errorf("%w: %q is an unpopulated placeholder", ErrInvalidState, s.name)
	}
	if err := s.refreshLayout(ob, hdr); err != nil {
		return err
	}
	size := ob.layout.Size

	buf, err := sess.Alloc(size)
	if err != nil {
		return fmt.Errorf("%w: allocate %d bytes for %q: %w", ErrMaterialization, size, s.name, err)
	}

	zeroCopy, err := s.substitute(ob, buf, sess)
	if err != nil {
		return err
	}
	if !zeroCopy {
		if err := s.copyInto(ob, buf); err != nil {
			return err
		}
	}
	s.log.Debug("payload handed to session", "var", varName, "bytes", size, "zero_copy", zeroCopy)

	v, err := sess.Interpret(buf)
	if err != nil {
		return fmt.Errorf("%w: interpret %q: %w", ErrMaterialization, s.name, err)
	}
	if err := sess.Bind(varName, v); err != nil {
		return fmt.Errorf("%w: bind %q as %q: %w", ErrMaterialization, s.name, varName, err)
	}
	return nil
}

// refreshLayout recomputes the layout from the live header, which another
// process may have rewritten since this segment was opened.
func (s *Segment) refreshLayout(ob *ownedBacking, hdr Header) error {
	layout, err := format.NewLayout(int64(hdr.Size), s.opts.Granularity)
	if err != nil {
		return fmt.Errorf("%w: %q header size %d: %w", ErrInvalidState, s.name, hdr.Size, err)
	}
	regionLen, err := ob.seg.Refresh()
	if err != nil {
		return fmt.Errorf("%w: stat %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	if layout.Total() > regionLen {
		return fmt.Errorf("%w: %q header size %d exceeds region of %d bytes",
			ErrInvalidState, s.name, hdr.Size, regionLen)
	}
	ob.layout = layout
	return nil
}

// substitute performs the zero-copy hand-off when the bridge recognises
// buf's address. It reports false when the copy path must be used.
func (s *Segment) substitute(ob *ownedBacking, buf *session.Buffer, sess session.Session) (bool, error) {
	if s.opts.Bridge == nil || buf.Len() == 0 {
		return false, nil
	}
	allocated, ok := s.opts.Bridge.Lookup(buf.Addr())
	if !ok || allocated < buf.Len() || int64(buf.Len()) != ob.layout.Size {
		return false, nil
	}
	view, err := ob.seg.Map(ob.layout.PayloadOffset(), ob.layout.Size, shm.CopyOnWrite)
	if err != nil {
		return false, fmt.Errorf("%w: map payload of %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	if err := sess.Substitute(buf, view.Bytes(), view.Unmap); err != nil {
		return false, errors.Join(
			fmt.Errorf("%w: substitute backing for %q: %w", ErrMaterialization, s.name, err),
			view.Unmap(),
		)
	}
	return true, nil
}

func (s *Segment) copyInto(ob *ownedBacking, buf *session.Buffer) error {
	if buf.Len() == 0 {
		return nil
	}
	if buf.Len() != int(ob.layout.Size) {
		return fmt.Errorf("%w: session returned %d bytes for %q, want %d",
			ErrMaterialization, buf.Len(), s.name, ob.layout.Size)
	}
	view, err := ob.seg.Map(ob.layout.PayloadOffset(), ob.layout.Size, shm.ReadOnly)
	if err != nil {
		return fmt.Errorf("%w: map payload of %q: %w", ErrWriteTargetUnavailable, s.name, err)
	}
	copy(buf.Bytes(), view.Bytes())
	return view.Unmap()
}
