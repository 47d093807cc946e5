package engine

import (
	"fmt"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/va"
)

// maxBufferBytes bounds a single buffer allocation.
const maxBufferBytes = 1 << 30

func (s *Session) buffer(id va.BufferID) (*bufferObject, error) {
	b, err := s.buffers.Resolve(handle.Handle(id))
	if err != nil {
		return nil, invalidHandle(va.ErrInvalidBuffer, uint32(id), err)
	}
	return b, nil
}

// bufferAllowed reports whether a context on entrypoint consumes typ.
func bufferAllowed(typ va.BufferType, ep va.Entrypoint) bool {
	switch typ.Class() {
	case va.BufferClassDecode:
		return ep.IsDecode()
	case va.BufferClassEncode:
		return ep.IsEncode()
	case va.BufferClassProc:
		return ep == va.EntrypointVideoProc
	case va.BufferClassStats:
		return ep == va.EntrypointStats
	case va.BufferClassCommon:
		return true
	}
	return false
}

// CreateBuffer creates a buffer of num elements of size bytes owned by a
// context. If data is non-nil its first size*num bytes are copied in.
func (s *Session) CreateBuffer(ctxID va.ContextID, typ va.BufferType, size, num uint32, data []byte) (va.BufferID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.InvalidBuffer, err
	}
	c, err := s.context(ctxID)
	if err != nil {
		return va.InvalidBuffer, err
	}
	if !bufferAllowed(typ, c.config.entrypoint) {
		return va.InvalidBuffer, fmt.Errorf("create %s on %s context: %w", typ, c.config.entrypoint, va.ErrUnsupportedBufferType)
	}
	if size == 0 || num == 0 {
		return va.InvalidBuffer, fmt.Errorf("create %s of %d x %d bytes: %w", typ, num, size, va.ErrInvalidParameter)
	}
	total := uint64(size) * uint64(num)
	if total > maxBufferBytes {
		return va.InvalidBuffer, fmt.Errorf("create %s of %d bytes: %w", typ, total, va.ErrAllocationFailed)
	}
	if data != nil && uint64(len(data)) < total {
		return va.InvalidBuffer, fmt.Errorf("create %s: %d bytes of initial data for %d: %w", typ, len(data), total, va.ErrInvalidParameter)
	}

	b := &bufferObject{ctx: c, typ: typ, elemSize: size, numElements: num, store: newStore(uint32(total))}
	if data != nil {
		copy(b.store.data, data[:total])
	}
	if err := s.registerBufferLocked(b); err != nil {
		return va.InvalidBuffer, err
	}
	return b.id, nil
}

// CreateBuffer2 creates a two-dimensional buffer of width x height units.
// It returns the unit size and the row pitch in bytes.
func (s *Session) CreateBuffer2(ctxID va.ContextID, typ va.BufferType, width, height uint32) (va.BufferID, uint32, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.InvalidBuffer, 0, 0, err
	}
	c, err := s.context(ctxID)
	if err != nil {
		return va.InvalidBuffer, 0, 0, err
	}
	if !typ.TwoDimensional() || !bufferAllowed(typ, c.config.entrypoint) {
		return va.InvalidBuffer, 0, 0, fmt.Errorf("create 2D %s on %s context: %w", typ, c.config.entrypoint, va.ErrUnsupportedBufferType)
	}
	if width == 0 || height == 0 {
		return va.InvalidBuffer, 0, 0, fmt.Errorf("create 2D %s of %dx%d: %w", typ, width, height, va.ErrInvalidParameter)
	}
	const unitSize = 1
	pitch := (width*unitSize + va.PitchAlignment - 1) &^ (va.PitchAlignment - 1)
	total := uint64(pitch) * uint64(height)
	if total > maxBufferBytes {
		return va.InvalidBuffer, 0, 0, fmt.Errorf("create 2D %s of %d bytes: %w", typ, total, va.ErrAllocationFailed)
	}

	b := &bufferObject{ctx: c, typ: typ, elemSize: pitch, numElements: height, pitch: pitch, store: newStore(uint32(total))}
	if err := s.registerBufferLocked(b); err != nil {
		return va.InvalidBuffer, 0, 0, err
	}
	return b.id, unitSize, pitch, nil
}

func (s *Session) registerBufferLocked(b *bufferObject) error {
	h, err := s.buffers.Allocate(b)
	if err != nil {
		return invalidHandle(va.ErrInvalidBuffer, uint32(h), err)
	}
	b.id = va.BufferID(h)
	if b.ctx != nil {
		b.ctx.buffers[b] = struct{}{}
	}
	return nil
}

// BufferSetNumElements changes the element count of an idle buffer.
func (s *Session) BufferSetNumElements(id va.BufferID, num uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	b, err := s.buffer(id)
	if err != nil {
		return err
	}
	if b.image != nil {
		return fmt.Errorf("resize buffer %#x: %w", uint32(id), ErrImageOwned)
	}
	if num == 0 {
		return fmt.Errorf("resize buffer %#x to 0 elements: %w", uint32(id), va.ErrInvalidParameter)
	}
	if b.unsynchronized() || b.mapped || b.pinned > 0 {
		return busy("resize buffer %#x", uint32(id))
	}
	total := uint64(b.elemSize) * uint64(num)
	if total > maxBufferBytes {
		return fmt.Errorf("resize buffer %#x to %d bytes: %w", uint32(id), total, va.ErrAllocationFailed)
	}
	if int(total) > len(b.store.data) {
		grown := make([]byte, total)
		copy(grown, b.store.data)
		b.store.data = grown
	}
	b.numElements = num
	return nil
}

// MapBuffer gives the client access to the buffer bytes. It fails with
// SurfaceBusy while the buffer belongs to a frame that has not been
// synchronized.
func (s *Session) MapBuffer(id va.BufferID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	b, err := s.mapLocked(id)
	if err != nil {
		return nil, err
	}
	return b.bytes(), nil
}

// MapCodedBuffer maps an encoder output buffer as its segment list.
// A buffer the encoder has not written yet maps as one empty segment.
func (s *Session) MapCodedBuffer(id va.BufferID) (*va.CodedBufferSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	b, err := s.buffer(id)
	if err != nil {
		return nil, err
	}
	if b.typ != va.EncCodedBufferType {
		return nil, fmt.Errorf("map %s %#x as coded buffer: %w", b.typ, uint32(id), va.ErrInvalidBuffer)
	}
	if _, err := s.mapLocked(id); err != nil {
		return nil, err
	}
	if len(b.segments) == 0 {
		return &va.CodedBufferSegment{Buf: []byte{}}, nil
	}
	var head, tail *va.CodedBufferSegment
	for i := range b.segments {
		seg := b.segments[i]
		seg.Next = nil
		if head == nil {
			head = &seg
		} else {
			tail.Next = &seg
		}
		tail = &seg
	}
	return head, nil
}

func (s *Session) mapLocked(id va.BufferID) (*bufferObject, error) {
	b, err := s.buffer(id)
	if err != nil {
		return nil, err
	}
	if b.unsynchronized() {
		return nil, busy("map buffer %#x", uint32(id))
	}
	if b.transfers > 0 {
		return nil, busy("map image buffer %#x during a transfer", uint32(id))
	}
	if sf := b.derivedFrom(); sf != nil {
		if sf.rendering() || sf.transfers > 0 {
			return nil, busy("map image buffer %#x of surface %#x", uint32(id), uint32(sf.id))
		}
		if !b.mapped {
			sf.views++
		}
	}
	b.mapped = true
	return b, nil
}

// unmapLocked ends a client mapping and lets the surface behind a derived
// image go back to the accelerator.
func (s *Session) unmapLocked(b *bufferObject) {
	if !b.mapped {
		return
	}
	b.mapped = false
	if sf := b.derivedFrom(); sf != nil {
		sf.views--
	}
}

// UnmapBuffer ends client access started by MapBuffer or MapCodedBuffer.
func (s *Session) UnmapBuffer(id va.BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	b, err := s.buffer(id)
	if err != nil {
		return err
	}
	if !b.mapped {
		return fmt.Errorf("unmap buffer %#x: %w", uint32(id), ErrNotMapped)
	}
	s.unmapLocked(b)
	return nil
}

// DestroyBuffer destroys a buffer. A buffer still referenced by a running
// frame loses its handle at once; its memory is freed when the frame
// completes.
func (s *Session) DestroyBuffer(id va.BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	b, err := s.buffer(id)
	if err != nil {
		return err
	}
	if b.image != nil {
		return fmt.Errorf("destroy buffer %#x: %w", uint32(id), ErrImageOwned)
	}
	if b.pinned > 0 {
		return busy("destroy acquired buffer %#x", uint32(id))
	}
	if b.ctx != nil && b.ctx.state == stateBuilding {
		for _, p := range b.ctx.pending {
			if p == b {
				return busy("destroy buffer %#x rendered into an open frame", uint32(id))
			}
		}
	}
	s.releaseBufferLocked(b)
	return nil
}

func (s *Session) releaseBufferLocked(b *bufferObject) {
	if b.released {
		return
	}
	b.released = true
	s.unmapLocked(b)
	s.buffers.Release(handle.Handle(b.id))
	if b.ctx != nil {
		delete(b.ctx.buffers, b)
	}
	if b.native != 0 {
		s.natives.Unregister(b.native)
		b.native = 0
		b.pinned = 0
	}
	if !b.inFlight() {
		s.freeBufferStore(b)
	}
}

func (s *Session) freeBufferStore(b *bufferObject) {
	if b.store != nil {
		b.store.release()
		b.store = nil
	}
}

// AcquireBufferHandle pins a buffer and shares it outside the session.
// memType 0 selects va.MemTypeVA. Acquiring again with the same memType
// returns the same handle.
func (s *Session) AcquireBufferHandle(id va.BufferID, memType uint32) (va.BufferInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.BufferInfo{}, err
	}
	b, err := s.buffer(id)
	if err != nil {
		return va.BufferInfo{}, err
	}
	if memType == 0 {
		memType = va.MemTypeVA
	}
	if !s.supportedMemType(memType) {
		return va.BufferInfo{}, fmt.Errorf("acquire buffer %#x as %#x: %w", uint32(id), memType, va.ErrUnsupportedMemoryType)
	}
	if b.unsynchronized() {
		return va.BufferInfo{}, busy("acquire buffer %#x", uint32(id))
	}
	if b.pinned > 0 && b.memType != memType {
		return va.BufferInfo{}, fmt.Errorf("acquire buffer %#x as %#x, held as %#x: %w", uint32(id), memType, b.memType, va.ErrInvalidParameter)
	}
	if b.native == 0 {
		b.native = s.natives.Register(&nativeRef{store: b.store, buffer: b})
		b.memType = memType
	}
	b.pinned++
	return va.BufferInfo{Handle: b.native, Type: b.typ, MemType: memType, MemSize: int(b.size())}, nil
}

// ReleaseBufferHandle undoes one AcquireBufferHandle.
func (s *Session) ReleaseBufferHandle(id va.BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	b, err := s.buffer(id)
	if err != nil {
		return err
	}
	if b.pinned == 0 {
		return fmt.Errorf("release buffer %#x: %w", uint32(id), ErrNotAcquired)
	}
	b.pinned--
	if b.pinned == 0 {
		s.natives.Unregister(b.native)
		b.native = 0
		b.memType = 0
	}
	return nil
}
