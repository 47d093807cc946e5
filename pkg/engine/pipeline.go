package engine

import (
	"context"
	"fmt"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// frame is one ended picture on its way through the accelerator.
type frame struct {
	seq     uint64
	ctx     *contextObject
	target  *surfaceObject
	buffers []*bufferObject
	job     *ports.Job
	done    chan struct{}

	// Guarded by Session.mu.
	completed bool
	acked     bool
	err       error
}

// BeginPicture opens a frame on a context rendering to target.
func (s *Session) BeginPicture(ctxID va.ContextID, target va.SurfaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	c, err := s.context(ctxID)
	if err != nil {
		return err
	}
	sf, err := s.surface(target)
	if err != nil {
		return err
	}
	if c.state != stateIdle {
		return fmt.Errorf("begin picture on context %#x in state %s: %w", uint32(ctxID), c.state, ErrFrameInFlight)
	}
	if sf.busy() {
		return busy("begin picture on surface %#x", uint32(target))
	}

	c.state = stateBuilding
	c.target = sf
	c.pending = nil
	sf.building = c
	sf.status = va.SurfaceRendering
	sf.lastErr = nil
	sf.mbErrors = nil
	return nil
}

// RenderPicture appends buffers to the open frame in call order. Either all
// buffers are appended or none.
func (s *Session) RenderPicture(ctxID va.ContextID, ids []va.BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	c, err := s.context(ctxID)
	if err != nil {
		return err
	}
	if c.state != stateBuilding {
		return fmt.Errorf("render picture on context %#x in state %s: %w", uint32(ctxID), c.state, ErrNoPicture)
	}
	bufs := make([]*bufferObject, 0, len(ids))
	for _, id := range ids {
		b, err := s.buffer(id)
		if err != nil {
			return err
		}
		if b.ctx != c {
			return fmt.Errorf("buffer %#x does not belong to context %#x: %w", uint32(id), uint32(ctxID), va.ErrInvalidBuffer)
		}
		if b.mapped {
			return busy("render mapped buffer %#x", uint32(id))
		}
		bufs = append(bufs, b)
	}
	c.pending = append(c.pending, bufs...)
	return nil
}

// EndPicture closes the open frame and hands it to the accelerator without
// waiting. When the execution queue is full it fails with ErrQueueFull and
// the frame stays open.
func (s *Session) EndPicture(ctxID va.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	c, err := s.context(ctxID)
	if err != nil {
		return err
	}
	if c.state != stateBuilding {
		return fmt.Errorf("end picture on context %#x in state %s: %w", uint32(ctxID), c.state, ErrNoPicture)
	}
	if !s.inflight.TryAcquire(1) {
		return fmt.Errorf("end picture on context %#x: %w", uint32(ctxID), ErrQueueFull)
	}

	s.seq++
	sf := c.target
	f := &frame{
		seq:     s.seq,
		ctx:     c,
		target:  sf,
		buffers: c.pending,
		done:    make(chan struct{}),
	}
	f.job = &ports.Job{
		Context:    c.id,
		Profile:    c.config.profile,
		Entrypoint: c.config.entrypoint,
		Attribs:    c.config.attribs,
		Width:      c.width,
		Height:     c.height,
		Target:     sf.id,
		Surface:    ports.FrameRef{Layout: sf.spec.Layout, Data: sf.store.data},
		Buffers:    make([]ports.JobBuffer, 0, len(f.buffers)),
	}
	for _, b := range f.buffers {
		s.buffers.Hold(handle.Handle(b.id))
		b.frame = f
		if b.typ == va.EncCodedBufferType {
			b.segments = nil
		}
		f.job.Buffers = append(f.job.Buffers, ports.JobBuffer{
			ID:          b.id,
			Type:        b.typ,
			ElementSize: b.elemSize,
			NumElements: b.numElements,
			Data:        b.bytes(),
		})
	}
	s.surfaces.Hold(handle.Handle(sf.id))
	sf.store.retain()
	sf.building = nil
	sf.frame = f

	c.state = stateSubmitted
	c.target = nil
	c.pending = nil
	c.frame = f

	if c.mf != nil {
		c.mf.queued = append(c.mf.queued, f)
		return nil
	}
	s.disp.submit(unit{frames: []*frame{f}})
	return nil
}

// execute runs on a dispatcher worker.
func (s *Session) execute(ctx context.Context, f *frame) {
	res, err := s.accel.Execute(ctx, f.job)
	if err != nil {
		if va.StatusOf(err) == va.ErrUnknown {
			err = fmt.Errorf("%w: %w", va.ErrOperationFailed, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked(f, res, err)
}

// completeLocked records the outcome of f, frees what it consumed and wakes
// waiters. It must run exactly once per frame.
func (s *Session) completeLocked(f *frame, res ports.Result, err error) {
	f.completed = true
	f.err = err

	sf := f.target
	status := res.SurfaceStatus
	if status == 0 || status == va.SurfaceRendering {
		status = va.SurfaceReady
	}
	if sf.frame == f {
		sf.status = status
		sf.lastErr = err
		sf.mbErrors = res.MBErrors
	}
	s.surfaces.Drop(handle.Handle(sf.id))
	sf.store.release()

	seen := make(map[*bufferObject]bool, len(f.buffers))
	for _, b := range f.buffers {
		s.buffers.Drop(handle.Handle(b.id))
		if seen[b] {
			continue
		}
		seen[b] = true
		if b.id == res.CodedBuffer && b.typ == va.EncCodedBufferType && res.Coded != nil {
			storeSegments(b, res.Coded)
		}
		switch {
		case b.released:
			s.freeBufferStore(b)
		case !b.typ.Standalone():
			s.releaseBufferLocked(b)
		}
	}

	s.inflight.Release(1)
	close(f.done)
	s.logger.Debug("Frame %d on context %#x completed: %s", f.seq, uint32(f.ctx.id), va.StatusOf(err))
}

// storeSegments copies accelerator output into the coded buffer memory,
// truncating what does not fit.
func storeSegments(b *bufferObject, segs []va.CodedBufferSegment) {
	data := b.bytes()
	b.segments = make([]va.CodedBufferSegment, 0, len(segs))
	off := uint32(0)
	for _, seg := range segs {
		size := seg.Size
		if int(size) > len(seg.Buf) {
			size = uint32(len(seg.Buf))
		}
		room := uint32(len(data)) - off
		status := seg.Status
		if size > room {
			size = room
			status |= va.CodedBufStatusFrameSizeOverflow
		}
		copy(data[off:], seg.Buf[:size])
		b.segments = append(b.segments, va.CodedBufferSegment{
			Size:      size,
			BitOffset: seg.BitOffset,
			Status:    status,
			Buf:       data[off : off+size : off+size],
		})
		off += size
	}
}
