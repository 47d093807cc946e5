package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/user/vacore/pkg/va"
)

// SyncSurface blocks until the last frame rendered to the surface has
// completed and returns its execution error. ctx bounds the wait.
func (s *Session) SyncSurface(ctx context.Context, id va.SurfaceID) error {
	return s.SyncSurfaceTimeout(ctx, id, va.TimeoutInfinite)
}

// SyncSurfaceTimeout is SyncSurface bounded by timeoutNs nanoseconds.
// va.TimeoutInfinite waits without bound. On timeout the frame stays
// pending and the call may be repeated.
func (s *Session) SyncSurfaceTimeout(ctx context.Context, id va.SurfaceID, timeoutNs uint64) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	sf, err := s.surface(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if sf.building != nil {
		s.mu.Unlock()
		return busy("sync surface %#x with an open frame", uint32(id))
	}
	f := sf.frame
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	if err := wait(ctx, f, timeoutNs); err != nil {
		return fmt.Errorf("sync surface %#x: %w", uint32(id), err)
	}
	return s.acknowledge(f)
}

// SyncBuffer blocks until the frame that consumed the buffer has completed.
func (s *Session) SyncBuffer(ctx context.Context, id va.BufferID, timeoutNs uint64) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	b, err := s.buffer(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	f := b.frame
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	if err := wait(ctx, f, timeoutNs); err != nil {
		return fmt.Errorf("sync buffer %#x: %w", uint32(id), err)
	}
	return s.acknowledge(f)
}

// acknowledge returns the context, target and buffers of a completed frame
// to the client.
func (s *Session) acknowledge(f *frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !f.acked {
		f.acked = true
		if f.target.frame == f {
			f.target.frame = nil
		}
		if f.ctx.frame == f {
			f.ctx.frame = nil
			f.ctx.state = stateIdle
		}
		for _, b := range f.buffers {
			if b.frame == f {
				b.frame = nil
			}
		}
	}
	return f.err
}

func wait(ctx context.Context, f *frame, timeoutNs uint64) error {
	select {
	case <-f.done:
		return nil
	default:
	}
	if timeoutNs == 0 {
		return va.ErrTimedout
	}

	var expired <-chan time.Time
	limit, bounded := timeoutDuration(timeoutNs)
	if bounded {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-f.done:
		return nil
	case <-expired:
		return fmt.Errorf("after %s: %w", limit, va.ErrTimedout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", va.ErrTimedout, ctx.Err())
	}
}

// timeoutDuration converts a nanosecond timeout into a timer duration.
// Only va.TimeoutInfinite is unbounded; other values past the range of
// time.Duration are clamped.
func timeoutDuration(timeoutNs uint64) (time.Duration, bool) {
	if timeoutNs == va.TimeoutInfinite {
		return 0, false
	}
	if timeoutNs > math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(timeoutNs), true
}
