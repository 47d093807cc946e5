package engine

import (
	"fmt"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/va"
)

func (s *Session) context(id va.ContextID) (*contextObject, error) {
	c, err := s.contexts.Resolve(handle.Handle(id))
	if err != nil {
		return nil, invalidHandle(va.ErrInvalidContext, uint32(id), err)
	}
	return c, nil
}

// CreateContext creates a pipeline instance for a config. targets lists the
// surfaces the context renders to; it may be empty.
func (s *Session) CreateContext(cfg va.ConfigID, width, height uint32, flags int, targets []va.SurfaceID) (va.ContextID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.InvalidContext, err
	}
	c, err := s.config(cfg)
	if err != nil {
		return va.InvalidContext, err
	}
	caps := s.neg.Capabilities()
	if width == 0 || height == 0 || width > caps.MaxWidth || height > caps.MaxHeight {
		return va.InvalidContext, fmt.Errorf("create context %dx%d: %w", width, height, va.ErrResolutionNotSupported)
	}
	for _, id := range targets {
		if _, err := s.surface(id); err != nil {
			return va.InvalidContext, err
		}
	}

	ctx := &contextObject{
		config:  c,
		width:   width,
		height:  height,
		flags:   flags,
		targets: append([]va.SurfaceID(nil), targets...),
		buffers: make(map[*bufferObject]struct{}),
	}
	h, err := s.contexts.Allocate(ctx)
	if err != nil {
		return va.InvalidContext, invalidHandle(va.ErrInvalidContext, uint32(h), err)
	}
	ctx.id = va.ContextID(h)
	s.logger.Debug("Context %#x created: %s/%s %dx%d", uint32(ctx.id), c.profile, c.entrypoint, width, height)
	return ctx.id, nil
}

// DestroyContext destroys a context and every buffer it owns. It fails
// with SurfaceBusy while a frame is open or not yet synchronized, or while
// an owned buffer is acquired.
func (s *Session) DestroyContext(id va.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	c, err := s.context(id)
	if err != nil {
		return err
	}
	if c.state != stateIdle {
		return busy("destroy context %#x in state %s", uint32(id), c.state)
	}
	for b := range c.buffers {
		if b.pinned > 0 {
			return busy("destroy context %#x with acquired buffer %#x", uint32(id), uint32(b.id))
		}
	}
	s.destroyContextLocked(c)
	return nil
}

func (s *Session) destroyContextLocked(c *contextObject) {
	if c.mf != nil {
		c.mf.remove(c)
	}
	if c.target != nil {
		c.target.building = nil
		c.target = nil
	}
	for b := range c.buffers {
		s.releaseBufferLocked(b)
	}
	s.contexts.Release(handle.Handle(c.id))
}
