package engine

import (
	"fmt"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/va"
)

// MFOption configures a multi-frame context.
type MFOption func(*mfObject)

// MFIndependent lets the frames of one submission run concurrently.
// By default they run one after another in EndPicture order.
func MFIndependent() MFOption {
	return func(mf *mfObject) { mf.independent = true }
}

func (mf *mfObject) remove(c *contextObject) {
	for i, member := range mf.contexts {
		if member == c {
			mf.contexts = append(mf.contexts[:i], mf.contexts[i+1:]...)
			break
		}
	}
	c.mf = nil
}

func (mf *mfObject) hasQueued(c *contextObject) bool {
	for _, f := range mf.queued {
		if f.ctx == c {
			return true
		}
	}
	return false
}

func (s *Session) mfContext(id va.MFContextID) (*mfObject, error) {
	mf, err := s.mfs.Resolve(handle.Handle(id))
	if err != nil {
		return nil, invalidHandle(va.ErrInvalidContext, uint32(id), err)
	}
	return mf, nil
}

// CreateMFContext creates a group that submits frames of several encode
// contexts as one unit.
func (s *Session) CreateMFContext(opts ...MFOption) (va.MFContextID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.MFContextID(va.InvalidID), err
	}
	mf := &mfObject{}
	for _, opt := range opts {
		opt(mf)
	}
	h, err := s.mfs.Allocate(mf)
	if err != nil {
		return va.MFContextID(va.InvalidID), invalidHandle(va.ErrInvalidContext, uint32(h), err)
	}
	mf.id = va.MFContextID(h)
	return mf.id, nil
}

// DestroyMFContext dissolves a group. It fails with SurfaceBusy while a
// member has an ended frame waiting for MFSubmit.
func (s *Session) DestroyMFContext(id va.MFContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	mf, err := s.mfContext(id)
	if err != nil {
		return err
	}
	if len(mf.queued) > 0 {
		return busy("destroy multi-frame context %#x with %d queued frames", uint32(id), len(mf.queued))
	}
	s.destroyMFLocked(mf)
	return nil
}

func (s *Session) destroyMFLocked(mf *mfObject) {
	for _, c := range mf.contexts {
		c.mf = nil
	}
	mf.contexts = nil
	s.mfs.Release(handle.Handle(mf.id))
}

// MFAddContext adds an encode context to a group. From then on its ended
// frames wait for MFSubmit.
func (s *Session) MFAddContext(id va.MFContextID, ctxID va.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	mf, err := s.mfContext(id)
	if err != nil {
		return err
	}
	c, err := s.context(ctxID)
	if err != nil {
		return err
	}
	if !c.config.entrypoint.IsEncode() {
		return fmt.Errorf("add %s context %#x to multi-frame context: %w", c.config.entrypoint, uint32(ctxID), va.ErrUnsupportedEntrypoint)
	}
	if c.mf != nil {
		return fmt.Errorf("context %#x already in multi-frame context %#x: %w", uint32(ctxID), uint32(c.mf.id), va.ErrOperationFailed)
	}
	mf.contexts = append(mf.contexts, c)
	c.mf = mf
	return nil
}

// MFReleaseContext removes a context from a group.
func (s *Session) MFReleaseContext(id va.MFContextID, ctxID va.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	mf, err := s.mfContext(id)
	if err != nil {
		return err
	}
	c, err := s.context(ctxID)
	if err != nil {
		return err
	}
	if c.mf != mf {
		return fmt.Errorf("context %#x not in multi-frame context %#x: %w", uint32(ctxID), uint32(id), va.ErrInvalidContext)
	}
	if mf.hasQueued(c) {
		return busy("release context %#x with a queued frame", uint32(ctxID))
	}
	mf.remove(c)
	return nil
}

// MFSubmit hands the ended frames of the listed member contexts to the
// accelerator as one unit, in EndPicture order.
func (s *Session) MFSubmit(id va.MFContextID, ctxIDs []va.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	mf, err := s.mfContext(id)
	if err != nil {
		return err
	}
	if len(ctxIDs) == 0 {
		return fmt.Errorf("submit multi-frame context %#x without contexts: %w", uint32(id), va.ErrInvalidParameter)
	}
	members := make(map[*contextObject]bool, len(ctxIDs))
	for _, ctxID := range ctxIDs {
		c, err := s.context(ctxID)
		if err != nil {
			return err
		}
		if c.mf != mf {
			return fmt.Errorf("context %#x not in multi-frame context %#x: %w", uint32(ctxID), uint32(id), va.ErrInvalidContext)
		}
		if !mf.hasQueued(c) {
			return fmt.Errorf("submit context %#x: %w", uint32(ctxID), ErrNotQueued)
		}
		members[c] = true
	}

	var frames, rest []*frame
	for _, f := range mf.queued {
		if members[f.ctx] {
			frames = append(frames, f)
		} else {
			rest = append(rest, f)
		}
	}
	mf.queued = rest
	s.disp.submit(unit{frames: frames, parallel: mf.independent})
	s.logger.Debug("Multi-frame context %#x submitted %d frames", uint32(id), len(frames))
	return nil
}
