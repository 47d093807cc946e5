// Package engine implements the resource and session lifecycle of a video
// acceleration provider: object registries, attribute negotiation, the
// per-context frame state machine, asynchronous dispatch to an accelerator,
// and the synchronization that hands results back to the caller.
package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	logadapter "github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/negotiate"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// Session is the root object of one connection to an accelerator.
// Every object created through it is destroyed by Terminate at the latest.
//
// Calls return promptly; only the Sync* methods block. All methods are safe
// for concurrent use.
type Session struct {
	opts   Options
	accel  ports.Accelerator
	neg    *negotiate.Negotiator
	logger ports.Logger

	mu      sync.Mutex
	closing bool
	closed  bool
	seq     uint64

	configs     *handle.Registry[*configObject]
	contexts    *handle.Registry[*contextObject]
	surfaces    *handle.Registry[*surfaceObject]
	buffers     *handle.Registry[*bufferObject]
	images      *handle.Registry[*imageObject]
	subpictures *handle.Registry[*subpictureObject]
	mfs         *handle.Registry[*mfObject]

	natives *handle.Table[*nativeRef]

	inflight *semaphore.Weighted
	disp     *dispatcher
}

// Initialize opens a session on accel.
func Initialize(accel ports.Accelerator, opts Options, logger ports.Logger) (*Session, error) {
	if accel == nil {
		return nil, fmt.Errorf("initialize: no accelerator: %w", va.ErrInvalidDisplay)
	}
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = def.MaxInFlight
	}
	if logger == nil {
		logger = logadapter.NewNoop()
	}

	s := &Session{
		opts:   opts,
		accel:  accel,
		neg:    negotiate.New(accel.Capabilities(), opts.Negotiation...),
		logger: logger.WithComponent("engine"),

		configs:     handle.New[*configObject](handle.KindConfig, 0),
		contexts:    handle.New[*contextObject](handle.KindContext, opts.MaxContexts),
		surfaces:    handle.New[*surfaceObject](handle.KindSurface, opts.MaxSurfaces),
		buffers:     handle.New[*bufferObject](handle.KindBuffer, opts.MaxBuffers),
		images:      handle.New[*imageObject](handle.KindImage, 0),
		subpictures: handle.New[*subpictureObject](handle.KindSubpicture, 0),
		mfs:         handle.New[*mfObject](handle.KindMFContext, 0),

		natives:  handle.NewTable[*nativeRef](),
		inflight: semaphore.NewWeighted(int64(opts.MaxInFlight)),
	}
	s.disp = newDispatcher(opts.Workers, opts.MaxInFlight, s.execute)

	s.logger.Debug("Session initialized: %d profiles, %d workers, %d frames in flight",
		s.neg.MaxNumProfiles(), opts.Workers, opts.MaxInFlight)
	return s, nil
}

// Version returns the API version implemented by the session.
func (s *Session) Version() (major, minor int) {
	return va.VersionMajor, va.VersionMinor
}

func (s *Session) checkOpen() error {
	if s.closing {
		return ErrTerminated
	}
	return nil
}

// liveObjects counts objects that Terminate would destroy.
func (s *Session) liveObjects() int {
	return s.configs.Len() + s.contexts.Len() + s.surfaces.Len() + s.buffers.Len() +
		s.images.Len() + s.subpictures.Len() + s.mfs.Len()
}

// Terminate closes the session. Work already handed to the accelerator is
// waited for, bounded by ctx; then every remaining object is destroyed.
// With StrictTeardown, Terminate fails with ErrChildrenAlive instead and
// the session stays usable.
func (s *Session) Terminate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrTerminated
	}
	if !s.closing {
		if n := s.liveObjects(); s.opts.StrictTeardown && n > 0 {
			s.mu.Unlock()
			return fmt.Errorf("terminate with %d objects: %w", n, ErrChildrenAlive)
		}
		s.closing = true
		s.abortQueuedLocked()
	}
	s.mu.Unlock()

	s.logger.Debug("Terminating session, waiting for in-flight frames")
	full := int64(s.opts.MaxInFlight)
	if err := s.inflight.Acquire(ctx, full); err != nil {
		return fmt.Errorf("terminate: %w: %w", va.ErrTimedout, err)
	}
	s.disp.stop()
	s.inflight.Release(full)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.destroyAllLocked()
	s.closed = true
	s.logger.Debug("Session terminated, %d objects destroyed", n)
	return nil
}

// abortQueuedLocked fails frames ended into multi-frame groups that were
// never submitted; they would otherwise hold queue capacity forever.
func (s *Session) abortQueuedLocked() {
	s.mfs.Each(func(_ handle.Handle, mf *mfObject) bool {
		for _, f := range mf.queued {
			s.completeLocked(f, ports.Result{}, fmt.Errorf("frame %d never submitted: %w", f.seq, va.ErrOperationFailed))
		}
		mf.queued = nil
		return true
	})
}

func (s *Session) destroyAllLocked() int {
	n := 0
	collect := func(h handle.Handle) { n++ }

	var subs []*subpictureObject
	s.subpictures.Each(func(h handle.Handle, o *subpictureObject) bool { subs = append(subs, o); collect(h); return true })
	for _, o := range subs {
		s.destroySubpictureLocked(o)
	}

	var imgs []*imageObject
	s.images.Each(func(h handle.Handle, o *imageObject) bool { imgs = append(imgs, o); collect(h); return true })
	for _, o := range imgs {
		s.destroyImageLocked(o)
	}

	var mfs []*mfObject
	s.mfs.Each(func(h handle.Handle, o *mfObject) bool { mfs = append(mfs, o); collect(h); return true })
	for _, o := range mfs {
		s.destroyMFLocked(o)
	}

	var ctxs []*contextObject
	s.contexts.Each(func(h handle.Handle, o *contextObject) bool { ctxs = append(ctxs, o); collect(h); return true })
	for _, o := range ctxs {
		for b := range o.buffers {
			b.pinned = 0
		}
		s.destroyContextLocked(o)
	}

	var bufs []*bufferObject
	s.buffers.Each(func(h handle.Handle, o *bufferObject) bool { bufs = append(bufs, o); collect(h); return true })
	for _, o := range bufs {
		s.releaseBufferLocked(o)
	}

	var surfs []*surfaceObject
	s.surfaces.Each(func(h handle.Handle, o *surfaceObject) bool { surfs = append(surfs, o); collect(h); return true })
	for _, o := range surfs {
		s.releaseSurfaceLocked(o)
	}

	var cfgs []*configObject
	s.configs.Each(func(h handle.Handle, o *configObject) bool { cfgs = append(cfgs, o); collect(h); return true })
	for _, o := range cfgs {
		s.configs.Release(handle.Handle(o.id))
	}
	return n
}
