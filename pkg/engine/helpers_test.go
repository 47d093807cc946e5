package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/mocks"
	"github.com/user/vacore/pkg/va"
)

// gatedAccel holds every frame in Execute until step or open.
type gatedAccel struct {
	*mocks.Accelerator
	once sync.Once
}

func newGatedAccel() *gatedAccel {
	return &gatedAccel{Accelerator: &mocks.Accelerator{Gate: make(chan struct{})}}
}

// step lets one frame complete.
func (g *gatedAccel) step() { g.Gate <- struct{}{} }

// open lets every frame complete from now on.
func (g *gatedAccel) open() { g.once.Do(func() { close(g.Gate) }) }

func newTestSession(t *testing.T, accel *mocks.Accelerator, opts Options) *Session {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	s, err := Initialize(accel, opts, logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Terminate(ctx)
	})
	return s
}

func newGatedSession(t *testing.T, opts Options) (*Session, *gatedAccel) {
	t.Helper()
	g := newGatedAccel()
	s := newTestSession(t, g.Accelerator, opts)
	// Registered after the session cleanup, so it runs first.
	t.Cleanup(g.open)
	return s, g
}

type encodeFixture struct {
	config   va.ConfigID
	context  va.ContextID
	surfaces []va.SurfaceID
	coded    va.BufferID
}

func setupEncode(t *testing.T, s *Session) encodeFixture {
	t.Helper()
	cfg, err := s.CreateConfig(va.ProfileH264Main, va.EntrypointEncSlice, nil)
	if err != nil {
		t.Fatalf("CreateConfig failed: %v", err)
	}
	surfaces, err := s.CreateSurfaces(va.RTFormatYUV420, 64, 48, 2, nil)
	if err != nil {
		t.Fatalf("CreateSurfaces failed: %v", err)
	}
	ctx, err := s.CreateContext(cfg, 64, 48, va.ContextFlagProgressive, surfaces)
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	coded, err := s.CreateBuffer(ctx, va.EncCodedBufferType, 4096, 1, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(coded) failed: %v", err)
	}
	return encodeFixture{config: cfg, context: ctx, surfaces: surfaces, coded: coded}
}

type decodeFixture struct {
	config   va.ConfigID
	context  va.ContextID
	surfaces []va.SurfaceID
}

func setupDecode(t *testing.T, s *Session, width, height uint32, count int) decodeFixture {
	t.Helper()
	cfg, err := s.CreateConfig(va.ProfileH264Main, va.EntrypointVLD, []va.ConfigAttrib{
		{Type: va.ConfigAttribRTFormat, Value: va.RTFormatYUV420},
	})
	if err != nil {
		t.Fatalf("CreateConfig failed: %v", err)
	}
	surfaces, err := s.CreateSurfaces(va.RTFormatYUV420, width, height, count, nil)
	if err != nil {
		t.Fatalf("CreateSurfaces failed: %v", err)
	}
	ctx, err := s.CreateContext(cfg, width, height, va.ContextFlagProgressive, surfaces)
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	return decodeFixture{config: cfg, context: ctx, surfaces: surfaces}
}

func (f decodeFixture) params(t *testing.T, s *Session) (va.BufferID, va.BufferID) {
	t.Helper()
	pic, err := s.CreateBuffer(f.context, va.PictureParameterBufferType, 64, 1, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(picture parameters) failed: %v", err)
	}
	slice, err := s.CreateBuffer(f.context, va.SliceDataBufferType, 256, 1, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(slice data) failed: %v", err)
	}
	return pic, slice
}

// submit runs Begin, Render and End for one frame.
func submit(t *testing.T, s *Session, ctx va.ContextID, target va.SurfaceID, bufs ...va.BufferID) {
	t.Helper()
	if err := s.BeginPicture(ctx, target); err != nil {
		t.Fatalf("BeginPicture failed: %v", err)
	}
	if len(bufs) > 0 {
		if err := s.RenderPicture(ctx, bufs); err != nil {
			t.Fatalf("RenderPicture failed: %v", err)
		}
	}
	if err := s.EndPicture(ctx); err != nil {
		t.Fatalf("EndPicture failed: %v", err)
	}
}

func wantStatus(t *testing.T, err error, want va.Status) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v (status %s)", want, err, va.StatusOf(err))
	}
}

func bg() context.Context { return context.Background() }
