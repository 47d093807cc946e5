package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/mocks"
	"github.com/user/vacore/pkg/negotiate"
	"github.com/user/vacore/pkg/va"
)

func TestInitialize(t *testing.T) {
	if _, err := Initialize(nil, Options{}, nil); !errors.Is(err, va.ErrInvalidDisplay) {
		t.Fatalf("expected InvalidDisplay, got %v", err)
	}

	s, err := Initialize(&mocks.Accelerator{}, Options{}, nil)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer s.Terminate(context.Background())
	if s.opts.Workers <= 0 || s.opts.MaxInFlight != DefaultOptions().MaxInFlight {
		t.Errorf("defaults not applied: %+v", s.opts)
	}
	major, minor := s.Version()
	if major != va.VersionMajor || minor != va.VersionMinor {
		t.Errorf("unexpected version %d.%d", major, minor)
	}
}

func TestQueries(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, Options{})

	profiles, err := s.QueryConfigProfiles()
	if err != nil {
		t.Fatalf("QueryConfigProfiles failed: %v", err)
	}
	if len(profiles) != 2 || len(profiles) > s.MaxNumProfiles() {
		t.Errorf("unexpected profiles %v (max %d)", profiles, s.MaxNumProfiles())
	}
	eps, err := s.QueryConfigEntrypoints(va.ProfileH264Main)
	if err != nil {
		t.Fatalf("QueryConfigEntrypoints failed: %v", err)
	}
	if len(eps) != 2 || s.MaxNumEntrypoints() < 2 {
		t.Errorf("unexpected entrypoints %v (max %d)", eps, s.MaxNumEntrypoints())
	}
	_, err = s.QueryConfigEntrypoints(va.ProfileH264High)
	wantStatus(t, err, va.ErrUnsupportedProfile)

	attrs, err := s.GetConfigAttributes(va.ProfileH264Main, va.EntrypointEncSlice,
		[]va.ConfigAttribType{va.ConfigAttribRateControl, va.ConfigAttribEncQualityRange})
	if err != nil {
		t.Fatalf("GetConfigAttributes failed: %v", err)
	}
	if attrs[0].Value != va.RCCQP|va.RCCBR || attrs[1].Value != va.AttribNotSupported {
		t.Errorf("unexpected attributes: %+v", attrs)
	}

	formats, err := s.QueryImageFormats()
	if err != nil || len(formats) != s.MaxNumImageFormats() {
		t.Errorf("QueryImageFormats: %d formats, max %d, %v", len(formats), s.MaxNumImageFormats(), err)
	}
	subs, flags, err := s.QuerySubpictureFormats()
	if err != nil || len(subs) != 1 || len(flags) != 1 || s.MaxNumSubpictureFormats() != 1 {
		t.Errorf("QuerySubpictureFormats: %v %v %v", subs, flags, err)
	}
	display, err := s.QueryDisplayAttributes()
	if err != nil || len(display) != s.MaxNumDisplayAttributes() {
		t.Errorf("QueryDisplayAttributes: %v %v", display, err)
	}
}

func TestCreateConfig(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, Options{})

	tests := []struct {
		name    string
		profile va.Profile
		ep      va.Entrypoint
		attribs []va.ConfigAttrib
		want    va.Status
	}{
		{"unknown profile", va.ProfileHEVCMain, va.EntrypointVLD, nil, va.ErrUnsupportedProfile},
		{"unknown entrypoint", va.ProfileJPEGBaseline, va.EntrypointEncSlice, nil, va.ErrUnsupportedEntrypoint},
		{"unknown attribute", va.ProfileH264Main, va.EntrypointVLD,
			[]va.ConfigAttrib{{Type: va.ConfigAttribRateControl, Value: va.RCCQP}}, va.ErrAttrNotSupported},
		{"rt format outside mask", va.ProfileH264Main, va.EntrypointEncSlice,
			[]va.ConfigAttrib{{Type: va.ConfigAttribRTFormat, Value: va.RTFormatYUV444}}, va.ErrUnsupportedRTFormat},
		{"rate control outside mask", va.ProfileH264Main, va.EntrypointEncSlice,
			[]va.ConfigAttrib{{Type: va.ConfigAttribRateControl, Value: va.RCVBR}}, va.ErrInvalidValue},
		{"too many references", va.ProfileH264Main, va.EntrypointEncSlice,
			[]va.ConfigAttrib{{Type: va.ConfigAttribEncMaxRefFrames, Value: 4}}, va.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateConfig(tt.profile, tt.ep, tt.attribs)
			wantStatus(t, err, tt.want)
		})
	}

	id, err := s.CreateConfig(va.ProfileH264Main, va.EntrypointEncSlice, []va.ConfigAttrib{
		{Type: va.ConfigAttribRateControl, Value: va.RCCQP},
		{Type: va.ConfigAttribRateControl, Value: va.RCCBR},
	})
	if err != nil {
		t.Fatalf("CreateConfig failed: %v", err)
	}
	profile, ep, attribs, err := s.QueryConfigAttributes(id)
	if err != nil {
		t.Fatalf("QueryConfigAttributes failed: %v", err)
	}
	if profile != va.ProfileH264Main || ep != va.EntrypointEncSlice {
		t.Errorf("unexpected pair %v/%v", profile, ep)
	}
	got := map[va.ConfigAttribType]uint32{}
	for _, a := range attribs {
		got[a.Type] = a.Value
	}
	if got[va.ConfigAttribRateControl] != va.RCCBR {
		t.Errorf("later duplicate should win, got %#x", got[va.ConfigAttribRateControl])
	}
	if got[va.ConfigAttribRTFormat] != va.RTFormatYUV420 {
		t.Errorf("default RT format not merged: %#x", got[va.ConfigAttribRTFormat])
	}
}

func TestDestroyConfig_ContextSurvives(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, Options{})
	f := setupEncode(t, s)

	if err := s.DestroyConfig(f.config); err != nil {
		t.Fatalf("DestroyConfig failed: %v", err)
	}
	_, _, _, err := s.QueryConfigAttributes(f.config)
	wantStatus(t, err, va.ErrInvalidConfig)

	submit(t, s, f.context, f.surfaces[0], f.coded)
	if err := s.SyncSurface(bg(), f.surfaces[0]); err != nil {
		t.Fatalf("SyncSurface on a context of a destroyed config failed: %v", err)
	}
}

func TestNegotiationOptions(t *testing.T) {
	opts := NewOptionsBuilder().
		WithWorkers(1).
		WithDisabled(negotiate.Pair{Profile: va.ProfileJPEGBaseline, Entrypoint: va.EntrypointVLD}).
		WithMaxResolution(1280, 720).
		Build()
	if opts.Workers != 1 || len(opts.Negotiation) != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	s := newTestSession(t, &mocks.Accelerator{}, opts)

	_, err := s.CreateConfig(va.ProfileJPEGBaseline, va.EntrypointVLD, nil)
	wantStatus(t, err, va.ErrUnsupportedProfile)
	_, err = s.CreateSurfaces(va.RTFormatYUV420, 1920, 1080, 1, nil)
	wantStatus(t, err, va.ErrResolutionNotSupported)
}

func TestObjectLimits(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, NewOptionsBuilder().WithLimits(2, 0, 0).Build())
	if _, err := s.CreateSurfaces(va.RTFormatYUV420, 32, 32, 2, nil); err != nil {
		t.Fatalf("CreateSurfaces failed: %v", err)
	}
	_, err := s.CreateSurfaces(va.RTFormatYUV420, 32, 32, 1, nil)
	wantStatus(t, err, va.ErrAllocationFailed)
}

func TestTerminate(t *testing.T) {
	accel := &mocks.Accelerator{}
	s, err := Initialize(accel, Options{Workers: 1}, logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	f := setupEncode(t, s)
	if _, err := s.CreateImage(va.ImageFormat{FourCC: va.FourCCNV12}, 16, 16); err != nil {
		t.Fatalf("CreateImage failed: %v", err)
	}
	submit(t, s, f.context, f.surfaces[0], f.coded)

	if err := s.Terminate(bg()); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}
	if n := s.liveObjects(); n != 0 {
		t.Errorf("expected no live objects, got %d", n)
	}
	if err := s.Terminate(bg()); !errors.Is(err, ErrTerminated) {
		t.Errorf("second Terminate: expected ErrTerminated, got %v", err)
	}
	if _, err := s.CreateSurfaces(va.RTFormatYUV420, 32, 32, 1, nil); !errors.Is(err, ErrTerminated) {
		t.Errorf("expected ErrTerminated after Terminate, got %v", err)
	}
	if err := s.SyncSurface(bg(), f.surfaces[0]); !errors.Is(err, ErrTerminated) {
		t.Errorf("expected ErrTerminated from SyncSurface, got %v", err)
	}
}

func TestTerminate_Strict(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, Options{StrictTeardown: true})
	ids, err := s.CreateSurfaces(va.RTFormatYUV420, 32, 32, 1, nil)
	if err != nil {
		t.Fatalf("CreateSurfaces failed: %v", err)
	}
	if err := s.Terminate(bg()); !errors.Is(err, ErrChildrenAlive) {
		t.Fatalf("expected ErrChildrenAlive, got %v", err)
	}
	// The session stays usable.
	if err := s.DestroySurfaces(ids); err != nil {
		t.Fatalf("DestroySurfaces failed: %v", err)
	}
	if err := s.Terminate(bg()); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}
}

func TestTerminate_WaitsForInFlight(t *testing.T) {
	s, g := newGatedSession(t, Options{})
	f := setupEncode(t, s)
	submit(t, s, f.context, f.surfaces[0], f.coded)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Terminate(ctx)
	wantStatus(t, err, va.ErrTimedout)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the context error to be wrapped, got %v", err)
	}
	// New work is refused while terminating.
	wantStatus(t, s.BeginPicture(f.context, f.surfaces[1]), va.ErrInvalidDisplay)

	g.step()
	if err := s.Terminate(bg()); err != nil {
		t.Fatalf("Terminate retry failed: %v", err)
	}
}

func TestTerminate_AbortsQueuedMultiFrame(t *testing.T) {
	accel := &mocks.Accelerator{}
	s := newTestSession(t, accel, Options{})
	f := setupEncode(t, s)
	mf, _ := s.CreateMFContext()
	if err := s.MFAddContext(mf, f.context); err != nil {
		t.Fatalf("MFAddContext failed: %v", err)
	}
	submit(t, s, f.context, f.surfaces[0])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Terminate(ctx); err != nil {
		t.Fatalf("Terminate with a queued frame failed: %v", err)
	}
	if n := len(accel.Executed()); n != 0 {
		t.Errorf("queued frame reached the accelerator: %d calls", n)
	}
}
