package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/user/vacore/pkg/mocks"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

func TestCreateBuffer(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, Options{})
	f := setupEncode(t, s)

	tests := []struct {
		name string
		typ  va.BufferType
		size uint32
		num  uint32
		data []byte
		want va.Status
	}{
		{"decode type on encode context", va.SliceDataBufferType, 16, 1, nil, va.ErrUnsupportedBufferType},
		{"proc type on encode context", va.ProcPipelineParameterBufferType, 16, 1, nil, va.ErrUnsupportedBufferType},
		{"zero size", va.EncPictureParameterBufferType, 0, 1, nil, va.ErrInvalidParameter},
		{"zero count", va.EncPictureParameterBufferType, 16, 0, nil, va.ErrInvalidParameter},
		{"short data", va.EncPictureParameterBufferType, 16, 2, make([]byte, 20), va.ErrInvalidParameter},
		{"too large", va.EncPictureParameterBufferType, 1 << 20, 1 << 12, nil, va.ErrAllocationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateBuffer(f.context, tt.typ, tt.size, tt.num, tt.data)
			wantStatus(t, err, tt.want)
		})
	}

	data := []byte("0123456789abcdef0123456789ABCDEF")
	id, err := s.CreateBuffer(f.context, va.EncMiscParameterBufferType, 16, 2, data)
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	got, err := s.MapBuffer(id)
	if err != nil {
		t.Fatalf("MapBuffer failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("expected %q, got %q", data, got)
	}
	// Mapping twice is allowed.
	if _, err := s.MapBuffer(id); err != nil {
		t.Errorf("second MapBuffer failed: %v", err)
	}
}

func TestCreateBuffer2(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, Options{})
	f := setupEncode(t, s)

	_, _, _, err := s.CreateBuffer2(f.context, va.EncPictureParameterBufferType, 4, 4)
	wantStatus(t, err, va.ErrUnsupportedBufferType)

	id, unit, pitch, err := s.CreateBuffer2(f.context, va.EncQPBufferType, 20, 3)
	if err != nil {
		t.Fatalf("CreateBuffer2 failed: %v", err)
	}
	if unit != 1 || pitch != 32 {
		t.Errorf("expected unit 1 pitch 32, got %d %d", unit, pitch)
	}
	data, err := s.MapBuffer(id)
	if err != nil {
		t.Fatalf("MapBuffer failed: %v", err)
	}
	if len(data) != 32*3 {
		t.Errorf("expected %d bytes, got %d", 32*3, len(data))
	}
}

func TestBufferSetNumElements(t *testing.T) {
	s, g := newGatedSession(t, Options{})
	f := setupEncode(t, s)
	id, err := s.CreateBuffer(f.context, va.EncMiscParameterBufferType, 8, 1, []byte("abcdefgh"))
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}

	if err := s.BufferSetNumElements(id, 3); err != nil {
		t.Fatalf("BufferSetNumElements failed: %v", err)
	}
	data, _ := s.MapBuffer(id)
	if len(data) != 24 || string(data[:8]) != "abcdefgh" {
		t.Errorf("unexpected contents after growing: %q", data)
	}
	wantStatus(t, s.BufferSetNumElements(id, 1), va.ErrSurfaceBusy)
	s.UnmapBuffer(id)
	wantStatus(t, s.BufferSetNumElements(id, 0), va.ErrInvalidParameter)

	submit(t, s, f.context, f.surfaces[0], f.coded)
	wantStatus(t, s.BufferSetNumElements(f.coded, 2), va.ErrSurfaceBusy)
	g.step()
	if err := s.SyncSurface(bg(), f.surfaces[0]); err != nil {
		t.Fatalf("SyncSurface failed: %v", err)
	}
	if err := s.BufferSetNumElements(f.coded, 2); err != nil {
		t.Errorf("BufferSetNumElements after sync failed: %v", err)
	}
}

func TestAcquireBufferHandle(t *testing.T) {
	s := newTestSession(t, &mocks.Accelerator{}, Options{})
	f := setupEncode(t, s)
	id, err := s.CreateBuffer(f.context, va.EncMiscParameterBufferType, 16, 1, []byte("pinned buffer!!!"))
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}

	wantStatus(t, s.ReleaseBufferHandle(id), va.ErrInvalidParameter)
	_, err = s.AcquireBufferHandle(id, va.MemTypeV4L2)
	wantStatus(t, err, va.ErrUnsupportedMemoryType)

	info, err := s.AcquireBufferHandle(id, 0)
	if err != nil {
		t.Fatalf("AcquireBufferHandle failed: %v", err)
	}
	if info.MemType != va.MemTypeVA || info.MemSize != 16 || info.Type != va.EncMiscParameterBufferType {
		t.Errorf("unexpected buffer info: %+v", info)
	}
	again, err := s.AcquireBufferHandle(id, va.MemTypeVA)
	if err != nil || again.Handle != info.Handle {
		t.Fatalf("second acquire: %+v, %v", again, err)
	}
	_, err = s.AcquireBufferHandle(id, va.MemTypeUserPtr)
	wantStatus(t, err, va.ErrInvalidParameter)

	data, err := s.ExternalBytes(info.Handle)
	if err != nil || string(data) != "pinned buffer!!!" {
		t.Errorf("ExternalBytes: %q, %v", data, err)
	}

	wantStatus(t, s.DestroyBuffer(id), va.ErrSurfaceBusy)
	wantStatus(t, s.DestroyContext(f.context), va.ErrSurfaceBusy)

	if err := s.ReleaseBufferHandle(id); err != nil {
		t.Fatalf("ReleaseBufferHandle failed: %v", err)
	}
	wantStatus(t, s.DestroyBuffer(id), va.ErrSurfaceBusy)
	if err := s.ReleaseBufferHandle(id); err != nil {
		t.Fatalf("ReleaseBufferHandle failed: %v", err)
	}
	if err := s.ReleaseBufferHandle(id); !errors.Is(err, ErrNotAcquired) {
		t.Errorf("expected ErrNotAcquired, got %v", err)
	}
	if _, err := s.ExternalBytes(info.Handle); err == nil {
		t.Error("native handle still valid after release")
	}
	if err := s.DestroyBuffer(id); err != nil {
		t.Fatalf("DestroyBuffer failed: %v", err)
	}
}

func TestDestroyBuffer_InFlight(t *testing.T) {
	var seen []byte
	g := newGatedAccel()
	g.ExecuteFunc = func(ctx context.Context, job *ports.Job) (ports.Result, error) {
		seen = append([]byte(nil), job.Buffers[0].Data...)
		return ports.Result{}, nil
	}
	s := newTestSession(t, g.Accelerator, Options{})
	t.Cleanup(g.open)
	f := setupEncode(t, s)
	id, err := s.CreateBuffer(f.context, va.EncMiscParameterBufferType, 4, 1, []byte("live"))
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}

	if err := s.BeginPicture(f.context, f.surfaces[0]); err != nil {
		t.Fatalf("BeginPicture failed: %v", err)
	}
	if err := s.RenderPicture(f.context, []va.BufferID{id}); err != nil {
		t.Fatalf("RenderPicture failed: %v", err)
	}
	wantStatus(t, s.DestroyBuffer(id), va.ErrSurfaceBusy)
	if err := s.EndPicture(f.context); err != nil {
		t.Fatalf("EndPicture failed: %v", err)
	}

	reserved := s.buffers.Reserved()
	if err := s.DestroyBuffer(id); err != nil {
		t.Fatalf("DestroyBuffer of an in-flight buffer failed: %v", err)
	}
	_, err = s.MapBuffer(id)
	wantStatus(t, err, va.ErrInvalidBuffer)
	// The slot stays reserved until the frame completes.
	if got := s.buffers.Reserved(); got != reserved {
		t.Errorf("slot recycled while in flight: %d -> %d", reserved, got)
	}

	g.step()
	if err := s.SyncSurface(bg(), f.surfaces[0]); err != nil {
		t.Fatalf("SyncSurface failed: %v", err)
	}
	if string(seen) != "live" {
		t.Errorf("hardware saw %q", seen)
	}
	if got := s.buffers.Reserved(); got != reserved-1 {
		t.Errorf("expected slot recycled after completion, reserved %d", got)
	}
}

func TestDestroyContext(t *testing.T) {
	s, g := newGatedSession(t, Options{})
	f := setupEncode(t, s)

	submit(t, s, f.context, f.surfaces[0], f.coded)
	wantStatus(t, s.DestroyContext(f.context), va.ErrSurfaceBusy)

	g.step()
	if err := s.SyncSurface(bg(), f.surfaces[0]); err != nil {
		t.Fatalf("SyncSurface failed: %v", err)
	}
	if err := s.DestroyContext(f.context); err != nil {
		t.Fatalf("DestroyContext failed: %v", err)
	}
	_, err := s.MapBuffer(f.coded)
	wantStatus(t, err, va.ErrInvalidBuffer)
	if _, err := s.QuerySurfaceStatus(f.surfaces[0]); err != nil {
		t.Errorf("surfaces are not owned by the context: %v", err)
	}
}
