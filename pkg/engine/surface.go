package engine

import (
	"fmt"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/va"
)

func (s *Session) surface(id va.SurfaceID) (*surfaceObject, error) {
	sf, err := s.surfaces.Resolve(handle.Handle(id))
	if err != nil {
		return nil, invalidHandle(va.ErrInvalidSurface, uint32(id), err)
	}
	return sf, nil
}

// CreateSurfaces creates count surfaces of the given render-target format.
// Either all surfaces are created or none.
func (s *Session) CreateSurfaces(format, width, height uint32, count int, attribs []va.SurfaceAttrib) ([]va.SurfaceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("create %d surfaces: %w", count, va.ErrInvalidParameter)
	}
	spec, err := s.neg.ResolveSurface(format, width, height, attribs)
	if err != nil {
		return nil, fmt.Errorf("create surfaces %dx%d: %w", width, height, err)
	}
	if ext := spec.External; ext != nil {
		if len(ext.Buffers) < count {
			return nil, fmt.Errorf("create %d surfaces from %d external buffers: %w", count, len(ext.Buffers), va.ErrInvalidParameter)
		}
		for i := 0; i < count; i++ {
			if uint32(len(ext.Buffers[i])) < ext.DataSize {
				return nil, fmt.Errorf("external buffer %d holds %d of %d bytes: %w", i, len(ext.Buffers[i]), ext.DataSize, va.ErrInvalidParameter)
			}
		}
	}

	ids := make([]va.SurfaceID, 0, count)
	for i := 0; i < count; i++ {
		sf := &surfaceObject{spec: spec, status: va.SurfaceReady}
		if spec.External != nil {
			sf.store = &store{data: spec.External.Buffers[i][:spec.External.DataSize], internal: 1, imported: true}
		} else {
			sf.store = newStore(spec.Layout.DataSize)
		}
		h, err := s.surfaces.Allocate(sf)
		if err != nil {
			for _, id := range ids {
				s.surfaces.Release(handle.Handle(id))
			}
			return nil, invalidHandle(va.ErrInvalidSurface, uint32(h), err)
		}
		sf.id = va.SurfaceID(h)
		ids = append(ids, sf.id)
	}
	s.logger.Debug("%d surfaces created: %s %dx%d", count, va.FourCCString(spec.FourCC), width, height)
	return ids, nil
}

// DestroySurfaces destroys the given surfaces. If any of them is the
// target of a frame that has not been synchronized, none is destroyed.
func (s *Session) DestroySurfaces(ids []va.SurfaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	targets := make([]*surfaceObject, 0, len(ids))
	seen := make(map[*surfaceObject]bool, len(ids))
	for _, id := range ids {
		sf, err := s.surface(id)
		if err != nil {
			return err
		}
		if sf.busy() {
			return busy("destroy surface %#x", uint32(id))
		}
		if !seen[sf] {
			seen[sf] = true
			targets = append(targets, sf)
		}
	}
	for _, sf := range targets {
		s.releaseSurfaceLocked(sf)
	}
	return nil
}

func (s *Session) releaseSurfaceLocked(sf *surfaceObject) {
	if sf.released {
		return
	}
	sf.released = true
	s.surfaces.Release(handle.Handle(sf.id))
	for sp := range sf.subpictures {
		delete(sp.assoc, sf)
	}
	sf.subpictures = nil
	sf.store.release()
}

// QuerySurfaceStatus reports the current status without waiting.
func (s *Session) QuerySurfaceStatus(id va.SurfaceID) (va.SurfaceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	sf, err := s.surface(id)
	if err != nil {
		return 0, err
	}
	return sf.status, nil
}

// QuerySurfaceError returns the macroblock error ranges recorded by the
// last frame rendered to the surface, if that frame failed with status.
// status must be va.ErrDecodingError or va.ErrEncodingError.
func (s *Session) QuerySurfaceError(id va.SurfaceID, status va.Status) ([]va.SurfaceDecodeMBErrors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if status != va.ErrDecodingError && status != va.ErrEncodingError {
		return nil, fmt.Errorf("query surface error for %s: %w", status, va.ErrInvalidParameter)
	}
	sf, err := s.surface(id)
	if err != nil {
		return nil, err
	}
	if va.StatusOf(sf.lastErr) != status {
		return nil, nil
	}
	return append([]va.SurfaceDecodeMBErrors(nil), sf.mbErrors...), nil
}

// GetSurfaceAttributes returns the attributes a surface was created with.
// Passing them back to CreateSurfaces yields an equivalent surface.
func (s *Session) GetSurfaceAttributes(id va.SurfaceID) ([]va.SurfaceAttrib, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	sf, err := s.surface(id)
	if err != nil {
		return nil, err
	}
	return append([]va.SurfaceAttrib(nil), sf.spec.Attribs...), nil
}

// ExportSurfaceHandle shares the memory of a surface outside the session.
// The memory stays valid until ReleaseSurfaceHandle, even if the surface
// is destroyed first.
func (s *Session) ExportSurfaceHandle(id va.SurfaceID, memType, flags uint32) (va.SurfaceDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.SurfaceDescriptor{}, err
	}
	sf, err := s.surface(id)
	if err != nil {
		return va.SurfaceDescriptor{}, err
	}
	if !s.supportedMemType(memType) {
		return va.SurfaceDescriptor{}, fmt.Errorf("export surface %#x as %#x: %w", uint32(id), memType, va.ErrUnsupportedMemoryType)
	}
	if flags&va.ExportSurfaceReadWrite == 0 {
		return va.SurfaceDescriptor{}, fmt.Errorf("export surface %#x without access flags: %w", uint32(id), va.ErrInvalidParameter)
	}
	separate := flags&va.ExportSurfaceSeparateLayers != 0
	composed := flags&va.ExportSurfaceComposedLayers != 0
	if separate == composed {
		return va.SurfaceDescriptor{}, fmt.Errorf("export surface %#x needs one layer mode: %w", uint32(id), va.ErrInvalidParameter)
	}

	sf.store.external++
	token := s.natives.Register(&nativeRef{store: sf.store, surface: sf})

	l := sf.spec.Layout
	desc := va.SurfaceDescriptor{
		FourCC: l.FourCC,
		Width:  l.Width,
		Height: l.Height,
		Objects: []va.DescriptorObject{{
			Handle: token,
			Size:   uint32(len(sf.store.data)),
			Data:   sf.store.data,
		}},
	}
	if composed {
		layer := va.DescriptorLayer{FourCC: l.FourCC, NumPlanes: l.NumPlanes}
		for p := uint32(0); p < l.NumPlanes; p++ {
			layer.Offset[p] = l.Offsets[p]
			layer.Pitch[p] = l.Pitches[p]
		}
		desc.Layers = []va.DescriptorLayer{layer}
	} else {
		for p := uint32(0); p < l.NumPlanes; p++ {
			layer := va.DescriptorLayer{FourCC: planeFourCC(l.FourCC, p), NumPlanes: 1}
			layer.Offset[0] = l.Offsets[p]
			layer.Pitch[0] = l.Pitches[p]
			desc.Layers = append(desc.Layers, layer)
		}
	}
	s.logger.Debug("Surface %#x exported as native handle %d", uint32(id), token)
	return desc, nil
}

// planeFourCC names a single plane exported as its own layer.
func planeFourCC(fourcc, plane uint32) uint32 {
	switch fourcc {
	case va.FourCCNV12, va.FourCCNV21:
		if plane == 0 {
			return va.FourCCR8
		}
		return va.FourCCGR88
	case va.FourCCI420, va.FourCCYV12, va.FourCCY800:
		return va.FourCCR8
	}
	return fourcc
}

// ReleaseSurfaceHandle ends an export made by ExportSurfaceHandle.
func (s *Session) ReleaseSurfaceHandle(native uintptr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.natives.Lookup(native)
	if !ok || ref.surface == nil {
		return fmt.Errorf("release native handle %d: %w", native, va.ErrInvalidParameter)
	}
	s.natives.Unregister(native)
	ref.store.releaseExternal()
	return nil
}

// ExternalBytes returns the memory behind a native handle issued by
// ExportSurfaceHandle or AcquireBufferHandle.
func (s *Session) ExternalBytes(native uintptr) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.natives.Lookup(native)
	if !ok {
		return nil, fmt.Errorf("native handle %d: %w", native, va.ErrInvalidParameter)
	}
	if ref.buffer != nil {
		return ref.buffer.bytes(), nil
	}
	return ref.store.data, nil
}

func (s *Session) supportedMemType(memType uint32) bool {
	return memType != 0 && memType&(memType-1) == 0 && memType&s.neg.Capabilities().MemoryTypes != 0
}
