package engine

import (
	"fmt"
	"sort"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/va"
)

// Association is one link between a subpicture and a surface.
type Association struct {
	Subpicture va.SubpictureID
	Src        va.Rectangle
	Dst        va.Rectangle
	Flags      uint32
}

func (s *Session) subpicture(id va.SubpictureID) (*subpictureObject, error) {
	sp, err := s.subpictures.Resolve(handle.Handle(id))
	if err != nil {
		return nil, invalidHandle(va.ErrInvalidSubpicture, uint32(id), err)
	}
	return sp, nil
}

func (s *Session) subpictureImage(id va.ImageID) (*imageObject, uint32, error) {
	img, err := s.imageByID(id)
	if err != nil {
		return nil, 0, err
	}
	flags, ok := s.neg.SubpictureFlags(img.image.Format.FourCC)
	if !ok {
		return nil, 0, fmt.Errorf("subpicture from %s image: %w", va.FourCCString(img.image.Format.FourCC), va.ErrInvalidImageFormat)
	}
	return img, flags, nil
}

// CreateSubpicture creates an overlay backed by an image.
func (s *Session) CreateSubpicture(imgID va.ImageID) (va.SubpictureID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.InvalidSubpicture, err
	}
	img, _, err := s.subpictureImage(imgID)
	if err != nil {
		return va.InvalidSubpicture, err
	}
	sp := &subpictureObject{
		image:       img,
		store:       img.buf.store,
		globalAlpha: 1,
		assoc:       make(map[*surfaceObject]association),
	}
	h, err := s.subpictures.Allocate(sp)
	if err != nil {
		return va.InvalidSubpicture, invalidHandle(va.ErrInvalidSubpicture, uint32(h), err)
	}
	sp.store.retain()
	sp.id = va.SubpictureID(h)
	return sp.id, nil
}

// DestroySubpicture destroys a subpicture and drops its associations.
func (s *Session) DestroySubpicture(id va.SubpictureID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	sp, err := s.subpicture(id)
	if err != nil {
		return err
	}
	s.destroySubpictureLocked(sp)
	return nil
}

func (s *Session) destroySubpictureLocked(sp *subpictureObject) {
	for sf := range sp.assoc {
		delete(sf.subpictures, sp)
	}
	sp.assoc = nil
	sp.store.release()
	s.subpictures.Release(handle.Handle(sp.id))
}

// SetSubpictureImage replaces the image behind a subpicture.
func (s *Session) SetSubpictureImage(id va.SubpictureID, imgID va.ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	sp, err := s.subpicture(id)
	if err != nil {
		return err
	}
	img, _, err := s.subpictureImage(imgID)
	if err != nil {
		return err
	}
	img.buf.store.retain()
	sp.store.release()
	sp.image = img
	sp.store = img.buf.store
	return nil
}

// SetSubpictureChromakey sets the key range; pixels with
// min <= value&mask <= max are transparent.
func (s *Session) SetSubpictureChromakey(id va.SubpictureID, min, max, mask uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	sp, err := s.subpicture(id)
	if err != nil {
		return err
	}
	flags, _ := s.neg.SubpictureFlags(sp.image.image.Format.FourCC)
	if flags&va.SubpictureChromaKeying == 0 {
		return fmt.Errorf("chroma key on subpicture %#x: %w", uint32(id), va.ErrFlagNotSupported)
	}
	if min > max {
		return fmt.Errorf("chroma key range %#x..%#x: %w", min, max, va.ErrInvalidParameter)
	}
	sp.chromaMin, sp.chromaMax, sp.chromaMask = min, max, mask
	sp.chromaKey = true
	return nil
}

// SetSubpictureGlobalAlpha sets the blend factor in [0, 1].
func (s *Session) SetSubpictureGlobalAlpha(id va.SubpictureID, alpha float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	sp, err := s.subpicture(id)
	if err != nil {
		return err
	}
	flags, _ := s.neg.SubpictureFlags(sp.image.image.Format.FourCC)
	if flags&va.SubpictureGlobalAlpha == 0 {
		return fmt.Errorf("global alpha on subpicture %#x: %w", uint32(id), va.ErrFlagNotSupported)
	}
	if alpha < 0 || alpha > 1 {
		return fmt.Errorf("global alpha %v: %w", alpha, va.ErrInvalidParameter)
	}
	sp.globalAlpha = alpha
	return nil
}

// AssociateSubpicture links a subpicture to surfaces. src is a region of
// the subpicture image, dst a region of each surface.
func (s *Session) AssociateSubpicture(id va.SubpictureID, surfaces []va.SurfaceID, src, dst va.Rectangle, flags uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	sp, err := s.subpicture(id)
	if err != nil {
		return err
	}
	supported, _ := s.neg.SubpictureFlags(sp.image.image.Format.FourCC)
	if flags&^supported != 0 {
		return fmt.Errorf("associate subpicture %#x with flags %#x: %w", uint32(id), flags, va.ErrFlagNotSupported)
	}
	if !inBounds(int(src.X), int(src.Y), uint32(src.Width), uint32(src.Height), sp.image.layout.Width, sp.image.layout.Height) {
		return fmt.Errorf("associate subpicture %#x source region: %w", uint32(id), va.ErrInvalidParameter)
	}
	targets := make([]*surfaceObject, 0, len(surfaces))
	for _, sid := range surfaces {
		sf, err := s.surface(sid)
		if err != nil {
			return err
		}
		targets = append(targets, sf)
	}
	for _, sf := range targets {
		sp.assoc[sf] = association{src: src, dst: dst, flags: flags}
		if sf.subpictures == nil {
			sf.subpictures = make(map[*subpictureObject]struct{})
		}
		sf.subpictures[sp] = struct{}{}
	}
	return nil
}

// DeassociateSubpicture removes links made by AssociateSubpicture.
// Surfaces that were not associated are ignored.
func (s *Session) DeassociateSubpicture(id va.SubpictureID, surfaces []va.SurfaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	sp, err := s.subpicture(id)
	if err != nil {
		return err
	}
	targets := make([]*surfaceObject, 0, len(surfaces))
	for _, sid := range surfaces {
		sf, err := s.surface(sid)
		if err != nil {
			return err
		}
		targets = append(targets, sf)
	}
	for _, sf := range targets {
		delete(sp.assoc, sf)
		delete(sf.subpictures, sp)
	}
	return nil
}

// SubpictureAssociations lists the subpictures linked to a surface,
// ordered by subpicture id.
func (s *Session) SubpictureAssociations(id va.SurfaceID) ([]Association, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	sf, err := s.surface(id)
	if err != nil {
		return nil, err
	}
	out := make([]Association, 0, len(sf.subpictures))
	for sp := range sf.subpictures {
		a := sp.assoc[sf]
		out = append(out, Association{Subpicture: sp.id, Src: a.src, Dst: a.dst, Flags: a.flags})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subpicture < out[j].Subpicture })
	return out, nil
}
