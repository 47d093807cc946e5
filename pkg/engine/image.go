package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

func (s *Session) imageByID(id va.ImageID) (*imageObject, error) {
	img, err := s.images.Resolve(handle.Handle(id))
	if err != nil {
		return nil, invalidHandle(va.ErrInvalidImage, uint32(id), err)
	}
	return img, nil
}

// CreateImage creates a client image with its own backing buffer.
func (s *Session) CreateImage(format va.ImageFormat, width, height uint32) (va.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.Image{}, err
	}
	known, ok := s.neg.ImageFormat(format.FourCC)
	if !ok {
		return va.Image{}, fmt.Errorf("create image %s: %w", va.FourCCString(format.FourCC), va.ErrInvalidImageFormat)
	}
	if width == 0 || height == 0 || width > 0xFFFF || height > 0xFFFF {
		return va.Image{}, fmt.Errorf("create image %dx%d: %w", width, height, va.ErrInvalidParameter)
	}
	layout, ok := va.ComputeLayout(known.FourCC, width, height)
	if !ok {
		return va.Image{}, fmt.Errorf("create image %s: %w", va.FourCCString(format.FourCC), va.ErrInvalidImageFormat)
	}
	return s.newImageLocked(known, layout, newStore(layout.DataSize), nil)
}

// DeriveImage exposes the memory of a surface as an image without copying.
// Mapping the image buffer fails with SurfaceBusy while the surface is
// being rendered.
func (s *Session) DeriveImage(id va.SurfaceID) (va.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.Image{}, err
	}
	sf, err := s.surface(id)
	if err != nil {
		return va.Image{}, err
	}
	format, ok := s.neg.ImageFormat(sf.spec.FourCC)
	if !ok {
		return va.Image{}, fmt.Errorf("derive image from %s surface %#x: %w", va.FourCCString(sf.spec.FourCC), uint32(id), va.ErrOperationFailed)
	}
	sf.store.retain()
	return s.newImageLocked(format, sf.spec.Layout, sf.store, sf)
}

func (s *Session) newImageLocked(format va.ImageFormat, layout va.Layout, st *store, derived *surfaceObject) (va.Image, error) {
	b := &bufferObject{typ: va.ImageBufferType, elemSize: layout.DataSize, numElements: 1, store: st}
	if err := s.registerBufferLocked(b); err != nil {
		st.release()
		return va.Image{}, err
	}
	img := &imageObject{buf: b, layout: layout, derived: derived}
	h, err := s.images.Allocate(img)
	if err != nil {
		s.releaseBufferLocked(b)
		return va.Image{}, invalidHandle(va.ErrInvalidImage, uint32(h), err)
	}
	b.image = img
	img.id = va.ImageID(h)
	img.image = va.Image{
		ID:        img.id,
		Format:    format,
		Buf:       b.id,
		Width:     uint16(layout.Width),
		Height:    uint16(layout.Height),
		DataSize:  layout.DataSize,
		NumPlanes: layout.NumPlanes,
		Pitches:   layout.Pitches,
		Offsets:   layout.Offsets,
	}
	return img.image, nil
}

// DestroyImage destroys an image and its backing buffer. Memory shared
// with a surface or a subpicture stays alive for them.
func (s *Session) DestroyImage(id va.ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	img, err := s.imageByID(id)
	if err != nil {
		return err
	}
	if img.buf.pinned > 0 {
		return busy("destroy image %#x with acquired buffer", uint32(id))
	}
	if img.buf.transfers > 0 {
		return busy("destroy image %#x during a transfer", uint32(id))
	}
	s.destroyImageLocked(img)
	return nil
}

// busy reports whether the image memory is mapped, in a transfer or, for
// a derived image, still owned by the accelerator.
func (img *imageObject) busy() bool {
	if img.buf.mapped || img.buf.transfers > 0 {
		return true
	}
	return img.derived != nil && img.derived.rendering()
}

func (s *Session) destroyImageLocked(img *imageObject) {
	s.images.Release(handle.Handle(img.id))
	s.releaseBufferLocked(img.buf)
}

func inBounds(x, y int, w, h, maxW, maxH uint32) bool {
	return x >= 0 && y >= 0 && w > 0 && h > 0 &&
		uint64(x)+uint64(w) <= uint64(maxW) && uint64(y)+uint64(h) <= uint64(maxH)
}

// GetImage copies a region of a surface into an image.
func (s *Session) GetImage(ctx context.Context, id va.SurfaceID, x, y int, width, height uint32, imgID va.ImageID) error {
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
	img, err := s.imageByID(imgID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if sf.busy() || img.busy() {
		s.mu.Unlock()
		return busy("get image from surface %#x", uint32(id))
	}
	if !inBounds(x, y, width, height, sf.spec.Width, sf.spec.Height) || width > img.layout.Width || height > img.layout.Height {
		s.mu.Unlock()
		return fmt.Errorf("get image region %dx%d+%d+%d: %w", width, height, x, y, va.ErrInvalidParameter)
	}
	req := ports.TransferRequest{
		Src:     ports.FrameRef{Layout: sf.spec.Layout, Data: sf.store.data},
		SrcRect: image.Rect(x, y, x+int(width), y+int(height)),
		Dst:     ports.FrameRef{Layout: img.layout, Data: img.buf.store.data},
		DstRect: image.Rect(0, 0, int(width), int(height)),
	}
	return s.transfer(ctx, req, sf, img)
}

// PutImage copies a region of an image into a region of a surface,
// scaling when the sizes differ.
func (s *Session) PutImage(ctx context.Context, id va.SurfaceID, imgID va.ImageID, srcX, srcY int, srcW, srcH uint32, dstX, dstY int, dstW, dstH uint32) error {
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
	img, err := s.imageByID(imgID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if sf.busy() || img.busy() {
		s.mu.Unlock()
		return busy("put image to surface %#x", uint32(id))
	}
	if !inBounds(srcX, srcY, srcW, srcH, img.layout.Width, img.layout.Height) ||
		!inBounds(dstX, dstY, dstW, dstH, sf.spec.Width, sf.spec.Height) {
		s.mu.Unlock()
		return fmt.Errorf("put image region %dx%d+%d+%d to %dx%d+%d+%d: %w",
			srcW, srcH, srcX, srcY, dstW, dstH, dstX, dstY, va.ErrInvalidParameter)
	}
	req := ports.TransferRequest{
		Src:     ports.FrameRef{Layout: img.layout, Data: img.buf.store.data},
		SrcRect: image.Rect(srcX, srcY, srcX+int(srcW), srcY+int(srcH)),
		Dst:     ports.FrameRef{Layout: sf.spec.Layout, Data: sf.store.data},
		DstRect: image.Rect(dstX, dstY, dstX+int(dstW), dstY+int(dstH)),
	}
	return s.transfer(ctx, req, sf, img)
}

// transfer runs req on the accelerator between sf and img. Both stay
// marked busy for the length of the call so that no frame, mapping or
// destroy touches the same memory. It is entered with s.mu held and
// returns with it released.
func (s *Session) transfer(ctx context.Context, req ports.TransferRequest, sf *surfaceObject, img *imageObject) error {
	src, dst := sf.store, img.buf.store
	src.retain()
	dst.retain()
	sf.transfers++
	img.buf.transfers++
	if img.derived != nil {
		img.derived.transfers++
	}
	s.mu.Unlock()

	err := s.accel.Transfer(ctx, req)

	s.mu.Lock()
	sf.transfers--
	img.buf.transfers--
	if img.derived != nil {
		img.derived.transfers--
	}
	src.release()
	dst.release()
	s.mu.Unlock()
	if err != nil {
		if va.StatusOf(err) == va.ErrUnknown {
			return fmt.Errorf("transfer: %w: %w", va.ErrOperationFailed, err)
		}
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}
