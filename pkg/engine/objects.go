package engine

import (
	"github.com/user/vacore/pkg/negotiate"
	"github.com/user/vacore/pkg/va"
)

// store is backing memory shared between surfaces, derived images and
// exported handles. Data is dropped when both counts reach zero.
type store struct {
	data     []byte
	internal int
	external int
	imported bool
}

func newStore(size uint32) *store {
	return &store{data: make([]byte, size), internal: 1}
}

func (st *store) retain() { st.internal++ }

func (st *store) release() {
	if st.internal > 0 {
		st.internal--
	}
	st.maybeFree()
}

func (st *store) releaseExternal() {
	if st.external > 0 {
		st.external--
	}
	st.maybeFree()
}

func (st *store) maybeFree() {
	if st.internal == 0 && st.external == 0 {
		st.data = nil
	}
}

type configObject struct {
	id         va.ConfigID
	profile    va.Profile
	entrypoint va.Entrypoint
	attribs    []va.ConfigAttrib
}

type contextState int

const (
	stateIdle contextState = iota
	stateBuilding
	stateSubmitted
)

func (st contextState) String() string {
	switch st {
	case stateIdle:
		return "idle"
	case stateBuilding:
		return "building"
	case stateSubmitted:
		return "submitted"
	}
	return "unknown"
}

type contextObject struct {
	id      va.ContextID
	config  *configObject
	width   uint32
	height  uint32
	flags   int
	targets []va.SurfaceID

	state   contextState
	target  *surfaceObject
	pending []*bufferObject
	frame   *frame

	buffers map[*bufferObject]struct{}
	mf      *mfObject
}

type surfaceObject struct {
	id    va.SurfaceID
	spec  negotiate.SurfaceSpec
	store *store

	status   va.SurfaceStatus
	building *contextObject
	frame    *frame
	lastErr  error
	mbErrors []va.SurfaceDecodeMBErrors

	// views counts mapped buffers of images derived from the surface;
	// transfers counts GetImage and PutImage calls running on it.
	views     int
	transfers int

	subpictures map[*subpictureObject]struct{}
	released    bool
}

// rendering reports whether the surface is a render target that has not
// been synchronized yet.
func (sf *surfaceObject) rendering() bool {
	return sf.building != nil || (sf.frame != nil && !sf.frame.acked)
}

// busy reports whether anything other than the caller may touch the
// surface memory: the accelerator, an image transfer or a client mapping.
func (sf *surfaceObject) busy() bool {
	return sf.rendering() || sf.views > 0 || sf.transfers > 0
}

type bufferObject struct {
	id          va.BufferID
	ctx         *contextObject
	image       *imageObject
	typ         va.BufferType
	elemSize    uint32
	numElements uint32
	pitch       uint32
	store       *store

	mapped    bool
	transfers int
	frame     *frame
	segments  []va.CodedBufferSegment

	pinned  int
	memType uint32
	native  uintptr

	// released is set once the handle is gone; the store may still be in
	// use by a frame that has not completed.
	released bool
}

func (b *bufferObject) size() uint32 {
	n := b.elemSize * b.numElements
	if b.store == nil {
		return 0
	}
	if int(n) > len(b.store.data) {
		return uint32(len(b.store.data))
	}
	return n
}

func (b *bufferObject) bytes() []byte {
	if b.store == nil {
		return nil
	}
	return b.store.data[:b.size()]
}

// derivedFrom returns the surface whose memory the buffer exposes, if any.
func (b *bufferObject) derivedFrom() *surfaceObject {
	if b.image == nil {
		return nil
	}
	return b.image.derived
}

// inFlight reports whether a frame holding the buffer has not completed.
func (b *bufferObject) inFlight() bool {
	return b.frame != nil && !b.frame.completed
}

// unsynchronized reports whether the buffer belongs to a frame the client
// has not synchronized yet.
func (b *bufferObject) unsynchronized() bool {
	return b.frame != nil && !b.frame.acked
}

type imageObject struct {
	id      va.ImageID
	image   va.Image
	buf     *bufferObject
	layout  va.Layout
	derived *surfaceObject
}

type association struct {
	src   va.Rectangle
	dst   va.Rectangle
	flags uint32
}

type subpictureObject struct {
	id          va.SubpictureID
	image       *imageObject
	store       *store
	chromaMin   uint32
	chromaMax   uint32
	chromaMask  uint32
	chromaKey   bool
	globalAlpha float32
	assoc       map[*surfaceObject]association
}

type mfObject struct {
	id          va.MFContextID
	contexts    []*contextObject
	queued      []*frame
	independent bool
}

// nativeRef is what an exported native handle points at.
type nativeRef struct {
	store   *store
	buffer  *bufferObject
	surface *surfaceObject
}
