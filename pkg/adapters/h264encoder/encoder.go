// Package h264encoder provides H.264 video encoding on an engine session.
//
// Frames are uploaded with PutImage into a ring of slots, each with its own
// context, surface and coded buffer, and submitted without waiting. A slot
// is synchronized only when the ring comes back to it or when encoding
// ends, so up to Surfaces pictures run on the dispatcher at once. Output is
// muxed into a fragmented MP4.
package h264encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/user/vacore/pkg/adapters/avcmp4"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

const defaultSurfaces = 4

// slot is one picture in flight.
type slot struct {
	context va.ContextID
	surface va.SurfaceID
	coded   va.BufferID
}

// pendingFrame is a submitted picture that has not been synchronized.
type pendingFrame struct {
	slot        int
	timestampMs int
}

// Encoder implements ports.VideoEncoder on an engine session.
type Encoder struct {
	mu sync.Mutex

	session *engine.Session
	logger  ports.Logger

	width   int
	height  int
	fps     float64
	options ports.EncoderOptions

	config  va.ConfigID
	slots   []slot
	upload  va.Image
	started bool

	pending    []pendingFrame
	samples    []avcmp4.Sample
	frameCount int
}

// New creates an encoder that submits work to session.
func New(session *engine.Session, logger ports.Logger) *Encoder {
	return &Encoder{
		session: session,
		logger:  logger.WithComponent("h264encoder"),
	}
}

// Begin creates the config, surfaces, context and buffers of one stream.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		e.destroyLocked()
	}
	if opts.Profile == va.ProfileMPEG2Simple || opts.Profile == va.ProfileNone {
		opts.Profile = va.ProfileH264ConstrainedBaseline
	}
	if opts.Surfaces <= 0 {
		opts.Surfaces = defaultSurfaces
	}
	e.width = width
	e.height = height
	e.fps = fps
	e.options = opts
	e.pending = nil
	e.samples = nil
	e.frameCount = 0

	if err := e.createLocked(); err != nil {
		e.destroyLocked()
		return err
	}
	e.started = true
	e.logger.Debug("Encoder ready: %dx%d at %.1f fps, %d surfaces", width, height, fps, opts.Surfaces)
	return nil
}

func (e *Encoder) createLocked() error {
	s := e.session
	w, h := uint32(e.width), uint32(e.height)

	format, err := rgbaFormat(s)
	if err != nil {
		return err
	}
	e.config, err = s.CreateConfig(e.options.Profile, va.EntrypointEncSlice, []va.ConfigAttrib{
		{Type: va.ConfigAttribRTFormat, Value: va.RTFormatYUV420},
		{Type: va.ConfigAttribRateControl, Value: va.RCCQP},
	})
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	surfaces, err := s.CreateSurfaces(va.RTFormatYUV420, w, h, e.options.Surfaces, nil)
	if err != nil {
		return fmt.Errorf("create surfaces: %w", err)
	}
	size := codedBufferSize(w, h)
	for _, surface := range surfaces {
		e.slots = append(e.slots, slot{surface: surface})
	}
	for i := range e.slots {
		sl := &e.slots[i]
		sl.context, err = s.CreateContext(e.config, w, h, va.ContextFlagProgressive, []va.SurfaceID{sl.surface})
		if err != nil {
			return fmt.Errorf("create context: %w", err)
		}
		sl.coded, err = s.CreateBuffer(sl.context, va.EncCodedBufferType, size, 1, nil)
		if err != nil {
			return fmt.Errorf("create coded buffer: %w", err)
		}
	}
	e.upload, err = s.CreateImage(format, w, h)
	if err != nil {
		return fmt.Errorf("create upload image: %w", err)
	}
	return nil
}

// codedBufferSize bounds one I_PCM picture with its parameter sets.
func codedBufferSize(w, h uint32) uint32 {
	mbs := ((w + 15) / 16) * ((h + 15) / 16)
	return mbs*400 + 1024
}

func rgbaFormat(s *engine.Session) (va.ImageFormat, error) {
	formats, err := s.QueryImageFormats()
	if err != nil {
		return va.ImageFormat{}, err
	}
	for _, f := range formats {
		if f.FourCC == va.FourCCRGBA {
			return f, nil
		}
	}
	return va.ImageFormat{}, ErrNoImageFormat
}

// EncodeFrame uploads img and submits it. It blocks only when the surface
// ring is full.
func (e *Encoder) EncodeFrame(ctx context.Context, img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return ErrNotInitialized
	}
	n := e.frameCount % len(e.slots)
	for len(e.pending) > 0 && e.isPending(n) {
		if err := e.collectLocked(ctx); err != nil {
			return err
		}
	}
	if err := e.uploadLocked(ctx, img, e.slots[n].surface); err != nil {
		return err
	}
	if err := e.submitLocked(ctx, e.slots[n]); err != nil {
		return err
	}
	e.pending = append(e.pending, pendingFrame{slot: n, timestampMs: timestampMs})
	e.frameCount++
	return nil
}

func (e *Encoder) isPending(n int) bool {
	for _, p := range e.pending {
		if p.slot == n {
			return true
		}
	}
	return false
}

// uploadLocked draws img into the upload image and copies it to surface.
func (e *Encoder) uploadLocked(ctx context.Context, img image.Image, surface va.SurfaceID) error {
	s := e.session
	data, err := s.MapBuffer(e.upload.Buf)
	if err != nil {
		return fmt.Errorf("map upload image: %w", err)
	}
	dst := &image.RGBA{
		Pix:    data[e.upload.Offsets[0]:],
		Stride: int(e.upload.Pitches[0]),
		Rect:   image.Rect(0, 0, e.width, e.height),
	}
	draw.Draw(dst, dst.Rect, img, img.Bounds().Min, draw.Src)
	if err := s.UnmapBuffer(e.upload.Buf); err != nil {
		return err
	}
	w, h := uint32(e.width), uint32(e.height)
	if err := s.PutImage(ctx, surface, e.upload.ID, 0, 0, w, h, 0, 0, w, h); err != nil {
		return fmt.Errorf("put image: %w", err)
	}
	return nil
}

// submitLocked renders one picture. Parameter sets go with the first
// picture only; every picture is an IDR picture.
func (e *Encoder) submitLocked(ctx context.Context, sl slot) error {
	s := e.session
	var bufs []va.BufferID
	if e.frameCount == 0 {
		seq := swaccel.SequenceParams{LevelIDC: uint32(e.options.LevelIDC)}.Marshal()
		id, err := s.CreateBuffer(sl.context, va.EncSequenceParameterBufferType, uint32(len(seq)), 1, seq)
		if err != nil {
			return fmt.Errorf("create sequence parameters: %w", err)
		}
		bufs = append(bufs, id)
	}
	pic := swaccel.PictureParams{IDRPicID: uint32(e.frameCount % 65536)}.Marshal()
	picID, err := s.CreateBuffer(sl.context, va.EncPictureParameterBufferType, uint32(len(pic)), 1, pic)
	if err != nil {
		return fmt.Errorf("create picture parameters: %w", err)
	}
	bufs = append(bufs, picID, sl.coded)

	if err := s.BeginPicture(sl.context, sl.surface); err != nil {
		return fmt.Errorf("begin picture: %w", err)
	}
	if err := s.RenderPicture(sl.context, bufs); err != nil {
		e.abandonLocked(sl)
		return fmt.Errorf("render picture: %w", err)
	}
	for {
		err := s.EndPicture(sl.context)
		if err == nil {
			return nil
		}
		if !errors.Is(err, engine.ErrQueueFull) || len(e.pending) == 0 {
			e.abandonLocked(sl)
			return fmt.Errorf("end picture: %w", err)
		}
		if err := e.collectLocked(ctx); err != nil {
			e.abandonLocked(sl)
			return err
		}
	}
}

// abandonLocked closes a picture that could not be submitted so that its
// context and surface can be destroyed. The frame is expected to fail.
// When the queue is full the other slots are waited for once.
func (e *Encoder) abandonLocked(sl slot) {
	s := e.session
	err := s.EndPicture(sl.context)
	if errors.Is(err, engine.ErrQueueFull) {
		e.syncSlotsLocked(sl.surface)
		err = s.EndPicture(sl.context)
	}
	if err != nil {
		if !errors.Is(err, engine.ErrNoPicture) {
			e.logger.Warn("Could not close picture on context %#x: %v", uint32(sl.context), err)
		}
		return
	}
	if err := s.SyncSurface(context.Background(), sl.surface); err != nil {
		e.logger.Debug("Abandoned picture on surface %#x: %v", uint32(sl.surface), err)
	}
}

// syncSlotsLocked waits for the pictures on every slot but skip. Errors
// are logged only; the frames they belong to are being discarded.
func (e *Encoder) syncSlotsLocked(skip va.SurfaceID) {
	for _, sl := range e.slots {
		if sl.surface == 0 || sl.surface == skip {
			continue
		}
		if err := e.session.SyncSurface(context.Background(), sl.surface); err != nil {
			e.logger.Debug("Discarded picture on surface %#x: %v", uint32(sl.surface), err)
		}
	}
}

// collectLocked synchronizes the oldest pending picture and keeps its
// coded data.
func (e *Encoder) collectLocked(ctx context.Context) error {
	p := e.pending[0]
	e.pending = e.pending[1:]
	s := e.session
	sl := e.slots[p.slot]

	if err := s.SyncSurface(ctx, sl.surface); err != nil {
		return fmt.Errorf("sync frame at %dms: %w", p.timestampMs, err)
	}
	seg, err := s.MapCodedBuffer(sl.coded)
	if err != nil {
		return fmt.Errorf("map coded buffer: %w", err)
	}
	var overflow bool
	for sg := seg; sg != nil; sg = sg.Next {
		overflow = overflow || sg.Status&va.CodedBufStatusFrameSizeOverflow != 0
	}
	data := seg.Bytes()
	if err := s.UnmapBuffer(sl.coded); err != nil {
		return err
	}
	if overflow {
		return fmt.Errorf("frame at %dms exceeds the coded buffer: %w", p.timestampMs, va.ErrEncodingError)
	}
	e.samples = append(e.samples, avcmp4.Sample{Data: data, TimestampMs: p.timestampMs, Sync: true})
	return nil
}

// End finalizes encoding and returns the MP4 data.
func (e *Encoder) End(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil, ErrNotInitialized
	}
	defer e.destroyLocked()

	for len(e.pending) > 0 {
		if err := e.collectLocked(ctx); err != nil {
			return nil, err
		}
	}
	if len(e.samples) == 0 {
		return nil, ErrNoFrames
	}

	var buf bytes.Buffer
	if err := avcmp4.Mux(&buf, e.width, e.height, e.fps, e.samples); err != nil {
		return nil, fmt.Errorf("mux: %w", err)
	}
	e.logger.Debug("Encoded %d frames into %d bytes", len(e.samples), buf.Len())
	return buf.Bytes(), nil
}

// destroyLocked releases the session objects of the stream. Pictures still
// in flight are waited for first so nothing is destroyed while busy.
func (e *Encoder) destroyLocked() {
	s := e.session
	e.syncSlotsLocked(0)
	e.pending = nil
	if e.upload.ID != 0 {
		if err := s.DestroyImage(e.upload.ID); err != nil {
			e.logger.Warn("Could not destroy %s %#x: %v", "image", uint32(e.upload.ID), err)
		}
	}
	var surfaces []va.SurfaceID
	for _, sl := range e.slots {
		if sl.context != 0 {
			if err := s.DestroyContext(sl.context); err != nil {
				e.logger.Warn("Could not destroy %s %#x: %v", "context", uint32(sl.context), err)
			}
		}
		surfaces = append(surfaces, sl.surface)
	}
	if len(surfaces) > 0 {
		if err := s.DestroySurfaces(surfaces); err != nil {
			e.logger.Warn("Could not destroy %s %#x: %v", "surfaces", uint32(surfaces[0]), err)
		}
	}
	if e.config != 0 {
		if err := s.DestroyConfig(e.config); err != nil {
			e.logger.Warn("Could not destroy %s %#x: %v", "config", uint32(e.config), err)
		}
	}
	e.upload = va.Image{}
	e.slots = nil
	e.config = 0
	e.started = false
}

// Ensure Encoder implements ports.VideoEncoder
var _ ports.VideoEncoder = (*Encoder)(nil)
