// Package h264decoder decodes H.264 MP4 files on an engine session.
package h264decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/avc"

	"github.com/user/vacore/pkg/adapters/avcmp4"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

var (
	// ErrClosed is returned when the decoder is used after Close.
	ErrClosed = errors.New("h264decoder: decoder closed")

	// ErrUnsupportedProfile is returned for streams whose profile has no
	// VA equivalent.
	ErrUnsupportedProfile = errors.New("h264decoder: unsupported profile")
)

// Decoder implements ports.VideoDecoder on an engine session.
type Decoder struct {
	session *engine.Session
	logger  ports.Logger
	closed  bool
}

// New creates a decoder that submits work to session.
func New(session *engine.Session, logger ports.Logger) *Decoder {
	return &Decoder{
		session: session,
		logger:  logger.WithComponent("h264decoder"),
	}
}

// ReadFrames reads all frames from an MP4 file.
func (d *Decoder) ReadFrames(ctx context.Context, path string) ([]ports.VideoFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return d.ReadFramesFromReader(ctx, f)
}

// ReadFramesFromReader reads all frames from an io.ReadSeeker. Frames with
// macroblock errors are returned with their error ranges; other decode
// failures stop the read.
func (d *Decoder) ReadFramesFromReader(ctx context.Context, reader io.ReadSeeker) ([]ports.VideoFrame, error) {
	if d.closed {
		return nil, ErrClosed
	}
	track, samples, err := avcmp4.Demux(reader)
	if err != nil {
		return nil, err
	}
	profile, err := Profile(track.SPS[0])
	if err != nil {
		return nil, err
	}

	st, err := d.open(profile, track)
	if err != nil {
		st.close()
		return nil, err
	}
	defer st.close()

	frames := make([]ports.VideoFrame, 0, len(samples))
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(sample.Data) == 0 {
			continue
		}
		frame, err := st.decode(ctx, sample)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if len(frame.MBErrors) > 0 {
			d.logger.Warn("Frame %d decoded with %d damaged regions", i, len(frame.MBErrors))
		}
		frames = append(frames, frame)
	}
	d.logger.Debug("Decoded %d frames of %dx%d", len(frames), track.Width, track.Height)
	return frames, nil
}

// Profile maps the profile_idc of an SPS NAL unit to a VA profile.
func Profile(sps []byte) (va.Profile, error) {
	p, err := avc.ParseSPSNALUnit(sps, false)
	if err != nil {
		return va.ProfileNone, fmt.Errorf("parse SPS: %w", err)
	}
	switch p.Profile {
	case 66:
		return va.ProfileH264ConstrainedBaseline, nil
	case 77:
		return va.ProfileH264Main, nil
	case 100:
		return va.ProfileH264High, nil
	}
	return va.ProfileNone, fmt.Errorf("%w: profile_idc %d", ErrUnsupportedProfile, p.Profile)
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.closed = true
}

// stream holds the session objects of one read.
type stream struct {
	session *engine.Session
	track   *avcmp4.Track
	params  []byte
	config  va.ConfigID
	context va.ContextID
	surface va.SurfaceID
	image   va.Image
}

func (d *Decoder) open(profile va.Profile, track *avcmp4.Track) (*stream, error) {
	s := d.session
	st := &stream{session: s, track: track, params: track.ParameterSets()}
	w, h := uint32(track.Width), uint32(track.Height)

	var err error
	st.config, err = s.CreateConfig(profile, va.EntrypointVLD, []va.ConfigAttrib{
		{Type: va.ConfigAttribRTFormat, Value: va.RTFormatYUV420},
	})
	if err != nil {
		return st, fmt.Errorf("create config: %w", err)
	}
	surfaces, err := s.CreateSurfaces(va.RTFormatYUV420, w, h, 1, nil)
	if err != nil {
		return st, fmt.Errorf("create surface: %w", err)
	}
	st.surface = surfaces[0]
	st.context, err = s.CreateContext(st.config, w, h, va.ContextFlagProgressive, surfaces)
	if err != nil {
		return st, fmt.Errorf("create context: %w", err)
	}
	formats, err := s.QueryImageFormats()
	if err != nil {
		return st, err
	}
	for _, f := range formats {
		if f.FourCC == va.FourCCRGBA {
			st.image, err = s.CreateImage(f, w, h)
			if err != nil {
				return st, fmt.Errorf("create image: %w", err)
			}
			return st, nil
		}
	}
	return st, fmt.Errorf("read back: %w", va.ErrInvalidImageFormat)
}

// decode runs one sample through the context and reads the picture back.
func (st *stream) decode(ctx context.Context, sample avcmp4.Sample) (ports.VideoFrame, error) {
	s := st.session
	frame := ports.VideoFrame{TimestampMs: sample.TimestampMs, Duration: sample.DurationMs}

	pic, err := s.CreateBuffer(st.context, va.PictureParameterBufferType, uint32(len(st.params)), 1, st.params)
	if err != nil {
		return frame, fmt.Errorf("create picture parameters: %w", err)
	}
	slice, err := s.CreateBuffer(st.context, va.SliceDataBufferType, uint32(len(sample.Data)), 1, sample.Data)
	if err != nil {
		s.DestroyBuffer(pic)
		return frame, fmt.Errorf("create slice data: %w", err)
	}
	if err := s.BeginPicture(st.context, st.surface); err != nil {
		return frame, fmt.Errorf("begin picture: %w", err)
	}
	if err := s.RenderPicture(st.context, []va.BufferID{pic, slice}); err != nil {
		return frame, fmt.Errorf("render picture: %w", err)
	}
	if err := s.EndPicture(st.context); err != nil {
		return frame, fmt.Errorf("end picture: %w", err)
	}

	if err := s.SyncSurface(ctx, st.surface); err != nil {
		if !errors.Is(err, va.ErrDecodingError) {
			return frame, err
		}
		frame.MBErrors, err = s.QuerySurfaceError(st.surface, va.ErrDecodingError)
		if err != nil {
			return frame, err
		}
	}

	w, h := uint32(st.track.Width), uint32(st.track.Height)
	if err := s.GetImage(ctx, st.surface, 0, 0, w, h, st.image.ID); err != nil {
		return frame, fmt.Errorf("get image: %w", err)
	}
	data, err := s.MapBuffer(st.image.Buf)
	if err != nil {
		return frame, fmt.Errorf("map image: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	pitch := int(st.image.Pitches[0])
	for y := 0; y < int(h); y++ {
		row := int(st.image.Offsets[0]) + y*pitch
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], data[row:row+img.Stride])
	}
	if err := s.UnmapBuffer(st.image.Buf); err != nil {
		return frame, err
	}
	frame.Image = img
	return frame, nil
}

// close destroys whatever open created.
func (st *stream) close() {
	if st == nil {
		return
	}
	s := st.session
	if st.image.ID != 0 {
		s.DestroyImage(st.image.ID)
	}
	if st.context != 0 {
		s.DestroyContext(st.context)
	}
	if st.surface != 0 {
		s.DestroySurfaces([]va.SurfaceID{st.surface})
	}
	if st.config != 0 {
		s.DestroyConfig(st.config)
	}
}

// Ensure Decoder implements ports.VideoDecoder
var _ ports.VideoDecoder = (*Decoder)(nil)
