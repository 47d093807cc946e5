// Package smartencoder provides a video encoder that picks the best H.264
// profile the session can encode, falling back to simpler profiles.
package smartencoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/user/vacore/pkg/adapters/h264encoder"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// ErrNoEncoderAvailable is returned when no encoder is available.
var ErrNoEncoderAvailable = errors.New("smartencoder: no encoder available")

// fallbackOrder lists the profiles tried after the requested one, from the
// most to the least capable.
var fallbackOrder = []va.Profile{
	va.ProfileH264High,
	va.ProfileH264Main,
	va.ProfileH264ConstrainedBaseline,
}

// Info contains information about the selected encoder.
type Info struct {
	// Profile is the profile actually used.
	Profile va.Profile
	// RequestedProfile is the profile that was originally requested.
	RequestedProfile va.Profile
	// FallbackUsed indicates whether a fallback occurred.
	FallbackUsed bool
}

// Options configures the smart encoder behavior.
type Options struct {
	// AllowFallback enables falling back to a simpler profile when the
	// requested one has no encode entrypoint.
	AllowFallback bool
}

// Encoder wraps h264encoder with profile selection.
type Encoder struct {
	session *engine.Session
	inner   *h264encoder.Encoder
	logger  ports.Logger
	opts    Options

	mu   sync.Mutex
	info Info
}

// New creates an encoder on session.
func New(session *engine.Session, logger ports.Logger, opts Options) *Encoder {
	return &Encoder{
		session: session,
		inner:   h264encoder.New(session, logger),
		logger:  logger.WithComponent("smartencoder"),
		opts:    opts,
	}
}

// Select returns the profile Begin would use for requested.
func (e *Encoder) Select(requested va.Profile) (Info, error) {
	if requested == va.ProfileNone || requested == va.ProfileMPEG2Simple {
		requested = va.ProfileH264ConstrainedBaseline
	}
	info := Info{Profile: requested, RequestedProfile: requested}
	if e.canEncode(requested) {
		return info, nil
	}
	if !e.opts.AllowFallback {
		return info, fmt.Errorf("%w: %s", ErrNoEncoderAvailable, requested)
	}

	start := slices.Index(fallbackOrder, requested) + 1
	for _, p := range fallbackOrder[start:] {
		if e.canEncode(p) {
			info.Profile = p
			info.FallbackUsed = true
			return info, nil
		}
	}
	return info, fmt.Errorf("%w: %s", ErrNoEncoderAvailable, requested)
}

func (e *Encoder) canEncode(p va.Profile) bool {
	eps, err := e.session.QueryConfigEntrypoints(p)
	return err == nil && slices.Contains(eps, va.EntrypointEncSlice)
}

// Begin selects a profile and starts the stream.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	info, err := e.Select(opts.Profile)
	if err != nil {
		return err
	}
	if info.FallbackUsed {
		e.logger.Warn("H.264 profile %s not available, falling back to %s", info.RequestedProfile, info.Profile)
	}

	e.mu.Lock()
	e.info = info
	e.mu.Unlock()

	opts.Profile = info.Profile
	return e.inner.Begin(width, height, fps, opts)
}

// EncodeFrame encodes a single frame at the specified timestamp.
func (e *Encoder) EncodeFrame(ctx context.Context, img image.Image, timestampMs int) error {
	return e.inner.EncodeFrame(ctx, img, timestampMs)
}

// End finalizes the stream and returns the MP4 data.
func (e *Encoder) End(ctx context.Context) ([]byte, error) {
	return e.inner.End(ctx)
}

// Info returns the selection made by the last Begin.
func (e *Encoder) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

var _ ports.VideoEncoder = (*Encoder)(nil)
