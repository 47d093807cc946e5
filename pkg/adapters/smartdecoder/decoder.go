// Package smartdecoder provides a video decoder that detects the codec of
// a file and checks the session can decode it before handing the file to
// the matching engine-backed decoder.
package smartdecoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/user/vacore/pkg/adapters/codecdetect"
	"github.com/user/vacore/pkg/adapters/h264decoder"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

var (
	// ErrUnsupportedCodec is returned when the codec is not supported.
	ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")
	// ErrNoDecoderAvailable is returned when the session does not expose a
	// decode entrypoint for the stream's profile.
	ErrNoDecoderAvailable = errors.New("smartdecoder: no decoder available")
)

// Info describes the decoder selected for the last stream.
type Info struct {
	Codec      codecdetect.Codec
	Profile    va.Profile
	Entrypoint va.Entrypoint
}

// Decoder wraps ports.VideoDecoder with codec detection.
type Decoder struct {
	session *engine.Session
	inner   *h264decoder.Decoder
	logger  ports.Logger

	mu   sync.Mutex
	info Info
}

// New creates a decoder on session.
func New(session *engine.Session, logger ports.Logger) *Decoder {
	return &Decoder{
		session: session,
		inner:   h264decoder.New(session, logger),
		logger:  logger.WithComponent("smartdecoder"),
		info:    Info{Codec: codecdetect.CodecUnknown, Profile: va.ProfileNone},
	}
}

// Select probes reader and reports the profile and entrypoint that would
// decode it. The reader is rewound afterwards.
func (d *Decoder) Select(reader io.ReadSeeker) (Info, error) {
	probed, err := codecdetect.Probe(reader)
	if _, serr := reader.Seek(0, io.SeekStart); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		return Info{}, err
	}

	info := Info{Codec: probed.Codec, Profile: probed.Profile, Entrypoint: va.EntrypointVLD}
	if probed.Codec != codecdetect.CodecH264 {
		return info, fmt.Errorf("%w: %s", ErrUnsupportedCodec, probed.Codec)
	}
	if !probed.Decodable() {
		return info, fmt.Errorf("%w: profile_idc %d: %w", ErrUnsupportedCodec, probed.ProfileIDC, va.ErrUnsupportedProfile)
	}

	eps, err := d.session.QueryConfigEntrypoints(probed.Profile)
	if err != nil || !slices.Contains(eps, va.EntrypointVLD) {
		return info, fmt.Errorf("%w: %s", ErrNoDecoderAvailable, probed.Profile)
	}
	return info, nil
}

// ReadFrames reads and decodes all frames from a video file.
func (d *Decoder) ReadFrames(ctx context.Context, path string) ([]ports.VideoFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return d.ReadFramesFromReader(ctx, f)
}

// ReadFramesFromReader reads and decodes all frames from an io.ReadSeeker.
func (d *Decoder) ReadFramesFromReader(ctx context.Context, reader io.ReadSeeker) ([]ports.VideoFrame, error) {
	info, err := d.Select(reader)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.info = info
	d.mu.Unlock()

	d.logger.Debug("Decoding %s stream with %s", info.Codec, info.Profile)
	return d.inner.ReadFramesFromReader(ctx, reader)
}

// Info returns the decoder selected for the last stream.
func (d *Decoder) Info() Info {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.inner.Close()
}

var _ ports.VideoDecoder = (*Decoder)(nil)
