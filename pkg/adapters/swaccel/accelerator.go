// Package swaccel is a software implementation of ports.Accelerator.
//
// It encodes H.264 as intra-only I_PCM pictures, decodes such streams, and
// copies and scales image regions with golang.org/x/image/draw. It exists
// so the engine and the tools built on it run without video hardware.
package swaccel

import (
	"context"
	"fmt"

	logadapter "github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// Accelerator executes frames on the CPU.
type Accelerator struct {
	logger ports.Logger
	caps   ports.Capabilities
}

// Option configures an Accelerator.
type Option func(*Accelerator)

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(a *Accelerator) { a.logger = l.WithComponent("swaccel") }
}

// WithMaxResolution lowers the largest surface the backend reports.
func WithMaxResolution(width, height uint32) Option {
	return func(a *Accelerator) {
		a.caps.MaxWidth = width
		a.caps.MaxHeight = height
	}
}

// New creates a software accelerator.
func New(opts ...Option) *Accelerator {
	a := &Accelerator{
		logger: logadapter.NewNoop(),
		caps:   DefaultCapabilities(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var h264Profiles = []va.Profile{
	va.ProfileH264ConstrainedBaseline,
	va.ProfileH264Main,
	va.ProfileH264High,
}

var bgra = va.ImageFormat{
	FourCC: va.FourCCBGRA, ByteOrder: va.LSBFirst, BitsPerPixel: 32, Depth: 32,
	RedMask: 0x00ff0000, GreenMask: 0x0000ff00, BlueMask: 0x000000ff, AlphaMask: 0xff000000,
}

// DefaultCapabilities is the capability table of the software backend.
func DefaultCapabilities() ports.Capabilities {
	caps := ports.Capabilities{
		MinWidth:    16,
		MinHeight:   16,
		MaxWidth:    4096,
		MaxHeight:   4096,
		MemoryTypes: va.MemTypeVA | va.MemTypeUserPtr,
		ImageFormats: []va.ImageFormat{
			{FourCC: va.FourCCNV12, ByteOrder: va.LSBFirst, BitsPerPixel: 12},
			{FourCC: va.FourCCI420, ByteOrder: va.LSBFirst, BitsPerPixel: 12},
			{FourCC: va.FourCCYV12, ByteOrder: va.LSBFirst, BitsPerPixel: 12},
			bgra,
			{FourCC: va.FourCCRGBA, ByteOrder: va.LSBFirst, BitsPerPixel: 32, Depth: 32,
				RedMask: 0x000000ff, GreenMask: 0x0000ff00, BlueMask: 0x00ff0000, AlphaMask: 0xff000000},
		},
		SubpictureFormats: []va.ImageFormat{bgra},
		SubpictureFlags:   []uint32{va.SubpictureChromaKeying | va.SubpictureGlobalAlpha},
		DisplayAttributes: []va.DisplayAttribute{
			{Type: va.DisplayAttribBrightness, MinValue: -100, MaxValue: 100, Flags: va.DisplayAttribGettable | va.DisplayAttribSettable},
			{Type: va.DisplayAttribContrast, MinValue: 0, MaxValue: 200, Value: 100, Flags: va.DisplayAttribGettable | va.DisplayAttribSettable},
			{Type: va.DisplayAttribHue, MinValue: -180, MaxValue: 180, Flags: va.DisplayAttribGettable | va.DisplayAttribSettable},
			{Type: va.DisplayAttribSaturation, MinValue: 0, MaxValue: 200, Value: 100, Flags: va.DisplayAttribGettable | va.DisplayAttribSettable},
		},
	}
	for _, p := range h264Profiles {
		caps.Codecs = append(caps.Codecs,
			ports.CodecCaps{
				Profile:    p,
				Entrypoint: va.EntrypointVLD,
				Attribs: []ports.AttribCaps{
					{Type: va.ConfigAttribRTFormat, Supported: va.RTFormatYUV420, Default: va.RTFormatYUV420},
					{Type: va.ConfigAttribDecSliceMode, Supported: va.DecSliceModeNormal, Default: va.DecSliceModeNormal},
				},
			},
			ports.CodecCaps{
				Profile:    p,
				Entrypoint: va.EntrypointEncSlice,
				Attribs: []ports.AttribCaps{
					{Type: va.ConfigAttribRTFormat, Supported: va.RTFormatYUV420, Default: va.RTFormatYUV420},
					{Type: va.ConfigAttribRateControl, Supported: va.RCCQP, Default: va.RCCQP},
					{Type: va.ConfigAttribEncPackedHeaders, Supported: va.EncPackedHeaderRawData, Default: va.EncPackedHeaderNone},
					{Type: va.ConfigAttribEncMaxRefFrames, Supported: 0, Default: 0},
					{Type: va.ConfigAttribEncMaxSlices, Supported: 1, Default: 1},
				},
			},
		)
	}
	return caps
}

// Capabilities implements ports.Accelerator.
func (a *Accelerator) Capabilities() ports.Capabilities { return a.caps }

// Execute implements ports.Accelerator.
func (a *Accelerator) Execute(ctx context.Context, job *ports.Job) (ports.Result, error) {
	if err := ctx.Err(); err != nil {
		return ports.Result{}, err
	}
	switch job.Entrypoint {
	case va.EntrypointVLD:
		return a.decode(job)
	case va.EntrypointEncSlice:
		return a.encode(job)
	}
	return ports.Result{}, fmt.Errorf("%s: %w", job.Entrypoint, va.ErrUnsupportedEntrypoint)
}

var _ ports.Accelerator = (*Accelerator)(nil)
