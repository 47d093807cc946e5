package mocks

import (
	"context"
	"sync"

	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// Accelerator is a mock implementation of ports.Accelerator.
//
// When Gate is non-nil every Execute call blocks until it receives a value
// from Gate (or the context ends), which lets tests hold frames in flight.
type Accelerator struct {
	CapabilitiesFunc func() ports.Capabilities
	ExecuteFunc      func(ctx context.Context, job *ports.Job) (ports.Result, error)
	TransferFunc     func(ctx context.Context, req ports.TransferRequest) error

	Gate chan struct{}

	mu sync.Mutex
	// Recorded calls for verification
	ExecuteCalls  []ExecuteCall
	TransferCalls []ports.TransferRequest
}

// ExecuteCall records a call to Execute.
type ExecuteCall struct {
	Context va.ContextID
	Target  va.SurfaceID
	Buffers []va.BufferID
}

func (m *Accelerator) Capabilities() ports.Capabilities {
	if m.CapabilitiesFunc != nil {
		return m.CapabilitiesFunc()
	}
	return DefaultCapabilities()
}

func (m *Accelerator) Execute(ctx context.Context, job *ports.Job) (ports.Result, error) {
	call := ExecuteCall{Context: job.Context, Target: job.Target}
	for _, b := range job.Buffers {
		call.Buffers = append(call.Buffers, b.ID)
	}
	m.mu.Lock()
	m.ExecuteCalls = append(m.ExecuteCalls, call)
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return ports.Result{}, ctx.Err()
		}
	}
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, job)
	}
	return ports.Result{}, nil
}

func (m *Accelerator) Transfer(ctx context.Context, req ports.TransferRequest) error {
	m.mu.Lock()
	m.TransferCalls = append(m.TransferCalls, req)
	m.mu.Unlock()
	if m.TransferFunc != nil {
		return m.TransferFunc(ctx, req)
	}
	return nil
}

// Executed returns a copy of the recorded Execute calls.
func (m *Accelerator) Executed() []ExecuteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecuteCall(nil), m.ExecuteCalls...)
}

// DefaultCapabilities is a small capability table: H.264 Main decode and
// encode, JPEG decode, NV12/I420/BGRA images and a BGRA subpicture format.
func DefaultCapabilities() ports.Capabilities {
	rt := va.RTFormatYUV420 | va.RTFormatYUV400
	return ports.Capabilities{
		Codecs: []ports.CodecCaps{
			{
				Profile:    va.ProfileH264Main,
				Entrypoint: va.EntrypointVLD,
				Attribs: []ports.AttribCaps{
					{Type: va.ConfigAttribRTFormat, Supported: rt, Default: va.RTFormatYUV420},
					{Type: va.ConfigAttribDecSliceMode, Supported: va.DecSliceModeNormal, Default: va.DecSliceModeNormal},
				},
			},
			{
				Profile:    va.ProfileH264Main,
				Entrypoint: va.EntrypointEncSlice,
				Attribs: []ports.AttribCaps{
					{Type: va.ConfigAttribRTFormat, Supported: va.RTFormatYUV420, Default: va.RTFormatYUV420},
					{Type: va.ConfigAttribRateControl, Supported: va.RCCQP | va.RCCBR, Default: va.RCCQP},
					{Type: va.ConfigAttribEncPackedHeaders, Supported: va.EncPackedHeaderSequence | va.EncPackedHeaderPicture, Default: va.EncPackedHeaderNone},
					{Type: va.ConfigAttribEncMaxRefFrames, Supported: 1, Default: 1},
				},
			},
			{
				Profile:    va.ProfileJPEGBaseline,
				Entrypoint: va.EntrypointVLD,
				Attribs: []ports.AttribCaps{
					{Type: va.ConfigAttribRTFormat, Supported: va.RTFormatYUV420 | va.RTFormatYUV444, Default: va.RTFormatYUV420},
				},
			},
		},
		MinWidth:    16,
		MinHeight:   16,
		MaxWidth:    4096,
		MaxHeight:   4096,
		MemoryTypes: va.MemTypeVA | va.MemTypeUserPtr,
		ImageFormats: []va.ImageFormat{
			{FourCC: va.FourCCNV12, ByteOrder: va.LSBFirst, BitsPerPixel: 12},
			{FourCC: va.FourCCI420, ByteOrder: va.LSBFirst, BitsPerPixel: 12},
			{FourCC: va.FourCCBGRA, ByteOrder: va.LSBFirst, BitsPerPixel: 32, Depth: 32,
				RedMask: 0x00ff0000, GreenMask: 0x0000ff00, BlueMask: 0x000000ff, AlphaMask: 0xff000000},
		},
		SubpictureFormats: []va.ImageFormat{
			{FourCC: va.FourCCBGRA, ByteOrder: va.LSBFirst, BitsPerPixel: 32, Depth: 32,
				RedMask: 0x00ff0000, GreenMask: 0x0000ff00, BlueMask: 0x000000ff, AlphaMask: 0xff000000},
		},
		SubpictureFlags: []uint32{va.SubpictureChromaKeying | va.SubpictureGlobalAlpha},
		DisplayAttributes: []va.DisplayAttribute{
			{Type: va.DisplayAttribBrightness, MinValue: -100, MaxValue: 100, Flags: va.DisplayAttribGettable | va.DisplayAttribSettable},
			{Type: va.DisplayAttribContrast, MinValue: 0, MaxValue: 200, Value: 100, Flags: va.DisplayAttribGettable | va.DisplayAttribSettable},
		},
	}
}

var _ ports.Accelerator = (*Accelerator)(nil)
