package mocks

import (
	"context"
	"image"

	"github.com/user/vacore/pkg/ports"
)

// VideoEncoder is a mock implementation of ports.VideoEncoder.
type VideoEncoder struct {
	BeginFunc       func(width, height int, fps float64, opts ports.EncoderOptions) error
	EncodeFrameFunc func(ctx context.Context, img image.Image, timestampMs int) error
	EndFunc         func(ctx context.Context) ([]byte, error)

	// Recorded calls for verification
	BeginCalled      bool
	BeginOptions     ports.EncoderOptions
	EncodeFrameCalls []EncodeFrameCall
	EndCalled        bool
}

// EncodeFrameCall records a call to EncodeFrame.
type EncodeFrameCall struct {
	TimestampMs int
}

func (m *VideoEncoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	m.BeginCalled = true
	m.BeginOptions = opts
	if m.BeginFunc != nil {
		return m.BeginFunc(width, height, fps, opts)
	}
	return nil
}

func (m *VideoEncoder) EncodeFrame(ctx context.Context, img image.Image, timestampMs int) error {
	m.EncodeFrameCalls = append(m.EncodeFrameCalls, EncodeFrameCall{TimestampMs: timestampMs})
	if m.EncodeFrameFunc != nil {
		return m.EncodeFrameFunc(ctx, img, timestampMs)
	}
	return nil
}

func (m *VideoEncoder) End(ctx context.Context) ([]byte, error) {
	m.EndCalled = true
	if m.EndFunc != nil {
		return m.EndFunc(ctx)
	}
	// Return an empty ftyp box
	return []byte{0, 0, 0, 8, 'f', 't', 'y', 'p'}, nil
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)
