package mocks

import (
	"context"
	"fmt"
	"io"

	"github.com/user/vacore/pkg/ports"
)

// VideoDecoder is a mock implementation of ports.VideoDecoder. Without
// overrides it returns Frames.
type VideoDecoder struct {
	ReadFramesFunc           func(ctx context.Context, path string) ([]ports.VideoFrame, error)
	ReadFramesFromReaderFunc func(ctx context.Context, r io.ReadSeeker) ([]ports.VideoFrame, error)

	Frames []ports.VideoFrame

	// Recorded calls for verification
	ReadCalls   int
	CloseCalled bool
}

func (m *VideoDecoder) ReadFrames(ctx context.Context, path string) ([]ports.VideoFrame, error) {
	m.ReadCalls++
	if m.ReadFramesFunc != nil {
		return m.ReadFramesFunc(ctx, path)
	}
	if m.Frames == nil {
		return nil, fmt.Errorf("no frames in %s", path)
	}
	return m.Frames, nil
}

func (m *VideoDecoder) ReadFramesFromReader(ctx context.Context, r io.ReadSeeker) ([]ports.VideoFrame, error) {
	m.ReadCalls++
	if m.ReadFramesFromReaderFunc != nil {
		return m.ReadFramesFromReaderFunc(ctx, r)
	}
	if m.Frames == nil {
		return nil, fmt.Errorf("no frames")
	}
	return m.Frames, nil
}

func (m *VideoDecoder) Close() {
	m.CloseCalled = true
}

var _ ports.VideoDecoder = (*VideoDecoder)(nil)
