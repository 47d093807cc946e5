package mocks

import (
	"image"
	"sync"

	"github.com/user/vacore/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	SourceFrames  map[int]image.Image
	DecodedFrames map[int]image.Image
	Bitstream     []byte
	ReportJSON    []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:       enabled,
		SourceFrames:  make(map[int]image.Image),
		DecodedFrames: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveSourceFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFrames[index] = img
	return nil
}

func (m *DebugSink) SaveDecodedFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecodedFrames[index] = img
	return nil
}

func (m *DebugSink) SaveBitstream(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bitstream = data
	return nil
}

func (m *DebugSink) SaveReportJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportJSON = data
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                                     { return false }
func (m *NullSink) SaveSourceFrame(index int, img image.Image) error  { return nil }
func (m *NullSink) SaveDecodedFrame(index int, img image.Image) error { return nil }
func (m *NullSink) SaveBitstream(data []byte) error                   { return nil }
func (m *NullSink) SaveReportJSON(data []byte) error                  { return nil }

var _ ports.DebugSink = (*NullSink)(nil)
