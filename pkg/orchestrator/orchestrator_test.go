package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/mocks"
	"github.com/user/vacore/pkg/pipeline"
	"github.com/user/vacore/pkg/va"
)

// mockPatternStage is a mock for the pattern stage.
type mockPatternStage struct {
	input  pipeline.PatternInput
	result pipeline.PatternResult
	err    error
}

func (m *mockPatternStage) Execute(ctx context.Context, input pipeline.PatternInput) (pipeline.PatternResult, error) {
	m.input = input
	if m.err != nil {
		return pipeline.PatternResult{}, m.err
	}
	return m.result, nil
}

// mockEncodeStage is a mock for the encode stage.
type mockEncodeStage struct {
	input  pipeline.EncodeInput
	result pipeline.EncodeResult
	err    error
}

func (m *mockEncodeStage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	m.input = input
	if m.err != nil {
		return pipeline.EncodeResult{}, m.err
	}
	return m.result, nil
}

// mockVerifyStage is a mock for the verify stage.
type mockVerifyStage struct {
	called bool
	input  pipeline.VerifyInput
	result pipeline.VerifyResult
	err    error
}

func (m *mockVerifyStage) Execute(ctx context.Context, input pipeline.VerifyInput) (pipeline.VerifyResult, error) {
	m.called = true
	m.input = input
	if m.err != nil {
		return pipeline.VerifyResult{}, m.err
	}
	return m.result, nil
}

func newStages() (*mockPatternStage, *mockEncodeStage, *mockVerifyStage) {
	frames := []pipeline.Frame{
		{TimestampMs: 0, Image: image.NewRGBA(image.Rect(0, 0, 64, 48))},
		{TimestampMs: 33, Image: image.NewRGBA(image.Rect(0, 0, 64, 48))},
	}
	patternStage := &mockPatternStage{result: pipeline.PatternResult{Frames: frames}}
	encodeStage := &mockEncodeStage{result: pipeline.EncodeResult{
		VideoData:  []byte("mp4 data"),
		FrameCount: 2,
		DurationMs: 66,
		FileSize:   8,
	}}
	verifyStage := &mockVerifyStage{result: pipeline.VerifyResult{
		Compared: 2,
		MeanPSNR: 45,
		MinPSNR:  44,
		Passed:   true,
	}}
	return patternStage, encodeStage, verifyStage
}

func TestOrchestrator_Run(t *testing.T) {
	patternStage, encodeStage, verifyStage := newStages()
	fs := mocks.NewFileSystem()
	sink := mocks.NewDebugSink(true)

	orch := New(patternStage, encodeStage, verifyStage, fs, sink, logger.NewNoop())

	config := DefaultConfig()
	config.OutputPath = "/tmp/out.mp4"
	config.Width, config.Height, config.Frames = 64, 48, 2
	config.BackgroundColor = [4]uint8{1, 2, 3, 255}
	config.Profile = va.ProfileH264Main
	config.OutroMs = 500

	result, err := orch.Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if patternStage.input.Width != 64 || patternStage.input.Frames != 2 {
		t.Errorf("unexpected pattern input %+v", patternStage.input)
	}
	if bg, ok := patternStage.input.Theme.BackgroundColor.(color.RGBA); !ok || bg != (color.RGBA{R: 1, G: 2, B: 3, A: 255}) {
		t.Errorf("expected background override, got %v", patternStage.input.Theme.BackgroundColor)
	}
	if encodeStage.input.Profile != va.ProfileH264Main || encodeStage.input.OutroMs != 500 || len(encodeStage.input.Frames) != 2 {
		t.Errorf("unexpected encode input %+v", encodeStage.input)
	}
	if len(verifyStage.input.Reference) != 2 || verifyStage.input.MinPSNR != 30 {
		t.Errorf("unexpected verify input %+v", verifyStage.input)
	}

	data, ok := fs.GetFile("/tmp/out.mp4")
	if !ok || string(data) != "mp4 data" {
		t.Error("expected output file to be written")
	}

	if result.FrameCount != 2 || result.VideoDuration != 66 || result.VideoFileSize != 8 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Profile != "VAProfileH264Main" {
		t.Errorf("expected profile name, got %q", result.Profile)
	}
	if result.Verify == nil || !result.Verify.Passed || result.Verify.Threshold != 30 {
		t.Errorf("unexpected verify report %+v", result.Verify)
	}

	var report RunResult
	if err := json.Unmarshal(sink.ReportJSON, &report); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if report.OutputPath != "/tmp/out.mp4" || report.Verify == nil {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestOrchestrator_Run_NoVerify(t *testing.T) {
	patternStage, encodeStage, verifyStage := newStages()
	orch := New(patternStage, encodeStage, verifyStage, mocks.NewFileSystem(), &mocks.NullSink{}, logger.NewNoop())

	config := DefaultConfig()
	config.Verify = false
	config.Profile = va.ProfileNone
	result, err := orch.Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verifyStage.called || result.Verify != nil {
		t.Error("verify stage should not run")
	}
	if result.Profile != "VAProfileH264ConstrainedBaseline" {
		t.Errorf("expected default profile, got %q", result.Profile)
	}

	// A nil verify stage behaves the same.
	orch = New(patternStage, encodeStage, nil, mocks.NewFileSystem(), &mocks.NullSink{}, logger.NewNoop())
	if _, err := orch.Run(context.Background(), DefaultConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOrchestrator_Run_VerifyFailed(t *testing.T) {
	patternStage, encodeStage, verifyStage := newStages()
	verifyStage.result.Passed = false
	fs := mocks.NewFileSystem()
	orch := New(patternStage, encodeStage, verifyStage, fs, &mocks.NullSink{}, logger.NewNoop())

	config := DefaultConfig()
	config.OutputPath = "out.mp4"
	result, err := orch.Run(context.Background(), config)
	if !errors.Is(err, ErrVerifyFailed) {
		t.Fatalf("expected ErrVerifyFailed, got %v", err)
	}
	if result.Verify == nil || result.Verify.Passed {
		t.Errorf("expected a failed report, got %+v", result.Verify)
	}
	if _, ok := fs.GetFile("out.mp4"); !ok {
		t.Error("output should still be written")
	}
}

func TestOrchestrator_Run_StageErrors(t *testing.T) {
	stageErr := errors.New("stage failed")

	tests := []struct {
		name  string
		setup func(*mockPatternStage, *mockEncodeStage, *mockVerifyStage, *mocks.FileSystem)
	}{
		{"pattern", func(p *mockPatternStage, _ *mockEncodeStage, _ *mockVerifyStage, _ *mocks.FileSystem) { p.err = stageErr }},
		{"encode", func(_ *mockPatternStage, e *mockEncodeStage, _ *mockVerifyStage, _ *mocks.FileSystem) { e.err = stageErr }},
		{"verify", func(_ *mockPatternStage, _ *mockEncodeStage, v *mockVerifyStage, _ *mocks.FileSystem) { v.err = stageErr }},
		{"write", func(_ *mockPatternStage, _ *mockEncodeStage, _ *mockVerifyStage, fs *mocks.FileSystem) {
			fs.WriteFileFunc = func(string, []byte) error { return stageErr }
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, e, v := newStages()
			fs := mocks.NewFileSystem()
			tt.setup(p, e, v, fs)
			_, err := New(p, e, v, fs, &mocks.NullSink{}, logger.NewNoop()).Run(context.Background(), DefaultConfig())
			if !errors.Is(err, stageErr) {
				t.Errorf("expected wrapped stage error, got %v", err)
			}
		})
	}
}
