// Package integration contains integration tests for the vacore pipeline.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/vacore/pkg/adapters/codecdetect"
	"github.com/user/vacore/pkg/adapters/filesink"
	"github.com/user/vacore/pkg/adapters/ggrenderer"
	"github.com/user/vacore/pkg/adapters/h264decoder"
	"github.com/user/vacore/pkg/adapters/h264encoder"
	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/adapters/nullsink"
	"github.com/user/vacore/pkg/adapters/osfilesystem"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/orchestrator"
	"github.com/user/vacore/pkg/pipeline"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/stages/encode"
	"github.com/user/vacore/pkg/stages/pattern"
	"github.com/user/vacore/pkg/stages/verify"
	"github.com/user/vacore/pkg/va"
)

func newSession(t *testing.T) *engine.Session {
	t.Helper()
	session, err := engine.Initialize(swaccel.New(), engine.DefaultOptions(), logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() {
		if err := session.Terminate(context.Background()); err != nil {
			t.Errorf("Terminate failed: %v", err)
		}
	})
	return session
}

func renderPattern(t *testing.T, width, height, frames int) pipeline.PatternResult {
	t.Helper()
	input := pipeline.DefaultPatternInput()
	input.Width, input.Height, input.Frames = width, height, frames

	result, err := pattern.NewStage(ggrenderer.New(), nullsink.New(), logger.NewNoop(), 2).
		Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Pattern failed: %v", err)
	}
	return result
}

// TestPatternToEncodeToVerify chains the stages by hand for each profile.
func TestPatternToEncodeToVerify(t *testing.T) {
	profiles := []va.Profile{
		va.ProfileH264ConstrainedBaseline,
		va.ProfileH264Main,
		va.ProfileH264High,
	}
	for _, profile := range profiles {
		t.Run(profile.String(), func(t *testing.T) {
			session := newSession(t)
			patternResult := renderPattern(t, 64, 48, 4)

			encodeInput := pipeline.DefaultEncodeInput()
			encodeInput.Frames = patternResult.Frames
			encodeInput.FPS = 30
			encodeInput.Profile = profile
			encodeInput.OutroMs = 100

			encoded, err := encode.NewStage(h264encoder.New(session, logger.NewNoop()), logger.NewNoop()).
				Execute(context.Background(), encodeInput)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if encoded.FrameCount != 5 {
				t.Errorf("expected 5 encoded frames including outro, got %d", encoded.FrameCount)
			}

			info, err := codecdetect.ProbeBytes(encoded.VideoData)
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if info.Profile != profile || info.Width != 64 || info.Height != 48 {
				t.Errorf("unexpected probe result %+v", info)
			}

			decoder := h264decoder.New(session, logger.NewNoop())
			defer decoder.Close()
			verified, err := verify.NewStage(decoder, nullsink.New(), logger.NewNoop()).
				Execute(context.Background(), pipeline.VerifyInput{
					VideoData: encoded.VideoData,
					Reference: patternResult.Frames,
					MinPSNR:   30,
				})
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if !verified.Passed {
				t.Errorf("expected the clip to pass: %+v", verified)
			}
			if len(verified.Frames) != 5 || verified.Compared != 4 {
				t.Errorf("expected 5 decoded and 4 compared frames, got %d/%d", len(verified.Frames), verified.Compared)
			}
		})
	}
}

// TestVerifyDetectsDamage cuts the clip short and checks the verify stage
// does not pass it.
func TestVerifyDetectsDamage(t *testing.T) {
	session := newSession(t)
	patternResult := renderPattern(t, 32, 32, 3)

	encodeInput := pipeline.DefaultEncodeInput()
	encodeInput.Frames = patternResult.Frames
	encodeInput.FPS = 30
	encoded, err := encode.NewStage(h264encoder.New(session, logger.NewNoop()), logger.NewNoop()).
		Execute(context.Background(), encodeInput)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoder := h264decoder.New(session, logger.NewNoop())
	defer decoder.Close()
	stage := verify.NewStage(decoder, nullsink.New(), logger.NewNoop())

	// A reference longer than the clip can never be fully compared.
	longer := append(append([]pipeline.Frame{}, patternResult.Frames...), patternResult.Frames[0])
	verified, err := stage.Execute(context.Background(), pipeline.VerifyInput{
		VideoData: encoded.VideoData,
		Reference: longer,
		MinPSNR:   30,
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.Passed || verified.Compared != 3 {
		t.Errorf("expected a failed check over 3 frames, got %+v", verified)
	}

	// Frames swapped against the reference fall below the threshold.
	swapped := []pipeline.Frame{patternResult.Frames[2], patternResult.Frames[1], patternResult.Frames[0]}
	verified, err = stage.Execute(context.Background(), pipeline.VerifyInput{
		VideoData: encoded.VideoData,
		Reference: swapped,
		MinPSNR:   60,
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.Passed {
		t.Error("expected swapped frames to fail")
	}
}

// TestOrchestratorWithDebugSink runs the whole pipeline writing to disk.
func TestOrchestratorWithDebugSink(t *testing.T) {
	session := newSession(t)
	dir := t.TempDir()
	debugDir := filepath.Join(dir, "debug")

	fs := osfilesystem.New()
	renderer := ggrenderer.New()
	sink := filesink.New(debugDir, fs, renderer)
	log := logger.NewNoop()

	decoder := h264decoder.New(session, log)
	defer decoder.Close()

	orch := orchestrator.New(
		pattern.NewStage(renderer, sink, log, 2),
		encode.NewStage(h264encoder.New(session, log), log),
		verify.NewStage(decoder, sink, log),
		fs,
		sink,
		log,
	)

	config := orchestrator.DefaultConfig()
	config.OutputPath = filepath.Join(dir, "out.mp4")
	config.Width, config.Height, config.Frames = 48, 32, 3
	config.FPS = 10
	config.OutroMs = 300

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := orch.Run(ctx, config)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Verify == nil || !result.Verify.Passed {
		t.Errorf("expected a passed verification, got %+v", result.Verify)
	}

	for _, name := range []string{
		"out.mp4",
		"debug/stream.h264",
		"debug/report.json",
		"debug/frames/source/frame-0000.png",
		"debug/frames/decoded/frame-0003.png",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(debugDir, "report.json"))
	if err != nil {
		t.Fatal(err)
	}
	var report orchestrator.RunResult
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if report.EncodedFrames != 4 || report.Verify == nil {
		t.Errorf("unexpected report %+v", report)
	}
}

// TestOrchestratorVerifyFailure expects ErrVerifyFailed with the output
// still written when the threshold cannot be met.
func TestOrchestratorVerifyFailure(t *testing.T) {
	session := newSession(t)
	dir := t.TempDir()
	log := logger.NewNoop()
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	decoder := h264decoder.New(session, log)
	defer decoder.Close()

	orch := orchestrator.New(
		pattern.NewStage(renderer, nullsink.New(), log, 1),
		encode.NewStage(h264encoder.New(session, log), log),
		verify.NewStage(decoder, nullsink.New(), log),
		fs,
		nullsink.New(),
		log,
	)

	config := orchestrator.DefaultConfig()
	config.OutputPath = filepath.Join(dir, "out.mp4")
	config.Width, config.Height, config.Frames = 32, 32, 2
	config.MinPSNR = pipeline.MaxPSNR + 1

	_, err := orch.Run(context.Background(), config)
	if !errors.Is(err, orchestrator.ErrVerifyFailed) {
		t.Fatalf("expected ErrVerifyFailed, got %v", err)
	}
	if ok, _ := fs.Exists(config.OutputPath); !ok {
		t.Error("output should still be written")
	}
}

// TestConcurrentEncoders shares one session between encoders running in
// parallel.
func TestConcurrentEncoders(t *testing.T) {
	session := newSession(t)
	patternResult := renderPattern(t, 32, 32, 6)

	var g errgroup.Group
	outputs := make([][]byte, 4)
	for i := range outputs {
		i := i
		g.Go(func() error {
			var enc ports.VideoEncoder = h264encoder.New(session, logger.NewNoop())
			in := pipeline.DefaultEncodeInput()
			in.Frames = patternResult.Frames
			in.FPS = 30
			in.Surfaces = i + 1
			res, err := encode.NewStage(enc, logger.NewNoop()).Execute(context.Background(), in)
			outputs[i] = res.VideoData
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent encode failed: %v", err)
	}

	for i, data := range outputs {
		info, err := codecdetect.ProbeBytes(data)
		if err != nil {
			t.Fatalf("output %d: %v", i, err)
		}
		if info.Samples != 6 {
			t.Errorf("output %d: expected 6 samples, got %d", i, info.Samples)
		}
	}
}
