// Package orchestrator coordinates all pipeline stages.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"

	"github.com/ideamans/go-l10n"

	"github.com/user/vacore/pkg/adapters/avcmp4"
	"github.com/user/vacore/pkg/pipeline"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// ErrVerifyFailed is returned when the decoded clip does not match the
// rendered pictures closely enough.
var ErrVerifyFailed = errors.New("verification failed")

// Config contains all configuration for the orchestrator.
type Config struct {
	OutputPath string

	// Pattern
	Width           int
	Height          int
	Frames          int
	FPS             float64
	Label           string
	BackgroundColor [4]uint8 // RGBA
	FontPath        string

	// Encoding
	Profile  va.Profile
	LevelIDC int
	Surfaces int
	OutroMs  int

	// Verification
	Verify  bool
	MinPSNR float64
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Width:  320,
		Height: 240,
		Frames: 30,
		FPS:    30.0,

		Profile:  va.ProfileH264ConstrainedBaseline,
		Surfaces: 4,

		Verify:  true,
		MinPSNR: 30,
	}
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	patternStage pipeline.Stage[pipeline.PatternInput, pipeline.PatternResult]
	encodeStage  pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	verifyStage  pipeline.Stage[pipeline.VerifyInput, pipeline.VerifyResult]
	fs           ports.FileSystem
	sink         ports.DebugSink
	logger       ports.Logger
}

// New creates a new Orchestrator. verifyStage may be nil when no run
// verifies.
func New(
	patternStage pipeline.Stage[pipeline.PatternInput, pipeline.PatternResult],
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult],
	verifyStage pipeline.Stage[pipeline.VerifyInput, pipeline.VerifyResult],
	fs ports.FileSystem,
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		patternStage: patternStage,
		encodeStage:  encodeStage,
		verifyStage:  verifyStage,
		fs:           fs,
		sink:         sink,
		logger:       logger,
	}
}

// Run executes the complete pipeline. A failed verification returns the
// result together with ErrVerifyFailed.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	o.logger.Info(l10n.T("Starting pipeline"))

	// 1. Render pattern
	o.logger.Info(l10n.F("Rendering %d frames of %dx%d", config.Frames, config.Width, config.Height))
	pattern, err := o.patternStage.Execute(ctx, o.buildPatternInput(config))
	if err != nil {
		o.logger.Error(l10n.F("Failed to render pattern: %s", err))
		return RunResult{}, fmt.Errorf("pattern stage: %w", err)
	}

	// 2. Encode video
	o.logger.Info(l10n.F("Encoding video with profile %s", profileOrDefault(config.Profile)))
	encoded, err := o.encodeStage.Execute(ctx, o.buildEncodeInput(config, pattern))
	if err != nil {
		o.logger.Error(l10n.F("Failed to encode video: %s", err))
		return RunResult{}, fmt.Errorf("encode stage: %w", err)
	}
	o.logger.Info(l10n.F("Video encoded: %d bytes", len(encoded.VideoData)))

	// 3. Write output file
	if err := o.fs.WriteFile(config.OutputPath, encoded.VideoData); err != nil {
		o.logger.Error(l10n.F("Failed to write output: %s", err))
		return RunResult{}, fmt.Errorf("write output: %w", err)
	}

	if o.sink.Enabled() {
		if es, err := avcmp4.ElementaryStream(bytes.NewReader(encoded.VideoData)); err == nil {
			o.sink.SaveBitstream(es)
		}
	}

	result := RunResult{
		OutputPath:    config.OutputPath,
		Width:         config.Width,
		Height:        config.Height,
		Profile:       profileOrDefault(config.Profile).String(),
		FrameCount:    len(pattern.Frames),
		EncodedFrames: encoded.FrameCount,
		VideoDuration: encoded.DurationMs,
		VideoFileSize: encoded.FileSize,
	}

	// 4. Verify (optional)
	if config.Verify && o.verifyStage != nil {
		o.logger.Info(l10n.T("Verifying decoded frames"))
		verified, err := o.verifyStage.Execute(ctx, pipeline.VerifyInput{
			VideoData: encoded.VideoData,
			Reference: pattern.Frames,
			MinPSNR:   config.MinPSNR,
		})
		if err != nil {
			o.logger.Error(l10n.F("Failed to verify video: %s", err))
			return result, fmt.Errorf("verify stage: %w", err)
		}
		result.Verify = &VerifyReport{
			Compared:      verified.Compared,
			DamagedFrames: verified.DamagedFrames,
			MeanPSNR:      verified.MeanPSNR,
			MinPSNR:       verified.MinPSNR,
			MaxAbsError:   verified.MaxAbsError,
			Threshold:     config.MinPSNR,
			Passed:        verified.Passed,
		}
		o.logger.Info(l10n.F("Verification: %d frames, mean %.2f dB, min %.2f dB", verified.Compared, verified.MeanPSNR, verified.MinPSNR))
	}

	if o.sink.Enabled() {
		if data, err := json.MarshalIndent(result, "", "  "); err == nil {
			o.sink.SaveReportJSON(data)
		}
	}

	if result.Verify != nil && !result.Verify.Passed {
		o.logger.Error(l10n.T("Decoded frames do not match the source"))
		return result, ErrVerifyFailed
	}

	o.logger.Info(l10n.T("Pipeline completed successfully"))
	return result, nil
}

func (o *Orchestrator) buildPatternInput(config Config) pipeline.PatternInput {
	theme := pipeline.DefaultPatternTheme()
	// Override theme colors if specified
	if config.BackgroundColor != [4]uint8{} {
		theme.BackgroundColor = rgbaFromArray(config.BackgroundColor)
	}
	theme.FontPath = config.FontPath

	return pipeline.PatternInput{
		Width:  config.Width,
		Height: config.Height,
		Frames: config.Frames,
		FPS:    config.FPS,
		Label:  config.Label,
		Theme:  theme,
	}
}

func (o *Orchestrator) buildEncodeInput(config Config, pattern pipeline.PatternResult) pipeline.EncodeInput {
	return pipeline.EncodeInput{
		Frames:   pattern.Frames,
		OutroMs:  config.OutroMs,
		FPS:      config.FPS,
		Profile:  config.Profile,
		LevelIDC: config.LevelIDC,
		Surfaces: config.Surfaces,
	}
}

func profileOrDefault(p va.Profile) va.Profile {
	if p == va.ProfileNone || p == va.ProfileMPEG2Simple {
		return va.ProfileH264ConstrainedBaseline
	}
	return p
}

func rgbaFromArray(c [4]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// RunResult contains the results of a pipeline run for summary generation.
type RunResult struct {
	OutputPath string `json:"outputPath"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Profile    string `json:"profile"`

	// Video information
	FrameCount    int   `json:"frameCount"`
	EncodedFrames int   `json:"encodedFrames"` // includes the outro frame
	VideoDuration int   `json:"videoDurationMs"`
	VideoFileSize int64 `json:"videoFileSize"`

	Verify *VerifyReport `json:"verify,omitempty"`
}

// VerifyReport summarizes the verify stage.
type VerifyReport struct {
	Compared      int     `json:"compared"`
	DamagedFrames int     `json:"damagedFrames"`
	MeanPSNR      float64 `json:"meanPsnr"`
	MinPSNR       float64 `json:"minPsnr"`
	MaxAbsError   int     `json:"maxAbsError"`
	Threshold     float64 `json:"threshold"`
	Passed        bool    `json:"passed"`
}
