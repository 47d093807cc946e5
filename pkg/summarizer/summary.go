package summarizer

import "time"

// Summary contains all data collected during an encode run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Engine and encoder settings
	Settings Settings

	// Video output details
	Video VideoInfo

	// Verify is nil when the run did not decode its output.
	Verify *VerifyInfo
}

// Settings contains the run configuration.
type Settings struct {
	Backend     string
	Profile     string
	FPS         float64
	Surfaces    int
	Workers     int
	MaxInFlight int
}

// VideoInfo contains information about the output video.
type VideoInfo struct {
	OutputPath    string
	Width         int
	Height        int
	FrameCount    int
	EncodedFrames int
	DurationMs    int
	FileSize      int64
}

// VerifyInfo contains the decode-and-compare results.
type VerifyInfo struct {
	Compared      int
	DamagedFrames int
	MeanPSNR      float64
	MinPSNR       float64
	MaxAbsError   int
	Threshold     float64
	Passed        bool
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSettings sets run settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithVideo sets video output information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = video
	return b
}

// WithVerify sets verification results.
func (b *Builder) WithVerify(verify VerifyInfo) *Builder {
	b.summary.Verify = &verify
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
