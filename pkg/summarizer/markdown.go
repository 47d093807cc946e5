package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = fn
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{translate: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Encode Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", t("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(&b, "## %s\n\n", t("Video"))
	b.WriteString("| | |\n|---|---|\n")
	if s.Video.OutputPath != "" {
		row(&b, t("Output"), s.Video.OutputPath)
	}
	row(&b, t("Size"), fmt.Sprintf("%dx%d", s.Video.Width, s.Video.Height))
	row(&b, t("Frames"), fmt.Sprintf("%d", s.Video.FrameCount))
	if s.Video.EncodedFrames > s.Video.FrameCount {
		row(&b, t("Encoded Frames"), fmt.Sprintf("%d", s.Video.EncodedFrames))
	}
	row(&b, t("Duration"), fmt.Sprintf("%d ms", s.Video.DurationMs))
	row(&b, t("File Size"), formatBytes(s.Video.FileSize))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Settings"))
	b.WriteString("| | |\n|---|---|\n")
	if s.Settings.Backend != "" {
		row(&b, t("Backend"), s.Settings.Backend)
	}
	row(&b, t("Profile"), s.Settings.Profile)
	row(&b, t("Frame Rate"), fmt.Sprintf("%.2f fps", s.Settings.FPS))
	row(&b, t("Surfaces"), fmt.Sprintf("%d", s.Settings.Surfaces))
	row(&b, t("Workers"), fmt.Sprintf("%d", s.Settings.Workers))
	row(&b, t("Frames In Flight"), fmt.Sprintf("%d", s.Settings.MaxInFlight))
	b.WriteString("\n")

	if v := s.Verify; v != nil {
		fmt.Fprintf(&b, "## %s\n\n", t("Verification"))
		b.WriteString("| | |\n|---|---|\n")
		result := t("Passed")
		if !v.Passed {
			result = t("Failed")
		}
		row(&b, t("Result"), result)
		row(&b, t("Compared Frames"), fmt.Sprintf("%d", v.Compared))
		row(&b, t("Damaged Frames"), fmt.Sprintf("%d", v.DamagedFrames))
		row(&b, t("Mean PSNR"), formatPSNR(v.MeanPSNR))
		row(&b, t("Min PSNR"), fmt.Sprintf("%s (>= %.1f dB)", formatPSNR(v.MinPSNR), v.Threshold))
		row(&b, t("Max Error"), fmt.Sprintf("%d", v.MaxAbsError))
	}

	return b.String()
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", label, value)
}

// formatPSNR prints identical pictures as "lossless".
func formatPSNR(db float64) string {
	if db >= 100 {
		return "lossless"
	}
	return fmt.Sprintf("%.2f dB", db)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%d B", n)
}

var _ Formatter = (*MarkdownFormatter)(nil)
