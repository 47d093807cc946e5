// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/vacore/pkg/ports"
)

// Sink saves debug output under a base directory:
//
//	frames/source/frame-NNNN.png   rendered pictures
//	frames/decoded/frame-NNNN.png  pictures read back from the clip
//	stream.h264                    Annex B elementary stream
//	report.json                    run result
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveSourceFrame saves a rendered picture as PNG.
func (s *Sink) SaveSourceFrame(index int, img image.Image) error {
	return s.savePNG("source", index, img)
}

// SaveDecodedFrame saves a decoded picture as PNG.
func (s *Sink) SaveDecodedFrame(index int, img image.Image) error {
	return s.savePNG("decoded", index, img)
}

// SaveBitstream saves the elementary stream.
func (s *Sink) SaveBitstream(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "stream.h264"), data)
}

// SaveReportJSON saves the run result.
func (s *Sink) SaveReportJSON(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "report.json"), data)
}

func (s *Sink) savePNG(kind string, index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames", kind)
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", kind, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%04d.png", index))
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
