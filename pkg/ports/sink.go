package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveSourceFrame saves a rendered picture before encoding.
	SaveSourceFrame(index int, img image.Image) error

	// SaveDecodedFrame saves a picture read back from the encoded stream.
	SaveDecodedFrame(index int, img image.Image) error

	// SaveBitstream saves the Annex B elementary stream.
	SaveBitstream(data []byte) error

	// SaveReportJSON saves the run result as JSON.
	SaveReportJSON(data []byte) error
}
