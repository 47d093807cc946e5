package h264encoder

import "errors"

var (
	// ErrNotInitialized is returned when encoder methods are called before initialization.
	ErrNotInitialized = errors.New("h264encoder: encoder not initialized")

	// ErrNoFrames is returned when End is called before any frame was encoded.
	ErrNoFrames = errors.New("h264encoder: no frames to encode")

	// ErrNoImageFormat is returned when the session offers no RGBA image format.
	ErrNoImageFormat = errors.New("h264encoder: RGBA image format not supported")
)
