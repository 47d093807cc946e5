package engine

import (
	"runtime"

	"github.com/user/vacore/pkg/negotiate"
)

// Options configures a Session.
type Options struct {
	// Workers is the number of dispatcher goroutines executing frames.
	Workers int

	// MaxInFlight bounds the number of ended, not yet completed frames
	// across all contexts. EndPicture fails with ErrQueueFull beyond it.
	MaxInFlight int

	// StrictTeardown makes Terminate fail with ErrChildrenAlive instead of
	// destroying live objects.
	StrictTeardown bool

	// Per-kind object limits. Zero means the registry maximum.
	MaxSurfaces int
	MaxBuffers  int
	MaxContexts int

	// Negotiation adjusts the backend capability table.
	Negotiation []negotiate.Option
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Workers:     runtime.NumCPU(),
		MaxInFlight: 16,
	}
}

// OptionsBuilder provides a fluent interface for building Options.
type OptionsBuilder struct {
	opts Options
}

// NewOptionsBuilder creates a builder seeded with DefaultOptions.
func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{opts: DefaultOptions()}
}

// WithWorkers sets the dispatcher worker count.
func (b *OptionsBuilder) WithWorkers(n int) *OptionsBuilder {
	if n > 0 {
		b.opts.Workers = n
	}
	return b
}

// WithMaxInFlight sets the execution queue capacity.
func (b *OptionsBuilder) WithMaxInFlight(n int) *OptionsBuilder {
	if n > 0 {
		b.opts.MaxInFlight = n
	}
	return b
}

// WithStrictTeardown selects the strict Terminate policy.
func (b *OptionsBuilder) WithStrictTeardown(strict bool) *OptionsBuilder {
	b.opts.StrictTeardown = strict
	return b
}

// WithLimits sets per-kind object limits.
func (b *OptionsBuilder) WithLimits(surfaces, buffers, contexts int) *OptionsBuilder {
	b.opts.MaxSurfaces = surfaces
	b.opts.MaxBuffers = buffers
	b.opts.MaxContexts = contexts
	return b
}

// WithDisabled hides (profile, entrypoint) pairs of the backend.
func (b *OptionsBuilder) WithDisabled(pairs ...negotiate.Pair) *OptionsBuilder {
	if len(pairs) > 0 {
		b.opts.Negotiation = append(b.opts.Negotiation, negotiate.WithDisabled(pairs...))
	}
	return b
}

// WithMaxResolution caps the surface size below the backend maximum.
func (b *OptionsBuilder) WithMaxResolution(width, height uint32) *OptionsBuilder {
	if width > 0 || height > 0 {
		b.opts.Negotiation = append(b.opts.Negotiation, negotiate.WithMaxResolution(width, height))
	}
	return b
}

// WithMemoryTypes restricts surface memory types.
func (b *OptionsBuilder) WithMemoryTypes(mask uint32) *OptionsBuilder {
	if mask != 0 {
		b.opts.Negotiation = append(b.opts.Negotiation, negotiate.WithMemoryTypes(mask))
	}
	return b
}

// Build returns the configured Options.
func (b *OptionsBuilder) Build() Options {
	out := b.opts
	out.Negotiation = append([]negotiate.Option(nil), b.opts.Negotiation...)
	return out
}
