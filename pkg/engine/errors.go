package engine

import (
	"errors"
	"fmt"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/va"
)

// Engine errors. Each wraps the status code it reports, so callers can
// match either the sentinel or the va.Status with errors.Is.
var (
	// ErrFrameInFlight is returned by BeginPicture while the context still has
	// a frame that was begun, or submitted and not yet synchronized.
	ErrFrameInFlight = fmt.Errorf("engine: context has a frame in flight: %w", va.ErrHwBusy)

	// ErrQueueFull is returned by EndPicture when the execution queue is at
	// capacity. The frame stays open and EndPicture may be retried.
	ErrQueueFull = fmt.Errorf("engine: execution queue full: %w", va.ErrHwBusy)

	// ErrNoPicture is returned by RenderPicture and EndPicture outside Begin/End.
	ErrNoPicture = fmt.Errorf("engine: no picture begun on context: %w", va.ErrOperationFailed)

	// ErrChildrenAlive is returned by a strict Terminate while objects exist.
	ErrChildrenAlive = fmt.Errorf("engine: objects still alive: %w", va.ErrOperationFailed)

	// ErrTerminated is returned by every call after Terminate.
	ErrTerminated = fmt.Errorf("engine: session terminated: %w", va.ErrInvalidDisplay)

	// ErrNotMapped is returned by UnmapBuffer on a buffer that is not mapped.
	ErrNotMapped = fmt.Errorf("engine: buffer not mapped: %w", va.ErrOperationFailed)

	// ErrNotAcquired is returned by ReleaseBufferHandle without a prior acquire.
	ErrNotAcquired = fmt.Errorf("engine: buffer handle not acquired: %w", va.ErrInvalidParameter)

	// ErrImageOwned is returned by DestroyBuffer on the buffer backing an image.
	ErrImageOwned = fmt.Errorf("engine: buffer belongs to an image: %w", va.ErrOperationFailed)

	// ErrNotQueued is returned by MFSubmit for a context without an ended frame.
	ErrNotQueued = fmt.Errorf("engine: context has no ended frame: %w", va.ErrOperationFailed)
)

// invalidHandle maps a registry failure to the kind-specific status.
func invalidHandle(status va.Status, id uint32, err error) error {
	if errors.Is(err, handle.ErrExhausted) {
		return fmt.Errorf("%#x: %w: %w", id, va.ErrAllocationFailed, err)
	}
	return fmt.Errorf("%#x: %w: %w", id, status, err)
}

func busy(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, va.ErrSurfaceBusy)...)
}
