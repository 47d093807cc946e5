package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// unit is the smallest piece of work handed to the accelerator: one frame,
// or the frames of a multi-frame submission.
type unit struct {
	frames   []*frame
	parallel bool
}

// dispatcher runs units on a fixed pool of workers.
type dispatcher struct {
	units  chan unit
	exec   func(context.Context, *frame)
	ctx    context.Context
	cancel context.CancelFunc
	limit  int
	wg     sync.WaitGroup
}

// newDispatcher starts numWorkers workers. queue must be at least the
// number of frames that can be in flight, so submit never blocks.
func newDispatcher(numWorkers, queue int, exec func(context.Context, *frame)) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		units:  make(chan unit, queue),
		exec:   exec,
		ctx:    ctx,
		cancel: cancel,
		limit:  numWorkers,
	}
	for w := 0; w < numWorkers; w++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *dispatcher) submit(u unit) {
	d.units <- u
}

func (d *dispatcher) worker() {
	defer d.wg.Done()
	for u := range d.units {
		d.run(u)
	}
}

// run executes frames in order, or concurrently for independent groups.
func (d *dispatcher) run(u unit) {
	if !u.parallel || len(u.frames) == 1 {
		for _, f := range u.frames {
			d.exec(d.ctx, f)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, f := range u.frames {
		f := f
		g.Go(func() error {
			d.exec(d.ctx, f)
			return nil
		})
	}
	g.Wait()
}

// stop drains queued units and waits for the workers to exit.
func (d *dispatcher) stop() {
	close(d.units)
	d.wg.Wait()
	d.cancel()
}
