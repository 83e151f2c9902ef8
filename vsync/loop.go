// Package vsync provides a display-synced frame scheduler for the pyramid
// renderer.
//
// Loop implements pyramid.Host. Callbacks requested with RequestFrame run
// once, in request order, on the next batch. A batch runs every refresh
// interval while Run is active, or on demand through Tick for
// deterministic, headless rendering.
package vsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gogpu/pyramid"
)

// DefaultInterval is the refresh interval of a 60 Hz display.
const DefaultInterval = time.Second / 60

// ErrRunning is returned by Run when the loop is already running.
var ErrRunning = errors.New("vsync: loop already running")

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the refresh interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithDevicePixelRatio sets the initial device pixel ratio.
func WithDevicePixelRatio(ratio float64) Option {
	return func(l *Loop) {
		l.ratio = ratio
	}
}

type request struct {
	handle pyramid.FrameHandle
	fn     pyramid.FrameFunc
}

// Loop is a requestAnimationFrame-style scheduler.
//
// All callbacks run on the goroutine calling Run (or Tick), one at a time.
// Callbacks requested while a batch is running are deferred to the next
// batch. Loop is safe for concurrent use.
type Loop struct {
	mu       sync.Mutex
	interval time.Duration
	ratio    float64

	next     pyramid.FrameHandle
	queue    []request
	inflight map[pyramid.FrameHandle]struct{}
	running  bool
}

// New creates a loop with DefaultInterval and a pixel ratio of 1.
func New(opts ...Option) *Loop {
	l := &Loop{
		interval: DefaultInterval,
		ratio:    1,
		inflight: make(map[pyramid.FrameHandle]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Interval returns the refresh interval.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// DevicePixelRatio returns the current device pixel ratio.
func (l *Loop) DevicePixelRatio() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ratio
}

// SetDevicePixelRatio changes the device pixel ratio, as moving a window to
// another display would. Renderers pick it up on their next frame.
func (l *Loop) SetDevicePixelRatio(ratio float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ratio = ratio
}

// RequestFrame schedules fn for the next batch and returns a handle that
// can cancel it.
func (l *Loop) RequestFrame(fn pyramid.FrameFunc) pyramid.FrameHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.queue = append(l.queue, request{handle: l.next, fn: fn})
	return l.next
}

// CancelFrame cancels a scheduled callback. Unknown handles are ignored.
func (l *Loop) CancelFrame(h pyramid.FrameHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, h)
	for i, req := range l.queue {
		if req.handle == h {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}

// Pending returns the number of callbacks waiting for the next batch.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Tick runs one batch with the given timestamp and returns how many
// callbacks ran. A callback cancelled by an earlier one in the same batch
// is skipped.
func (l *Loop) Tick(now time.Duration) int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	for _, req := range batch {
		l.inflight[req.handle] = struct{}{}
	}
	l.mu.Unlock()

	ran := 0
	for _, req := range batch {
		l.mu.Lock()
		_, ok := l.inflight[req.handle]
		delete(l.inflight, req.handle)
		l.mu.Unlock()
		if !ok || req.fn == nil {
			continue
		}
		req.fn(now)
		ran++
	}
	return ran
}

// Run drives batches every interval until ctx is done. Timestamps are
// measured from the moment Run starts. Run returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrRunning
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	start := time.Now()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick(time.Since(start))
		}
	}
}
