// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphic

import (
	"context"
	"errors"
	"sync"

	"github.com/gogpu/pyramid"
)

// Common errors returned by Graphic operations.
var (
	// ErrNilCanvas is returned when a nil canvas is passed to New.
	ErrNilCanvas = errors.New("graphic: nil canvas")

	// ErrNilHost is returned when a nil host is passed to New.
	ErrNilHost = errors.New("graphic: nil host")

	// ErrAlreadyMounted is returned when Mount is called twice.
	ErrAlreadyMounted = errors.New("graphic: already mounted")

	// ErrUnmounted is returned when Mount is called after Unmount.
	ErrUnmounted = errors.New("graphic: unmounted")
)

// StartFunc starts a renderer. pyramid.Start is the default.
type StartFunc func(ctx context.Context, canvas pyramid.Canvas, host pyramid.Host, opts ...pyramid.Option) (pyramid.Teardown, error)

// Option configures a Graphic.
type Option func(*Graphic)

// WithRendererOptions passes options through to the renderer.
func WithRendererOptions(opts ...pyramid.Option) Option {
	return func(g *Graphic) {
		g.rendererOpts = append(g.rendererOpts, opts...)
	}
}

// WithStartFunc replaces pyramid.Start.
func WithStartFunc(fn StartFunc) Option {
	return func(g *Graphic) {
		if fn != nil {
			g.start = fn
		}
	}
}

type state int

const (
	stateIdle state = iota
	stateMounting
	stateMounted
	stateUnmounted
)

// Graphic is a mountable component displaying the pyramid in a canvas.
// It is safe for concurrent use.
type Graphic struct {
	canvas       pyramid.Canvas
	host         pyramid.Host
	rendererOpts []pyramid.Option
	start        StartFunc

	mu       sync.Mutex
	state    state
	cancel   context.CancelFunc
	teardown pyramid.Teardown
	err      error

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates an unmounted Graphic for canvas, scheduled on host.
func New(canvas pyramid.Canvas, host pyramid.Host, opts ...Option) (*Graphic, error) {
	if canvas == nil {
		return nil, ErrNilCanvas
	}
	if host == nil {
		return nil, ErrNilHost
	}
	g := &Graphic{
		canvas: canvas,
		host:   host,
		start:  pyramid.Start,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Mount starts renderer setup on its own goroutine and returns immediately.
// Ready is closed once setup has finished, successfully or not.
func (g *Graphic) Mount(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case stateUnmounted:
		return ErrUnmounted
	case stateMounting, stateMounted:
		return ErrAlreadyMounted
	}

	setupCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.state = stateMounting
	go g.setup(setupCtx)
	return nil
}

func (g *Graphic) setup(ctx context.Context) {
	defer g.markReady()

	teardown, err := g.start(ctx, g.canvas, g.host, g.rendererOpts...)
	if teardown == nil {
		teardown = func() {}
	}

	g.mu.Lock()
	if g.state == stateUnmounted {
		// Unmounted while setup was running: nobody else will call this
		// teardown.
		g.mu.Unlock()
		teardown()
		if err != nil && !errors.Is(err, context.Canceled) {
			pyramid.Logger().Error("graphic: renderer setup failed", "err", err)
		}
		return
	}
	g.err = err
	g.teardown = teardown
	g.state = stateMounted
	g.mu.Unlock()

	if err != nil {
		pyramid.Logger().Error("graphic: renderer setup failed", "err", err)
	}
}

// Unmount stops the renderer. It is idempotent, and the renderer's teardown
// runs at most once regardless of when Unmount is called.
func (g *Graphic) Unmount() {
	g.mu.Lock()
	if g.state == stateUnmounted {
		g.mu.Unlock()
		return
	}
	prev := g.state
	g.state = stateUnmounted
	if g.cancel != nil {
		g.cancel()
	}
	teardown := g.teardown
	g.teardown = nil
	g.mu.Unlock()

	if teardown != nil {
		teardown()
	}
	if prev == stateIdle {
		g.markReady()
	}
}

// Ready returns a channel closed when setup finishes, or when the Graphic
// is unmounted without ever being mounted.
func (g *Graphic) Ready() <-chan struct{} {
	return g.ready
}

// Err returns the setup error, if any. It is nil until Ready is closed.
func (g *Graphic) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Mounted reports whether setup finished and the component is not
// unmounted.
func (g *Graphic) Mounted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == stateMounted
}

func (g *Graphic) markReady() {
	g.readyOnce.Do(func() { close(g.ready) })
}
