// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pyramid"
	"github.com/gogpu/wgpu/hal"
)

// Offscreen errors.
var (
	// ErrNotConfigured is returned when the context has no texture yet.
	ErrNotConfigured = errors.New("surface: not configured")

	// ErrNoFrame is returned by Snapshot before the first Present.
	ErrNoFrame = errors.New("surface: no frame presented")

	// ErrUnsupportedFormat is returned by Snapshot for formats other than
	// BGRA8Unorm and RGBA8Unorm.
	ErrUnsupportedFormat = errors.New("surface: unsupported readback format")
)

// Option configures an Offscreen canvas.
type Option func(*Offscreen)

// WithFormat sets the preferred presentation format.
// The default is gputypes.TextureFormatBGRA8Unorm.
func WithFormat(format gputypes.TextureFormat) Option {
	return func(o *Offscreen) {
		o.format = format
	}
}

// WithOnPresent registers fn to run after each presented frame, on the
// goroutine that presented it. fn may call Snapshot.
func WithOnPresent(fn func(*Offscreen)) Option {
	return func(o *Offscreen) {
		o.onPresent = fn
	}
}

// WithoutContext makes Context fail with pyramid.ErrNoContext, like an
// element whose GPU context cannot be created.
func WithoutContext() Option {
	return func(o *Offscreen) {
		o.noContext = true
	}
}

// Offscreen is a canvas element without a window.
//
// It tracks the three sizes a page element has: the laid-out client size
// in logical pixels, the backing store in physical pixels, and the inline
// style size. Its context is a pyramid.Surface backed by a HAL texture.
//
// All methods are safe for concurrent use.
type Offscreen struct {
	mu sync.Mutex

	clientW, clientH   float64
	backingW, backingH uint32
	styleW, styleH     float64

	format    gputypes.TextureFormat
	onPresent func(*Offscreen)
	noContext bool

	// GPU state, set by Configure.
	device hal.Device
	queue  hal.Queue
	tex    hal.Texture
	view   hal.TextureView
	cfg    pyramid.SurfaceConfiguration

	presents   uint64
	configures int
}

// NewOffscreen creates an offscreen canvas with the given client size in
// logical pixels. A zero size means the element is not laid out yet.
func NewOffscreen(width, height float64, opts ...Option) *Offscreen {
	o := &Offscreen{
		clientW: width,
		clientH: height,
		format:  gputypes.TextureFormatBGRA8Unorm,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ClientSize returns the laid-out size in logical pixels.
func (o *Offscreen) ClientSize() (float64, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clientW, o.clientH
}

// SetClientSize changes the laid-out size, as a page reflow would.
func (o *Offscreen) SetClientSize(width, height float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clientW, o.clientH = width, height
}

// BackingSize returns the physical pixel buffer size.
func (o *Offscreen) BackingSize() (uint32, uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.backingW, o.backingH
}

// SetBackingSize resizes the physical pixel buffer.
func (o *Offscreen) SetBackingSize(width, height uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backingW, o.backingH = width, height
}

// StyleSize returns the inline style size.
func (o *Offscreen) StyleSize() (float64, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.styleW, o.styleH
}

// SetStyleSize sets the inline style size.
func (o *Offscreen) SetStyleSize(width, height float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.styleW, o.styleH = width, height
}

// Context returns the canvas's presentation context.
func (o *Offscreen) Context() (pyramid.Surface, error) {
	if o.noContext {
		return nil, pyramid.ErrNoContext
	}
	return (*offscreenContext)(o), nil
}

// Presents returns the number of frames presented since the context was
// last configured.
func (o *Offscreen) Presents() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.presents
}

// Configures returns how many times the context was configured.
func (o *Offscreen) Configures() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.configures
}

// Configuration returns the current context configuration. The zero value
// means unconfigured.
func (o *Offscreen) Configuration() pyramid.SurfaceConfiguration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// offscreenContext is the pyramid.Surface view of an Offscreen.
type offscreenContext Offscreen

func (c *offscreenContext) PreferredFormat() gputypes.TextureFormat {
	return c.format
}

// Configure allocates a color texture of the requested size and format,
// releasing the previous one.
func (c *offscreenContext) Configure(device hal.Device, queue hal.Queue, cfg pyramid.SurfaceConfiguration) error {
	if device == nil || queue == nil {
		return fmt.Errorf("surface: configure: nil device or queue")
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("surface: configure: invalid size %dx%d", cfg.Width, cfg.Height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: "offscreen_color",
		Size: hal.Extent3D{
			Width:              cfg.Width,
			Height:             cfg.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        cfg.Format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("surface: create color texture: %w", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "offscreen_color_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("surface: create color view: %w", err)
	}

	c.device = device
	c.queue = queue
	c.tex = tex
	c.view = view
	c.cfg = cfg
	c.presents = 0
	c.configures++
	pyramid.Logger().Debug("surface: offscreen configured",
		"width", cfg.Width, "height", cfg.Height, "format", cfg.Format, "alpha", cfg.AlphaMode)
	return nil
}

func (c *offscreenContext) CurrentTextureView() (hal.TextureView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return nil, ErrNotConfigured
	}
	return c.view, nil
}

// Present counts the frame and runs the OnPresent hook outside the lock.
func (c *offscreenContext) Present() error {
	c.mu.Lock()
	if c.tex == nil {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	c.presents++
	hook := c.onPresent
	c.mu.Unlock()

	if hook != nil {
		hook((*Offscreen)(c))
	}
	return nil
}

func (c *offscreenContext) Unconfigure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *offscreenContext) releaseLocked() {
	if c.view != nil {
		c.device.DestroyTextureView(c.view)
		c.view = nil
	}
	if c.tex != nil {
		c.device.DestroyTexture(c.tex)
		c.tex = nil
	}
	c.device = nil
	c.queue = nil
	c.cfg = pyramid.SurfaceConfiguration{}
}
