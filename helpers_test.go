package pyramid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// noopProber hands out a noop device and counts releases.
type noopProber struct {
	device   hal.Device
	queue    hal.Queue
	releases int
}

func newNoopProber(t *testing.T) *noopProber {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	return &noopProber{device: device, queue: queue}
}

func (p *noopProber) Probe(context.Context) Capability {
	return Capable(p.device, p.queue, func() { p.releases++ })
}

// fakeSurface renders into a noop color texture.
type fakeSurface struct {
	format gputypes.TextureFormat

	device hal.Device
	tex    hal.Texture
	view   hal.TextureView
	cfg    SurfaceConfiguration

	configures   int
	presents     int
	unconfigures int

	configureErr error
	viewErr      error
}

var errInjected = errors.New("injected failure")

func (s *fakeSurface) PreferredFormat() gputypes.TextureFormat { return s.format }

func (s *fakeSurface) Configure(device hal.Device, _ hal.Queue, cfg SurfaceConfiguration) error {
	if s.configureErr != nil {
		return s.configureErr
	}
	s.release()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "fake_surface",
		Size:          hal.Extent3D{Width: cfg.Width, Height: cfg.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        cfg.Format,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "fake_surface_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return err
	}
	s.device, s.tex, s.view, s.cfg = device, tex, view, cfg
	s.configures++
	return nil
}

func (s *fakeSurface) CurrentTextureView() (hal.TextureView, error) {
	if s.viewErr != nil {
		return nil, s.viewErr
	}
	if s.view == nil {
		return nil, errors.New("surface not configured")
	}
	return s.view, nil
}

func (s *fakeSurface) Present() error {
	s.presents++
	return nil
}

func (s *fakeSurface) Unconfigure() {
	s.release()
	s.unconfigures++
}

func (s *fakeSurface) release() {
	if s.view != nil {
		s.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil {
		s.device.DestroyTexture(s.tex)
		s.tex = nil
	}
}

// fakeCanvas is an in-memory canvas element.
type fakeCanvas struct {
	mu sync.Mutex

	clientW, clientH   float64
	backingW, backingH uint32
	styleW, styleH     float64

	surface *fakeSurface
	ctxErr  error
}

func newFakeCanvas(w, h float64) *fakeCanvas {
	return &fakeCanvas{
		clientW: w,
		clientH: h,
		surface: &fakeSurface{format: gputypes.TextureFormatBGRA8Unorm},
	}
}

func (c *fakeCanvas) ClientSize() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientW, c.clientH
}

func (c *fakeCanvas) setClientSize(w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientW, c.clientH = w, h
}

func (c *fakeCanvas) BackingSize() (uint32, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backingW, c.backingH
}

func (c *fakeCanvas) SetBackingSize(w, h uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backingW, c.backingH = w, h
}

func (c *fakeCanvas) StyleSize() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.styleW, c.styleH
}

func (c *fakeCanvas) SetStyleSize(w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.styleW, c.styleH = w, h
}

func (c *fakeCanvas) Context() (Surface, error) {
	if c.ctxErr != nil {
		return nil, c.ctxErr
	}
	return c.surface, nil
}

// fakeHost is a manually stepped frame scheduler.
type fakeHost struct {
	mu        sync.Mutex
	ratio     float64
	next      FrameHandle
	pending   map[FrameHandle]FrameFunc
	requests  int
	cancelled int
}

func newFakeHost(ratio float64) *fakeHost {
	return &fakeHost{ratio: ratio, pending: make(map[FrameHandle]FrameFunc)}
}

func (h *fakeHost) DevicePixelRatio() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ratio
}

func (h *fakeHost) setRatio(r float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ratio = r
}

func (h *fakeHost) RequestFrame(fn FrameFunc) FrameHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.pending[h.next] = fn
	h.requests++
	return h.next
}

func (h *fakeHost) CancelFrame(id FrameHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pending[id]; ok {
		delete(h.pending, id)
		h.cancelled++
	}
}

func (h *fakeHost) pendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// step runs every callback pending at the time of the call.
func (h *fakeHost) step(now time.Duration) int {
	h.mu.Lock()
	batch := h.pending
	h.pending = make(map[FrameHandle]FrameFunc)
	h.mu.Unlock()

	for _, fn := range batch {
		fn(now)
	}
	return len(batch)
}

// startTest starts a renderer on a noop device and registers teardown.
func startTest(t *testing.T, canvas *fakeCanvas, host *fakeHost) (*renderer, *noopProber) {
	t.Helper()
	prober := newNoopProber(t)
	r, err := start(context.Background(), canvas, host, WithProber(prober))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if r == nil {
		t.Fatal("start returned nil renderer")
	}
	t.Cleanup(r.teardown)
	return r, prober
}
