// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pyramid"
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

func configure(t *testing.T, o *Offscreen, w, h uint32, format gputypes.TextureFormat) pyramid.Surface {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)

	s, err := o.Context()
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	err = s.Configure(device, queue, pyramid.SurfaceConfiguration{
		Width:     w,
		Height:    h,
		Format:    format,
		AlphaMode: pyramid.AlphaModePremultiplied,
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	t.Cleanup(s.Unconfigure)
	return s
}

func TestOffscreenSizes(t *testing.T) {
	o := NewOffscreen(200, 173)
	if w, h := o.ClientSize(); w != 200 || h != 173 {
		t.Errorf("ClientSize = %vx%v", w, h)
	}
	if w, h := o.BackingSize(); w != 0 || h != 0 {
		t.Errorf("BackingSize = %dx%d, want unset", w, h)
	}
	o.SetBackingSize(400, 346)
	o.SetStyleSize(200, 173)
	o.SetClientSize(300, 150)
	if w, h := o.BackingSize(); w != 400 || h != 346 {
		t.Errorf("BackingSize = %dx%d", w, h)
	}
	if w, h := o.StyleSize(); w != 200 || h != 173 {
		t.Errorf("StyleSize = %vx%v", w, h)
	}
	if w, h := o.ClientSize(); w != 300 || h != 150 {
		t.Errorf("ClientSize = %vx%v", w, h)
	}
}

func TestOffscreenWithoutContext(t *testing.T) {
	o := NewOffscreen(10, 10, WithoutContext())
	if _, err := o.Context(); !errors.Is(err, pyramid.ErrNoContext) {
		t.Errorf("Context err = %v, want ErrNoContext", err)
	}
}

func TestOffscreenPreferredFormat(t *testing.T) {
	s, _ := NewOffscreen(1, 1).Context()
	if got := s.PreferredFormat(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("default format = %v", got)
	}
	s, _ = NewOffscreen(1, 1, WithFormat(gputypes.TextureFormatRGBA8Unorm)).Context()
	if got := s.PreferredFormat(); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("format = %v, want RGBA8Unorm", got)
	}
}

func TestOffscreenConfigure(t *testing.T) {
	o := NewOffscreen(200, 173)
	s := configure(t, o, 200, 173, gputypes.TextureFormatBGRA8Unorm)

	cfg := o.Configuration()
	if cfg.Width != 200 || cfg.Height != 173 || cfg.AlphaMode != pyramid.AlphaModePremultiplied {
		t.Errorf("Configuration = %+v", cfg)
	}
	if view, err := s.CurrentTextureView(); err != nil || view == nil {
		t.Fatalf("CurrentTextureView = %v, %v", view, err)
	}

	s.Unconfigure()
	if _, err := s.CurrentTextureView(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("after Unconfigure err = %v, want ErrNotConfigured", err)
	}
	if err := s.Present(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Present after Unconfigure err = %v", err)
	}
	s.Unconfigure()
}

func TestOffscreenConfigureInvalid(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	s, _ := NewOffscreen(1, 1).Context()
	if err := s.Configure(device, queue, pyramid.SurfaceConfiguration{Format: gputypes.TextureFormatBGRA8Unorm}); err == nil {
		t.Error("zero size accepted")
	}
	if err := s.Configure(nil, nil, pyramid.SurfaceConfiguration{Width: 1, Height: 1}); err == nil {
		t.Error("nil device accepted")
	}
}

func TestOffscreenPresentHook(t *testing.T) {
	var calls int
	o := NewOffscreen(4, 4, WithOnPresent(func(*Offscreen) { calls++ }))
	s := configure(t, o, 4, 4, gputypes.TextureFormatBGRA8Unorm)

	for i := 0; i < 3; i++ {
		if err := s.Present(); err != nil {
			t.Fatalf("Present: %v", err)
		}
	}
	if calls != 3 || o.Presents() != 3 {
		t.Errorf("hook calls = %d, presents = %d, want 3", calls, o.Presents())
	}
}

func TestSnapshotErrors(t *testing.T) {
	o := NewOffscreen(4, 4)
	if _, err := o.Snapshot(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured err = %v", err)
	}

	configure(t, o, 4, 4, gputypes.TextureFormatBGRA8Unorm)
	if _, err := o.Snapshot(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("no frame err = %v", err)
	}

	o2 := NewOffscreen(4, 4)
	s2 := configure(t, o2, 4, 4, gputypes.TextureFormatR8Unorm)
	_ = s2.Present()
	if _, err := o2.Snapshot(); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("float format err = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := o.SnapshotScaled(0, 1); err == nil {
		t.Error("SnapshotScaled accepted zero width")
	}
}

func TestSnapshotSize(t *testing.T) {
	tests := []struct {
		name   string
		w, h   uint32
		format gputypes.TextureFormat
	}{
		{"bgra aligned", 64, 8, gputypes.TextureFormatBGRA8Unorm},
		{"bgra padded", 200, 173, gputypes.TextureFormatBGRA8Unorm},
		{"rgba padded", 13, 7, gputypes.TextureFormatRGBA8Unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOffscreen(float64(tt.w), float64(tt.h))
			s := configure(t, o, tt.w, tt.h, tt.format)
			if err := s.Present(); err != nil {
				t.Fatalf("Present: %v", err)
			}
			img, err := o.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if b := img.Bounds(); b.Dx() != int(tt.w) || b.Dy() != int(tt.h) {
				t.Errorf("snapshot = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
		})
	}
}

func TestSnapshotScaled(t *testing.T) {
	o := NewOffscreen(200, 173)
	s := configure(t, o, 400, 346, gputypes.TextureFormatBGRA8Unorm)
	_ = s.Present()

	img, err := o.SnapshotScaled(200, 173)
	if err != nil {
		t.Fatalf("SnapshotScaled: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 173 {
		t.Errorf("scaled = %dx%d, want 200x173", b.Dx(), b.Dy())
	}

	same, err := o.SnapshotScaled(400, 346)
	if err != nil {
		t.Fatalf("SnapshotScaled same size: %v", err)
	}
	if b := same.Bounds(); b.Dx() != 400 || b.Dy() != 346 {
		t.Errorf("same size = %dx%d", b.Dx(), b.Dy())
	}
}

func TestUnpackRows(t *testing.T) {
	// Two rows of one BGRA pixel each, stride 8.
	src := []byte{
		1, 2, 3, 4, 0, 0, 0, 0,
		5, 6, 7, 8, 0, 0, 0, 0,
	}
	tests := []struct {
		name    string
		swizzle bool
		want    []byte
	}{
		{"swizzle", true, []byte{3, 2, 1, 4, 7, 6, 5, 8}},
		{"copy", false, []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 8)
			unpackRows(dst, src, 4, 8, 2, tt.swizzle)
			for i := range dst {
				if dst[i] != tt.want[i] {
					t.Fatalf("dst = %v, want %v", dst, tt.want)
				}
			}
		})
	}
}

// stepHost runs frame callbacks on demand.
type stepHost struct {
	mu      sync.Mutex
	next    pyramid.FrameHandle
	pending map[pyramid.FrameHandle]pyramid.FrameFunc
}

func (h *stepHost) DevicePixelRatio() float64 { return 2 }

func (h *stepHost) RequestFrame(fn pyramid.FrameFunc) pyramid.FrameHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		h.pending = make(map[pyramid.FrameHandle]pyramid.FrameFunc)
	}
	h.next++
	h.pending[h.next] = fn
	return h.next
}

func (h *stepHost) CancelFrame(id pyramid.FrameHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, id)
}

func (h *stepHost) step(now time.Duration) {
	h.mu.Lock()
	batch := h.pending
	h.pending = nil
	h.mu.Unlock()
	for _, fn := range batch {
		fn(now)
	}
}

func TestOffscreenWithRenderer(t *testing.T) {
	var (
		snapW, snapH int
		snapErr      error
	)
	o := NewOffscreen(200, 173, WithOnPresent(func(o *Offscreen) {
		img, err := o.Snapshot()
		snapErr = err
		if err == nil {
			snapW, snapH = img.Bounds().Dx(), img.Bounds().Dy()
		}
	}))
	host := &stepHost{}

	teardown, err := pyramid.Start(context.Background(), o, host, pyramid.WithInstanceFactory(&noop.API{}))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer teardown()

	host.step(0)
	host.step(16 * time.Millisecond)

	if o.Presents() != 2 {
		t.Errorf("presents = %d, want 2", o.Presents())
	}
	if snapErr != nil {
		t.Fatalf("snapshot in hook: %v", snapErr)
	}
	bw, bh := o.BackingSize()
	if snapW != int(bw) || snapH != int(bh) {
		t.Errorf("snapshot = %dx%d, backing = %dx%d", snapW, snapH, bw, bh)
	}
	if bw != 400 || bh != 346 {
		t.Errorf("backing = %dx%d, want 400x346 at ratio 2", bw, bh)
	}
	if sw, sh := o.StyleSize(); sw != 200 || sh != 173 {
		t.Errorf("style = %vx%v, want 200x173", sw, sh)
	}

	teardown()
	if o.Configuration() != (pyramid.SurfaceConfiguration{}) {
		t.Error("surface still configured after teardown")
	}
}
