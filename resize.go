package pyramid

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceConfig is the physical backing resolution of the canvas. The
// presentation surface and the depth buffer always match it.
type SurfaceConfig struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether no size has been configured yet.
func (c SurfaceConfig) IsZero() bool {
	return c.Width == 0 && c.Height == 0
}

// Aspect returns width divided by height.
func (c SurfaceConfig) Aspect() float64 {
	if c.Height == 0 {
		return 1
	}
	return float64(c.Width) / float64(c.Height)
}

// ClampPixelRatio returns ratio clamped to at least 1. Non-finite ratios
// are treated as 1.
func ClampPixelRatio(ratio float64) float64 {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 1 {
		return 1
	}
	return ratio
}

// PhysicalSize converts a logical size to physical pixels:
// round(logical × ratio), clamped to at least 1 in each dimension.
func PhysicalSize(width, height, ratio float64) SurfaceConfig {
	ratio = ClampPixelRatio(ratio)
	return SurfaceConfig{
		Width:  physicalPixels(width, ratio),
		Height: physicalPixels(height, ratio),
	}
}

func physicalPixels(logical, ratio float64) uint32 {
	px := math.Round(logical * ratio)
	if !(px >= 1) {
		return 1
	}
	if px > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(px)
}

// baseSize returns the logical size the canvas falls back to while its
// client box is empty: client size, else backing size, else the defaults.
func baseSize(canvas Canvas) (width, height float64) {
	cw, ch := canvas.ClientSize()
	bw, bh := canvas.BackingSize()
	return firstPositive(cw, float64(bw), DefaultCanvasWidth),
		firstPositive(ch, float64(bh), DefaultCanvasHeight)
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// applyBaseStyle pins the inline style size to the base size where unset,
// so the element keeps stable layout dimensions before it is sized.
func applyBaseStyle(canvas Canvas, baseWidth, baseHeight float64) {
	sw, sh := canvas.StyleSize()
	if sw > 0 && sh > 0 {
		return
	}
	if sw <= 0 {
		sw = baseWidth
	}
	if sh <= 0 {
		sh = baseHeight
	}
	canvas.SetStyleSize(sw, sh)
}

// depthBuffer is the depth attachment sized to the current SurfaceConfig.
type depthBuffer struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32

	// allocations and releases count texture lifecycle events.
	allocations int
	releases    int
}

// recreate releases the current depth texture, if any, and allocates a new
// one of the given size.
func (d *depthBuffer) recreate(device hal.Device, cfg SurfaceConfig) error {
	d.destroy(device)

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: "pyramid_depth",
		Size: hal.Extent3D{
			Width:              cfg.Width,
			Height:             cfg.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	d.tex = tex
	d.allocations++

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "pyramid_depth_view",
	})
	if err != nil {
		d.destroy(device)
		return fmt.Errorf("create depth view: %w", err)
	}
	d.view = view
	d.width = cfg.Width
	d.height = cfg.Height
	return nil
}

// destroy releases the depth texture. Safe to call repeatedly.
func (d *depthBuffer) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if d.view != nil {
		device.DestroyTextureView(d.view)
		d.view = nil
	}
	if d.tex != nil {
		device.DestroyTexture(d.tex)
		d.tex = nil
		d.releases++
	}
	d.width = 0
	d.height = 0
}

// size returns the allocated depth buffer size, zero when released.
func (d *depthBuffer) size() SurfaceConfig {
	return SurfaceConfig{Width: d.width, Height: d.height}
}

// reconfigure brings the backing store, surface, and depth buffer in line
// with the canvas's current client size and pixel ratio. It is a no-op when
// nothing changed. The caller must hold r.mu.
func (r *renderer) reconfigure() error {
	cw, ch := r.canvas.ClientSize()
	if cw <= 0 {
		cw = r.baseWidth
	}
	if ch <= 0 {
		ch = r.baseHeight
	}
	target := PhysicalSize(cw, ch, r.host.DevicePixelRatio())
	if target == r.config {
		return nil
	}

	r.canvas.SetBackingSize(target.Width, target.Height)

	// Forget the old size first: if anything below fails, the next attempt
	// starts from scratch instead of trusting a half-applied configuration.
	r.config = SurfaceConfig{}

	err := r.surface.Configure(r.device, r.queue, SurfaceConfiguration{
		Width:     target.Width,
		Height:    target.Height,
		Format:    r.format,
		AlphaMode: AlphaModePremultiplied,
	})
	if err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	if err := r.depth.recreate(r.device, target); err != nil {
		return err
	}

	r.config = target
	r.reconfigurations++
	Logger().Debug("pyramid: surface configured",
		"width", target.Width, "height", target.Height, "reconfigurations", r.reconfigurations)
	return nil
}
