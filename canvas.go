package pyramid

import (
	"errors"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Default logical canvas size used when the element reports no size at all.
const (
	DefaultCanvasWidth  = 200
	DefaultCanvasHeight = 173
)

// ErrNoContext is returned by Canvas.Context implementations when the element
// cannot provide a GPU presentation context.
var ErrNoContext = errors.New("pyramid: canvas has no GPU context")

// Canvas is the drawable element the renderer paints into. It mirrors the
// parts of an HTML canvas the renderer relies on: a logical client box, a
// physical backing store, inline style dimensions, and a presentation context.
//
// Sizes reported as zero mean "unknown" (for example while detached).
type Canvas interface {
	// ClientSize returns the laid-out size in logical pixels.
	ClientSize() (width, height float64)

	// BackingSize returns the physical pixel buffer size.
	BackingSize() (width, height uint32)

	// SetBackingSize resizes the physical pixel buffer.
	SetBackingSize(width, height uint32)

	// StyleSize returns the inline style width and height in logical pixels.
	StyleSize() (width, height float64)

	// SetStyleSize sets the inline style width and height.
	SetStyleSize(width, height float64)

	// Context returns the GPU presentation context bound to this canvas.
	Context() (Surface, error)
}

// AlphaMode selects how presented frames composite with the page behind them.
type AlphaMode int

const (
	// AlphaModeOpaque ignores the alpha channel.
	AlphaModeOpaque AlphaMode = iota

	// AlphaModePremultiplied composites premultiplied color over the page,
	// so a transparent clear lets the page background show through.
	AlphaModePremultiplied
)

// String returns the alpha mode name.
func (m AlphaMode) String() string {
	switch m {
	case AlphaModeOpaque:
		return "opaque"
	case AlphaModePremultiplied:
		return "premultiplied"
	default:
		return "unknown"
	}
}

// SurfaceConfiguration describes how a Surface presents frames.
type SurfaceConfiguration struct {
	Width     uint32
	Height    uint32
	Format    gputypes.TextureFormat
	AlphaMode AlphaMode
}

// Surface is the presentation context of a Canvas.
type Surface interface {
	// PreferredFormat returns the color format the surface presents best.
	// gputypes.TextureFormatUndefined means no preference.
	PreferredFormat() gputypes.TextureFormat

	// Configure (re)binds the surface to a device at the given size.
	Configure(device hal.Device, queue hal.Queue, cfg SurfaceConfiguration) error

	// CurrentTextureView returns the view to render the next frame into.
	CurrentTextureView() (hal.TextureView, error)

	// Present hands the rendered frame to the display.
	Present() error

	// Unconfigure releases device resources held by the surface.
	Unconfigure()
}

// FrameHandle identifies a scheduled frame callback.
type FrameHandle uint64

// FrameFunc is invoked once per display refresh. now is the time elapsed
// since the host's time origin.
type FrameFunc func(now time.Duration)

// Host is the platform the renderer runs on: a display-synced scheduler with
// a single pending callback per request, and the device pixel ratio.
type Host interface {
	// DevicePixelRatio returns physical pixels per logical pixel.
	DevicePixelRatio() float64

	// RequestFrame schedules fn to run before the next repaint.
	RequestFrame(fn FrameFunc) FrameHandle

	// CancelFrame cancels a callback scheduled by RequestFrame. Cancelling
	// an unknown or already-run handle is a no-op.
	CancelFrame(h FrameHandle)
}
