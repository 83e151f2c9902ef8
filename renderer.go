package pyramid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Setup errors.
var (
	// ErrNilCanvas is returned by Start when canvas is nil.
	ErrNilCanvas = errors.New("pyramid: nil canvas")

	// ErrNilHost is returned by Start when host is nil.
	ErrNilHost = errors.New("pyramid: nil host")
)

// fenceTimeout bounds the wait for one frame's GPU work.
const fenceTimeout = 5 * time.Second

// Teardown stops the frame loop and releases the renderer's GPU resources.
// It is idempotent and safe to call from any goroutine.
type Teardown func()

func noopTeardown() {}

// loopState is the frame loop state.
type loopState int

const (
	stateRunning loopState = iota
	// stateHalted follows a failed frame. Resources stay until teardown.
	stateHalted
	stateStopped
)

// renderer draws the pyramid into one canvas.
type renderer struct {
	mu sync.Mutex

	canvas  Canvas
	host    Host
	surface Surface
	capab   Capability
	device  hal.Device
	queue   hal.Queue
	format  gputypes.TextureFormat

	res   gpuResources
	depth depthBuffer

	baseWidth  float64
	baseHeight float64
	config     SurfaceConfig

	reconfigurations int
	frames           uint64
	uniforms         [Mat4Size]byte

	handle  FrameHandle
	pending bool
	state   loopState
}

// Start probes for a GPU, builds the pipeline for canvas, and schedules the
// frame loop on host. It blocks until setup finishes; run it on its own
// goroutine to keep the caller responsive.
//
// When no GPU is available, or the canvas has no GPU context, Start logs a
// warning and returns a no-op Teardown with a nil error. The returned
// Teardown is never nil.
func Start(ctx context.Context, canvas Canvas, host Host, opts ...Option) (Teardown, error) {
	r, err := start(ctx, canvas, host, opts...)
	if err != nil {
		return noopTeardown, err
	}
	if r == nil {
		return noopTeardown, nil
	}
	return r.teardown, nil
}

// start is Start returning the renderer itself. A nil renderer with a nil
// error means graphics are unavailable.
func start(ctx context.Context, canvas Canvas, host Host, opts ...Option) (*renderer, error) {
	if canvas == nil {
		return nil, ErrNilCanvas
	}
	if host == nil {
		return nil, ErrNilHost
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	capability := o.prober.Probe(ctx)
	if !capability.Available() {
		Logger().Warn("pyramid: WebGPU not available", "reason", capability.Reason())
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		capability.Release()
		return nil, err
	}

	surface, err := canvas.Context()
	if err == nil && surface == nil {
		err = ErrNoContext
	}
	if err != nil {
		Logger().Warn("pyramid: canvas context not available", "err", err)
		capability.Release()
		return nil, nil
	}

	format := surface.PreferredFormat()
	if format == gputypes.TextureFormatUndefined {
		format = capability.Format()
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}

	r := &renderer{
		canvas:  canvas,
		host:    host,
		surface: surface,
		capab:   capability,
		device:  capability.Device(),
		queue:   capability.Queue(),
		format:  format,
	}
	r.baseWidth, r.baseHeight = baseSize(canvas)
	applyBaseStyle(canvas, r.baseWidth, r.baseHeight)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reconfigure(); err != nil {
		r.release()
		return nil, fmt.Errorf("pyramid: initial configure: %w", err)
	}
	if err := ctx.Err(); err != nil {
		r.release()
		return nil, err
	}
	if err := r.res.build(r.device, r.queue, format); err != nil {
		r.release()
		return nil, fmt.Errorf("pyramid: build resources: %w", err)
	}

	r.state = stateRunning
	r.handle = host.RequestFrame(r.tick)
	r.pending = true

	Logger().Info("pyramid: renderer started",
		"width", r.config.Width, "height", r.config.Height, "format", format)
	return r, nil
}

// tick renders one frame and schedules the next. A failed frame halts the
// loop; resources stay allocated until teardown.
func (r *renderer) tick(now time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = false
	if r.state != stateRunning {
		return
	}

	if err := r.renderFrame(now); err != nil {
		r.state = stateHalted
		Logger().Error("pyramid: frame failed, render loop halted",
			"frame", r.frames, "err", err)
		return
	}
	r.frames++

	r.handle = r.host.RequestFrame(r.tick)
	r.pending = true
}

// renderFrame reconfigures if needed, uploads the transform, and submits
// one render pass. The caller must hold r.mu.
func (r *renderer) renderFrame(now time.Duration) error {
	if err := r.reconfigure(); err != nil {
		return err
	}

	mvp := ModelViewProjection(now.Seconds(), r.config.Aspect())
	mvp.PutBytes(r.uniforms[:])
	r.queue.WriteBuffer(r.res.uniformBuf, 0, r.uniforms[:])

	view, err := r.surface.CurrentTextureView()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "pyramid_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("pyramid_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "pyramid_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            r.depth.view,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	r.res.recordDraw(rp)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	if err := r.surface.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// teardown cancels the pending frame and releases everything. A tick in
// flight on another goroutine completes first.
func (r *renderer) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateStopped {
		return
	}
	r.state = stateStopped
	if r.pending {
		r.host.CancelFrame(r.handle)
		r.pending = false
	}
	r.release()
	Logger().Debug("pyramid: renderer stopped", "frames", r.frames)
}

// release frees GPU resources in reverse order of creation. The caller
// must hold r.mu.
func (r *renderer) release() {
	r.depth.destroy(r.device)
	r.res.destroy(r.device)
	if r.surface != nil {
		r.surface.Unconfigure()
	}
	r.config = SurfaceConfig{}
	r.capab.Release()
	r.capab = Capability{}
	r.device = nil
	r.queue = nil
}

// frameStats is a point-in-time view of the renderer.
type frameStats struct {
	Frames           uint64
	Reconfigurations int
	Config           SurfaceConfig
	Running          bool
	DepthAllocations int
	DepthReleases    int
}

func (r *renderer) stats() frameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return frameStats{
		Frames:           r.frames,
		Reconfigurations: r.reconfigurations,
		Config:           r.config,
		Running:          r.state == stateRunning,
		DepthAllocations: r.depth.allocations,
		DepthReleases:    r.depth.releases,
	}
}
