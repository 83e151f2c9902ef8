// Package pyramid renders a slowly rotating, per-vertex-colored pyramid into
// a canvas using the gogpu/wgpu hardware abstraction layer.
//
// # Overview
//
// The renderer is a small, self-contained real-time 3D view meant for a
// decorative page element. It owns device acquisition, the static mesh and
// pipeline, a display-synced frame loop with resize-aware reconfiguration,
// and teardown. When no GPU is available it does nothing and reports no
// error, so the page still works without graphics.
//
// # Quick Start
//
//	canvas := surface.NewOffscreen(200, 173)
//	loop := vsync.New()
//	go loop.Run(ctx)
//
//	teardown, err := pyramid.Start(ctx, canvas, loop)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer teardown()
//
// # Hosts
//
// Start is written against three small interfaces:
//   - Canvas: logical client size, physical backing size, inline style size,
//     and a GPU presentation context
//   - Surface: the presentation context that is configured per size
//   - Host: a "run before the next repaint" scheduler and the device pixel ratio
//
// The surface package provides an offscreen Canvas that renders into a HAL
// texture and reads frames back as images. The vsync package provides a
// Host driven by a ticker.
//
// # Device Selection
//
// By default Start opens a private device on the Vulkan backend and destroys
// it at teardown. WithDeviceProvider renders with the device of a host
// application instead; that device is never destroyed. WithInstanceFactory
// selects another HAL backend, for example hal/noop in tests.
//
// # Coordinate System
//
// Right-handed view space looking down -Z. The projection maps depth to
// clip space [0, 1], the WebGPU and Vulkan convention. Matrices are
// column-major, matching WGSL mat4x4<f32>.
//
// # Logging
//
// The package is silent by default. Use SetLogger to receive diagnostics:
// Warn when graphics are unavailable, Error when a frame fails and the loop
// halts, Debug for reconfiguration.
package pyramid
