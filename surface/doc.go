// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface provides an offscreen canvas for the pyramid renderer.
//
// Offscreen implements pyramid.Canvas. Its presentation context renders into
// a HAL texture of the configured size instead of a window, and finished
// frames can be read back as *image.RGBA. This makes the renderer usable
// headless: in tests with the noop backend, and in command line tools that
// write frames to disk.
//
// # Usage
//
//	canvas := surface.NewOffscreen(200, 173,
//	    surface.WithOnPresent(func(o *surface.Offscreen) {
//	        img, err := o.Snapshot()
//	        // ...
//	    }))
//
//	teardown, err := pyramid.Start(ctx, canvas, loop)
//
// # Readback
//
// Snapshot copies the last presented texture into a staging buffer with
// rows aligned to 256 bytes, waits for the GPU, strips the padding, and
// converts BGRA to RGBA when needed. SnapshotScaled additionally resamples
// the frame with golang.org/x/image/draw, for example from physical to
// logical pixels.
package surface
