// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package graphic hosts the pyramid renderer inside a page component.
//
// A Graphic owns the lifecycle glue between a UI component and the
// renderer: Mount starts setup asynchronously, the returned teardown is
// retained, and Unmount invokes it exactly once. Setup failures are logged
// and kept for inspection; they never propagate to the caller.
//
// # Usage
//
//	g, err := graphic.New(canvas, loop)
//	if err != nil {
//	    return err
//	}
//	if err := g.Mount(ctx); err != nil {
//	    return err
//	}
//	defer g.Unmount()
//
// Unmounting before setup finishes is safe: the late teardown is invoked as
// soon as setup returns, so no render loop outlives the component.
package graphic
