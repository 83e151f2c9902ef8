// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"
)

// copyPitchAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// Snapshot reads the last presented frame back into an image of the
// backing size. The pixels are premultiplied, like the presented frame.
//
// Snapshot must not run concurrently with a frame being rendered into the
// same canvas; calling it from the OnPresent hook is always safe.
func (o *Offscreen) Snapshot() (*image.RGBA, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.tex == nil {
		return nil, ErrNotConfigured
	}
	if o.presents == 0 {
		return nil, ErrNoFrame
	}
	swizzle := false
	switch o.cfg.Format {
	case gputypes.TextureFormatBGRA8Unorm:
		swizzle = true
	case gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, o.cfg.Format)
	}

	w, h := o.cfg.Width, o.cfg.Height
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := o.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "offscreen_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("surface: create staging buffer: %w", err)
	}
	defer o.device.DestroyBuffer(staging)

	encoder, err := o.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "offscreen_readback",
	})
	if err != nil {
		return nil, fmt.Errorf("surface: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("offscreen_readback"); err != nil {
		return nil, fmt.Errorf("surface: begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: o.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(o.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: o.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	// Back to RenderAttachment so the next frame's pass starts from the
	// layout it expects.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: o.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("surface: end encoding: %w", err)
	}
	defer o.device.FreeCommandBuffer(cmdBuf)

	fence, err := o.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("surface: create fence: %w", err)
	}
	defer o.device.DestroyFence(fence)

	if err := o.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("surface: submit: %w", err)
	}
	fenceOK, err := o.device.Wait(fence, 1, 5*time.Second)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("surface: wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, stagingSize)
	if err := o.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("surface: readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	unpackRows(img.Pix, readback, int(bytesPerRow), int(alignedBytesPerRow), int(h), swizzle)
	return img, nil
}

// SnapshotScaled reads the last frame back and resamples it to width×height
// with a Catmull-Rom filter. Use it to turn a high-density frame into its
// logical-pixel size.
func (o *Offscreen) SnapshotScaled(width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("surface: invalid snapshot size %dx%d", width, height)
	}
	src, err := o.Snapshot()
	if err != nil {
		return nil, err
	}
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// unpackRows strips per-row padding from src into the tightly packed dst,
// optionally swapping the B and R channels.
func unpackRows(dst, src []byte, rowBytes, srcStride, rows int, swizzle bool) {
	for y := 0; y < rows; y++ {
		d := dst[y*rowBytes : (y+1)*rowBytes]
		s := src[y*srcStride : y*srcStride+rowBytes]
		if !swizzle {
			copy(d, s)
			continue
		}
		for i := 0; i+3 < rowBytes; i += 4 {
			d[i+0] = s[i+2]
			d[i+1] = s[i+1]
			d[i+2] = s[i+0]
			d[i+3] = s[i+3]
		}
	}
}
