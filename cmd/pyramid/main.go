// Command pyramid renders the rotating pyramid headless and writes frames
// as PNG files.
//
// It drives the renderer through an offscreen canvas and a manually ticked
// frame loop, so the frame timestamps are exact multiples of the frame
// interval regardless of how fast the GPU is.
//
// Usage:
//
//	pyramid -frames 120 -every 30 -out frames
//	pyramid -config pyramid.yaml -ratio 2 -logical
//	pyramid -backend noop -spirv pyramid.spv -frames 0
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gogpu/pyramid"
	"github.com/gogpu/pyramid/backend"
	"github.com/gogpu/pyramid/surface"
	"github.com/gogpu/pyramid/vsync"
	"github.com/schollz/progressbar/v3"
)

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pyramid: %v\n", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	pyramid.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pyramid: %v\n", err)
		os.Exit(1)
	}
}

// run renders cfg.Frames frames. It fails only on configuration and I/O
// errors: missing graphics support is logged and ends the run early.
func run(ctx context.Context, cfg Config, progress io.Writer) error {
	log := pyramid.Logger()

	if cfg.SPIRV != "" {
		if err := writeSPIRV(cfg.SPIRV); err != nil {
			return err
		}
		log.Info("pyramid: wrote SPIR-V", "path", cfg.SPIRV)
	}
	if cfg.Frames == 0 {
		return nil
	}

	factory, err := backend.Get(cfg.Backend)
	if err != nil {
		log.Warn("pyramid: backend unavailable", "backend", cfg.Backend, "err", err)
		return nil
	}

	if cfg.Every > 0 {
		if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	w := &frameWriter{cfg: cfg}
	canvas := surface.NewOffscreen(cfg.Width, cfg.Height, surface.WithOnPresent(w.onPresent))
	loop := vsync.New(vsync.WithInterval(cfg.Interval()), vsync.WithDevicePixelRatio(cfg.Ratio))

	teardown, err := pyramid.Start(ctx, canvas, loop, pyramid.WithInstanceFactory(factory))
	if err != nil {
		return fmt.Errorf("start renderer: %w", err)
	}
	defer teardown()

	if loop.Pending() == 0 {
		log.Warn("pyramid: graphics unavailable, no frames rendered")
		return nil
	}

	bar := progressbar.NewOptions(cfg.Frames,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
	)
	defer bar.Close()

	resizes := cfg.Resize
	for i := 0; i < cfg.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for len(resizes) > 0 && resizes[0].Frame <= i {
			canvas.SetClientSize(resizes[0].Width, resizes[0].Height)
			resizes = resizes[1:]
		}

		if loop.Tick(time.Duration(i)*loop.Interval()) == 0 {
			log.Warn("pyramid: render loop stopped", "frame", i)
			break
		}
		if w.err != nil {
			return w.err
		}
		_ = bar.Add(1)
	}

	log.Info("pyramid: done", "frames", w.frames, "written", w.written)
	return nil
}

// frameWriter writes every Nth presented frame to disk.
type frameWriter struct {
	cfg     Config
	frames  int
	written int
	err     error
}

func (w *frameWriter) onPresent(o *surface.Offscreen) {
	idx := w.frames
	w.frames++
	if w.err != nil || w.cfg.Every == 0 || idx%w.cfg.Every != 0 {
		return
	}

	var (
		img *image.RGBA
		err error
	)
	if w.cfg.Logical {
		sw, sh := o.StyleSize()
		img, err = o.SnapshotScaled(int(sw+0.5), int(sh+0.5))
	} else {
		img, err = o.Snapshot()
	}
	if err != nil {
		w.err = fmt.Errorf("snapshot frame %d: %w", idx, err)
		return
	}

	path := filepath.Join(w.cfg.Out, fmt.Sprintf("frame_%04d.png", idx))
	if err := savePNG(path, img); err != nil {
		w.err = err
		return
	}
	w.written++
	pyramid.Logger().Debug("pyramid: frame written", "path", path)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// writeSPIRV compiles the embedded shader and writes the SPIR-V words in
// little-endian order.
func writeSPIRV(path string) error {
	words, err := pyramid.CompileSPIRV()
	if err != nil {
		return fmt.Errorf("compile shader: %w", err)
	}
	buf := make([]byte, 4*len(words))
	for i, word := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], word)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write SPIR-V: %w", err)
	}
	return nil
}
