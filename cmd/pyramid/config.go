package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gogpu/pyramid"
	"github.com/gogpu/pyramid/backend"
	"gopkg.in/yaml.v3"
)

// maxConfigSize bounds the config file read.
const maxConfigSize = 1 << 20

// Config is the headless run configuration. Fields map 1:1 to flags; a
// YAML file provides defaults that explicitly set flags override.
type Config struct {
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Ratio   float64 `yaml:"ratio"`
	Frames  int     `yaml:"frames"`
	FPS     float64 `yaml:"fps"`
	Every   int     `yaml:"every"`
	Out     string  `yaml:"out"`
	Logical bool    `yaml:"logical"`
	SPIRV   string  `yaml:"spirv"`
	Backend string  `yaml:"backend"`
	Verbose bool    `yaml:"verbose"`

	// Resize changes the client size before the given frame, as a page
	// reflow would. Only settable from the config file.
	Resize []ResizeStep `yaml:"resize"`
}

// ResizeStep is one scheduled client size change.
type ResizeStep struct {
	Frame  int     `yaml:"frame"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

func defaultConfig() Config {
	return Config{
		Width:   pyramid.DefaultCanvasWidth,
		Height:  pyramid.DefaultCanvasHeight,
		Ratio:   1,
		Frames:  120,
		FPS:     60,
		Every:   30,
		Out:     "frames",
		Backend: backend.Vulkan,
	}
}

// Interval returns the frame interval derived from FPS.
func (c Config) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.FPS)
}

func (c Config) validate() error {
	var errs []error
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("negative size %vx%v", c.Width, c.Height))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("negative frame count %d", c.Frames))
	}
	if !(c.FPS > 0) {
		errs = append(errs, fmt.Errorf("fps must be positive, got %v", c.FPS))
	}
	if c.Every < 0 {
		errs = append(errs, fmt.Errorf("negative snapshot interval %d", c.Every))
	}
	if c.Every > 0 && c.Out == "" {
		errs = append(errs, errors.New("snapshots requested without an output directory"))
	}
	for _, r := range c.Resize {
		if r.Frame < 0 || r.Width < 0 || r.Height < 0 {
			errs = append(errs, fmt.Errorf("invalid resize step %+v", r))
		}
	}
	return errors.Join(errs...)
}

// loadConfig reads a YAML config file over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(data) > maxConfigSize {
		return cfg, fmt.Errorf("config %s larger than %d bytes", path, maxConfigSize)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// parseArgs builds the effective configuration from command line arguments.
func parseArgs(args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet("pyramid", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		flags      = defaultConfig()
		configPath string
	)
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.Float64Var(&flags.Width, "width", flags.Width, "canvas client width in logical pixels")
	fs.Float64Var(&flags.Height, "height", flags.Height, "canvas client height in logical pixels")
	fs.Float64Var(&flags.Ratio, "ratio", flags.Ratio, "device pixel ratio")
	fs.IntVar(&flags.Frames, "frames", flags.Frames, "number of frames to render")
	fs.Float64Var(&flags.FPS, "fps", flags.FPS, "simulated refresh rate")
	fs.IntVar(&flags.Every, "every", flags.Every, "write every Nth frame as PNG (0 disables)")
	fs.StringVar(&flags.Out, "out", flags.Out, "output directory for PNG frames")
	fs.BoolVar(&flags.Logical, "logical", flags.Logical, "downscale frames to logical pixels")
	fs.StringVar(&flags.SPIRV, "spirv", flags.SPIRV, "write the compiled SPIR-V shader to this file")
	fs.StringVar(&flags.Backend, "backend", flags.Backend, fmt.Sprintf("HAL backend %v", backend.Available()))
	fs.BoolVar(&flags.Verbose, "v", flags.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := defaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = loadConfig(configPath); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = flags.Width
		case "height":
			cfg.Height = flags.Height
		case "ratio":
			cfg.Ratio = flags.Ratio
		case "frames":
			cfg.Frames = flags.Frames
		case "fps":
			cfg.FPS = flags.FPS
		case "every":
			cfg.Every = flags.Every
		case "out":
			cfg.Out = flags.Out
		case "logical":
			cfg.Logical = flags.Logical
		case "spirv":
			cfg.SPIRV = flags.SPIRV
		case "backend":
			cfg.Backend = flags.Backend
		case "v":
			cfg.Verbose = flags.Verbose
		}
	})

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
