package pyramid

import (
	"math"
	"testing"
)

func TestClampPixelRatio(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1, 1},
		{2, 2},
		{1.5, 1.5},
		{0.5, 1},
		{0, 1},
		{-3, 1},
		{math.NaN(), 1},
		{math.Inf(1), 1},
		{math.Inf(-1), 1},
	}
	for _, tt := range tests {
		if got := ClampPixelRatio(tt.in); got != tt.want {
			t.Errorf("ClampPixelRatio(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPhysicalSize(t *testing.T) {
	tests := []struct {
		name  string
		w, h  float64
		ratio float64
		want  SurfaceConfig
	}{
		{"identity", 200, 173, 1, SurfaceConfig{200, 173}},
		{"retina", 200, 173, 2, SurfaceConfig{400, 346}},
		{"fractional", 200, 173, 1.5, SurfaceConfig{300, 260}},
		{"rounding", 100.4, 100.6, 1, SurfaceConfig{100, 101}},
		{"zero clamps to one", 0, 0, 2, SurfaceConfig{1, 1}},
		{"tiny", 0.2, 0.2, 1, SurfaceConfig{1, 1}},
		{"nan size", math.NaN(), 10, 1, SurfaceConfig{1, 10}},
		{"low ratio", 200, 173, 0.25, SurfaceConfig{200, 173}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhysicalSize(tt.w, tt.h, tt.ratio); got != tt.want {
				t.Errorf("PhysicalSize(%v, %v, %v) = %+v, want %+v", tt.w, tt.h, tt.ratio, got, tt.want)
			}
		})
	}
}

func TestSurfaceConfigAspect(t *testing.T) {
	if got := (SurfaceConfig{400, 200}).Aspect(); got != 2 {
		t.Errorf("Aspect() = %v, want 2", got)
	}
	if got := (SurfaceConfig{}).Aspect(); got != 1 {
		t.Errorf("zero Aspect() = %v, want 1", got)
	}
	if !(SurfaceConfig{}).IsZero() {
		t.Error("zero config not IsZero")
	}
}

func TestApplyBaseStyle(t *testing.T) {
	canvas := newFakeCanvas(0, 0)
	applyBaseStyle(canvas, 200, 173)
	if w, h := canvas.StyleSize(); w != 200 || h != 173 {
		t.Errorf("style = %vx%v, want 200x173", w, h)
	}

	canvas.styleW, canvas.styleH = 50, 60
	applyBaseStyle(canvas, 200, 173)
	if w, h := canvas.StyleSize(); w != 50 || h != 60 {
		t.Errorf("style overwritten: %vx%v", w, h)
	}
}

func TestDepthBufferLifecycle(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	var d depthBuffer
	if err := d.recreate(device, SurfaceConfig{200, 173}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if d.tex == nil || d.view == nil {
		t.Fatal("depth texture not allocated")
	}
	if d.size() != (SurfaceConfig{200, 173}) {
		t.Errorf("size = %+v", d.size())
	}

	if err := d.recreate(device, SurfaceConfig{400, 346}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if d.allocations != 2 || d.releases != 1 {
		t.Errorf("allocations/releases = %d/%d, want 2/1", d.allocations, d.releases)
	}

	d.destroy(device)
	d.destroy(device)
	if d.releases != 2 {
		t.Errorf("releases = %d, want 2", d.releases)
	}
	if !d.size().IsZero() {
		t.Errorf("size after destroy = %+v", d.size())
	}
}

func TestReconfigureFailureResetsConfig(t *testing.T) {
	canvas := newFakeCanvas(200, 173)
	host := newFakeHost(1)
	r, _ := startTest(t, canvas, host)

	canvas.surface.configureErr = errInjected
	canvas.setClientSize(300, 300)

	r.mu.Lock()
	err := r.reconfigure()
	cfg := r.config
	r.mu.Unlock()

	if err == nil {
		t.Fatal("reconfigure succeeded with failing surface")
	}
	if !cfg.IsZero() {
		t.Errorf("config after failure = %+v, want zero", cfg)
	}

	// Recovery: the next attempt starts from scratch.
	canvas.surface.configureErr = nil
	r.mu.Lock()
	err = r.reconfigure()
	cfg = r.config
	r.mu.Unlock()
	if err != nil {
		t.Fatalf("reconfigure after recovery: %v", err)
	}
	if cfg != (SurfaceConfig{300, 300}) {
		t.Errorf("config = %+v, want 300x300", cfg)
	}
}
