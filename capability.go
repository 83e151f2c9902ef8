package pyramid

import (
	"context"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Capability is the outcome of probing the platform for graphics support.
// It is either Capable, carrying an opened device and queue, or Unavailable,
// carrying a human-readable reason.
type Capability struct {
	device  hal.Device
	queue   hal.Queue
	format  gputypes.TextureFormat
	release func()
	reason  string
}

// Capable reports a usable device. release, if non-nil, is called when the
// renderer tears down and must destroy whatever the prober opened.
func Capable(device hal.Device, queue hal.Queue, release func()) Capability {
	return Capability{device: device, queue: queue, release: release}
}

// Unavailable reports that no graphics device can be used.
func Unavailable(reason string) Capability {
	return Capability{reason: reason}
}

// WithFormat attaches a preferred presentation format hint.
func (c Capability) WithFormat(format gputypes.TextureFormat) Capability {
	c.format = format
	return c
}

// Available reports whether the capability carries a device.
func (c Capability) Available() bool {
	return c.device != nil && c.queue != nil
}

// Device returns the probed device, or nil when unavailable.
func (c Capability) Device() hal.Device { return c.device }

// Queue returns the probed queue, or nil when unavailable.
func (c Capability) Queue() hal.Queue { return c.queue }

// Format returns the presentation format hint, if any.
func (c Capability) Format() gputypes.TextureFormat { return c.format }

// Reason explains why the capability is unavailable.
func (c Capability) Reason() string { return c.reason }

// Release destroys resources the prober opened. Shared devices have no
// release function and are left alone.
func (c Capability) Release() {
	if c.release != nil {
		c.release()
	}
}

// Prober checks the platform for graphics support.
type Prober interface {
	Probe(ctx context.Context) Capability
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) Capability

// Probe calls f(ctx).
func (f ProberFunc) Probe(ctx context.Context) Capability { return f(ctx) }

// InstanceFactory creates HAL instances. Registered HAL backends returned by
// hal.GetBackend satisfy it, as does the noop backend used in tests.
type InstanceFactory interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// BackendProber opens a private device on a HAL backend. With a nil Factory
// it looks up the registered Vulkan backend.
type BackendProber struct {
	Factory InstanceFactory
}

// Probe enumerates adapters, prefers a discrete or integrated GPU, and opens
// it with default limits. The returned capability owns the device and the
// instance.
func (p BackendProber) Probe(ctx context.Context) Capability {
	if err := ctx.Err(); err != nil {
		return Unavailable(err.Error())
	}

	factory := p.Factory
	if factory == nil {
		backend, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return Unavailable("vulkan backend not available")
		}
		factory = backend
	}

	instance, err := factory.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return Unavailable(fmt.Sprintf("create instance: %v", err))
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return Unavailable("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return Unavailable(fmt.Sprintf("open device: %v", err))
	}

	Logger().Info("pyramid: GPU adapter selected", "name", selected.Info.Name)

	device := openDev.Device
	return Capable(device, openDev.Queue, func() {
		device.Destroy()
		instance.Destroy()
	})
}

// ProviderProber borrows the device of a host application (for example a
// gogpu window) through its gpucontext.DeviceProvider. The provider must also
// expose HalDevice() and HalQueue() returning hal.Device and hal.Queue.
type ProviderProber struct {
	Provider gpucontext.DeviceProvider
}

// Probe extracts the shared HAL device and queue. The capability has no
// release function: the provider owns the device.
func (p ProviderProber) Probe(ctx context.Context) Capability {
	if err := ctx.Err(); err != nil {
		return Unavailable(err.Error())
	}
	if p.Provider == nil {
		return Unavailable("nil device provider")
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.Provider.(halProvider)
	if !ok {
		return Unavailable("provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return Unavailable("provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return Unavailable("provider HalQueue is not hal.Queue")
	}
	return Capable(device, queue, nil).WithFormat(p.Provider.SurfaceFormat())
}
