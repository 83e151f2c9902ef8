package pyramid

import "github.com/gogpu/gpucontext"

// Option configures the renderer during Start.
//
// Example:
//
//	// Private Vulkan device (default)
//	teardown, err := pyramid.Start(ctx, canvas, host)
//
//	// Share the device of a host application
//	teardown, err := pyramid.Start(ctx, canvas, host,
//	    pyramid.WithDeviceProvider(app.GPUContextProvider()))
type Option func(*options)

// options holds optional configuration for Start.
type options struct {
	prober Prober
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		prober: BackendProber{},
	}
}

// WithProber replaces the capability probe.
func WithProber(p Prober) Option {
	return func(o *options) {
		if p != nil {
			o.prober = p
		}
	}
}

// WithInstanceFactory opens a private device on the given HAL backend
// instead of the registered Vulkan backend.
func WithInstanceFactory(f InstanceFactory) Option {
	return func(o *options) {
		o.prober = BackendProber{Factory: f}
	}
}

// WithDeviceProvider renders with the device of a host application.
// The renderer never destroys a provided device.
func WithDeviceProvider(provider gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.prober = ProviderProber{Provider: provider}
	}
}
