// Package backend selects the HAL backend the pyramid renderer opens its
// private device on.
//
// Backends are registered by name from init functions and selected at
// runtime. Two are built in:
//
//   - "vulkan": the gogpu/wgpu Vulkan backend (omitted with the nogpu tag)
//   - "noop": the gogpu/wgpu noop backend, which accepts every call and
//     renders nothing; useful for tests and dry runs
//
// # Backend Selection
//
//	// Request a specific backend
//	f, err := backend.Get(backend.Vulkan)
//
//	// Or take the best available one
//	name, f, err := backend.Default()
//
//	teardown, err := pyramid.Start(ctx, canvas, loop, pyramid.WithInstanceFactory(f))
package backend
