//go:build !nogpu

package pyramid

// Import the Vulkan backend so hal.GetBackend can find it.
import _ "github.com/gogpu/wgpu/hal/vulkan"
