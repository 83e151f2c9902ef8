//go:build !nogpu

package backend

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/pyramid"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan HAL backend
)

func init() {
	Register(Vulkan, func() (pyramid.InstanceFactory, error) {
		b, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, ErrNotAvailable
		}
		return b, nil
	})
}
