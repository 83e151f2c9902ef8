package backend

import (
	"github.com/gogpu/pyramid"
	"github.com/gogpu/wgpu/hal/noop"
)

func init() {
	Register(Noop, func() (pyramid.InstanceFactory, error) {
		return &noop.API{}, nil
	})
}
