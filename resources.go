package pyramid

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DepthFormat is the depth attachment format of the pyramid pipeline.
const DepthFormat = gputypes.TextureFormatDepth24Plus

// gpuResources holds the static GPU objects built once during setup: mesh
// buffers, the uniform buffer, the shader, and the render pipeline with its
// single bind group.
type gpuResources struct {
	vertexBuf  hal.Buffer
	indexBuf   hal.Buffer
	uniformBuf hal.Buffer

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	bindGroup  hal.BindGroup
}

// build creates every static resource. On error, resources created so far
// stay in place for destroy to release.
func (g *gpuResources) build(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) error {
	var err error

	g.vertexBuf, err = createAndUploadBuffer(device, queue, "pyramid_vertices", vertexBytes(),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}

	g.indexBuf, err = createAndUploadBuffer(device, queue, "pyramid_indices", indexBytes(),
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}

	g.uniformBuf, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pyramid_uniforms",
		Size:  Mat4Size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}

	if err := g.createPipeline(device, format); err != nil {
		return err
	}

	g.bindGroup, err = device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "pyramid_bind",
		Layout: g.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: g.uniformBuf.NativeHandle(), Offset: 0, Size: Mat4Size,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	return nil
}

// createPipeline compiles the pyramid shader and creates the render pipeline
// with back-face culling and a less-than depth test.
func (g *gpuResources) createPipeline(device hal.Device, format gputypes.TextureFormat) error {
	if pyramidShaderSource == "" {
		return fmt.Errorf("pyramid shader source is empty")
	}

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "pyramid_shader",
		Source: hal.ShaderSource{WGSL: pyramidShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile pyramid shader: %w", err)
	}
	g.shader = shader

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "pyramid_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create uniform layout: %w", err)
	}
	g.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "pyramid_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{g.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	g.pipeLayout = pipeLayout

	keep := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "pyramid_pipeline",
		Layout: g.pipeLayout,
		Vertex: hal.VertexState{
			Module:     g.shader,
			EntryPoint: vertexEntryPoint,
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     g.shader,
			EntryPoint: fragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0x00,
			StencilWriteMask:  0x00,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeBack,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create pyramid pipeline: %w", err)
	}
	g.pipeline = pipeline
	return nil
}

// recordDraw binds the pipeline, bind group, and mesh buffers and issues the
// single indexed draw covering all indices.
func (g *gpuResources) recordDraw(rp hal.RenderPassEncoder) {
	rp.SetPipeline(g.pipeline)
	rp.SetBindGroup(0, g.bindGroup, nil)
	rp.SetVertexBuffer(0, g.vertexBuf, 0)
	rp.SetIndexBuffer(g.indexBuf, gputypes.IndexFormatUint16, 0)
	rp.DrawIndexed(IndexCount, 1, 0, 0, 0)
}

// destroy releases all resources in reverse creation order. Safe to call
// on partially built or already destroyed resources.
func (g *gpuResources) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if g.bindGroup != nil {
		device.DestroyBindGroup(g.bindGroup)
		g.bindGroup = nil
	}
	if g.pipeline != nil {
		device.DestroyRenderPipeline(g.pipeline)
		g.pipeline = nil
	}
	if g.pipeLayout != nil {
		device.DestroyPipelineLayout(g.pipeLayout)
		g.pipeLayout = nil
	}
	if g.bindLayout != nil {
		device.DestroyBindGroupLayout(g.bindLayout)
		g.bindLayout = nil
	}
	if g.shader != nil {
		device.DestroyShaderModule(g.shader)
		g.shader = nil
	}
	for _, buf := range []*hal.Buffer{&g.uniformBuf, &g.indexBuf, &g.vertexBuf} {
		if *buf != nil {
			device.DestroyBuffer(*buf)
			*buf = nil
		}
	}
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func createAndUploadBuffer(device hal.Device, queue hal.Queue, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	queue.WriteBuffer(buf, 0, data)
	return buf, nil
}
