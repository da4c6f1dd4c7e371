package halpipe

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/statecache/state"
)

var stencilOps = [...]hal.StencilOperation{
	state.StencilOpKeep:           hal.StencilOperationKeep,
	state.StencilOpZero:           hal.StencilOperationZero,
	state.StencilOpReplace:        hal.StencilOperationReplace,
	state.StencilOpInvert:         hal.StencilOperationInvert,
	state.StencilOpIncrementClamp: hal.StencilOperationIncrementClamp,
	state.StencilOpDecrementClamp: hal.StencilOperationDecrementClamp,
	state.StencilOpIncrementWrap:  hal.StencilOperationIncrementWrap,
	state.StencilOpDecrementWrap:  hal.StencilOperationDecrementWrap,
}

func stencilOp(op state.StencilOp) hal.StencilOperation {
	if int(op) < len(stencilOps) {
		return stencilOps[op]
	}
	return hal.StencilOperationKeep
}

func stencilFace(f state.StencilFace) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      stencilOp(f.FailOp),
		DepthFailOp: stencilOp(f.DepthFailOp),
		PassOp:      stencilOp(f.PassOp),
	}
}

// vertexBuffers groups the vertex attributes by binding.
func vertexBuffers(vi *state.VertexInputState) []gputypes.VertexBufferLayout {
	n := min(int(vi.BindingCount), state.MaxVertexBindings)
	if n == 0 {
		return nil
	}
	buffers := make([]gputypes.VertexBufferLayout, n)
	for i := range buffers {
		b := vi.Bindings[i]
		buffers[i].ArrayStride = uint64(b.Stride)
		buffers[i].StepMode = b.StepMode
	}

	attrs := vi.Attributes[:min(int(vi.AttributeCount), state.MaxVertexAttributes)]
	for _, a := range attrs {
		if int(a.Binding) >= n {
			continue
		}
		buffers[a.Binding].Attributes = append(buffers[a.Binding].Attributes, gputypes.VertexAttribute{
			Format:         a.Format,
			Offset:         uint64(a.Offset),
			ShaderLocation: uint32(a.Location),
		})
	}
	return buffers
}

func colorTargets(gs *state.GraphicsState, format *state.RenderPassFormat) []gputypes.ColorTargetState {
	n := format.ColorCount()
	if n == 0 {
		return nil
	}
	targets := make([]gputypes.ColorTargetState, n)
	for i := range targets {
		t := &gs.Targets[i]
		targets[i].Format = format.Colors[i]
		targets[i].WriteMask = t.WriteMask
		if t.BlendEnabled {
			targets[i].Blend = &gputypes.BlendState{
				Color: blendComponent(t.Color),
				Alpha: blendComponent(t.Alpha),
			}
		}
	}
	return targets
}

func blendComponent(c state.BlendComponent) gputypes.BlendComponent {
	return gputypes.BlendComponent{
		SrcFactor: c.SrcFactor,
		DstFactor: c.DstFactor,
		Operation: c.Operation,
	}
}

func depthStencil(gs *state.GraphicsState, format *state.RenderPassFormat) *hal.DepthStencilState {
	if !format.HasDepth() {
		return nil
	}
	ds := &gs.DepthStencil
	return &hal.DepthStencilState{
		Format:            format.DepthFormat,
		DepthWriteEnabled: ds.DepthWriteEnabled && !format.DepthReadOnly,
		DepthCompare:      ds.DepthCompare,
		StencilFront:      stencilFace(ds.StencilFront),
		StencilBack:       stencilFace(ds.StencilBack),
		StencilReadMask:   ds.StencilReadMask,
		StencilWriteMask:  ds.StencilWriteMask,
	}
}

func multisample(gs *state.GraphicsState, format *state.RenderPassFormat) gputypes.MultisampleState {
	count := gs.Multisample.Count
	if count == 0 {
		count = format.SampleCount
	}
	mask := gs.Multisample.Mask
	if mask == 0 {
		mask = 0xFFFFFFFF
	}
	return gputypes.MultisampleState{
		Count: max(count, 1),
		Mask:  uint64(mask),
	}
}

// renderPipelineDescriptor translates a recorded graphics state into a HAL
// descriptor. A nil fragment stage yields a depth-only pipeline.
func renderPipelineDescriptor(vs shaderStage, fs *shaderStage, layout hal.PipelineLayout, gs *state.GraphicsState, format *state.RenderPassFormat) *hal.RenderPipelineDescriptor {
	desc := &hal.RenderPipelineDescriptor{
		Label:  vs.label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entryPoint,
			Buffers:    vertexBuffers(&gs.VertexInput),
		},
		DepthStencil: depthStencil(gs, format),
		Multisample:  multisample(gs, format),
		Primitive: gputypes.PrimitiveState{
			Topology:  gs.Primitive.Topology,
			FrontFace: gs.Primitive.FrontFace,
			CullMode:  gs.Primitive.CullMode,
		},
	}
	if fs != nil {
		desc.Fragment = &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.entryPoint,
			Targets:    colorTargets(gs, format),
		}
	}
	return desc
}
