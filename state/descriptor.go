package state

import "github.com/gogpu/gputypes"

// Descriptor limits. They fix the record size and must only change together
// with the cache file version.
const (
	MaxColorTargets     = 8
	MaxVertexBindings   = 8
	MaxVertexAttributes = 16
	BindingMaskWords    = 4
)

// StencilOp is a stencil buffer operation.
type StencilOp uint8

// Stencil operations.
const (
	StencilOpKeep StencilOp = iota
	StencilOpZero
	StencilOpReplace
	StencilOpInvert
	StencilOpIncrementClamp
	StencilOpDecrementClamp
	StencilOpIncrementWrap
	StencilOpDecrementWrap
)

// PrimitiveState describes primitive assembly and rasterization.
type PrimitiveState struct {
	Topology  gputypes.PrimitiveTopology
	FrontFace gputypes.FrontFace
	CullMode  gputypes.CullMode
}

// StencilFace describes stencil behaviour for one face orientation.
type StencilFace struct {
	Compare     gputypes.CompareFunction
	FailOp      StencilOp
	DepthFailOp StencilOp
	PassOp      StencilOp
}

// DepthStencilState describes depth and stencil testing.
type DepthStencilState struct {
	DepthWriteEnabled   bool
	DepthCompare        gputypes.CompareFunction
	StencilFront        StencilFace
	StencilBack         StencilFace
	StencilReadMask     uint32
	StencilWriteMask    uint32
	DepthBias           int32
	DepthBiasSlopeScale float32
	DepthBiasClamp      float32
}

// MultisampleState describes multisampling.
type MultisampleState struct {
	Count           uint32
	Mask            uint32
	AlphaToCoverage bool
}

// VertexBinding describes one vertex buffer binding.
type VertexBinding struct {
	Stride   uint32
	StepMode gputypes.VertexStepMode
}

// VertexAttribute describes one vertex attribute.
type VertexAttribute struct {
	Location uint8
	Binding  uint8
	Format   gputypes.VertexFormat
	Offset   uint32
}

// VertexInputState describes the vertex buffer layout. Only the first
// BindingCount bindings and AttributeCount attributes are meaningful.
type VertexInputState struct {
	BindingCount   uint8
	AttributeCount uint8
	Bindings       [MaxVertexBindings]VertexBinding
	Attributes     [MaxVertexAttributes]VertexAttribute
}

// BlendComponent describes blending of either color or alpha channels.
type BlendComponent struct {
	SrcFactor gputypes.BlendFactor
	DstFactor gputypes.BlendFactor
	Operation gputypes.BlendOperation
}

// ColorTarget describes blending and write mask of one color attachment.
type ColorTarget struct {
	BlendEnabled bool
	Color        BlendComponent
	Alpha        BlendComponent
	WriteMask    gputypes.ColorWriteMask
}

// GraphicsState is the fixed-function state of a graphics pipeline.
type GraphicsState struct {
	Primitive    PrimitiveState
	DepthStencil DepthStencilState
	Multisample  MultisampleState
	VertexInput  VertexInputState
	Targets      [MaxColorTargets]ColorTarget
}

// ComputeState is the fixed state of a compute pipeline. BindingMask marks the
// resource slots used by the shader.
type ComputeState struct {
	BindingMask [BindingMaskWords]uint32
}

// RenderPassFormat describes the attachments a graphics pipeline is compiled
// against. Unused color slots hold gputypes.TextureFormatUndefined.
type RenderPassFormat struct {
	SampleCount   uint32
	DepthFormat   gputypes.TextureFormat
	DepthReadOnly bool
	Colors        [MaxColorTargets]gputypes.TextureFormat
}

// ColorCount returns the number of leading defined color attachments.
func (f RenderPassFormat) ColorCount() int {
	for i, c := range f.Colors {
		if c == gputypes.TextureFormatUndefined {
			return i
		}
	}
	return MaxColorTargets
}

// HasDepth reports whether the format has a depth/stencil attachment.
func (f RenderPassFormat) HasDepth() bool {
	return f.DepthFormat != gputypes.TextureFormatUndefined
}
