package statecache

import "github.com/gogpu/statecache/state"

// Shader is a live shader object supplied by the host application.
type Shader interface {
	// Key returns the content key of the shader. Equal shaders must return
	// equal keys.
	Key() state.ShaderKey
}

// ShaderSet holds one shader per stage, indexed by state.Stage. Unused
// stages are nil.
type ShaderSet [state.NumStages]Shader

// PipelineManager builds native pipelines. Implementations must be safe for
// concurrent use; the cache calls them from its worker goroutines.
type PipelineManager interface {
	// CreateGraphicsPipeline returns the pipeline object for a set of
	// graphics stages. Repeated calls with equal shaders may return the same
	// object.
	CreateGraphicsPipeline(shaders ShaderSet) (GraphicsPipeline, error)

	// CreateComputePipeline returns the pipeline object for a compute shader.
	CreateComputePipeline(shader Shader) (ComputePipeline, error)
}

// GraphicsPipeline produces native pipeline handles for one set of graphics
// shaders.
type GraphicsPipeline interface {
	// PipelineHandle compiles, or finds, the native pipeline for gs in pass.
	// It is idempotent per distinct state.
	PipelineHandle(gs state.GraphicsState, pass RenderPass) error
}

// ComputePipeline produces native pipeline handles for one compute shader.
type ComputePipeline interface {
	// PipelineHandle compiles, or finds, the native pipeline for cs.
	PipelineHandle(cs state.ComputeState) error
}

// RenderPassPool returns render pass objects by format.
type RenderPassPool interface {
	RenderPass(format state.RenderPassFormat) (RenderPass, error)
}

// RenderPass is a render pass object compatible with one format.
type RenderPass interface {
	Format() state.RenderPassFormat
}
