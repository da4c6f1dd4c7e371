package halpipe

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/statecache"
	"github.com/gogpu/statecache/state"
)

// GraphicsPipeline holds the native render pipelines of one set of graphics
// shaders, one per distinct state and render pass format.
type GraphicsPipeline struct {
	mgr      *Manager
	key      state.CombinationKey
	vertex   shaderStage
	fragment *shaderStage
	layout   hal.PipelineLayout

	mu        sync.RWMutex
	variants  map[state.VariantKey]hal.RenderPipeline
	destroyed bool
}

var _ statecache.GraphicsPipeline = (*GraphicsPipeline)(nil)

// Key returns the shader combination of the pipeline.
func (p *GraphicsPipeline) Key() state.CombinationKey {
	return p.key
}

// PipelineHandle compiles the native pipeline for gs in pass unless it
// exists already.
func (p *GraphicsPipeline) PipelineHandle(gs state.GraphicsState, pass statecache.RenderPass) error {
	if pass == nil {
		return ErrNilRenderPass
	}
	_, err := p.Handle(gs, pass.Format())
	return err
}

// Handle returns the native pipeline for gs and format, creating it on
// first use.
func (p *GraphicsPipeline) Handle(gs state.GraphicsState, format state.RenderPassFormat) (hal.RenderPipeline, error) {
	v := state.NewVariantKey(&gs, &format)

	// Fast path: read lock
	p.mu.RLock()
	if h, ok := p.variants[v]; ok {
		p.mu.RUnlock()
		return h, nil
	}
	p.mu.RUnlock()

	// Slow path: write lock with double-check
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, ErrDestroyed
	}
	if h, ok := p.variants[v]; ok {
		return h, nil
	}

	desc := renderPipelineDescriptor(p.vertex, p.fragment, p.layout, &gs, &format)
	h, err := p.mgr.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("halpipe: create render pipeline %s: %w", desc.Label, err)
	}
	p.variants[v] = h
	p.mgr.variants.Add(1)
	return h, nil
}

// Len returns the number of native pipelines created so far.
func (p *GraphicsPipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.variants)
}

// destroy is called by Manager.Destroy with the manager lock held.
func (p *GraphicsPipeline) destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, h := range p.variants {
		p.mgr.device.DestroyRenderPipeline(h)
	}
	p.variants = nil
	p.destroyed = true
}

// ComputePipeline holds the native compute pipelines of one compute shader.
type ComputePipeline struct {
	mgr    *Manager
	key    state.ShaderKey
	shader shaderStage
	layout hal.PipelineLayout

	mu        sync.RWMutex
	variants  map[state.ComputeState]hal.ComputePipeline
	destroyed bool
}

var _ statecache.ComputePipeline = (*ComputePipeline)(nil)

// Key returns the compute shader key.
func (p *ComputePipeline) Key() state.ShaderKey {
	return p.key
}

// PipelineHandle compiles the native pipeline for cs unless it exists
// already.
func (p *ComputePipeline) PipelineHandle(cs state.ComputeState) error {
	_, err := p.Handle(cs)
	return err
}

// Handle returns the native pipeline for cs, creating it on first use.
func (p *ComputePipeline) Handle(cs state.ComputeState) (hal.ComputePipeline, error) {
	p.mu.RLock()
	if h, ok := p.variants[cs]; ok {
		p.mu.RUnlock()
		return h, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, ErrDestroyed
	}
	if h, ok := p.variants[cs]; ok {
		return h, nil
	}

	h, err := p.mgr.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  p.shader.label,
		Layout: p.layout,
		Compute: hal.ComputeState{
			Module:     p.shader.module,
			EntryPoint: p.shader.entryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("halpipe: create compute pipeline %s: %w", p.shader.label, err)
	}
	p.variants[cs] = h
	p.mgr.variants.Add(1)
	return h, nil
}

// Len returns the number of native pipelines created so far.
func (p *ComputePipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.variants)
}

func (p *ComputePipeline) destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, h := range p.variants {
		p.mgr.device.DestroyComputePipeline(h)
	}
	p.variants = nil
	p.destroyed = true
}
