package halpipe

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/statecache"
	"github.com/gogpu/statecache/state"
)

// Manager errors.
var (
	// ErrNilDevice is returned by New without a device.
	ErrNilDevice = errors.New("halpipe: device is nil")

	// ErrNoHalDevice is returned by NewFromProvider when the provider does
	// not expose a hal.Device.
	ErrNoHalDevice = errors.New("halpipe: provider does not expose a HAL device")

	// ErrUnsupportedStage is returned for tessellation and geometry shaders,
	// which the HAL does not expose.
	ErrUnsupportedStage = errors.New("halpipe: unsupported shader stage")

	// ErrUnsupportedShader is returned for shaders that do not implement
	// Source.
	ErrUnsupportedShader = errors.New("halpipe: shader does not provide SPIR-V")

	// ErrMissingStage is returned when a pipeline lacks its primary stage.
	ErrMissingStage = errors.New("halpipe: missing primary shader stage")

	// ErrNilRenderPass is returned when a graphics pipeline is compiled
	// without a render pass.
	ErrNilRenderPass = errors.New("halpipe: render pass is nil")

	// ErrDestroyed is returned after Destroy.
	ErrDestroyed = errors.New("halpipe: manager destroyed")
)

// Source is a shader that can be turned into a HAL shader module.
type Source interface {
	statecache.Shader
	Stage() state.Stage
	EntryPoint() string
	Label() string
	SPIRV() []uint32
}

// Manager creates and owns HAL pipeline objects.
//
// Thread Safety:
// Manager is safe for concurrent use. Lookups take a read lock; creation
// takes the write lock and checks again before creating.
type Manager struct {
	device hal.Device

	// mu protects the maps below, the layout and destroyed.
	mu        sync.RWMutex
	modules   map[state.ShaderKey]hal.ShaderModule
	layout    hal.PipelineLayout
	graphics  map[state.CombinationKey]*GraphicsPipeline
	compute   map[state.ShaderKey]*ComputePipeline
	passes    map[state.RenderPassFormat]*RenderPass
	destroyed bool

	hits     atomic.Uint64
	misses   atomic.Uint64
	variants atomic.Uint64
}

var (
	_ statecache.PipelineManager = (*Manager)(nil)
	_ statecache.RenderPassPool  = (*Manager)(nil)
)

// New creates a manager for device.
func New(device hal.Device) (*Manager, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Manager{
		device:   device,
		modules:  make(map[state.ShaderKey]hal.ShaderModule),
		graphics: make(map[state.CombinationKey]*GraphicsPipeline),
		compute:  make(map[state.ShaderKey]*ComputePipeline),
		passes:   make(map[state.RenderPassFormat]*RenderPass),
	}, nil
}

// halProvider is implemented by device providers that give direct HAL
// access, such as gogpu windows.
type halProvider interface {
	HalDevice() any
}

// NewFromProvider creates a manager for the HAL device shared by provider.
// The provider must also implement HalDevice() any returning a hal.Device.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Manager, error) {
	if provider == nil {
		return nil, ErrNilDevice
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoHalDevice, provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice returned %T", ErrNoHalDevice, hp.HalDevice())
	}
	return New(device)
}

// CreateGraphicsPipeline returns the pipeline object for a set of graphics
// shaders, creating shader modules for stages seen for the first time.
func (m *Manager) CreateGraphicsPipeline(shaders statecache.ShaderSet) (statecache.GraphicsPipeline, error) {
	return m.Graphics(shaders)
}

// Graphics is CreateGraphicsPipeline with the concrete result type.
func (m *Manager) Graphics(shaders statecache.ShaderSet) (*GraphicsPipeline, error) {
	combo := statecache.CombinationOf(shaders)
	if combo.Vertex().IsNull() {
		return nil, fmt.Errorf("%w: vertex", ErrMissingStage)
	}
	for _, s := range []state.Stage{state.StageTessControl, state.StageTessEval, state.StageGeometry, state.StageCompute} {
		if !combo.Get(s).IsNull() {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedStage, s)
		}
	}

	// Fast path: read lock
	m.mu.RLock()
	if p, ok := m.graphics[combo]; ok {
		m.mu.RUnlock()
		m.hits.Add(1)
		return p, nil
	}
	m.mu.RUnlock()

	// Slow path: write lock with double-check
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return nil, ErrDestroyed
	}
	if p, ok := m.graphics[combo]; ok {
		m.hits.Add(1)
		return p, nil
	}

	p := &GraphicsPipeline{mgr: m, key: combo, variants: make(map[state.VariantKey]hal.RenderPipeline)}
	var err error
	if p.vertex, err = m.stageLocked(shaders[state.StageVertex]); err != nil {
		return nil, err
	}
	if fs := shaders[state.StageFragment]; fs != nil {
		frag, err := m.stageLocked(fs)
		if err != nil {
			return nil, err
		}
		p.fragment = &frag
	}
	if p.layout, err = m.layoutLocked(); err != nil {
		return nil, err
	}

	m.graphics[combo] = p
	m.misses.Add(1)
	return p, nil
}

// CreateComputePipeline returns the pipeline object for a compute shader.
func (m *Manager) CreateComputePipeline(shader statecache.Shader) (statecache.ComputePipeline, error) {
	return m.Compute(shader)
}

// Compute is CreateComputePipeline with the concrete result type.
func (m *Manager) Compute(shader statecache.Shader) (*ComputePipeline, error) {
	key := statecache.ShaderKeyOf(shader)
	if key.IsNull() {
		return nil, fmt.Errorf("%w: compute", ErrMissingStage)
	}

	// Fast path: read lock
	m.mu.RLock()
	if p, ok := m.compute[key]; ok {
		m.mu.RUnlock()
		m.hits.Add(1)
		return p, nil
	}
	m.mu.RUnlock()

	// Slow path: write lock with double-check
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return nil, ErrDestroyed
	}
	if p, ok := m.compute[key]; ok {
		m.hits.Add(1)
		return p, nil
	}

	stage, err := m.stageLocked(shader)
	if err != nil {
		return nil, err
	}
	if stage.stage != state.StageCompute {
		return nil, fmt.Errorf("%w: %s shader in compute slot", ErrUnsupportedStage, stage.stage)
	}
	layout, err := m.layoutLocked()
	if err != nil {
		return nil, err
	}

	p := &ComputePipeline{mgr: m, key: key, shader: stage, layout: layout, variants: make(map[state.ComputeState]hal.ComputePipeline)}
	m.compute[key] = p
	m.misses.Add(1)
	return p, nil
}

// RenderPass returns the render pass object for format. Equal formats share
// one object.
func (m *Manager) RenderPass(format state.RenderPassFormat) (statecache.RenderPass, error) {
	m.mu.RLock()
	if p, ok := m.passes[format]; ok {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return nil, ErrDestroyed
	}
	if p, ok := m.passes[format]; ok {
		return p, nil
	}
	p := &RenderPass{format: format}
	m.passes[format] = p
	return p, nil
}

// stageLocked returns the shader module for s, creating it on first use.
// m.mu must be held for writing.
func (m *Manager) stageLocked(s statecache.Shader) (shaderStage, error) {
	src, ok := s.(Source)
	if !ok {
		return shaderStage{}, fmt.Errorf("%w: %T", ErrUnsupportedShader, s)
	}
	stage := src.Stage()
	switch stage {
	case state.StageVertex, state.StageFragment, state.StageCompute:
	default:
		return shaderStage{}, fmt.Errorf("%w: %s", ErrUnsupportedStage, stage)
	}

	key := src.Key()
	module, ok := m.modules[key]
	if !ok {
		var err error
		module, err = m.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  src.Label(),
			Source: hal.ShaderSource{SPIRV: src.SPIRV()},
		})
		if err != nil {
			return shaderStage{}, fmt.Errorf("halpipe: create shader module %s: %w", src.Label(), err)
		}
		m.modules[key] = module
	}
	return shaderStage{module: module, entryPoint: src.EntryPoint(), stage: stage, label: src.Label()}, nil
}

// layoutLocked returns the shared pipeline layout. m.mu must be held for
// writing.
func (m *Manager) layoutLocked() (hal.PipelineLayout, error) {
	if m.layout != nil {
		return m.layout, nil
	}
	layout, err := m.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "statecache_layout",
	})
	if err != nil {
		return nil, fmt.Errorf("halpipe: create pipeline layout: %w", err)
	}
	m.layout = layout
	return layout, nil
}

// Destroy releases every native pipeline, shader module and the pipeline
// layout. Pipeline objects returned earlier fail with ErrDestroyed.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return
	}
	m.destroyed = true

	for _, p := range m.graphics {
		p.destroy()
	}
	for _, p := range m.compute {
		p.destroy()
	}
	for _, module := range m.modules {
		m.device.DestroyShaderModule(module)
	}
	if m.layout != nil {
		m.device.DestroyPipelineLayout(m.layout)
	}

	m.graphics = nil
	m.compute = nil
	m.modules = nil
	m.passes = nil
	m.layout = nil
}

// Stats holds manager statistics.
type Stats struct {
	// Hits and Misses count pipeline object lookups.
	Hits   uint64
	Misses uint64

	// Pipelines counts native pipelines created for distinct states.
	Pipelines uint64

	ShaderModules int
	RenderPasses  int
}

// HitRate returns the fraction of pipeline object lookups served from the
// cache, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the manager statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	modules, passes := len(m.modules), len(m.passes)
	m.mu.RUnlock()

	return Stats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Pipelines:     m.variants.Load(),
		ShaderModules: modules,
		RenderPasses:  passes,
	}
}

// shaderStage is a shader module bound to an entry point.
type shaderStage struct {
	module     hal.ShaderModule
	entryPoint string
	stage      state.Stage
	label      string
}

// RenderPass is a render pass object for one attachment format.
type RenderPass struct {
	format state.RenderPassFormat
}

// Format returns the attachment format.
func (p *RenderPass) Format() state.RenderPassFormat {
	return p.format
}
