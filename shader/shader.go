// Package shader provides shader objects that can be registered with a
// statecache.Cache and built by halpipe.
//
// A Shader is one entry point of a SPIR-V module. Its key is derived from
// the stage, the entry point name and the SPIR-V bytes, so loading the same
// shader twice, in the same or a later run, yields the same key.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/statecache/state"
)

// Shader errors.
var (
	// ErrInvalidSPIRV is returned for empty code or code that is not a whole
	// number of 32-bit words.
	ErrInvalidSPIRV = errors.New("shader: invalid SPIR-V code")

	// ErrInvalidStage is returned for a stage outside the known range.
	ErrInvalidStage = errors.New("shader: invalid stage")

	// ErrNoEntryPoints is returned when WGSL source declares no entry point.
	ErrNoEntryPoints = errors.New("shader: no entry points")
)

// Shader is an immutable shader stage.
type Shader struct {
	key        state.ShaderKey
	stage      state.Stage
	entryPoint string
	label      string
	spirv      []uint32
}

// FromSPIRV creates a shader from little-endian SPIR-V bytes.
func FromSPIRV(stage state.Stage, entryPoint, label string, code []byte) (*Shader, error) {
	if stage >= state.NumStages {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSPIRV, len(code))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	return &Shader{
		key:        state.NewShaderKey(stage, entryPoint, code),
		stage:      stage,
		entryPoint: entryPoint,
		label:      label,
		spirv:      words,
	}, nil
}

// Key returns the content key. A nil shader has the null key.
func (s *Shader) Key() state.ShaderKey {
	if s == nil {
		return state.NullShaderKey
	}
	return s.key
}

// Stage returns the pipeline stage of the shader.
func (s *Shader) Stage() state.Stage { return s.stage }

// EntryPoint returns the entry point function name.
func (s *Shader) EntryPoint() string { return s.entryPoint }

// Label returns the debug label.
func (s *Shader) Label() string { return s.label }

// SPIRV returns the SPIR-V words. The slice must not be modified.
func (s *Shader) SPIRV() []uint32 { return s.spirv }

func (s *Shader) String() string {
	return fmt.Sprintf("%s %s %s", s.stage, s.entryPoint, s.key)
}

// CompileWGSL compiles WGSL source with naga's default options and returns
// one shader per entry point, in declaration order.
func CompileWGSL(label, source string) ([]*Shader, error) {
	return CompileWGSLWithOptions(label, source, naga.DefaultOptions())
}

// CompileWGSLWithOptions is CompileWGSL with explicit compiler options.
func CompileWGSLWithOptions(label, source string, opts naga.CompileOptions) ([]*Shader, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	if len(module.EntryPoints) == 0 {
		return nil, fmt.Errorf("shader %s: %w", label, ErrNoEntryPoints)
	}

	code, err := naga.CompileWithOptions(source, opts)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}

	shaders := make([]*Shader, 0, len(module.EntryPoints))
	for _, ep := range module.EntryPoints {
		stage, err := stageOf(ep.Stage)
		if err != nil {
			return nil, fmt.Errorf("shader %s: entry point %s: %w", label, ep.Name, err)
		}
		s, err := FromSPIRV(stage, ep.Name, label+"/"+ep.Name, code)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", label, err)
		}
		shaders = append(shaders, s)
	}
	return shaders, nil
}

func stageOf(s ir.ShaderStage) (state.Stage, error) {
	switch s {
	case ir.StageVertex:
		return state.StageVertex, nil
	case ir.StageFragment:
		return state.StageFragment, nil
	case ir.StageCompute:
		return state.StageCompute, nil
	default:
		return 0, fmt.Errorf("%w: naga stage %d", ErrInvalidStage, s)
	}
}
