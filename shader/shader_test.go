package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/naga"

	"github.com/gogpu/statecache/state"
)

const triangleWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

const computeWGSL = `
@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

var noValidate = func() naga.CompileOptions {
	opts := naga.DefaultOptions()
	opts.Validate = false
	return opts
}()

func TestFromSPIRV(t *testing.T) {
	code := []byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0}
	s, err := FromSPIRV(state.StageVertex, "main", "vs", code)
	if err != nil {
		t.Fatalf("FromSPIRV: %v", err)
	}
	if got := s.SPIRV(); len(got) != 2 || got[0] != 0x07230203 || got[1] != 1 {
		t.Errorf("SPIRV() = %#x", got)
	}
	if s.Key() != state.NewShaderKey(state.StageVertex, "main", code) {
		t.Error("key does not match NewShaderKey")
	}
	if s.Stage() != state.StageVertex || s.EntryPoint() != "main" || s.Label() != "vs" {
		t.Errorf("accessors = %v %q %q", s.Stage(), s.EntryPoint(), s.Label())
	}

	var nilShader *Shader
	if !nilShader.Key().IsNull() {
		t.Error("nil shader has a non-null key")
	}
}

func TestFromSPIRVErrors(t *testing.T) {
	tests := []struct {
		name  string
		stage state.Stage
		code  []byte
		want  error
	}{
		{"empty", state.StageVertex, nil, ErrInvalidSPIRV},
		{"partial word", state.StageVertex, []byte{1, 2, 3}, ErrInvalidSPIRV},
		{"bad stage", state.NumStages, []byte{1, 2, 3, 4}, ErrInvalidStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromSPIRV(tt.stage, "main", "x", tt.code); !errors.Is(err, tt.want) {
				t.Errorf("FromSPIRV() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileWGSLEntryPoints(t *testing.T) {
	shaders, err := CompileWGSLWithOptions("triangle", triangleWGSL, noValidate)
	if err != nil {
		t.Fatalf("CompileWGSL: %v", err)
	}
	if len(shaders) != 2 {
		t.Fatalf("got %d shaders, want 2", len(shaders))
	}

	vs, fs := shaders[0], shaders[1]
	if vs.Stage() != state.StageVertex || vs.EntryPoint() != "vs_main" {
		t.Errorf("first shader = %v %q", vs.Stage(), vs.EntryPoint())
	}
	if fs.Stage() != state.StageFragment || fs.EntryPoint() != "fs_main" {
		t.Errorf("second shader = %v %q", fs.Stage(), fs.EntryPoint())
	}
	if vs.Key() == fs.Key() {
		t.Error("entry points share a key")
	}
	if vs.Label() != "triangle/vs_main" {
		t.Errorf("Label() = %q", vs.Label())
	}
	if words := vs.SPIRV(); len(words) == 0 || words[0] != 0x07230203 {
		t.Error("missing SPIR-V magic number")
	}

	// Compiling the same source again yields the same keys.
	again, err := CompileWGSLWithOptions("other label", triangleWGSL, noValidate)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Key() != vs.Key() || again[1].Key() != fs.Key() {
		t.Error("keys are not stable across compilations")
	}
}

func TestCompileWGSLCompute(t *testing.T) {
	shaders, err := CompileWGSLWithOptions("blur", computeWGSL, noValidate)
	if err != nil {
		t.Fatalf("CompileWGSL: %v", err)
	}
	if len(shaders) != 1 || shaders[0].Stage() != state.StageCompute {
		t.Fatalf("got %v", shaders)
	}
}

func TestCompileWGSLErrors(t *testing.T) {
	if _, err := CompileWGSL("broken", "@vertex\nfn main( {"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := CompileWGSLWithOptions("lib", "fn helper() -> f32 { return 1.0; }", noValidate); !errors.Is(err, ErrNoEntryPoints) {
		t.Errorf("CompileWGSL = %v, want ErrNoEntryPoints", err)
	}
}
