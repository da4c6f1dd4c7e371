package state

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Stage is a programmable pipeline stage.
type Stage uint8

// Pipeline stages in slot order of a CombinationKey.
const (
	StageVertex Stage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
)

// NumStages is the number of shader slots in a CombinationKey.
const NumStages = 6

var stageNames = [NumStages]string{
	"vertex",
	"tess-control",
	"tess-eval",
	"geometry",
	"fragment",
	"compute",
}

// String returns the stage name.
func (s Stage) String() string {
	if int(s) < NumStages {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// ShaderKeySize is the size of a ShaderKey in bytes.
const ShaderKeySize = sha256.Size

// ShaderKey is a content-derived identifier of a single shader stage.
// Shaders with identical stage, entry point and bytecode have equal keys.
type ShaderKey [ShaderKeySize]byte

// NullShaderKey denotes an unused stage.
var NullShaderKey ShaderKey

// ErrInvalidShaderKey is returned by ParseShaderKey for malformed input.
var ErrInvalidShaderKey = errors.New("state: invalid shader key")

// NewShaderKey derives the key of a shader from its stage, entry point and
// bytecode.
func NewShaderKey(stage Stage, entryPoint string, code []byte) ShaderKey {
	h := sha256.New()
	var hdr [5]byte
	hdr[0] = byte(stage)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(entryPoint))) //nolint:gosec // entry point names are short
	_, _ = h.Write(hdr[:])
	_, _ = h.Write([]byte(entryPoint))
	_, _ = h.Write(code)

	var k ShaderKey
	h.Sum(k[:0])
	return k
}

// IsNull reports whether k is the null key.
func (k ShaderKey) IsNull() bool {
	return k == NullShaderKey
}

// String returns an abbreviated hex form of the key, or "null".
func (k ShaderKey) String() string {
	if k.IsNull() {
		return "null"
	}
	return hex.EncodeToString(k[:6])
}

// Digest returns the key as an OCI content digest ("sha256:<hex>").
func (k ShaderKey) Digest() digest.Digest {
	return digest.NewDigestFromBytes(digest.SHA256, k[:])
}

// ParseShaderKey parses the digest form produced by ShaderKey.Digest.
func ParseShaderKey(s string) (ShaderKey, error) {
	d, err := digest.Parse(s)
	if err != nil {
		return NullShaderKey, fmt.Errorf("%w: %w", ErrInvalidShaderKey, err)
	}
	if d.Algorithm() != digest.SHA256 {
		return NullShaderKey, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidShaderKey, d.Algorithm())
	}
	raw, err := hex.DecodeString(d.Encoded())
	if err != nil || len(raw) != ShaderKeySize {
		return NullShaderKey, fmt.Errorf("%w: %q", ErrInvalidShaderKey, s)
	}
	var k ShaderKey
	copy(k[:], raw)
	return k, nil
}

// CombinationKey identifies the set of shaders bound to a pipeline, one key per
// stage with unused stages set to NullShaderKey. It is comparable and can be
// used as a map key.
type CombinationKey struct {
	Stages [NumStages]ShaderKey
}

// GraphicsCombination builds a key for a vertex/fragment pipeline.
func GraphicsCombination(vertex, fragment ShaderKey) CombinationKey {
	var c CombinationKey
	c.Stages[StageVertex] = vertex
	c.Stages[StageFragment] = fragment
	return c
}

// ComputeCombination builds a key for a compute pipeline.
func ComputeCombination(compute ShaderKey) CombinationKey {
	var c CombinationKey
	c.Stages[StageCompute] = compute
	return c
}

// Get returns the key bound to stage s.
func (c CombinationKey) Get(s Stage) ShaderKey {
	return c.Stages[s]
}

// Vertex returns the vertex stage key.
func (c CombinationKey) Vertex() ShaderKey { return c.Stages[StageVertex] }

// Compute returns the compute stage key.
func (c CombinationKey) Compute() ShaderKey { return c.Stages[StageCompute] }

// IsCompute reports whether the combination binds a compute shader.
func (c CombinationKey) IsCompute() bool {
	return !c.Stages[StageCompute].IsNull()
}

// Each calls fn for every non-null stage in slot order.
func (c CombinationKey) Each(fn func(Stage, ShaderKey)) {
	for i, k := range c.Stages {
		if !k.IsNull() {
			fn(Stage(i), k)
		}
	}
}

// String returns a compact description such as "vertex=1a2b3c fragment=4d5e6f".
func (c CombinationKey) String() string {
	var b []byte
	c.Each(func(s Stage, k ShaderKey) {
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, s.String()...)
		b = append(b, '=')
		b = append(b, k.String()...)
	})
	if len(b) == 0 {
		return "empty"
	}
	return string(b)
}
