package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"github.com/gogpu/gputypes"
)

// Encoded sizes. Enumerations are stored as uint32, booleans as one byte.
const (
	combinationSize      = NumStages * ShaderKeySize
	primitiveSize        = 3 * 4
	stencilFaceSize      = 4 + 3
	depthStencilSize     = 1 + 4 + 2*stencilFaceSize + 5*4
	multisampleSize      = 4 + 4 + 1
	vertexBindingSize    = 4 + 4
	vertexAttributeSize  = 1 + 1 + 4 + 4
	vertexInputSize      = 2 + MaxVertexBindings*vertexBindingSize + MaxVertexAttributes*vertexAttributeSize
	blendComponentSize   = 3 * 4
	colorTargetSize      = 1 + 2*blendComponentSize + 4
	graphicsStateSize    = primitiveSize + depthStencilSize + multisampleSize + vertexInputSize + MaxColorTargets*colorTargetSize
	computeStateSize     = BindingMaskWords * 4
	renderPassFormatSize = 4 + 4 + 1 + MaxColorTargets*4
)

// EntrySize is the size of one encoded Entry record in bytes.
const EntrySize = combinationSize + graphicsStateSize + computeStateSize + renderPassFormatSize + HashSize

// ErrShortRecord is returned when decoding a buffer of the wrong size.
var ErrShortRecord = errors.New("state: record size mismatch")

// MarshalBinary encodes e into a new EntrySize-byte record.
func (e *Entry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EntrySize)
	e.Encode(buf)
	return buf, nil
}

// Encode writes e into buf, which must be at least EntrySize bytes long.
func (e *Entry) Encode(buf []byte) {
	enc := encoder{buf: buf[:EntrySize]}
	enc.entryBody(e)
	copy(enc.buf[enc.off:], e.Hash[:])
}

// UnmarshalBinary decodes a record produced by MarshalBinary. It does not
// verify the hash; call Verify for that.
func (e *Entry) UnmarshalBinary(data []byte) error {
	if len(data) != EntrySize {
		return ErrShortRecord
	}
	d := decoder{buf: data}
	d.entryBody(e)
	copy(e.Hash[:], d.buf[d.off:])
	return nil
}

// VerifyRecord reports whether the hash stored in an encoded record matches
// the SHA-256 of the raw record bytes with the hash field zeroed.
func VerifyRecord(data []byte) bool {
	if len(data) != EntrySize {
		return false
	}
	var buf [EntrySize]byte
	copy(buf[:EntrySize-HashSize], data)
	sum := sha256.Sum256(buf[:])
	return bytes.Equal(sum[:], data[EntrySize-HashSize:])
}

type encoder struct {
	buf []byte
	off int
}

func (w *encoder) u8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *encoder) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *encoder) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *encoder) key(k ShaderKey) {
	w.off += copy(w.buf[w.off:], k[:])
}

func (w *encoder) stencilFace(f *StencilFace) {
	w.u32(uint32(f.Compare))
	w.u8(uint8(f.FailOp))
	w.u8(uint8(f.DepthFailOp))
	w.u8(uint8(f.PassOp))
}

func (w *encoder) blend(b *BlendComponent) {
	w.u32(uint32(b.SrcFactor))
	w.u32(uint32(b.DstFactor))
	w.u32(uint32(b.Operation))
}

// entryBody encodes everything but the hash.
func (w *encoder) entryBody(e *Entry) {
	for _, k := range e.Shaders.Stages {
		w.key(k)
	}
	w.graphics(&e.Graphics)
	for _, m := range e.Compute.BindingMask {
		w.u32(m)
	}
	w.format(&e.Format)
}

func (w *encoder) graphics(gs *GraphicsState) {
	w.u32(uint32(gs.Primitive.Topology))
	w.u32(uint32(gs.Primitive.FrontFace))
	w.u32(uint32(gs.Primitive.CullMode))

	ds := &gs.DepthStencil
	w.bool(ds.DepthWriteEnabled)
	w.u32(uint32(ds.DepthCompare))
	w.stencilFace(&ds.StencilFront)
	w.stencilFace(&ds.StencilBack)
	w.u32(ds.StencilReadMask)
	w.u32(ds.StencilWriteMask)
	w.u32(uint32(ds.DepthBias)) //nolint:gosec // bit pattern preserved
	w.f32(ds.DepthBiasSlopeScale)
	w.f32(ds.DepthBiasClamp)

	w.u32(gs.Multisample.Count)
	w.u32(gs.Multisample.Mask)
	w.bool(gs.Multisample.AlphaToCoverage)

	vi := &gs.VertexInput
	w.u8(vi.BindingCount)
	w.u8(vi.AttributeCount)
	for i := range vi.Bindings {
		w.u32(vi.Bindings[i].Stride)
		w.u32(uint32(vi.Bindings[i].StepMode))
	}
	for i := range vi.Attributes {
		a := &vi.Attributes[i]
		w.u8(a.Location)
		w.u8(a.Binding)
		w.u32(uint32(a.Format))
		w.u32(a.Offset)
	}

	for i := range gs.Targets {
		t := &gs.Targets[i]
		w.bool(t.BlendEnabled)
		w.blend(&t.Color)
		w.blend(&t.Alpha)
		w.u32(uint32(t.WriteMask))
	}
}

func (w *encoder) format(f *RenderPassFormat) {
	w.u32(f.SampleCount)
	w.u32(uint32(f.DepthFormat))
	w.bool(f.DepthReadOnly)
	for _, c := range f.Colors {
		w.u32(uint32(c))
	}
}

// VariantKey is the encoded form of a graphics state and render pass format.
// Keys compare the bit patterns of float fields, so states holding NaN are
// equal to themselves and the key is usable in maps.
type VariantKey [graphicsStateSize + renderPassFormatSize]byte

// NewVariantKey encodes gs and f.
func NewVariantKey(gs *GraphicsState, f *RenderPassFormat) VariantKey {
	var k VariantKey
	enc := encoder{buf: k[:]}
	enc.graphics(gs)
	enc.format(f)
	return k
}

type decoder struct {
	buf []byte
	off int
}

func (r *decoder) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *decoder) bool() bool {
	return r.u8() != 0
}

func (r *decoder) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *decoder) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *decoder) key() ShaderKey {
	var k ShaderKey
	r.off += copy(k[:], r.buf[r.off:])
	return k
}

func (r *decoder) stencilFace() StencilFace {
	return StencilFace{
		Compare:     gputypes.CompareFunction(r.u32()),
		FailOp:      StencilOp(r.u8()),
		DepthFailOp: StencilOp(r.u8()),
		PassOp:      StencilOp(r.u8()),
	}
}

func (r *decoder) blend() BlendComponent {
	return BlendComponent{
		SrcFactor: gputypes.BlendFactor(r.u32()),
		DstFactor: gputypes.BlendFactor(r.u32()),
		Operation: gputypes.BlendOperation(r.u32()),
	}
}

func (r *decoder) entryBody(e *Entry) {
	for i := range e.Shaders.Stages {
		e.Shaders.Stages[i] = r.key()
	}

	gs := &e.Graphics
	gs.Primitive.Topology = gputypes.PrimitiveTopology(r.u32())
	gs.Primitive.FrontFace = gputypes.FrontFace(r.u32())
	gs.Primitive.CullMode = gputypes.CullMode(r.u32())

	ds := &gs.DepthStencil
	ds.DepthWriteEnabled = r.bool()
	ds.DepthCompare = gputypes.CompareFunction(r.u32())
	ds.StencilFront = r.stencilFace()
	ds.StencilBack = r.stencilFace()
	ds.StencilReadMask = r.u32()
	ds.StencilWriteMask = r.u32()
	ds.DepthBias = int32(r.u32()) //nolint:gosec // bit pattern preserved
	ds.DepthBiasSlopeScale = r.f32()
	ds.DepthBiasClamp = r.f32()

	gs.Multisample.Count = r.u32()
	gs.Multisample.Mask = r.u32()
	gs.Multisample.AlphaToCoverage = r.bool()

	vi := &gs.VertexInput
	vi.BindingCount = r.u8()
	vi.AttributeCount = r.u8()
	for i := range vi.Bindings {
		vi.Bindings[i].Stride = r.u32()
		vi.Bindings[i].StepMode = gputypes.VertexStepMode(r.u32())
	}
	for i := range vi.Attributes {
		a := &vi.Attributes[i]
		a.Location = r.u8()
		a.Binding = r.u8()
		a.Format = gputypes.VertexFormat(r.u32())
		a.Offset = r.u32()
	}

	for i := range gs.Targets {
		t := &gs.Targets[i]
		t.BlendEnabled = r.bool()
		t.Color = r.blend()
		t.Alpha = r.blend()
		t.WriteMask = gputypes.ColorWriteMask(r.u32())
	}

	for i := range e.Compute.BindingMask {
		e.Compute.BindingMask[i] = r.u32()
	}

	f := &e.Format
	f.SampleCount = r.u32()
	f.DepthFormat = gputypes.TextureFormat(r.u32())
	f.DepthReadOnly = r.bool()
	for i := range f.Colors {
		f.Colors[i] = gputypes.TextureFormat(r.u32())
	}
}
