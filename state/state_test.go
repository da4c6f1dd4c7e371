package state

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

// testGraphicsEntry builds a graphics entry with distinctive values in most fields.
func testGraphicsEntry(seed byte) Entry {
	vs := NewShaderKey(StageVertex, "vs_main", []byte{seed, 1})
	fs := NewShaderKey(StageFragment, "fs_main", []byte{seed, 2})

	var gs GraphicsState
	gs.Primitive = PrimitiveState{
		Topology:  gputypes.PrimitiveTopologyTriangleList,
		FrontFace: gputypes.FrontFaceCCW,
		CullMode:  gputypes.CullModeBack,
	}
	gs.DepthStencil = DepthStencilState{
		DepthWriteEnabled: true,
		DepthCompare:      gputypes.CompareFunctionLess,
		StencilFront: StencilFace{
			Compare: gputypes.CompareFunctionAlways,
			PassOp:  StencilOpIncrementWrap,
		},
		StencilBack: StencilFace{
			Compare: gputypes.CompareFunctionAlways,
			PassOp:  StencilOpDecrementWrap,
		},
		StencilReadMask:     0xFF,
		StencilWriteMask:    0xFF,
		DepthBias:           -int32(seed),
		DepthBiasSlopeScale: 1.5,
		DepthBiasClamp:      0.25,
	}
	gs.Multisample = MultisampleState{Count: 4, Mask: 0xFFFFFFFF, AlphaToCoverage: true}
	gs.VertexInput.BindingCount = 1
	gs.VertexInput.AttributeCount = 2
	gs.VertexInput.Bindings[0] = VertexBinding{Stride: 16, StepMode: gputypes.VertexStepModeVertex}
	gs.VertexInput.Attributes[0] = VertexAttribute{Location: 0, Format: gputypes.VertexFormatFloat32x2}
	gs.VertexInput.Attributes[1] = VertexAttribute{Location: 1, Format: gputypes.VertexFormatFloat32x2, Offset: 8}
	gs.Targets[0] = ColorTarget{
		BlendEnabled: true,
		Color:        BlendComponent{SrcFactor: gputypes.BlendFactorSrcAlpha, DstFactor: gputypes.BlendFactorOneMinusSrcAlpha, Operation: gputypes.BlendOperationAdd},
		Alpha:        BlendComponent{SrcFactor: gputypes.BlendFactorOne, DstFactor: gputypes.BlendFactorZero, Operation: gputypes.BlendOperationAdd},
		WriteMask:    gputypes.ColorWriteMaskAll,
	}

	format := RenderPassFormat{
		SampleCount: 4,
		DepthFormat: gputypes.TextureFormatDepth24PlusStencil8,
	}
	format.Colors[0] = gputypes.TextureFormatBGRA8Unorm

	return NewGraphicsEntry(GraphicsCombination(vs, fs), gs, format)
}

func TestEncoderWritesExactRecordSize(t *testing.T) {
	e := testGraphicsEntry(1)
	buf := make([]byte, EntrySize)
	enc := encoder{buf: buf}
	enc.entryBody(&e)
	if enc.off != EntrySize-HashSize {
		t.Fatalf("encoded body = %d bytes, want %d", enc.off, EntrySize-HashSize)
	}

	dec := decoder{buf: buf}
	var got Entry
	dec.entryBody(&got)
	if dec.off != enc.off {
		t.Fatalf("decoded %d bytes, encoded %d", dec.off, enc.off)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"graphics", testGraphicsEntry(7)},
		{"compute", NewComputeEntry(
			ComputeCombination(NewShaderKey(StageCompute, "main", []byte("cs"))),
			ComputeState{BindingMask: [BindingMaskWords]uint32{0x3, 0, 0x80000000, 1}},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed := tt.entry.Seal()
			data, err := sealed.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			if len(data) != EntrySize {
				t.Fatalf("len = %d, want %d", len(data), EntrySize)
			}
			if !VerifyRecord(data) {
				t.Fatal("VerifyRecord rejected a sealed record")
			}

			var got Entry
			if err := got.UnmarshalBinary(data); err != nil {
				t.Fatalf("UnmarshalBinary: %v", err)
			}
			if diff := cmp.Diff(sealed, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if !got.Verify() {
				t.Error("decoded entry does not verify")
			}
		})
	}
}

func TestVerifyRecordDetectsCorruption(t *testing.T) {
	sealed := testGraphicsEntry(3).Seal()
	data, _ := sealed.MarshalBinary()

	for _, off := range []int{0, combinationSize, combinationSize + 40, EntrySize - HashSize - 1, EntrySize - 1} {
		corrupt := append([]byte(nil), data...)
		corrupt[off] ^= 0x5A
		if VerifyRecord(corrupt) {
			t.Errorf("flip at offset %d not detected", off)
		}
	}

	if VerifyRecord(data[:EntrySize-1]) {
		t.Error("short record accepted")
	}
}

func TestUnmarshalWrongSize(t *testing.T) {
	var e Entry
	if err := e.UnmarshalBinary(make([]byte, EntrySize+1)); !errors.Is(err, ErrShortRecord) {
		t.Errorf("UnmarshalBinary = %v, want ErrShortRecord", err)
	}
}

func TestSealIgnoresPreviousHash(t *testing.T) {
	e := testGraphicsEntry(2)
	e.Hash[0] = 0xFF
	a := e.Seal()
	e.Hash = IntegrityHash{}
	b := e.Seal()
	if a.Hash != b.Hash {
		t.Error("hash depends on the previous hash field")
	}
}

func TestEntryValidate(t *testing.T) {
	vs := NewShaderKey(StageVertex, "vs", []byte("v"))
	cs := NewShaderKey(StageCompute, "cs", []byte("c"))

	mixed := ComputeCombination(cs)
	mixed.Stages[StageVertex] = vs

	tests := []struct {
		name    string
		shaders CombinationKey
		want    error
	}{
		{"graphics", GraphicsCombination(vs, NullShaderKey), nil},
		{"compute", ComputeCombination(cs), nil},
		{"empty", CombinationKey{}, ErrNullPrimaryStage},
		{"fragment only", GraphicsCombination(NullShaderKey, vs), ErrNullPrimaryStage},
		{"mixed", mixed, ErrMixedStages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{Shaders: tt.shaders}
			if err := e.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSameState(t *testing.T) {
	a := testGraphicsEntry(1)
	b := testGraphicsEntry(1)
	if !a.SameState(&b) {
		t.Fatal("identical entries differ")
	}

	b.Format.SampleCount = 1
	if a.SameState(&b) {
		t.Error("different formats compare equal")
	}

	c := testGraphicsEntry(1)
	c.Graphics.Primitive.CullMode = gputypes.CullModeNone
	if a.SameState(&c) {
		t.Error("different graphics state compares equal")
	}

	cs := ComputeCombination(NewShaderKey(StageCompute, "main", []byte("x")))
	x := NewComputeEntry(cs, ComputeState{BindingMask: [BindingMaskWords]uint32{1}})
	y := NewComputeEntry(cs, ComputeState{BindingMask: [BindingMaskWords]uint32{1}})
	y.Format.SampleCount = 8 // ignored for compute
	if !x.SameState(&y) {
		t.Error("compute entries with equal state differ")
	}
	y.Compute.BindingMask[0] = 2
	if x.SameState(&y) {
		t.Error("compute entries with different state compare equal")
	}
}

func TestSameStateComparesFloatBits(t *testing.T) {
	nan := float32(math.NaN())
	a := testGraphicsEntry(1)
	a.Graphics.DepthStencil.DepthBiasSlopeScale = nan
	b := testGraphicsEntry(1)
	b.Graphics.DepthStencil.DepthBiasSlopeScale = nan
	if !a.SameState(&b) {
		t.Error("entries with equal NaN depth bias differ")
	}

	// -0 and +0 are equal floats but different states on disk.
	c := testGraphicsEntry(1)
	c.Graphics.DepthStencil.DepthBiasClamp = 0
	d := testGraphicsEntry(1)
	d.Graphics.DepthStencil.DepthBiasClamp = float32(math.Copysign(0, -1))
	if c.SameState(&d) {
		t.Error("entries with +0 and -0 depth bias clamp compare equal")
	}
}

func TestVariantKey(t *testing.T) {
	a := testGraphicsEntry(1)
	a.Graphics.DepthStencil.DepthBiasClamp = float32(math.NaN())
	b := a

	seen := map[VariantKey]int{NewVariantKey(&a.Graphics, &a.Format): 1}
	if seen[NewVariantKey(&b.Graphics, &b.Format)] != 1 {
		t.Error("equal states produce different keys")
	}

	b.Format.DepthReadOnly = !b.Format.DepthReadOnly
	if NewVariantKey(&a.Graphics, &a.Format) == NewVariantKey(&b.Graphics, &b.Format) {
		t.Error("different formats produce equal keys")
	}
}

func TestShaderKey(t *testing.T) {
	a := NewShaderKey(StageVertex, "main", []byte("code"))
	b := NewShaderKey(StageVertex, "main", []byte("code"))
	if a != b {
		t.Fatal("equal content produced different keys")
	}
	if a == NewShaderKey(StageFragment, "main", []byte("code")) {
		t.Error("stage is not part of the key")
	}
	if a == NewShaderKey(StageVertex, "main2", []byte("code")) {
		t.Error("entry point is not part of the key")
	}
	if a.IsNull() || !NullShaderKey.IsNull() {
		t.Error("IsNull mismatch")
	}
	if NullShaderKey.String() != "null" {
		t.Errorf("NullShaderKey.String() = %q", NullShaderKey.String())
	}

	parsed, err := ParseShaderKey(a.Digest().String())
	if err != nil {
		t.Fatalf("ParseShaderKey: %v", err)
	}
	if parsed != a {
		t.Error("digest round trip changed the key")
	}

	for _, bad := range []string{"", "sha256:zz", "sha512:abcd"} {
		if _, err := ParseShaderKey(bad); !errors.Is(err, ErrInvalidShaderKey) {
			t.Errorf("ParseShaderKey(%q) = %v, want ErrInvalidShaderKey", bad, err)
		}
	}
}

func TestCombinationKey(t *testing.T) {
	vs := NewShaderKey(StageVertex, "vs", nil)
	gs := NewShaderKey(StageGeometry, "gs", nil)
	fs := NewShaderKey(StageFragment, "fs", nil)

	c := GraphicsCombination(vs, fs)
	c.Stages[StageGeometry] = gs
	if c.Vertex() != vs || c.Get(StageGeometry) != gs || c.Get(StageFragment) != fs {
		t.Fatal("stage slots not set")
	}
	if c.IsCompute() {
		t.Error("graphics combination reports compute")
	}

	var stages []Stage
	c.Each(func(s Stage, _ ShaderKey) { stages = append(stages, s) })
	if diff := cmp.Diff([]Stage{StageVertex, StageGeometry, StageFragment}, stages); diff != "" {
		t.Errorf("Each order (-want +got):\n%s", diff)
	}

	var empty CombinationKey
	if empty.String() != "empty" {
		t.Errorf("empty String() = %q", empty.String())
	}
}

func TestStageString(t *testing.T) {
	if StageTessEval.String() != "tess-eval" {
		t.Errorf("StageTessEval.String() = %q", StageTessEval.String())
	}
	if Stage(9).String() != "Stage(9)" {
		t.Errorf("Stage(9).String() = %q", Stage(9).String())
	}
}

func TestRenderPassFormat(t *testing.T) {
	var f RenderPassFormat
	if f.HasDepth() {
		t.Error("zero format has depth")
	}
	f.Colors[0] = gputypes.TextureFormatRGBA8Unorm
	f.Colors[1] = gputypes.TextureFormatBGRA8Unorm
	if got := f.ColorCount(); got != 2 {
		t.Errorf("ColorCount() = %d, want 2", got)
	}
	f.DepthFormat = gputypes.TextureFormatDepth24PlusStencil8
	if !f.HasDepth() {
		t.Error("HasDepth() = false")
	}
}
