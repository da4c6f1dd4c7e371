package cachefile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/statecache/state"
)

func testEntry(i int) state.Entry {
	code := []byte{byte(i), byte(i >> 8)}
	if i%3 == 0 {
		cs := state.NewShaderKey(state.StageCompute, "main", code)
		return state.NewComputeEntry(state.ComputeCombination(cs), state.ComputeState{
			BindingMask: [state.BindingMaskWords]uint32{uint32(i)},
		})
	}

	vs := state.NewShaderKey(state.StageVertex, "vs_main", code)
	fs := state.NewShaderKey(state.StageFragment, "fs_main", code)
	var gs state.GraphicsState
	gs.Primitive.Topology = gputypes.PrimitiveTopologyTriangleList
	gs.Multisample = state.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
	gs.Targets[0].WriteMask = gputypes.ColorWriteMaskAll
	var format state.RenderPassFormat
	format.SampleCount = 1
	format.Colors[0] = gputypes.TextureFormatBGRA8Unorm
	return state.NewGraphicsEntry(state.GraphicsCombination(vs, fs), gs, format)
}

func sealAll(entries []state.Entry) []state.Entry {
	out := make([]state.Entry, len(entries))
	for i := range entries {
		out[i] = entries[i].Seal()
	}
	return out
}

func writeFile(t *testing.T, path string, n int) []state.Entry {
	t.Helper()
	entries := make([]state.Entry, n)
	for i := range entries {
		entries[i] = testEntry(i + 1)
	}
	if err := Rewrite(path, entries); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	return sealAll(entries)
}

func TestLoadMissing(t *testing.T) {
	res, err := Load(filepath.Join(t.TempDir(), "none.pipeline-cache"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Status != StatusMissing || !res.NeedsRewrite() {
		t.Errorf("Status = %v, NeedsRewrite = %v", res.Status, res.NeedsRewrite())
	}
}

func TestRewriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.pipeline-cache")
	want := writeFile(t, path, 10)

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := fi.Size(); got != HeaderSize+10*state.EntrySize {
		t.Errorf("file size = %d, want %d", got, HeaderSize+10*state.EntrySize)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Status != StatusValid || res.Invalid != 0 || res.NeedsRewrite() {
		t.Fatalf("Status = %v, Invalid = %d", res.Status, res.Invalid)
	}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
}

func TestLoadSkipsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.pipeline-cache")
	want := writeFile(t, path, 5)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip one byte inside the third record.
	data[HeaderSize+2*state.EntrySize+100] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Invalid != 1 || !res.NeedsRewrite() {
		t.Fatalf("Invalid = %d, NeedsRewrite = %v", res.Invalid, res.NeedsRewrite())
	}
	wantLeft := append(append([]state.Entry(nil), want[:2]...), want[3:]...)
	if diff := cmp.Diff(wantLeft, res.Entries); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsNullPrimaryStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.pipeline-cache")
	bad := state.Entry{Shaders: state.GraphicsCombination(state.NullShaderKey, state.NewShaderKey(state.StageFragment, "fs", nil))}
	if err := Rewrite(path, []state.Entry{testEntry(1), bad}); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 1 || res.Invalid != 1 {
		t.Errorf("entries = %d, invalid = %d, want 1 and 1", len(res.Entries), res.Invalid)
	}
}

func TestLoadTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.pipeline-cache")
	writeFile(t, path, 3)
	if err := os.Truncate(path, HeaderSize+2*state.EntrySize+17); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 2 || res.Invalid != 1 || !res.NeedsRewrite() {
		t.Errorf("entries = %d, invalid = %d, NeedsRewrite = %v", len(res.Entries), res.Invalid, res.NeedsRewrite())
	}
}

func TestScanStaleHeader(t *testing.T) {
	tests := []struct {
		name string
		hdr  Header
	}{
		{"version", Header{Magic: Magic, Version: Version + 1, EntrySize: state.EntrySize}},
		{"entry size", Header{Magic: Magic, Version: Version, EntrySize: state.EntrySize - 4}},
		{"magic", Header{Magic: [4]byte{'O', 'L', 'D', 'C'}, Version: Version, EntrySize: state.EntrySize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, HeaderSize+state.EntrySize)
			tt.hdr.encode(buf)
			called := false
			status, invalid, err := Scan(bytes.NewReader(buf), func(state.Entry) { called = true })
			if err != nil {
				t.Fatal(err)
			}
			if status != StatusStale || invalid != 0 || called {
				t.Errorf("status = %v, invalid = %d, called = %v", status, invalid, called)
			}
		})
	}

	status, _, err := Scan(bytes.NewReader(nil), func(state.Entry) {})
	if err != nil || status != StatusStale {
		t.Errorf("empty stream: status = %v, err = %v", status, err)
	}
}

func TestWriterAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "app.pipeline-cache")

	res, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := OpenWriter(path, res.NeedsRewrite(), res.Entries, Options{SyncWrites: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	var want []state.Entry
	for i := range 4 {
		e := testEntry(i + 1)
		if err := w.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
		want = append(want, e.Seal())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Append(testEntry(9)); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Append after Close = %v, want os.ErrClosed", err)
	}

	res, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusValid || res.Invalid != 0 {
		t.Fatalf("Status = %v, Invalid = %d", res.Status, res.Invalid)
	}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
}

func TestWriterRewriteDropsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.pipeline-cache")
	writeFile(t, path, 4)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write([]byte("garbage"))
	_ = f.Close()

	res, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedsRewrite() {
		t.Fatal("trailing garbage not detected")
	}

	w, err := OpenWriter(path, true, res.Entries, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(testEntry(50)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	res, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Invalid != 0 || len(res.Entries) != 5 {
		t.Errorf("after rewrite: entries = %d, invalid = %d", len(res.Entries), res.Invalid)
	}
}
