//go:build unix

package statecache

import (
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/statecache/state"
)

func TestLockedFileFallsBackToMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.pipeline-cache")
	vs := newTestShader(state.StageVertex, "vs")
	combo := CombinationOf(ShaderSet{state.StageVertex: vs})

	first := Open(nil, nil, WithPath(path), WithSyncWrites(true))
	defer first.Close()
	first.AddGraphicsPipeline(combo, graphicsState(gputypes.CullModeNone), renderFormat(1))

	// Wait for the record to reach the file.
	waitWritten(t, first, 1)

	second := Open(nil, nil, WithPath(path))
	defer second.Close()
	if second.Persistent() {
		t.Fatal("second cache owns a locked file")
	}
	if s := second.Stats(); s.Loaded != 1 || s.Entries != 1 {
		t.Errorf("Loaded = %d, Entries = %d, want 1 and 1", s.Loaded, s.Entries)
	}

	// The second cache still records in memory.
	second.AddGraphicsPipeline(combo, graphicsState(gputypes.CullModeBack), renderFormat(1))
	if got := second.Stats().Entries; got != 2 {
		t.Errorf("Entries = %d, want 2", got)
	}
}
