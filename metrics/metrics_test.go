package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/statecache"
	"github.com/gogpu/statecache/halpipe"
)

type fixedStats statecache.Stats

func (f fixedStats) Stats() statecache.Stats { return statecache.Stats(f) }

type fixedManager halpipe.Stats

func (f fixedManager) Stats() halpipe.Stats { return halpipe.Stats(f) }

func TestCollector(t *testing.T) {
	src := fixedStats{
		Entries:           12,
		Loaded:            10,
		Invalid:           1,
		JobsDispatched:    4,
		JobsDiscarded:     1,
		PipelinesCompiled: 9,
		CompileFailures:   2,
		JobsPending:       5,
		EntriesPending:    1,
		EntriesWritten:    2,
		EntriesRejected:   1,
		Workers:           3,
		Persistent:        true,
	}

	const want = `
# HELP statecache_entries Entries held in memory.
# TYPE statecache_entries gauge
statecache_entries 12
# HELP statecache_invalid_entries Records skipped when the cache was opened.
# TYPE statecache_invalid_entries gauge
statecache_invalid_entries 1
# HELP statecache_jobs_pending Compile jobs waiting for a worker.
# TYPE statecache_jobs_pending gauge
statecache_jobs_pending 5
# HELP statecache_jobs_total Compile jobs by outcome.
# TYPE statecache_jobs_total counter
statecache_jobs_total{outcome="discarded"} 1
statecache_jobs_total{outcome="dispatched"} 4
# HELP statecache_persistent 1 if new entries are written to the cache file.
# TYPE statecache_persistent gauge
statecache_persistent 1
# HELP statecache_pipelines_total Recorded pipelines compiled in the background by result.
# TYPE statecache_pipelines_total counter
statecache_pipelines_total{result="compiled"} 9
statecache_pipelines_total{result="failed"} 2
# HELP statecache_writes_pending Entries waiting for the writer.
# TYPE statecache_writes_pending gauge
statecache_writes_pending 1
# HELP statecache_writes_total Cache file writes by result.
# TYPE statecache_writes_total counter
statecache_writes_total{result="failed"} 0
statecache_writes_total{result="rejected"} 1
statecache_writes_total{result="written"} 2
`
	err := testutil.CollectAndCompare(NewCollector(src), strings.NewReader(want),
		"statecache_entries", "statecache_invalid_entries", "statecache_jobs_pending", "statecache_jobs_total",
		"statecache_persistent", "statecache_pipelines_total", "statecache_writes_pending", "statecache_writes_total")
	if err != nil {
		t.Error(err)
	}

	if n := testutil.CollectAndCount(NewCollector(src)); n != 15 {
		t.Errorf("CollectAndCount() = %d, want 15", n)
	}
}

func TestManagerCollector(t *testing.T) {
	c := NewManagerCollector(fixedManager{Hits: 7, Misses: 2, Pipelines: 5, ShaderModules: 3, RenderPasses: 1})

	const want = `
# HELP statecache_pipeline_lookups_total Pipeline object lookups by result.
# TYPE statecache_pipeline_lookups_total counter
statecache_pipeline_lookups_total{result="hit"} 7
statecache_pipeline_lookups_total{result="miss"} 2
# HELP statecache_native_pipelines Native pipelines created.
# TYPE statecache_native_pipelines gauge
statecache_native_pipelines 5
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"statecache_pipeline_lookups_total", "statecache_native_pipelines"); err != nil {
		t.Error(err)
	}
}

func TestRegisterWithCache(t *testing.T) {
	cache := statecache.Open(nil, nil, statecache.WithMemoryOnly(true))
	defer cache.Close()

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(cache)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather: %v", err)
	}
}
