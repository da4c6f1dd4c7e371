// Package metrics exports state cache counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/statecache"
	"github.com/gogpu/statecache/halpipe"
)

const namespace = "statecache"

// StatsSource is implemented by *statecache.Cache.
type StatsSource interface {
	Stats() statecache.Stats
}

// ManagerSource is implemented by *halpipe.Manager.
type ManagerSource interface {
	Stats() halpipe.Stats
}

var (
	entriesDesc = prometheus.NewDesc(namespace+"_entries", "Entries held in memory.", nil, nil)
	loadedDesc  = prometheus.NewDesc(namespace+"_loaded_entries", "Entries read from the cache file when the cache was opened.", nil, nil)
	invalidDesc = prometheus.NewDesc(namespace+"_invalid_entries", "Records skipped when the cache was opened.", nil, nil)
	shadersDesc = prometheus.NewDesc(namespace+"_shaders", "Registered shaders.", nil, nil)
	workersDesc = prometheus.NewDesc(namespace+"_workers", "Compiler worker goroutines.", nil, nil)
	persistDesc = prometheus.NewDesc(namespace+"_persistent", "1 if new entries are written to the cache file.", nil, nil)

	jobsPendingDesc   = prometheus.NewDesc(namespace+"_jobs_pending", "Compile jobs waiting for a worker.", nil, nil)
	writesPendingDesc = prometheus.NewDesc(namespace+"_writes_pending", "Entries waiting for the writer.", nil, nil)

	jobsDesc      = prometheus.NewDesc(namespace+"_jobs_total", "Compile jobs by outcome.", []string{"outcome"}, nil)
	pipelinesDesc = prometheus.NewDesc(namespace+"_pipelines_total", "Recorded pipelines compiled in the background by result.", []string{"result"}, nil)
	writesDesc    = prometheus.NewDesc(namespace+"_writes_total", "Cache file writes by result.", []string{"result"}, nil)

	lookupsDesc = prometheus.NewDesc(namespace+"_pipeline_lookups_total", "Pipeline object lookups by result.", []string{"result"}, nil)
	nativeDesc  = prometheus.NewDesc(namespace+"_native_pipelines", "Native pipelines created.", nil, nil)
	modulesDesc = prometheus.NewDesc(namespace+"_shader_modules", "Shader modules created.", nil, nil)
	passesDesc  = prometheus.NewDesc(namespace+"_render_passes", "Render pass objects created.", nil, nil)
)

type cacheCollector struct {
	src StatsSource
}

// NewCollector returns a collector reporting the counters of src.
func NewCollector(src StatsSource) prometheus.Collector {
	return &cacheCollector{src: src}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{entriesDesc, loadedDesc, invalidDesc, shadersDesc, workersDesc, persistDesc, jobsPendingDesc, writesPendingDesc, jobsDesc, pipelinesDesc, writesDesc} {
		ch <- d
	}
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v uint64, label string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), label)
	}

	gauge(entriesDesc, float64(s.Entries))
	gauge(loadedDesc, float64(s.Loaded))
	gauge(invalidDesc, float64(s.Invalid))
	gauge(shadersDesc, float64(s.Shaders))
	gauge(workersDesc, float64(s.Workers))
	persistent := 0.0
	if s.Persistent {
		persistent = 1
	}
	gauge(persistDesc, persistent)
	gauge(jobsPendingDesc, float64(s.JobsPending))
	gauge(writesPendingDesc, float64(s.EntriesPending))

	counter(jobsDesc, s.JobsDispatched, "dispatched")
	counter(jobsDesc, s.JobsDiscarded, "discarded")
	counter(pipelinesDesc, s.PipelinesCompiled, "compiled")
	counter(pipelinesDesc, s.CompileFailures, "failed")
	counter(writesDesc, s.EntriesWritten, "written")
	counter(writesDesc, s.WriteFailures, "failed")
	counter(writesDesc, s.EntriesRejected, "rejected")
}

type managerCollector struct {
	src ManagerSource
}

// NewManagerCollector returns a collector reporting pipeline manager
// statistics.
func NewManagerCollector(src ManagerSource) prometheus.Collector {
	return &managerCollector{src: src}
}

func (c *managerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- lookupsDesc
	ch <- nativeDesc
	ch <- modulesDesc
	ch <- passesDesc
}

func (c *managerCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(lookupsDesc, prometheus.CounterValue, float64(s.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(lookupsDesc, prometheus.CounterValue, float64(s.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(nativeDesc, prometheus.GaugeValue, float64(s.Pipelines))
	ch <- prometheus.MustNewConstMetric(modulesDesc, prometheus.GaugeValue, float64(s.ShaderModules))
	ch <- prometheus.MustNewConstMetric(passesDesc, prometheus.GaugeValue, float64(s.RenderPasses))
}
