package statecache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/statecache/internal/cachefile"
	"github.com/gogpu/statecache/internal/parallel"
	"github.com/gogpu/statecache/internal/registry"
	"github.com/gogpu/statecache/internal/store"
	"github.com/gogpu/statecache/internal/writer"
	"github.com/gogpu/statecache/state"
)

// Cache records pipeline state combinations, persists them and compiles
// recorded combinations in the background once their shaders are available.
//
// Lock order: entryMu, then the worker queue or the writer queue. Workers
// only read the store.
//
// Thread safety: Cache is safe for concurrent use.
type Cache struct {
	log    *slog.Logger
	pipes  PipelineManager
	passes RenderPassPool
	path   string

	// entryMu serialises store mutation, shader registration and dispatch.
	entryMu sync.Mutex
	entries *store.Store
	shaders *registry.Registry[Shader]

	workers *parallel.Pool[ShaderSet]
	writer  *writer.Task
	file    *cachefile.Writer // nil in memory-only mode

	loaded  int
	invalid int

	dispatched      atomic.Uint64
	discarded       atomic.Uint64
	compiled        atomic.Uint64
	compileFailures atomic.Uint64
	rejected        atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open loads the cache file into memory, opens it for appending and starts
// the compiler workers and the writer goroutine.
//
// Open never fails. A missing, outdated or partly corrupt file is replaced;
// a file that cannot be written leaves the cache in memory-only mode.
//
// pipes builds pipelines for recorded combinations; a nil pipes only records.
// passes provides render passes for graphics pipelines and may be nil when
// the pipeline manager does not need them.
func Open(pipes PipelineManager, passes RenderPassPool, opts ...Option) *Cache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = newNopLogger()
	}
	if o.env == nil {
		o.env = OSEnvironment()
	}

	c := &Cache{
		log:     o.logger,
		pipes:   pipes,
		passes:  passes,
		path:    o.path,
		entries: store.New(),
		shaders: registry.New[Shader](),
	}
	if c.path == "" {
		c.path = CachePath(o.env)
	}

	if !o.memoryOnly && persistenceEnabled(o.env) {
		c.file = c.openFile(o.syncWrites)
	} else {
		c.path = ""
	}

	// Keep the interface nil when there is no file.
	var sink writer.Sink
	if c.file != nil {
		sink = c.file
	}
	c.writer = writer.Start(sink, c.log)

	workers := o.workers
	if workers <= 0 {
		workers = parallel.DefaultWorkerCount()
	}
	c.log.Info("statecache: using compiler workers", slog.Int("workers", workers))
	c.workers = parallel.NewPool(workers, c.compile)

	return c
}

// openFile loads the cache file into the store and opens it for appending.
// It returns nil when the file cannot be written.
func (c *Cache) openFile(syncWrites bool) *cachefile.Writer {
	res, err := cachefile.Load(c.path)
	if err != nil {
		c.log.Warn("statecache: failed to read cache file", slog.String("path", c.path), slog.Any("error", err))
	}

	switch res.Status {
	case cachefile.StatusMissing:
		c.log.Warn("statecache: no cache file found", slog.String("path", c.path))
	case cachefile.StatusStale:
		c.log.Warn("statecache: cache file out of date", slog.String("path", c.path))
	}
	if res.Invalid > 0 {
		c.log.Warn("statecache: skipped invalid entries", slog.Int("count", res.Invalid))
	}

	for _, e := range res.Entries {
		c.entries.Add(e)
	}
	c.loaded = len(res.Entries)
	c.invalid = res.Invalid
	if c.loaded > 0 {
		c.log.Info("statecache: loaded entries", slog.Int("count", c.loaded), slog.String("path", c.path))
	}

	w, err := cachefile.OpenWriter(c.path, res.NeedsRewrite(), res.Entries, cachefile.Options{SyncWrites: syncWrites})
	if err != nil {
		c.log.Warn("statecache: cannot write cache file, continuing in memory-only mode",
			slog.String("path", c.path), slog.Any("error", err))
		return nil
	}
	return w
}

// AddGraphicsPipeline records a graphics pipeline the foreground has just
// built. Combinations without a vertex shader and already recorded
// combinations are ignored.
func (c *Cache) AddGraphicsPipeline(shaders state.CombinationKey, gs state.GraphicsState, format state.RenderPassFormat) {
	if shaders.Vertex().IsNull() {
		return
	}
	c.add(state.NewGraphicsEntry(shaders, gs, format))
}

// AddComputePipeline records a compute pipeline the foreground has just
// built. Combinations without a compute shader and already recorded
// combinations are ignored.
func (c *Cache) AddComputePipeline(shaders state.CombinationKey, cs state.ComputeState) {
	if shaders.Compute().IsNull() {
		return
	}
	c.add(state.NewComputeEntry(shaders, cs))
}

func (c *Cache) add(e state.Entry) {
	if c.closed.Load() || e.Validate() != nil {
		return
	}

	c.entryMu.Lock()
	defer c.entryMu.Unlock()

	if _, added := c.entries.AddUnique(e); !added {
		return
	}
	// Close may stop the writer after the closed check above. The entry stays
	// in memory but never reaches the file.
	if !c.writer.Enqueue(e) {
		c.rejected.Add(1)
	}
}

// RegisterShader makes s available for background compilation. Every
// recorded combination that s completes is dispatched to a worker. A nil
// shader and a shader whose key is already registered are ignored.
func (c *Cache) RegisterShader(s Shader) {
	key := ShaderKeyOf(s)
	if key.IsNull() || c.closed.Load() {
		return
	}

	c.entryMu.Lock()
	defer c.entryMu.Unlock()

	if !c.shaders.Insert(key, s) {
		return
	}

	var jobs []ShaderSet
	for _, combo := range c.entries.Combinations(key) {
		if set, ok := c.resolve(combo); ok {
			jobs = append(jobs, set)
		}
	}
	if len(jobs) == 0 || c.pipes == nil {
		return
	}

	if c.workers.Submit(jobs...) {
		c.dispatched.Add(uint64(len(jobs)))
	}
}

// resolve looks up the shader of every non-null stage of combo.
func (c *Cache) resolve(combo state.CombinationKey) (ShaderSet, bool) {
	var set ShaderSet
	for i, k := range combo.Stages {
		if k.IsNull() {
			continue
		}
		s, ok := c.shaders.Resolve(k)
		if !ok {
			return ShaderSet{}, false
		}
		set[i] = s
	}
	return set, true
}

// Close stops the workers, discarding jobs that have not started, writes all
// queued entries and closes the cache file. Close is safe to call multiple
// times; later calls return the first result. Other methods become no-ops.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		discarded := c.workers.Stop()
		c.discarded.Add(uint64(discarded))
		c.writer.Close()

		if c.file != nil {
			if err := c.file.Close(); err != nil {
				c.log.Warn("statecache: failed to close cache file", slog.String("path", c.path), slog.Any("error", err))
				c.closeErr = err
			}
		}

		c.log.LogAttrs(context.Background(), slog.LevelDebug, "statecache: closed",
			slog.Int("discardedJobs", discarded),
			slog.Int("entries", c.entries.Len()))
	})
	return c.closeErr
}

// Path returns the cache file path, or "" when persistence is disabled.
func (c *Cache) Path() string {
	return c.path
}

// Persistent reports whether new entries are written to the cache file.
func (c *Cache) Persistent() bool {
	return c.file != nil
}
