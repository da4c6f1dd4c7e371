package statecache

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int // entries in memory, loaded and recorded
	Loaded  int // entries read from the cache file at Open
	Invalid int // records skipped at Open
	Shaders int // registered shaders

	JobsPending       int    // shader sets waiting for a worker
	JobsDispatched    uint64 // shader sets handed to workers
	JobsDiscarded     uint64 // shader sets dropped by Close before a worker took them
	PipelinesCompiled uint64 // entries whose pipeline handle was built
	CompileFailures   uint64 // entries whose pipeline could not be built

	EntriesPending  int    // entries waiting for the writer
	EntriesEnqueued uint64 // entries handed to the writer
	EntriesRejected uint64 // entries recorded while Close stopped the writer
	EntriesWritten  uint64 // entries appended to the cache file
	WriteFailures   uint64 // entries the cache file rejected

	Workers    int
	Persistent bool
}

// Stats returns current counters. It is safe to call concurrently with any
// other method, including after Close.
func (c *Cache) Stats() Stats {
	ws := c.writer.Stats()
	return Stats{
		Entries:           c.entries.Len(),
		Loaded:            c.loaded,
		Invalid:           c.invalid,
		Shaders:           c.shaders.Len(),
		JobsPending:       c.workers.Pending(),
		JobsDispatched:    c.dispatched.Load(),
		JobsDiscarded:     c.discarded.Load(),
		PipelinesCompiled: c.compiled.Load(),
		CompileFailures:   c.compileFailures.Load(),
		EntriesPending:    c.writer.Pending(),
		EntriesEnqueued:   ws.Enqueued,
		EntriesRejected:   c.rejected.Load(),
		EntriesWritten:    ws.Written,
		WriteFailures:     ws.Failed,
		Workers:           c.workers.Workers(),
		Persistent:        c.Persistent(),
	}
}
