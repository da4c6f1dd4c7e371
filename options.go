package statecache

import "log/slog"

// Option configures a Cache during Open.
//
// Example:
//
//	// Defaults: path from the environment, workers sized to the machine
//	cache := statecache.Open(mgr, mgr)
//
//	// Explicit file, four workers, fsync after every record
//	cache := statecache.Open(mgr, mgr,
//	    statecache.WithPath("/var/cache/app.pipeline-cache"),
//	    statecache.WithWorkers(4),
//	    statecache.WithSyncWrites(true))
type Option func(*options)

// options holds optional configuration for Open.
type options struct {
	logger     *slog.Logger
	env        Environment
	path       string
	workers    int
	memoryOnly bool
	syncWrites bool
}

// defaultOptions returns the default cache options.
func defaultOptions() options {
	return options{
		logger:  nil, // Will be set to a silent logger if nil
		env:     nil, // Will be set to OSEnvironment if nil
		workers: 0,   // Will be sized by parallel.WorkerCount
	}
}

// WithLogger sets the logger. By default the cache produces no log output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithEnvironment sets the environment used to locate the cache file and
// read GOGPU_STATE_CACHE. Tests use it to avoid touching the process
// environment.
func WithEnvironment(env Environment) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithPath sets the cache file path, overriding the one derived from the
// environment.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithWorkers sets the number of compiler workers. Zero or negative values
// size the pool from the number of CPUs.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMemoryOnly disables the cache file: nothing is loaded and nothing is
// written.
func WithMemoryOnly(memoryOnly bool) Option {
	return func(o *options) {
		o.memoryOnly = memoryOnly
	}
}

// WithSyncWrites makes the writer fsync the cache file after every record.
func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = sync
	}
}
