// Package statecache is a persistent, concurrent pipeline compilation cache.
//
// # Overview
//
// A renderer that builds native pipeline objects lazily stalls the first
// time each combination of shaders and fixed-function state is drawn. The
// cache removes those stalls on later runs:
//
//   - Every distinct combination the application uses is recorded once, in
//     memory and in an append-only file next to the executable.
//   - On the next run the file is loaded at startup. As soon as every shader
//     stage of a recorded combination has been registered, a background
//     worker asks the pipeline manager to build the pipeline for each
//     recorded state variant, before the draw call that needs it.
//
// # Quick Start
//
//	mgr := halpipe.New(device)
//	cache := statecache.Open(mgr, mgr,
//	    statecache.WithLogger(statecache.NewLogger(statecache.OSEnvironment(), os.Stderr)))
//	defer cache.Close()
//
//	// When shaders become available:
//	cache.RegisterShader(vs)
//	cache.RegisterShader(fs)
//
//	// When the foreground path first uses a combination:
//	cache.AddGraphicsPipeline(statecache.CombinationOf(shaders), gs, format)
//
// # Persistence
//
// The cache file is named after the executable, with its extension replaced
// by ".pipeline-cache", and is placed in $GOGPU_STATE_CACHE_PATH or the
// working directory. A file written by another format version is ignored and
// replaced. Corrupt records are skipped and the file is regenerated from the
// records that survived. Setting GOGPU_STATE_CACHE=0 disables persistence.
//
// When the file cannot be opened for writing, for example because another
// process holds it, the cache keeps working in memory-only mode.
//
// # Errors
//
// Persistence and pre-compilation are best effort. None of the recording or
// registration methods return errors; failures are logged and counted in
// Stats. Only Close reports an error, from closing the cache file.
//
// # Concurrency
//
// All methods are safe for concurrent use. Recording and shader registration
// take a short entry lock. Compilation runs on a fixed pool of workers (see
// parallel.WorkerCount) and the file is written by one background goroutine,
// so records appear in the file in the order they were recorded.
package statecache
