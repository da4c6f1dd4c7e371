package cachefile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/moby/sys/atomicwriter"

	"github.com/gogpu/statecache/state"
)

// ErrLocked is returned by OpenWriter when another process is appending to
// the same cache file.
var ErrLocked = errors.New("cachefile: cache file is locked by another process")

// Options configures a Writer.
type Options struct {
	// SyncWrites calls fsync after every appended record. Without it a record
	// is handed to the OS with a single write call and survives a process
	// crash but not necessarily a power loss.
	SyncWrites bool
}

// Writer appends records to a cache file.
//
// Thread safety: Writer is safe for concurrent use, but records from
// concurrent Append calls are ordered arbitrarily.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	lock *fileLock
	sync bool
	buf  [state.EntrySize]byte
}

// OpenWriter locks the cache file at path and opens it for appending. When
// rewrite is set, the file is first regenerated with a fresh header followed
// by entries, replacing any previous contents atomically.
func OpenWriter(path string, rewrite bool, entries []state.Entry, opts Options) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cachefile: create directory: %w", err)
		}
	}

	lock, err := acquireLock(path + ".lock")
	if err != nil {
		return nil, err
	}

	if rewrite {
		if err := Rewrite(path, entries); err != nil {
			_ = lock.release()
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		_ = lock.release()
		return nil, fmt.Errorf("cachefile: open %s for append: %w", path, err)
	}

	return &Writer{
		file: f,
		lock: lock,
		sync: opts.SyncWrites,
	}, nil
}

// Append seals e and appends it as one record.
func (w *Writer) Append(e state.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("cachefile: append to closed writer: %w", os.ErrClosed)
	}

	sealed := e.Seal()
	sealed.Encode(w.buf[:])
	if _, err := w.file.Write(w.buf[:]); err != nil {
		return fmt.Errorf("cachefile: append: %w", err)
	}
	if w.sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("cachefile: sync: %w", err)
		}
	}
	return nil
}

// Close closes the file and releases the lock.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return errors.Join(err, w.lock.release())
}

// Rewrite atomically replaces the file at path with a current header followed
// by entries, each resealed.
func Rewrite(path string, entries []state.Entry) (err error) {
	f, err := atomicwriter.New(path, 0o644)
	if err != nil {
		return fmt.Errorf("cachefile: rewrite %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cachefile: rewrite %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)

	var hdr [HeaderSize]byte
	CurrentHeader().encode(hdr[:])
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("cachefile: write header: %w", err)
	}

	var buf [state.EntrySize]byte
	for i := range entries {
		sealed := entries[i].Seal()
		sealed.Encode(buf[:])
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("cachefile: write entry: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("cachefile: flush: %w", err)
	}
	return nil
}
