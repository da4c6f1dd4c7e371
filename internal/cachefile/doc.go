// Package cachefile reads and writes the on-disk pipeline state cache.
//
// A cache file is a fixed Header followed by a sequence of fixed-size
// records (see state.EntrySize). Records are appended one at a time and are
// never rewritten in place. When the header does not match the current build
// or records fail their integrity check, the whole file is regenerated from
// the records that survived.
//
// Only one process may append to a cache file at a time. OpenWriter takes an
// exclusive lock on a sibling ".lock" file and fails with ErrLocked when
// another process owns it.
package cachefile
