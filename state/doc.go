// Package state defines the identity and record types of the pipeline state cache.
//
// A pipeline is identified by the shaders bound to its six programmable stages
// (a [CombinationKey] of content-derived [ShaderKey] values) plus the
// fixed-function state it was used with. One [Entry] records one such
// combination together with its graphics or compute state and, for graphics
// pipelines, the render pass format.
//
// # Record format
//
// Entries are persisted as fixed-size records of [EntrySize] bytes. Every
// field is serialized explicitly in little-endian order, so the layout does
// not depend on Go struct padding. The trailing [IntegrityHash] is a SHA-256
// over the record with the hash field zeroed:
//
//	sealed := entry.Seal()
//	data, _ := sealed.MarshalBinary()
//
//	var loaded state.Entry
//	_ = loaded.UnmarshalBinary(data)
//	ok := loaded.Verify()
//
// All descriptor types are comparable, so structural equality is plain ==.
package state
