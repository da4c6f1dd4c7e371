package state

import (
	"crypto/sha256"
	"errors"
)

// HashSize is the size of an IntegrityHash in bytes.
const HashSize = sha256.Size

// IntegrityHash is the SHA-256 of a record with its hash field zeroed.
type IntegrityHash [HashSize]byte

// Entry validation errors.
var (
	// ErrNullPrimaryStage is returned for entries without a vertex shader
	// (graphics) or compute shader (compute).
	ErrNullPrimaryStage = errors.New("state: primary shader stage is null")

	// ErrMixedStages is returned for compute entries that also bind graphics stages.
	ErrMixedStages = errors.New("state: compute entry binds graphics stages")
)

// Entry is one recorded pipeline: a shader combination plus the state it was
// used with. Graphics entries carry a non-null vertex key and meaningful
// Graphics and Format; compute entries carry a non-null compute key and
// meaningful Compute. Entries are values; a changed entry is a new Entry.
type Entry struct {
	Shaders  CombinationKey
	Graphics GraphicsState
	Compute  ComputeState
	Format   RenderPassFormat
	Hash     IntegrityHash
}

// NewGraphicsEntry returns an unsealed graphics entry.
func NewGraphicsEntry(shaders CombinationKey, gs GraphicsState, format RenderPassFormat) Entry {
	return Entry{Shaders: shaders, Graphics: gs, Format: format}
}

// NewComputeEntry returns an unsealed compute entry.
func NewComputeEntry(shaders CombinationKey, cs ComputeState) Entry {
	return Entry{Shaders: shaders, Compute: cs}
}

// IsCompute reports whether e describes a compute pipeline.
func (e *Entry) IsCompute() bool {
	return e.Shaders.IsCompute()
}

// Validate checks the primary stage invariant.
func (e *Entry) Validate() error {
	if e.IsCompute() {
		for s := StageVertex; s < StageCompute; s++ {
			if !e.Shaders.Stages[s].IsNull() {
				return ErrMixedStages
			}
		}
		return nil
	}
	if e.Shaders.Vertex().IsNull() {
		return ErrNullPrimaryStage
	}
	return nil
}

// SameState reports whether e and other record the same pipeline: equal
// shaders and, for graphics, bitwise equal format and graphics state, for
// compute, equal compute state. The hash is ignored.
func (e *Entry) SameState(other *Entry) bool {
	if e.Shaders != other.Shaders {
		return false
	}
	if e.IsCompute() {
		return e.Compute == other.Compute
	}
	return NewVariantKey(&e.Graphics, &e.Format) == NewVariantKey(&other.Graphics, &other.Format)
}

// ComputeHash returns the integrity hash of e, computed over the encoded
// record with the hash field zeroed.
func (e *Entry) ComputeHash() IntegrityHash {
	var buf [EntrySize]byte
	enc := encoder{buf: buf[:]}
	enc.entryBody(e)
	return sha256.Sum256(buf[:])
}

// Seal returns a copy of e with Hash set.
func (e Entry) Seal() Entry {
	e.Hash = e.ComputeHash()
	return e
}

// Verify reports whether the stored hash matches the record contents.
func (e *Entry) Verify() bool {
	return e.Hash == e.ComputeHash()
}
