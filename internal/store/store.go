// Package store holds the in-memory sequence of pipeline state entries and
// the two indexes derived from it.
package store

import (
	"sync"

	"github.com/gogpu/statecache/state"
)

// ID identifies an entry by its position in the store. IDs are stable
// because entries are never removed.
type ID int

// Store is an append-only sequence of entries with a combination index
// (combination -> entries) and a shader index (shader -> combinations).
//
// Both indexes are updated in the same critical section as the sequence, so a
// reader never observes an entry that is missing from an index.
//
// Thread safety: Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	entries []state.Entry
	byCombo map[state.CombinationKey][]ID

	// Each combination is listed at most once per shader; comboSeen dedups.
	byShader  map[state.ShaderKey][]state.CombinationKey
	comboSeen map[shaderCombo]struct{}
}

type shaderCombo struct {
	shader state.ShaderKey
	combo  state.CombinationKey
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byCombo:   make(map[state.CombinationKey][]ID),
		byShader:  make(map[state.ShaderKey][]state.CombinationKey),
		comboSeen: make(map[shaderCombo]struct{}),
	}
}

// Add appends e and indexes it. It does not check for duplicates.
func (s *Store) Add(e state.Entry) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(e)
}

// AddUnique appends e unless an entry with the same state is already present.
// The check and the append are atomic.
func (s *Store) AddUnique(e state.Entry) (ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.findSameLocked(&e); ok {
		return id, false
	}
	return s.addLocked(e), true
}

func (s *Store) addLocked(e state.Entry) ID {
	id := ID(len(s.entries))
	s.entries = append(s.entries, e)
	s.byCombo[e.Shaders] = append(s.byCombo[e.Shaders], id)

	e.Shaders.Each(func(_ state.Stage, k state.ShaderKey) {
		sc := shaderCombo{shader: k, combo: e.Shaders}
		if _, ok := s.comboSeen[sc]; ok {
			return
		}
		s.comboSeen[sc] = struct{}{}
		s.byShader[k] = append(s.byShader[k], e.Shaders)
	})
	return id
}

func (s *Store) findSameLocked(e *state.Entry) (ID, bool) {
	for _, id := range s.byCombo[e.Shaders] {
		if s.entries[id].SameState(e) {
			return id, true
		}
	}
	return 0, false
}

// Find returns the IDs of all entries recorded for key, in insertion order.
func (s *Store) Find(key state.CombinationKey) []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCombo[key]
	if len(ids) == 0 {
		return nil
	}
	return append([]ID(nil), ids...)
}

// Entry returns the entry with the given ID.
func (s *Store) Entry(id ID) (state.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || int(id) >= len(s.entries) {
		return state.Entry{}, false
	}
	return s.entries[id], true
}

// Entries returns the entries recorded for key, in insertion order.
func (s *Store) Entries(key state.CombinationKey) []state.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCombo[key]
	if len(ids) == 0 {
		return nil
	}
	out := make([]state.Entry, len(ids))
	for i, id := range ids {
		out[i] = s.entries[id]
	}
	return out
}

// IsDuplicate reports whether an entry with the same state as e is stored.
func (s *Store) IsDuplicate(e state.Entry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.findSameLocked(&e)
	return ok
}

// Combinations returns every combination that references shader.
func (s *Store) Combinations(shader state.ShaderKey) []state.CombinationKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	combos := s.byShader[shader]
	if len(combos) == 0 {
		return nil
	}
	return append([]state.CombinationKey(nil), combos...)
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a copy of all entries in insertion order.
func (s *Store) Snapshot() []state.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]state.Entry(nil), s.entries...)
}
