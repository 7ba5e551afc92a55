// Package mirror keeps the in-memory record of which index/type/id triples
// this process has written to the search service.
package mirror

import (
	"slices"
	"sync"
)

// entry holds the known ids of a single index/type pair.
// pending maps the base of every in-flight reservation to its last id.
// Reserved ids never show up in ids until the corresponding write is registered.
type entry struct {
	ids     []int
	seen    map[int]struct{}
	pending map[int]int
}

// Mirror maps index -> type -> ordered ids. Safe for concurrent use.
// Lives for the process lifetime and is never persisted.
type Mirror struct {
	mu      sync.Mutex
	indices map[string]map[string]*entry
}

// New creates an empty mirror.
func New() *Mirror {
	return &Mirror{indices: make(map[string]map[string]*entry)}
}

// entryLocked returns the entry for index/type, creating parent containers if create is set.
func (m *Mirror) entryLocked(index, typ string, create bool) *entry {
	types, ok := m.indices[index]
	if !ok {
		if !create {
			return nil
		}
		types = make(map[string]*entry)
		m.indices[index] = types
	}
	e, ok := types[typ]
	if !ok {
		if !create {
			return nil
		}
		e = &entry{seen: make(map[int]struct{}), pending: make(map[int]int)}
		types[typ] = e
	}
	return e
}

// Register records id under index/type. Returns true if the id was not known yet.
func (m *Mirror) Register(index, typ string, id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(index, typ, true)
	if _, ok := e.seen[id]; ok {
		return false
	}
	e.seen[id] = struct{}{}
	e.ids = append(e.ids, id)
	return true
}

// Contains reports whether id was registered under index/type.
func (m *Mirror) Contains(index, typ string, id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(index, typ, false)
	if e == nil {
		return false
	}
	_, ok := e.seen[id]
	return ok
}

// HasType reports whether index/type has at least one registered id.
func (m *Mirror) HasType(index, typ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(index, typ, false)
	return e != nil && len(e.ids) > 0
}

// Count returns the number of ids registered under index/type.
func (m *Mirror) Count(index, typ string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(index, typ, false)
	if e == nil {
		return 0
	}
	return len(e.ids)
}

// Reserve hands out n consecutive ids for index/type and returns the first one.
// The base is one past the largest registered id (1 for an unknown pair), pushed
// further only by reservations still in flight. Concurrent callers always get
// disjoint ranges. Every reservation with n > 0 must be ended with Release.
func (m *Mirror) Reserve(index, typ string, n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := 1
	e := m.entryLocked(index, typ, false)
	if e != nil {
		if len(e.ids) > 0 {
			base = slices.Max(e.ids) + 1
		}
		for _, last := range e.pending {
			if last >= base {
				base = last + 1
			}
		}
	}
	if n <= 0 {
		return base
	}

	if e == nil {
		e = m.entryLocked(index, typ, true)
	}
	e.pending[base] = base + n - 1
	return base
}

// Release ends the reservation that started at base. Ids of the range that were
// never registered become available again once no later reservation covers them.
func (m *Mirror) Release(index, typ string, base int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.entryLocked(index, typ, false); e != nil {
		delete(e.pending, base)
	}
}

// IDs returns a copy of the ids registered under index/type, in insertion order.
func (m *Mirror) IDs(index, typ string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(index, typ, false)
	if e == nil {
		return nil
	}
	return slices.Clone(e.ids)
}

// Snapshot returns a deep copy of the mirror. Pairs that only hold reservations are omitted.
func (m *Mirror) Snapshot() map[string]map[string][]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]map[string][]int, len(m.indices))
	for index, types := range m.indices {
		for typ, e := range types {
			if len(e.ids) == 0 {
				continue
			}
			if out[index] == nil {
				out[index] = make(map[string][]int, len(types))
			}
			out[index][typ] = slices.Clone(e.ids)
		}
	}
	return out
}
