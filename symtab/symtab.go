// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package symtab interns byte strings as stable 32-bit identifiers.
//
// It backs the "symbol" column kind of a relation: a string-valued
// column is stored as the ID returned by Intern rather than as the
// string itself, so relation tuples stay fixed-width int32 cells.
package symtab

import (
	"sync"

	"golang.org/x/exp/slices"
)

// ID is an interned symbol identifier. 0 is reserved (Null) and is
// never returned by Intern.
type ID int32

// Null is the reserved, never-interned symbol ID.
const Null ID = 0

// Table interns byte strings to IDs and resolves IDs back to strings.
// Intern and Resolve may be called concurrently from multiple
// goroutines; interning the same bytes from two goroutines returns
// the same ID.
type Table struct {
	mu       sync.RWMutex
	interned []string       // ID i+1 -> string, i.e. index 0 holds ID 1
	toindex  map[string]ID
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{toindex: make(map[string]ID)}
}

// Intern interns x, returning its ID. Interning is idempotent: the
// same bytes always map to the same ID for the life of the table.
func (t *Table) Intern(x string) ID {
	t.mu.RLock()
	id, ok := t.toindex[x]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// re-check: another goroutine may have interned x while we
	// waited for the write lock.
	if id, ok := t.toindex[x]; ok {
		return id
	}
	id = ID(len(t.interned) + 1)
	t.interned = append(t.interned, x)
	t.toindex[x] = id
	return id
}

// InternBytes is Intern for a []byte argument; it does not retain buf.
func (t *Table) InternBytes(buf []byte) ID {
	t.mu.RLock()
	id, ok := t.toindex[string(buf)]
	t.mu.RUnlock()
	if ok {
		return id
	}
	return t.Intern(string(buf))
}

// InsertBatch interns every string in xs and returns their IDs in order.
func (t *Table) InsertBatch(xs []string) []ID {
	ids := make([]ID, len(xs))
	for i, x := range xs {
		ids[i] = t.Intern(x)
	}
	return ids
}

// Resolve returns the string associated with id, or ("", false) if id
// was never interned by this table.
func (t *Table) Resolve(id ID) (string, bool) {
	if id <= Null {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := int(id) - 1
	if i >= len(t.interned) {
		return "", false
	}
	return t.interned[i], true
}

// MustResolve is Resolve but panics on an unknown id; used where the
// caller holds an invariant that id came from this table.
func (t *Table) MustResolve(id ID) string {
	s, ok := t.Resolve(id)
	if !ok {
		panic("symtab: resolve of unknown id")
	}
	return s
}

// Symbolize returns the ID already associated with x, without
// interning it.
func (t *Table) Symbolize(x string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.toindex[x]
	return id, ok
}

// Size returns the number of distinct strings interned so far.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.interned)
}

// Strings returns a snapshot of every interned string ordered by ID.
// Used by diagnostics; callers must not mutate the result.
func (t *Table) Strings() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.interned)
}
