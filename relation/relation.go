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

package relation

import (
	"fmt"
	"sync"
)

// Relation is an append-only, set-semantics multiset of fixed-arity
// tuples. Insert is serialized by mu; Contains,
// iteration and EqualRange take a read lock and may proceed
// concurrently with one another.
type Relation struct {
	desc Descriptor

	mu      sync.RWMutex
	tuples  []Tuple  // block chain, append-only
	total   *index   // all columns in declared order; backs Contains
	indices []*index // total plus any on-demand secondary indices
}

// New returns an empty relation for the given descriptor.
func New(desc Descriptor) *Relation {
	order := make([]int, desc.Arity)
	for i := range order {
		order[i] = i
	}
	total := &index{order: order}
	return &Relation{desc: desc, total: total, indices: []*index{total}}
}

// Descriptor returns the relation's descriptor.
func (r *Relation) Descriptor() Descriptor { return r.desc }

// Arity returns the relation's column count.
func (r *Relation) Arity() int { return r.desc.Arity }

// Size returns the number of distinct tuples stored.
func (r *Relation) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tuples)
}

// IsEmpty reports whether the relation holds no tuples.
func (r *Relation) IsEmpty() bool { return r.Size() == 0 }

// Contains reports whether t is present, using the total index.
func (r *Relation) Contains(t Tuple) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.containsLocked(t)
}

func (r *Relation) containsLocked(t Tuple) bool {
	if len(r.tuples) == 0 {
		return false
	}
	cols := r.total.order
	lo, hi := r.total.boundsFor(r.tuples, Tuple(t), cols)
	return hi > lo
}

// Insert adds t if not already present and reports whether the
// relation grew. Idempotent.
func (r *Relation) Insert(t Tuple) bool {
	if len(t) != r.desc.Arity {
		panic(fmt.Sprintf("relation %s: insert arity %d, want %d", r.desc.Name, len(t), r.desc.Arity))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.containsLocked(t) {
		return false
	}
	stored := t.Clone()
	r.tuples = append(r.tuples, stored)
	pos := len(r.tuples) - 1
	for _, ix := range r.indices {
		ix.insert(r.tuples, pos)
	}
	return true
}

// InsertAll bulk-merges other's tuples into r. Arities must match.
func (r *Relation) InsertAll(other *Relation) {
	if other.Arity() != r.Arity() {
		panic(fmt.Sprintf("relation %s: insert_all arity mismatch (%d vs %d)", r.desc.Name, other.Arity(), r.Arity()))
	}
	for _, t := range other.All() {
		r.Insert(t)
	}
}

// All returns every tuple, in insertion order. Callers must not
// mutate the result.
func (r *Relation) All() []Tuple {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tuple, len(r.tuples))
	copy(out, r.tuples)
	return out
}

// Purge empties the relation's contents and drops all secondary
// indices, but preserves the descriptor.
func (r *Relation) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tuples = nil
	r.total.sorted = nil
	r.indices = []*index{r.total}
}

// findOrBuildIndex implements the index-selection algorithm
// for a search mask: look for an existing index compatible with mask,
// or build one on demand.
func (r *Relation) findOrBuildIndex(mask Mask) *index {
	cols := mask.Columns(r.desc.Arity)
	for _, ix := range r.indices {
		if ix.isPrefixOf(cols) {
			return ix
		}
	}
	order := fullOrderFor(mask, r.desc.Arity)
	ix := &index{order: order}
	for pos := range r.tuples {
		ix.insert(r.tuples, pos)
	}
	r.indices = append(r.indices, ix)
	return ix
}

// EqualRange returns tuples matching pattern on the columns set in
// keymask. Columns not in keymask are ignored in pattern. May create
// a new secondary index on first use of a given mask shape.
func (r *Relation) EqualRange(pattern Tuple, keymask Mask) *Range {
	r.mu.RLock()
	if keymask == 0 {
		defer r.mu.RUnlock()
		return &Range{tuples: r.tuples, sorted: r.total.sorted, lo: 0, hi: len(r.tuples), cur: 0}
	}
	cols := keymask.Columns(r.desc.Arity)
	for _, ix := range r.indices {
		if ix.isPrefixOf(cols) {
			defer r.mu.RUnlock()
			lo, hi := ix.boundsFor(r.tuples, pattern, cols)
			return &Range{tuples: r.tuples, sorted: ix.sorted, lo: lo, hi: hi, cur: lo}
		}
	}
	r.mu.RUnlock()
	// no compatible index yet: build one under the write lock.
	r.mu.Lock()
	defer r.mu.Unlock()
	ix := r.findOrBuildIndex(keymask)
	lo, hi := ix.boundsFor(r.tuples, pattern, cols)
	return &Range{tuples: r.tuples, sorted: ix.sorted, lo: lo, hi: hi, cur: lo}
}

// IndexOrders returns the column orderings of every index currently
// materialized on r, for diagnostics.
func (r *Relation) IndexOrders() [][]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([][]int, len(r.indices))
	for i, ix := range r.indices {
		out[i] = append([]int(nil), ix.order...)
	}
	return out
}

// EnsureOrders pre-creates indices for each of the given complete
// column orderings. Used by the auto-indexer to install
// a chosen index set ahead of execution.
func (r *Relation) EnsureOrders(orders [][]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range orders {
		if len(order) != r.desc.Arity {
			continue
		}
		if r.hasOrderLocked(order) {
			continue
		}
		ix := &index{order: append([]int(nil), order...)}
		for pos := range r.tuples {
			ix.insert(r.tuples, pos)
		}
		r.indices = append(r.indices, ix)
	}
}

func (r *Relation) hasOrderLocked(order []int) bool {
	for _, ix := range r.indices {
		if len(ix.order) != len(order) {
			continue
		}
		same := true
		for i := range order {
			if ix.order[i] != order[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
