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

import "sort"

// Tuple is a fixed-arity sequence of 32-bit cells.
type Tuple []int32

// Clone returns a copy of t.
func (t Tuple) Clone() Tuple {
	out := make(Tuple, len(t))
	copy(out, t)
	return out
}

// equal reports full tuple equality.
func (t Tuple) equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// index is an ordered index over the positions of a relation's block
// chain, comparing tuples lexicographically by the cells at `order`.
// order is always a complete permutation of {0..arity-1}: see
// relation.go for how a partial search mask is extended to one.
type index struct {
	order  []int // complete column permutation
	sorted []int // positions into Relation.tuples, sorted by order
}

func (ix *index) less(tuples []Tuple, a, b int) bool {
	ta, tb := tuples[a], tuples[b]
	for _, c := range ix.order {
		if ta[c] != tb[c] {
			return ta[c] < tb[c]
		}
	}
	return false
}

// insert adds position pos (a freshly appended tuple) to the index,
// keeping ix.sorted in order.
func (ix *index) insert(tuples []Tuple, pos int) {
	i := sort.Search(len(ix.sorted), func(i int) bool {
		return ix.less(tuples, pos, ix.sorted[i]) || !ix.less(tuples, ix.sorted[i], pos)
	})
	ix.sorted = append(ix.sorted, 0)
	copy(ix.sorted[i+1:], ix.sorted[i:])
	ix.sorted[i] = pos
}

// isPrefixOf reports whether the first n columns of ix.order are
// exactly the set `cols` (order within the prefix does not matter).
func (ix *index) isPrefixOf(cols []int) bool {
	n := len(cols)
	if n > len(ix.order) {
		return false
	}
	want := make(map[int]bool, n)
	for _, c := range cols {
		want[c] = true
	}
	for _, c := range ix.order[:n] {
		if !want[c] {
			return false
		}
	}
	return true
}

// boundsFor returns [lo, hi) into ix.sorted covering every tuple whose
// cells at cols equal pattern's cells at those same positions, where
// cols is exactly the first len(cols) entries of ix.order (as a set).
func (ix *index) boundsFor(tuples []Tuple, pattern Tuple, cols []int) (lo, hi int) {
	n := len(cols)
	matches := func(pos int) int {
		t := tuples[pos]
		for _, c := range ix.order[:n] {
			if t[c] != pattern[c] {
				if t[c] < pattern[c] {
					return -1
				}
				return 1
			}
		}
		return 0
	}
	lo = sort.Search(len(ix.sorted), func(i int) bool {
		return matches(ix.sorted[i]) >= 0
	})
	hi = lo + sort.Search(len(ix.sorted)-lo, func(i int) bool {
		return matches(ix.sorted[lo+i]) > 0
	})
	return lo, hi
}

// fullOrderFor extends the ascending-order columns of mask into a
// complete ordering by appending the remaining columns ascending.
func fullOrderFor(mask Mask, arity int) []int {
	order := mask.Columns(arity)
	seen := make(map[int]bool, len(order))
	for _, c := range order {
		seen[c] = true
	}
	for c := 0; c < arity; c++ {
		if !seen[c] {
			order = append(order, c)
		}
	}
	return order
}
