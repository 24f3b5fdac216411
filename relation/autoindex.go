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
	"sort"
	"strconv"
)

// Planner computes, for one relation, a minimum set of complete
// column orderings covering every search mask ever used against it as
// a prefix. It models each mask as a set of columns and
// finds a minimum chain decomposition of the subset lattice restricted
// to those sets, via Dilworth's theorem: minimum chain count equals
// the number of sets minus the size of a maximum matching in the
// "proper subset" bipartite graph.
type Planner struct {
	arity int
	seen  map[Mask]bool
	order []Mask // insertion order, for determinism
}

// NewPlanner returns a planner for a relation of the given arity.
func NewPlanner(arity int) *Planner {
	return &Planner{arity: arity, seen: make(map[Mask]bool)}
}

// Observe records that mask was used as a search key against the
// relation. Safe to call repeatedly with the same mask.
func (p *Planner) Observe(mask Mask) {
	if mask == 0 {
		return // a full scan needs no key-bearing index
	}
	if !p.seen[mask] {
		p.seen[mask] = true
		p.order = append(p.order, mask)
	}
}

// Plan returns a minimum set of complete column orderings such that
// every observed mask's columns form a prefix of some returned
// ordering, as a set.
func (p *Planner) Plan() [][]int {
	masks := append([]Mask(nil), p.order...)
	sort.Slice(masks, func(i, j int) bool { return masks[i].Popcount() < masks[j].Popcount() })
	n := len(masks)
	if n == 0 {
		return nil
	}

	// properSubset[i][j] = true if masks[i] is a proper subset of masks[j]
	// (i must precede j in a chain).
	properSubset := func(a, b Mask) bool { return a != b && a&b == a }

	// Kuhn's algorithm: match each left node i (as a chain predecessor)
	// to at most one right node j (as a chain successor), maximizing
	// matches; matchR[j] = i means masks[i] -> masks[j] in a chain.
	matchR := make([]int, n)
	for i := range matchR {
		matchR[i] = -1
	}
	var tryAugment func(i int, visited []bool) bool
	tryAugment = func(i int, visited []bool) bool {
		for j := 0; j < n; j++ {
			if visited[j] || !properSubset(masks[i], masks[j]) {
				continue
			}
			visited[j] = true
			if matchR[j] == -1 || tryAugment(matchR[j], visited) {
				matchR[j] = i
				return true
			}
		}
		return false
	}
	for i := 0; i < n; i++ {
		visited := make([]bool, n)
		tryAugment(i, visited)
	}

	matchL := make([]int, n)
	for i := range matchL {
		matchL[i] = -1
	}
	for j, i := range matchR {
		if i != -1 {
			matchL[i] = j
		}
	}

	// Walk chains starting from nodes with no predecessor
	// (matchR[j] == -1), building one complete ordering per chain.
	hasPred := make([]bool, n)
	for j, i := range matchR {
		if i != -1 {
			hasPred[j] = true
		}
	}

	var orders [][]int
	for start := 0; start < n; start++ {
		if hasPred[start] {
			continue
		}
		order := p.chainOrder(masks, start, matchL)
		orders = append(orders, order)
	}
	return orders
}

// chainOrder follows the chain starting at `start`, accumulating
// columns as each successive (strictly larger) mask is visited, then
// appends the remaining columns in ascending order.
func (p *Planner) chainOrder(masks []Mask, start int, matchL []int) []int {
	var order []int
	seen := make(map[int]bool)
	add := func(m Mask) {
		for _, c := range m.Columns(p.arity) {
			if !seen[c] {
				seen[c] = true
				order = append(order, c)
			}
		}
	}
	cur := start
	for cur != -1 {
		add(masks[cur])
		cur = matchL[cur]
	}
	for c := 0; c < p.arity; c++ {
		if !seen[c] {
			order = append(order, c)
		}
	}
	return order
}

// Report renders a human-readable summary of the chosen index set, in
// the spirit of a classic Datalog auto-tuner's diagnostic output:
// one line per ordering, listing the column
// positions in index order.
func (p *Planner) Report(relationName string, orders [][]int) string {
	s := relationName + ": " + strconv.Itoa(len(orders)) + " index(es)\n"
	for i, o := range orders {
		s += "  [" + strconv.Itoa(i) + "] order=" + formatOrder(o) + "\n"
	}
	return s
}

func formatOrder(order []int) string {
	s := "("
	for i, c := range order {
		if i > 0 {
			s += ","
		}
		s += strconv.Itoa(c)
	}
	return s + ")"
}
