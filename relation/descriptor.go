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

// Package relation implements the append-only, indexed relation store
// and the auto-indexer that chooses a
// minimal set of sort orders for it.
package relation

// ColumnKind is the static type of a relation column.
type ColumnKind uint8

const (
	Number ColumnKind = iota
	SymbolColumn
)

// StructuralKind names the storage strategy requested for a relation.
// CORE only implements Btree; Brie and EqRel are recognized so a
// descriptor round-trips, and are backed by the same btree-style index
// (see DESIGN.md for why the alternate backings are out of scope).
type StructuralKind uint8

const (
	Btree StructuralKind = iota
	Brie
	EqRel
	AutoStructural
)

// Descriptor describes a relation's static shape.
type Descriptor struct {
	Name       string
	Arity      int
	Columns    []ColumnKind
	Input      bool
	Output     bool
	Computed   bool
	Temporary  bool
	Structural StructuralKind
	Attributes []string
}

// Mask is a bitmask over column positions, used both as a scan's
// search-column key and as a NOT_EXISTS/equal_range bound selector.
type Mask uint64

// Bit returns the mask with only bit i set.
func Bit(i int) Mask { return Mask(1) << uint(i) }

// Has reports whether bit i is set in m.
func (m Mask) Has(i int) bool { return m&Bit(i) != 0 }

// Popcount returns the number of set bits in m.
func (m Mask) Popcount() int {
	n := 0
	for m != 0 {
		m &= m - 1
		n++
	}
	return n
}

// Columns returns the set bit positions of m in ascending order.
func (m Mask) Columns(arity int) []int {
	cols := make([]int, 0, m.Popcount())
	for i := 0; i < arity; i++ {
		if m.Has(i) {
			cols = append(cols, i)
		}
	}
	return cols
}
