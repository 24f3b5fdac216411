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

// Range is an iterator over a contiguous span of a relation's index.
// It follows a classic RAM-index range-iteration
// interface: a Range can be walked forward with
// Next or, via Reverse, from the top down (used by MAX aggregates).
type Range struct {
	tuples  []Tuple
	sorted  []int
	lo, hi  int
	cur     int
	reverse bool
}

// Next advances the range and reports whether a tuple is available.
func (r *Range) Next() bool {
	if r.reverse {
		if r.cur <= r.lo {
			return false
		}
		r.cur--
		return true
	}
	if r.cur >= r.hi {
		return false
	}
	r.cur++
	return true
}

// Tuple returns the tuple at the current position. Valid only after a
// call to Next that returned true.
func (r *Range) Tuple() Tuple {
	if r.reverse {
		return r.tuples[r.sorted[r.cur]]
	}
	return r.tuples[r.sorted[r.cur-1]]
}

// Len returns the number of tuples covered by the range.
func (r *Range) Len() int { return r.hi - r.lo }

// Empty reports whether the range covers no tuples.
func (r *Range) Empty() bool { return r.hi <= r.lo }

// Reverse returns a fresh range over the same span walked top-down.
func (r *Range) Reverse() *Range {
	return &Range{tuples: r.tuples, sorted: r.sorted, lo: r.lo, hi: r.hi, cur: r.hi, reverse: true}
}

// All materializes every tuple in the range, in index order,
// independent of the range's current cursor position.
func (r *Range) All() []Tuple {
	out := make([]Tuple, 0, r.Len())
	if r.reverse {
		for i := r.hi - 1; i >= r.lo; i-- {
			out = append(out, r.tuples[r.sorted[i]])
		}
	} else {
		for i := r.lo; i < r.hi; i++ {
			out = append(out, r.tuples[r.sorted[i]])
		}
	}
	return out
}
