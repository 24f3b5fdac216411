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

// Package record interns fixed-arity tuples of 32-bit cells as 32-bit
// record references, backing RAM's PACK value and LOOKUP operation.
package record

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dchest/siphash"
)

// Ref is a record reference: an identifier for a packed tuple. Ref(0)
// is reserved and denotes "absent" (the null reference).
type Ref int32

// Null is the reserved, never-packed record reference.
const Null Ref = 0

// siphash keys; fixed and unexported, since record refs are only ever
// compared for equality within one process, not across processes.
const k0, k1 uint64 = 0x5ea5ea5ea5ea5ea5, 0x1ce1ce1ce1ce1ce1

// arityStore packs and unpacks tuples of one fixed arity. Pack is
// deduplicating: two calls with equal cells return the same Ref.
type arityStore struct {
	mu      sync.Mutex
	tuples  [][]int32          // Ref(i+1) -> tuples[i]
	buckets map[uint64][]Ref   // hash(cells) -> candidate refs
}

// Store is a collection of per-arity record stores. Construct with
// New; the zero value has no arity map.
type Store struct {
	mu    sync.RWMutex
	arity map[int]*arityStore
}

// New returns an empty record store.
func New() *Store {
	return &Store{arity: make(map[int]*arityStore)}
}

func (s *Store) storeFor(arity int) *arityStore {
	s.mu.RLock()
	a, ok := s.arity[arity]
	s.mu.RUnlock()
	if ok {
		return a
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.arity[arity]; ok {
		return a
	}
	a = &arityStore{buckets: make(map[uint64][]Ref)}
	s.arity[arity] = a
	return a
}

func hashCells(cells []int32) uint64 {
	buf := make([]byte, 4*len(cells))
	for i, c := range cells {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(c))
	}
	return siphash.Hash(k0, k1, buf)
}

func equalCells(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Pack interns cells (a tuple of len(cells) == arity) and returns its
// reference. Packing the same cells twice (for the same arity) returns
// the same reference.
func (s *Store) Pack(cells []int32) Ref {
	arity := len(cells)
	a := s.storeFor(arity)
	h := hashCells(cells)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ref := range a.buckets[h] {
		if equalCells(a.tuples[ref-1], cells) {
			return ref
		}
	}
	stored := make([]int32, arity)
	copy(stored, cells)
	a.tuples = append(a.tuples, stored)
	ref := Ref(len(a.tuples))
	a.buckets[h] = append(a.buckets[h], ref)
	return ref
}

// Unpack returns the cells originally packed as ref at the given
// arity. It panics if ref was never produced by Pack at that arity:
// this is a programming error, not a user error.
func (s *Store) Unpack(ref Ref, arity int) []int32 {
	if ref == Null {
		panic(fmt.Sprintf("record: unpack of null reference at arity %d", arity))
	}
	s.mu.RLock()
	a, ok := s.arity[arity]
	s.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("record: no records of arity %d", arity))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	i := int(ref) - 1
	if i < 0 || i >= len(a.tuples) {
		panic(fmt.Sprintf("record: ref %d never packed at arity %d", ref, arity))
	}
	out := make([]int32, arity)
	copy(out, a.tuples[i])
	return out
}

// IsNull reports whether ref is the reserved null reference.
func IsNull(ref Ref) bool { return ref == Null }
