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

// Package env holds the relation environment: the
// mapping from relation name to relation, plus the symbol table,
// record store, and the monotonic counter AUTOINC reads. Interp,
// translate and engine all operate against one *Env.
package env

import (
	"sync"
	"sync/atomic"

	"github.com/ramdl/engine/record"
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/symtab"
)

// Env is the relation environment. The zero value is not ready to
// use; construct with New.
type Env struct {
	Symbols *symtab.Table
	Records *record.Store

	mu        sync.RWMutex
	relations map[string]*relation.Relation
	counter   int64 // AUTOINC source
}

// New returns an empty environment.
func New() *Env {
	return &Env{
		Symbols:   symtab.New(),
		Records:   record.New(),
		relations: make(map[string]*relation.Relation),
	}
}

// Create registers a new, empty relation under desc.Name. It is a
// no-op if a relation with that name already exists (CREATE is
// idempotent within one run, matching re-entrant SCC initialization).
func (e *Env) Create(desc relation.Descriptor) *relation.Relation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.relations[desc.Name]; ok {
		return r
	}
	r := relation.New(desc)
	e.relations[desc.Name] = r
	return r
}

// Get returns the relation registered under name, or (nil, false).
func (e *Env) Get(name string) (*relation.Relation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.relations[name]
	return r, ok
}

// MustGet returns the relation registered under name, or panics with
// a plain string message: referencing an undeclared
// relation is a translator bug, not a user error.
func (e *Env) MustGet(name string) *relation.Relation {
	r, ok := e.Get(name)
	if !ok {
		panic("env: reference to undeclared relation " + name)
	}
	return r
}

// Drop removes a relation from the environment.
func (e *Env) Drop(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.relations, name)
}

// Swap exchanges the contents of two same-arity relations in O(1) by
// swapping their map entries (the Relation objects themselves are
// untouched, so a *Relation pointer a caller captured before the swap
// keeps its old contents, which are now registered under the other
// name — callers must re-Get after Swap).
func (e *Env) Swap(a, b string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ra, ok := e.relations[a]
	if !ok {
		return errNoSuchRelation(a)
	}
	rb, ok := e.relations[b]
	if !ok {
		return errNoSuchRelation(b)
	}
	if ra.Arity() != rb.Arity() {
		panic("env: swap of mismatched arities between " + a + " and " + b)
	}
	e.relations[a], e.relations[b] = rb, ra
	return nil
}

// Names returns every registered relation name, for diagnostics.
func (e *Env) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.relations))
	for n := range e.relations {
		out = append(out, n)
	}
	return out
}

// NextAutoinc returns a distinct value on every call within this
// environment's lifetime for AUTOINC: the
// pre-increment value of a monotonic counter.
func (e *Env) NextAutoinc() int32 {
	return int32(atomic.AddInt64(&e.counter, 1) - 1)
}

type errNoSuchRelation string

func (e errNoSuchRelation) Error() string { return "env: no such relation: " + string(e) }
