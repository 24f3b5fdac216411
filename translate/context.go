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

// Package translate lowers a post-optimisation AST into
// a RAM statement program: a non-recursive SEQUENCE for leaf
// relations, a semi-naive LOOP with delta/new relations for recursive
// SCCs.
package translate

import (
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/symtab"
)

// scope is a search nesting level: the depth a Scan/Lookup/Aggregate
// binds at construction, and what ctx.bindings records as a
// variable's home level. A named type rather than a bare int, so a
// level can't be silently passed where a column index or an arity is
// expected at a call site.
type scope int

// binding records where a clause variable was first bound: the search
// level that introduced it and its column within that level's tuple.
type binding struct {
	level scope
	col   int
}

// context threads variable bindings, the next free search level and a
// pending hoisted condition through one clause's lowering. pendingCond
// accumulates conditions from negated literals that don't themselves
// bind a search level (NOT_EXISTS has no Operation of its own); it is
// consumed by the first Scan/Lookup/Aggregate that finishes building
// after the condition was added, which is the clause's innermost such
// operation.
type context struct {
	bindings    map[string]binding
	level       scope
	pendingCond ram.Condition
	symbols     *symtab.Table
}

func newContext(symbols *symtab.Table) *context {
	return &context{bindings: make(map[string]binding), symbols: symbols}
}

// next returns the current scope and advances ctx past it.
func (c *context) next() scope {
	s := c.level
	c.level++
	return s
}

// consumePending merges any pending hoisted condition into own (which
// may be nil) and clears it.
func (c *context) consumePending(own ram.Condition) ram.Condition {
	if c.pendingCond == nil {
		return own
	}
	merged := andCond(own, c.pendingCond)
	c.pendingCond = nil
	return merged
}

func (c *context) addPending(cond ram.Condition) {
	c.pendingCond = andCond(c.pendingCond, cond)
}

func andCond(l, r ram.Condition) ram.Condition {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	return ram.And{L: l, R: r}
}

func eqCond(level1 scope, col1 int, level2 scope, col2 int) ram.Condition {
	return ram.BinaryRel{
		Op: ram.RelEQ,
		L:  ram.ElementAccess{Level: int(level1), Column: col1},
		R:  ram.ElementAccess{Level: int(level2), Column: col2},
	}
}
