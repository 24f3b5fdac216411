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

package translate

import (
	"fmt"

	"github.com/ramdl/engine/ast"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/symtab"
)

// lowerClause lowers one clause's body into a nested Operation tree
// terminating in a Project into projectInto, with filterRel attached
// for semi-naive dedup (empty string for plain evaluation). relName
// picks, for each positive literal, which relation it actually scans
// against (its own name, or a delta relation for a semi-naive version).
func lowerClause(symbols *symtab.Table, clause ast.Clause, relName relFor, projectInto, filterRel string) (ram.Operation, error) {
	ctx := newContext(symbols)

	var build func(i int) (ram.Operation, error)
	build = func(i int) (ram.Operation, error) {
		if i == len(clause.Body) {
			return lowerClauseHead(ctx, clause.Head, projectInto, filterRel)
		}
		lit := clause.Body[i]
		rest := func(c *context) (ram.Operation, error) { return build(i + 1) }
		switch lit.Kind {
		case ast.LPositive:
			rel := lit.Atom.Relation
			if relName != nil {
				rel = relName(i, lit.Atom)
			}
			return lowerPositiveAtomStep(ctx, lit.Atom, rel, rest)
		case ast.LNegated:
			cond, err := lowerNegation(ctx, lit.Atom)
			if err != nil {
				return nil, err
			}
			ctx.addPending(cond)
			return build(i + 1)
		case ast.LAggregate:
			return lowerAggregateStep(ctx, *lit.Agg, rest)
		default:
			return nil, fmt.Errorf("clause %s: unknown literal kind %v", clause.Head.Relation, lit.Kind)
		}
	}

	op, err := build(0)
	if err != nil {
		return nil, err
	}
	if ctx.pendingCond != nil {
		return nil, fmt.Errorf("clause %s: negated or comparison literal has no positive literal to bind its condition to (unsafe rule)", clause.Head.Relation)
	}
	return op, nil
}
