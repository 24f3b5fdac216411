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
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/symtab"
)

func deltaName(rel string) string { return "delta_" + rel }
func newName(rel string) string   { return "new_" + rel }

// lowerSCC translates one dependency-graph SCC. A
// non-recursive SCC becomes a flat SEQUENCE of Inserts; a recursive one
// becomes an initialisation + semi-naive LOOP + cleanup, with delta_R
// and new_R descriptors synthesized and registered into descriptors.
func lowerSCC(symbols *symtab.Table, scc ast.SCC, descriptors map[string]relation.Descriptor) (ram.Statement, error) {
	relSet := make(map[string]bool, len(scc.Relations))
	for _, r := range scc.Relations {
		relSet[r] = true
	}

	if !scc.Recursive {
		var stmts []ram.Statement
		for _, clause := range scc.Clauses {
			op, err := lowerClause(symbols, clause, nil, clause.Head.Relation, "")
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, ram.Insert{Op: op})
		}
		return ram.Sequence{Stmts: stmts}, nil
	}

	// Classify each clause: does any literal depend on a relation in
	// this SCC? A positive dependency makes the clause recursive
	// (semi-naive versioning applies); a negated dependency on a
	// not-yet-fixed peer relation is unstratifiable and rejected.
	var initClauses, recClauses []ast.Clause
	for _, clause := range scc.Clauses {
		recursive := false
		for _, lit := range clause.Body {
			switch lit.Kind {
			case ast.LPositive:
				if relSet[lit.Atom.Relation] {
					recursive = true
				}
			case ast.LNegated:
				if relSet[lit.Atom.Relation] {
					return nil, fmt.Errorf("clause %s: negation over %s is not stratifiable (both are members of the same recursive SCC)", clause.Head.Relation, lit.Atom.Relation)
				}
			case ast.LAggregate:
				if relSet[lit.Agg.Body.Relation] {
					recursive = true
				}
			}
		}
		if recursive {
			recClauses = append(recClauses, clause)
		} else {
			initClauses = append(initClauses, clause)
		}
	}

	for _, r := range scc.Relations {
		base := descriptors[r]
		delta := base
		delta.Name = deltaName(r)
		delta.Temporary = true
		delta.Computed = true
		newr := base
		newr.Name = newName(r)
		newr.Temporary = true
		newr.Computed = true
		descriptors[deltaName(r)] = delta
		descriptors[newName(r)] = newr
	}

	var stmts []ram.Statement
	for _, r := range scc.Relations {
		stmts = append(stmts, ram.Create{Rel: deltaName(r)}, ram.Create{Rel: newName(r)})
	}

	for _, clause := range initClauses {
		op, err := lowerClause(symbols, clause, nil, clause.Head.Relation, "")
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, ram.Insert{Op: op})
	}
	for _, r := range scc.Relations {
		stmts = append(stmts, ram.Merge{Dst: deltaName(r), Src: r})
	}

	var versions []ram.Statement
	for _, clause := range recClauses {
		versioned := false
		for idx, lit := range clause.Body {
			if lit.Kind != ast.LPositive || !relSet[lit.Atom.Relation] {
				continue
			}
			version := idx
			scan := func(i int, atom ast.Atom) string {
				if i == version {
					return deltaName(atom.Relation)
				}
				return atom.Relation
			}
			op, err := lowerClause(symbols, clause, scan, newName(clause.Head.Relation), clause.Head.Relation)
			if err != nil {
				return nil, err
			}
			versions = append(versions, ram.Insert{Op: op})
			versioned = true
		}
		if !versioned {
			// only an aggregate reaches into the SCC: evaluate the clause
			// against the full relations on every iteration.
			op, err := lowerClause(symbols, clause, nil, newName(clause.Head.Relation), clause.Head.Relation)
			if err != nil {
				return nil, err
			}
			versions = append(versions, ram.Insert{Op: op})
		}
	}

	var loopBody []ram.Statement
	switch len(versions) {
	case 0:
		// a recursive SCC whose only clauses turned out non-recursive
		// can't happen (Recursive would be false), but guard anyway.
	case 1:
		loopBody = append(loopBody, versions[0])
	default:
		loopBody = append(loopBody, ram.Parallel{Stmts: versions})
	}
	for _, r := range scc.Relations {
		loopBody = append(loopBody,
			ram.Merge{Dst: r, Src: newName(r)},
			ram.Swap{A: deltaName(r), B: newName(r)},
			ram.Clear{Rel: newName(r)},
		)
	}
	var exitCond ram.Condition
	for _, r := range scc.Relations {
		exitCond = andCond(exitCond, ram.Empty{Rel: deltaName(r)})
	}
	loopBody = append(loopBody, ram.Exit{Cond: exitCond})
	stmts = append(stmts, ram.Loop{Body: ram.Sequence{Stmts: loopBody}})

	for _, r := range scc.Relations {
		stmts = append(stmts, ram.Drop{Rel: deltaName(r)}, ram.Drop{Rel: newName(r)})
	}
	return ram.Sequence{Stmts: stmts}, nil
}
