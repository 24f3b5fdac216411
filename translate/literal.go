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
)

// relFor resolves the relation a positive literal scans against: the
// literal's own relation, unless a semi-naive version overrides it to
// scan a delta relation instead (scc.go).
type relFor func(literalIndex int, atom ast.Atom) string

// lowerPositiveAtomStep builds the Scan for body literal i and nests
// continuation's result (literals i+1.. and the head) as its Body.
// When every argument is already ground — a prior binding or a
// constant, never a fresh variable — the Scan is marked
// PureExistence, since its pattern fully keys a set-semantics
// relation and can match at most one tuple.
func lowerPositiveAtomStep(ctx *context, atom ast.Atom, scanRel string, rest func(*context) (ram.Operation, error)) (ram.Operation, error) {
	level := ctx.next()
	arity := len(atom.Args)
	pattern := make(ram.Pattern, arity)
	var cond ram.Condition
	pureExistence := arity > 0
	type lookupJob struct {
		col   int
		terms []ast.Term
	}
	var lookups []lookupJob

	for i, term := range atom.Args {
		switch term.Kind {
		case ast.TVar:
			if b, ok := ctx.bindings[term.Var]; ok {
				if b.level == level {
					cond = andCond(cond, eqCond(level, i, level, b.col))
				} else {
					pattern[i] = ram.ElementAccess{Level: int(b.level), Column: b.col}
				}
			} else {
				// a variable appearing here for the first time means this
				// atom's pattern isn't fully keyed: the scan binds a fresh
				// value, so it cannot be a pure existence check.
				ctx.bindings[term.Var] = binding{level: level, col: i}
				pureExistence = false
			}
		case ast.TNum:
			pattern[i] = ram.Number{K: term.Num}
		case ast.TSym:
			// symbol interning happens once per clause build via the
			// shared table handed down through ctx's caller (symtab.go).
			id := ctx.symbols.Intern(term.Sym)
			pattern[i] = ram.Number{K: int32(id)}
		case ast.TRec:
			// the record column is unkeyed and its sub-terms are bound
			// by a Lookup below this scan.
			lookups = append(lookups, lookupJob{col: i, terms: term.Rec})
			pureExistence = false
		default:
			return nil, fmt.Errorf("atom %s: unknown term kind %v at position %d", atom.Relation, term.Kind, i)
		}
	}

	build := rest
	for _, lj := range lookups {
		lj := lj
		prev := build
		build = func(c *context) (ram.Operation, error) {
			return lowerRecordTerms(c, level, lj.col, lj.terms, prev)
		}
	}

	body, err := build(ctx)
	if err != nil {
		return nil, err
	}
	cond = ctx.consumePending(cond)
	return ram.Scan{Rel: scanRel, Pattern: pattern, LevelNum: int(level), PureExistence: pureExistence, Cond: cond, Body: body}, nil
}

// lowerRecordTerms lowers a TRec term occupying (refLevel, refPos) into
// a Lookup that unpacks it into a fresh level, recursing into nested
// TRec sub-terms.
func lowerRecordTerms(ctx *context, refLevel scope, refPos int, terms []ast.Term, rest func(*context) (ram.Operation, error)) (ram.Operation, error) {
	level := ctx.next()
	var cond ram.Condition
	type lookupJob struct {
		col   int
		terms []ast.Term
	}
	var lookups []lookupJob

	for i, term := range terms {
		switch term.Kind {
		case ast.TVar:
			if b, ok := ctx.bindings[term.Var]; ok {
				cond = andCond(cond, eqCond(level, i, b.level, b.col))
			} else {
				ctx.bindings[term.Var] = binding{level: level, col: i}
			}
		case ast.TNum:
			cond = andCond(cond, ram.BinaryRel{Op: ram.RelEQ, L: ram.ElementAccess{Level: int(level), Column: i}, R: ram.Number{K: term.Num}})
		case ast.TSym:
			id := ctx.symbols.Intern(term.Sym)
			cond = andCond(cond, ram.BinaryRel{Op: ram.RelEQ, L: ram.ElementAccess{Level: int(level), Column: i}, R: ram.Number{K: int32(id)}})
		case ast.TRec:
			lookups = append(lookups, lookupJob{col: i, terms: term.Rec})
		default:
			return nil, fmt.Errorf("record term: unknown term kind %v at position %d", term.Kind, i)
		}
	}

	build := rest
	for _, lj := range lookups {
		lj := lj
		prev := build
		build = func(c *context) (ram.Operation, error) {
			return lowerRecordTerms(c, level, lj.col, lj.terms, prev)
		}
	}

	body, err := build(ctx)
	if err != nil {
		return nil, err
	}
	cond = ctx.consumePending(cond)
	return ram.Lookup{RefLevel: int(refLevel), RefPos: refPos, Arity: len(terms), LevelNum: int(level), Cond: cond, Body: body}, nil
}

// lowerNegation builds the NOT_EXISTS condition for a negated literal.
// Every variable argument must already be bound ("fully
// grounded arguments"); record terms are not supported inside negation.
func lowerNegation(ctx *context, atom ast.Atom) (ram.Condition, error) {
	pattern := make(ram.Pattern, len(atom.Args))
	for i, term := range atom.Args {
		switch term.Kind {
		case ast.TVar:
			b, ok := ctx.bindings[term.Var]
			if !ok {
				return nil, fmt.Errorf("negated literal %s: variable %q is not bound by a preceding literal", atom.Relation, term.Var)
			}
			pattern[i] = ram.ElementAccess{Level: int(b.level), Column: b.col}
		case ast.TNum:
			pattern[i] = ram.Number{K: term.Num}
		case ast.TSym:
			id := ctx.symbols.Intern(term.Sym)
			pattern[i] = ram.Number{K: int32(id)}
		default:
			return nil, fmt.Errorf("negated literal %s: record terms are not supported", atom.Relation)
		}
	}
	return ram.NotExists{Rel: atom.Relation, Pattern: pattern}, nil
}

// lowerAggregateStep builds the Aggregate for an aggregation literal
// and nests rest's result as its Body. ResultVar is bound in the outer
// context (at column 0 of the new level) only after the aggregate's
// own pattern is built, so it cannot leak into its own scan.
func lowerAggregateStep(ctx *context, agg ast.Aggregation, rest func(*context) (ram.Operation, error)) (ram.Operation, error) {
	level := ctx.next()
	arity := len(agg.Body.Args)
	pattern := make(ram.Pattern, arity)
	var cond ram.Condition
	local := make(map[string]int)

	for i, term := range agg.Body.Args {
		switch term.Kind {
		case ast.TVar:
			if b, ok := ctx.bindings[term.Var]; ok {
				pattern[i] = ram.ElementAccess{Level: int(b.level), Column: b.col}
			} else if col, ok := local[term.Var]; ok {
				cond = andCond(cond, eqCond(level, i, level, col))
			} else {
				local[term.Var] = i
			}
		case ast.TNum:
			pattern[i] = ram.Number{K: term.Num}
		case ast.TSym:
			id := ctx.symbols.Intern(term.Sym)
			pattern[i] = ram.Number{K: int32(id)}
		default:
			return nil, fmt.Errorf("aggregate over %s: record terms are not supported", agg.Body.Relation)
		}
	}

	var target ram.Value
	if agg.Fun == ast.AggCount {
		// COUNT never reads Target.
		target = ram.Number{K: 0}
	} else {
		v, err := resolveAggTarget(ctx, agg.Target, level, local)
		if err != nil {
			return nil, err
		}
		target = v
	}

	ctx.bindings[agg.ResultVar] = binding{level: level, col: 0}
	body, err := rest(ctx)
	if err != nil {
		return nil, err
	}
	cond = ctx.consumePending(cond)
	return ram.Aggregate{
		Rel:      agg.Body.Relation,
		Pattern:  pattern,
		Fun:      ram.AggFunc(agg.Fun),
		Target:   target,
		LevelNum: int(level),
		Cond:     cond,
		Body:     body,
	}, nil
}

func resolveAggTarget(ctx *context, term ast.Term, level scope, local map[string]int) (ram.Value, error) {
	switch term.Kind {
	case ast.TVar:
		if col, ok := local[term.Var]; ok {
			return ram.ElementAccess{Level: int(level), Column: col}, nil
		}
		if b, ok := ctx.bindings[term.Var]; ok {
			return ram.ElementAccess{Level: int(b.level), Column: b.col}, nil
		}
		return nil, fmt.Errorf("aggregate target references unbound variable %q", term.Var)
	case ast.TNum:
		return ram.Number{K: term.Num}, nil
	case ast.TSym:
		id := ctx.symbols.Intern(term.Sym)
		return ram.Number{K: int32(id)}, nil
	default:
		return nil, fmt.Errorf("aggregate target: unsupported term kind %v", term.Kind)
	}
}

// lowerHeadTerm resolves a head argument to a Value: a bound variable,
// a literal, or a PACK of recursively lowered sub-terms.
func lowerHeadTerm(ctx *context, term ast.Term) (ram.Value, error) {
	switch term.Kind {
	case ast.TVar:
		b, ok := ctx.bindings[term.Var]
		if !ok {
			return nil, fmt.Errorf("head references unbound variable %q", term.Var)
		}
		return ram.ElementAccess{Level: int(b.level), Column: b.col}, nil
	case ast.TNum:
		return ram.Number{K: term.Num}, nil
	case ast.TSym:
		id := ctx.symbols.Intern(term.Sym)
		return ram.Number{K: int32(id)}, nil
	case ast.TRec:
		vals := make([]ram.Value, len(term.Rec))
		for i, sub := range term.Rec {
			v, err := lowerHeadTerm(ctx, sub)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return ram.Pack{Values: vals}, nil
	default:
		return nil, fmt.Errorf("head: unknown term kind %v", term.Kind)
	}
}

func lowerClauseHead(ctx *context, head ast.Atom, projectInto, filterRel string) (ram.Operation, error) {
	values := make([]ram.Value, len(head.Args))
	for i, term := range head.Args {
		v, err := lowerHeadTerm(ctx, term)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return ram.Project{Rel: projectInto, Values: values, FilterRel: filterRel}, nil
}
