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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramdl/engine/ast"
	"github.com/ramdl/engine/env"
	"github.com/ramdl/engine/interp"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/symtab"
)

func decl(name string, arity int) ast.RelationDecl {
	cols := make([]relation.ColumnKind, arity)
	return ast.RelationDecl{Name: name, Arity: arity, Columns: cols}
}

// TestTransitiveClosure exercises the canonical recursive SCC: edge is
// a base relation, path is its transitive closure, derived via a
// semi-naive loop with one version (its recursive clause has a single
// recursive body literal).
func TestTransitiveClosure(t *testing.T) {
	prog := &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"edge": decl("edge", 2),
			"path": decl("path", 2),
		},
		SCCs: []ast.SCC{
			{Relations: []string{"edge"}, Recursive: false},
			{
				Relations: []string{"path"},
				Recursive: true,
				Clauses: []ast.Clause{
					{
						// path(x, y) :- edge(x, y).
						Head: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var("x"), ast.Var("y")}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "edge", Args: []ast.Term{ast.Var("x"), ast.Var("y")}}},
						},
					},
					{
						// path(x, z) :- path(x, y), edge(y, z).
						Head: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var("x"), ast.Var("z")}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var("x"), ast.Var("y")}}},
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "edge", Args: []ast.Term{ast.Var("y"), ast.Var("z")}}},
						},
					},
				},
			},
		},
	}

	symbols := symtab.New()
	result, err := Translate(prog, symbols)
	require.NoError(t, err)
	require.Contains(t, result.Descriptors, "edge")
	require.Contains(t, result.Descriptors, "path")
	require.Contains(t, result.Descriptors, "delta_path")
	require.Contains(t, result.Descriptors, "new_path")

	e := env.New()
	in := interp.New(e, result.Descriptors)
	require.True(t, in.Run(result.Program))

	for _, t2 := range []relation.Tuple{{1, 2}, {2, 3}, {3, 4}} {
		e.MustGet("edge").Insert(t2)
	}
	require.True(t, in.Run(result.Program))

	got := e.MustGet("path").All()
	want := map[[2]int32]bool{
		{1, 2}: true, {2, 3}: true, {3, 4}: true,
		{1, 3}: true, {2, 4}: true, {1, 4}: true,
	}
	require.Len(t, got, len(want))
	for _, tup := range got {
		require.True(t, want[[2]int32{tup[0], tup[1]}], "unexpected tuple %v", tup)
	}
}

// TestStratifiedNegation exercises NOT_EXISTS lowering: allowed(x)
// holds for every person not in banned.
func TestStratifiedNegation(t *testing.T) {
	prog := &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"person":  decl("person", 1),
			"banned":  decl("banned", 1),
			"allowed": decl("allowed", 1),
		},
		SCCs: []ast.SCC{
			{Relations: []string{"person"}, Recursive: false},
			{Relations: []string{"banned"}, Recursive: false},
			{
				Relations: []string{"allowed"},
				Recursive: false,
				Clauses: []ast.Clause{
					{
						Head: ast.Atom{Relation: "allowed", Args: []ast.Term{ast.Var("x")}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "person", Args: []ast.Term{ast.Var("x")}}},
							{Kind: ast.LNegated, Atom: ast.Atom{Relation: "banned", Args: []ast.Term{ast.Var("x")}}},
						},
					},
				},
			},
		},
	}

	symbols := symtab.New()
	result, err := Translate(prog, symbols)
	require.NoError(t, err)

	e := env.New()
	in := interp.New(e, result.Descriptors)
	require.True(t, in.Run(result.Program))

	for _, v := range []int32{1, 2, 3} {
		e.MustGet("person").Insert(relation.Tuple{v})
	}
	e.MustGet("banned").Insert(relation.Tuple{2})
	require.True(t, in.Run(result.Program))

	got := e.MustGet("allowed").All()
	require.Len(t, got, 2)
	seen := map[int32]bool{}
	for _, tup := range got {
		seen[tup[0]] = true
	}
	require.True(t, seen[1])
	require.True(t, seen[3])
	require.False(t, seen[2])
}

// TestCountAggregate exercises AGGREGATE lowering: total(n) holds the
// COUNT of distinct item values.
func TestCountAggregate(t *testing.T) {
	prog := &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"item":  decl("item", 1),
			"total": decl("total", 1),
		},
		SCCs: []ast.SCC{
			{Relations: []string{"item"}, Recursive: false},
			{
				Relations: []string{"total"},
				Recursive: false,
				Clauses: []ast.Clause{
					{
						Head: ast.Atom{Relation: "total", Args: []ast.Term{ast.Var("n")}},
						Body: []ast.Literal{
							{Kind: ast.LAggregate, Agg: &ast.Aggregation{
								ResultVar: "n",
								Fun:       ast.AggCount,
								Target:    ast.Var("_"),
								Body:      ast.Atom{Relation: "item", Args: []ast.Term{ast.Var("_")}},
							}},
						},
					},
				},
			},
		},
	}

	symbols := symtab.New()
	result, err := Translate(prog, symbols)
	require.NoError(t, err)

	e := env.New()
	in := interp.New(e, result.Descriptors)
	for _, v := range []int32{10, 20, 30} {
		e.Create(result.Descriptors["item"])
		e.MustGet("item").Insert(relation.Tuple{v})
	}
	require.True(t, in.Run(result.Program))

	got := e.MustGet("total").All()
	require.Len(t, got, 1)
	require.EqualValues(t, 3, got[0][0])
}

// TestUnsafeNegationRejected checks that a negated literal with no
// binding literal anywhere in the body to host its condition is
// rejected at translate time (here the negation's argument is a
// constant, so it isn't rejected for referencing an unbound variable).
func TestUnsafeNegationRejected(t *testing.T) {
	clause := ast.Clause{
		Head: ast.Atom{Relation: "r", Args: []ast.Term{ast.Num(1)}},
		Body: []ast.Literal{
			{Kind: ast.LNegated, Atom: ast.Atom{Relation: "s", Args: []ast.Term{ast.Num(1)}}},
		},
	}
	_, err := lowerClause(symtab.New(), clause, nil, "r", "")
	require.Error(t, err)
}

// TestRecordPackAndLookup exercises PACK (head term) and LOOKUP (body
// term): wrapped(pack(x, y)) :- coord(x, y); unwrapped(x, y) :-
// wrapped(p), p destructures to (x, y).
func TestRecordPackAndLookup(t *testing.T) {
	prog := &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"coord":     decl("coord", 2),
			"wrapped":   decl("wrapped", 1),
			"unwrapped": decl("unwrapped", 2),
		},
		SCCs: []ast.SCC{
			{Relations: []string{"coord"}, Recursive: false},
			{
				Relations: []string{"wrapped"},
				Recursive: false,
				Clauses: []ast.Clause{
					{
						Head: ast.Atom{Relation: "wrapped", Args: []ast.Term{ast.Rec(ast.Var("x"), ast.Var("y"))}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "coord", Args: []ast.Term{ast.Var("x"), ast.Var("y")}}},
						},
					},
				},
			},
			{
				Relations: []string{"unwrapped"},
				Recursive: false,
				Clauses: []ast.Clause{
					{
						Head: ast.Atom{Relation: "unwrapped", Args: []ast.Term{ast.Var("x"), ast.Var("y")}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "wrapped", Args: []ast.Term{ast.Rec(ast.Var("x"), ast.Var("y"))}}},
						},
					},
				},
			},
		},
	}

	symbols := symtab.New()
	result, err := Translate(prog, symbols)
	require.NoError(t, err)

	e := env.New()
	in := interp.New(e, result.Descriptors)
	e.Create(result.Descriptors["coord"])
	e.MustGet("coord").Insert(relation.Tuple{3, 4})
	require.True(t, in.Run(result.Program))

	wrapped := e.MustGet("wrapped").All()
	require.Len(t, wrapped, 1)
	require.NotZero(t, wrapped[0][0])

	unwrapped := e.MustGet("unwrapped").All()
	require.Len(t, unwrapped, 1)
	require.EqualValues(t, relation.Tuple{3, 4}, unwrapped[0])
}

// TestUnstratifiableNegationRejected checks that negating a peer
// relation inside the same recursive SCC is rejected.
func TestUnstratifiableNegationRejected(t *testing.T) {
	prog := &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"p": decl("p", 1),
		},
		SCCs: []ast.SCC{
			{
				Relations: []string{"p"},
				Recursive: true,
				Clauses: []ast.Clause{
					{
						Head: ast.Atom{Relation: "p", Args: []ast.Term{ast.Var("x")}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "p", Args: []ast.Term{ast.Var("x")}}},
							{Kind: ast.LNegated, Atom: ast.Atom{Relation: "p", Args: []ast.Term{ast.Var("x")}}},
						},
					},
				},
			},
		},
	}
	_, err := Translate(prog, symtab.New())
	require.Error(t, err)
}

// TestPureExistenceSetForFullyGroundAtom checks that a positive
// literal whose every argument is already ground (here both a
// preceding binding and a literal constant) lowers to a Scan with
// PureExistence set, while one that introduces a fresh variable does
// not.
func TestPureExistenceSetForFullyGroundAtom(t *testing.T) {
	// ok(x) :- item(x), flag(x, 1).
	clause := ast.Clause{
		Head: ast.Atom{Relation: "ok", Args: []ast.Term{ast.Var("x")}},
		Body: []ast.Literal{
			{Kind: ast.LPositive, Atom: ast.Atom{Relation: "item", Args: []ast.Term{ast.Var("x")}}},
			{Kind: ast.LPositive, Atom: ast.Atom{Relation: "flag", Args: []ast.Term{ast.Var("x"), ast.Num(1)}}},
		},
	}
	op, err := lowerClause(symtab.New(), clause, nil, "ok", "")
	require.NoError(t, err)

	outer, ok := op.(ram.Scan)
	require.True(t, ok)
	require.False(t, outer.PureExistence, "item(x) introduces a fresh binding, not a pure existence check")

	inner, ok := outer.Body.(ram.Scan)
	require.True(t, ok)
	require.True(t, inner.PureExistence, "flag(x, 1) is fully keyed by the preceding binding and a constant")
}

// TestAutoIndexPlanCoversObservedMasks checks that translating the
// transitive-closure program (which scans edge on a full wildcard and
// again, keyed on its first column, inside the recursive clause)
// yields a non-empty index plan and report for edge.
func TestAutoIndexPlanCoversObservedMasks(t *testing.T) {
	prog := &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"edge": decl("edge", 2),
			"path": decl("path", 2),
		},
		SCCs: []ast.SCC{
			{Relations: []string{"edge"}, Recursive: false},
			{
				Relations: []string{"path"},
				Recursive: true,
				Clauses: []ast.Clause{
					{
						Head: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var("x"), ast.Var("y")}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "edge", Args: []ast.Term{ast.Var("x"), ast.Var("y")}}},
						},
					},
					{
						Head: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var("x"), ast.Var("z")}},
						Body: []ast.Literal{
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var("x"), ast.Var("y")}}},
							{Kind: ast.LPositive, Atom: ast.Atom{Relation: "edge", Args: []ast.Term{ast.Var("y"), ast.Var("z")}}},
						},
					},
				},
			},
		},
	}

	result, err := Translate(prog, symtab.New())
	require.NoError(t, err)
	require.Contains(t, result.IndexOrders, "edge")
	require.NotEmpty(t, result.IndexOrders["edge"])
	require.Contains(t, result.IndexReport, "edge:")
}
