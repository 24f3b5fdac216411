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

package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramdl/engine/ast"
	"github.com/ramdl/engine/config"
	"github.com/ramdl/engine/engine"
	"github.com/ramdl/engine/relation"
)

func cycleProgram() *ast.Program {
	cols := func(n int) []relation.ColumnKind { return make([]relation.ColumnKind, n) }
	return &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"edge": {Name: "edge", Arity: 2, Columns: cols(2)},
			"path": {Name: "path", Arity: 2, Columns: cols(2)},
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
}

// TestCycleReachabilityTerminates drives a 6-node cycle (a
// termination property): semi-naive evaluation over a cyclic graph
// must still reach fixpoint and stop, yielding every pair reachable
// within the cycle (36 pairs for a full cycle's transitive closure,
// including self-pairs since every node can reach itself by going all
// the way around).
func TestCycleReachabilityTerminates(t *testing.T) {
	en, err := engine.New(cycleProgram(), config.Default(), nil, nil)
	require.NoError(t, err)
	defer en.Close()

	_, ok := en.Env.Get("edge")
	require.False(t, ok, "non-input relations are created by Run, not New")

	ok, err = en.Run()
	require.NoError(t, err)
	require.True(t, ok)

	edge := en.Env.MustGet("edge")
	for i := int32(0); i < 6; i++ {
		edge.Insert(relation.Tuple{i, (i + 1) % 6})
	}

	ok, err = en.Run()
	require.NoError(t, err)
	require.True(t, ok)

	got, err := en.Relation("path")
	require.NoError(t, err)
	require.Len(t, got, 36)
}

func TestRelationUnknownNameErrors(t *testing.T) {
	en, err := engine.New(cycleProgram(), config.Default(), nil, nil)
	require.NoError(t, err)
	defer en.Close()
	_, err = en.Relation("nonexistent")
	require.Error(t, err)
}

// TestAutoIndexPlanAppliedOnCreate checks that the index orders
// computed by translate.Translate are installed on a relation as soon
// as it is created, and that the chosen-index report reaches the
// diagnostic sink.
func TestAutoIndexPlanAppliedOnCreate(t *testing.T) {
	en, err := engine.New(cycleProgram(), config.Default(), nil, nil)
	require.NoError(t, err)
	defer en.Close()

	require.Contains(t, en.Program.IndexOrders, "edge")
	require.NotEmpty(t, en.Program.IndexOrders["edge"])
	require.Contains(t, en.Program.IndexReport, "edge:")

	ok, err := en.Run()
	require.NoError(t, err)
	require.True(t, ok)

	edge := en.Env.MustGet("edge")
	require.Equal(t, en.Program.IndexOrders["edge"], edge.IndexOrders())
}

func TestProfileConfigAttachesProfiler(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Profile = true
	en, err := engine.New(cycleProgram(), cfg, nil, nil)
	require.NoError(t, err)
	defer en.Close()
	require.NotNil(t, en.Profiler)
	_, err = en.Run()
	require.NoError(t, err)
}
