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

package main

import (
	"github.com/ramdl/engine/ast"
	"github.com/ramdl/engine/relation"
)

// transitiveClosureProgram builds a fixture AST program standing in
// for what a surface-language front end would hand the translator:
// edge(x, y) facts plus the standard recursive transitive-closure
// rule path(x, y) :- edge(x, y). path(x, z) :- path(x, y), edge(y, z).
//
// edge is a non-recursive, single-relation SCC; path is a recursive
// SCC depending on edge.
func transitiveClosureProgram() *ast.Program {
	cols := func(n int) []relation.ColumnKind { return make([]relation.ColumnKind, n) }
	return &ast.Program{
		Relations: map[string]ast.RelationDecl{
			"edge": {Name: "edge", Arity: 2, Columns: cols(2), Input: true},
			"path": {Name: "path", Arity: 2, Columns: cols(2), Output: true},
		},
		SCCs: []ast.SCC{
			{
				Relations: []string{"edge"},
				Recursive: false,
			},
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
