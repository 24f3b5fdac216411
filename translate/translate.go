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
	"sort"

	"github.com/ramdl/engine/ast"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/symtab"
)

// Result is a translated program plus the descriptor registry it
// needs: every declared relation, plus the delta_R/new_R relations
// synthesized for semi-naive evaluation of recursive SCCs.
type Result struct {
	Program     ram.Statement
	Descriptors map[string]relation.Descriptor

	// IndexOrders is the auto-indexer's chosen column ordering set per
	// relation, derived by statically scanning Program for every
	// search mask used against it. IndexReport is the matching
	// human-readable summary, meant to be handed to diag.Sink.
	IndexOrders map[string][][]int
	IndexReport string
}

// Translate lowers a whole post-optimisation program to
// a RAM statement tree. symbols is the symbol table shared with the
// eventual runtime environment: every TSym term interned here must
// resolve identically when the program later runs against real data.
func Translate(prog *ast.Program, symbols *symtab.Table) (*Result, error) {
	descriptors := make(map[string]relation.Descriptor, len(prog.Relations))
	names := make([]string, 0, len(prog.Relations))
	for name, decl := range prog.Relations {
		descriptors[name] = relation.Descriptor{
			Name:       decl.Name,
			Arity:      decl.Arity,
			Columns:    decl.Columns,
			Input:      decl.Input,
			Output:     decl.Output,
			Structural: decl.Structural,
			Attributes: decl.Attributes,
		}
		names = append(names, name)
	}
	sort.Strings(names)

	stmts := make([]ram.Statement, 0, len(names)+len(prog.SCCs))
	for _, name := range names {
		stmts = append(stmts, ram.Create{Rel: name})
	}
	for _, scc := range prog.SCCs {
		stmt, err := lowerSCC(symbols, scc, descriptors)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	program := ram.Sequence{Stmts: stmts}
	orders, report := planIndexes(program, descriptors)

	return &Result{
		Program:     program,
		Descriptors: descriptors,
		IndexOrders: orders,
		IndexReport: report,
	}, nil
}
