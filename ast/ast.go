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

// Package ast defines the minimal, stable shape of the
// post-optimisation AST the translator consumes:
// clauses already grouped by dependency-graph SCC, atoms, terms and
// aggregate/negation markers. It deliberately does not implement
// parsing or any AST-level pass (alias resolution, aggregation
// materialisation, empty-relation elimination, semantic checking) —
// those remain the surface language's job.
package ast

import "github.com/ramdl/engine/relation"

// TermKind tags the concrete shape of a clause argument.
type TermKind uint8

const (
	// TVar is a variable reference, bound at its first occurrence in a
	// clause's body (or the head, for facts) and reused thereafter.
	TVar TermKind = iota
	// TNum is an integer literal.
	TNum
	// TSym is a string literal (interned into a symtab.ID by the
	// translator).
	TSym
	// TRec is a nested record term: a fixed tuple of sub-terms that
	// lowers to PACK (when it appears in the head) or LOOKUP (when it
	// appears in the body, consuming a bound record reference).
	TRec
)

// Term is one argument of an atom.
type Term struct {
	Kind TermKind
	Var  string
	Num  int32
	Sym  string
	Rec  []Term
}

// Var returns a variable term.
func Var(name string) Term { return Term{Kind: TVar, Var: name} }

// Num returns an integer literal term.
func Num(v int32) Term { return Term{Kind: TNum, Num: v} }

// Sym returns a string literal term.
func Sym(v string) Term { return Term{Kind: TSym, Sym: v} }

// Rec returns a nested record term.
func Rec(terms ...Term) Term { return Term{Kind: TRec, Rec: terms} }

// Atom is a relation name applied to a list of terms, e.g. edge(x, y).
type Atom struct {
	Relation string
	Args     []Term
}

// AggFunc identifies an aggregate body literal's reducer. Values are
// ordered to match ram.AggFunc so the translator's lowering is a
// direct numeric cast.
type AggFunc uint8

const (
	AggMin AggFunc = iota
	AggMax
	AggCount
	AggSum
)

// LiteralKind tags the concrete shape of a body literal.
type LiteralKind uint8

const (
	// LPositive is an ordinary positive atom.
	LPositive LiteralKind = iota
	// LNegated is a negated atom over fully grounded arguments,
	// lowering to NOT_EXISTS under stratified negation.
	LNegated
	// LAggregate is an aggregation body literal: `n = fun : { atom }`.
	LAggregate
)

// Aggregation is an aggregate body literal: ResultVar = Fun over
// Target, where Target is evaluated once per tuple of Body matching
// the already-bound columns of the enclosing clause.
type Aggregation struct {
	ResultVar string
	Fun       AggFunc
	Target    Term
	Body      Atom
}

// Literal is one body element of a clause.
type Literal struct {
	Kind LiteralKind
	Atom Atom         // for LPositive, LNegated
	Agg  *Aggregation // for LAggregate
}

// Clause is `Head :- Body`, i.e. a single Horn rule (or, with an empty
// Body, a derived fact).
type Clause struct {
	Head Atom
	Body []Literal
}

// RelationDecl is a relation's static declaration.
type RelationDecl struct {
	Name       string
	Arity      int
	Columns    []relation.ColumnKind
	Input      bool
	Output     bool
	Structural relation.StructuralKind
	Attributes []string
}

// SCC is one strongly connected component of the rule dependency
// graph: a maximal set of mutually recursive relations and every
// clause whose head relation belongs to it. Recursive is false only
// for a single relation with no back-edge to itself or peers.
type SCC struct {
	Relations []string
	Recursive bool
	Clauses   []Clause
}

// Program is a whole post-optimisation AST: every relation
// declaration, plus SCCs in topological dependency order.
type Program struct {
	Relations map[string]RelationDecl
	SCCs      []SCC
}
