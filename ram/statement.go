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

package ram

// Statement is a node of the top-level RAM program. Every statement
// evaluates to a success flag: a false return
// short-circuits the enclosing Sequence.
type Statement interface {
	Kind() StatementKind
}

// Create declares a relation; Clear empties it; Drop removes it from
// the environment.
type Create struct{ Rel string }
type Clear struct{ Rel string }
type Drop struct{ Rel string }

func (Create) Kind() StatementKind { return KCreate }
func (Clear) Kind() StatementKind  { return KClear }
func (Drop) Kind() StatementKind   { return KDrop }

// Fact inserts one constant tuple into Rel.
type Fact struct {
	Rel    string
	Values []int32
}

func (Fact) Kind() StatementKind { return KFact }

// IODirectives is a string-to-string mapping passed to the external
// I/O collaborator behind Load/Store.
type IODirectives map[string]string

// Load and Store delegate to the external I/O subsystem; the core has
// no knowledge of file formats.
type Load struct {
	Rel        string
	SymbolMask uint64
	Directives IODirectives
}
type Store struct {
	Rel        string
	SymbolMask uint64
	Directives IODirectives
}

func (Load) Kind() StatementKind  { return KLoad }
func (Store) Kind() StatementKind { return KStore }

// Insert runs an Operation tree for side effect; its body always
// terminates in a Project.
type Insert struct {
	Op Operation
}

func (Insert) Kind() StatementKind { return KInsert }

// Merge performs Dst ← Dst ∪ Src in bulk.
type Merge struct {
	Dst, Src string
}

func (Merge) Kind() StatementKind { return KMerge }

// Swap exchanges the contents of two same-arity relations in O(1).
type Swap struct {
	A, B string
}

func (Swap) Kind() StatementKind { return KSwap }

// Sequence runs its children in order, stopping at the first failure.
type Sequence struct {
	Stmts []Statement
}

func (Sequence) Kind() StatementKind { return KSequence }

// Parallel's children may execute concurrently; the overall result is
// the logical AND of the children's results.
type Parallel struct {
	Stmts []Statement
}

func (Parallel) Kind() StatementKind { return KParallel }

// Loop repeats Body until an Exit inside it fires.
type Loop struct {
	Body Statement
}

func (Loop) Kind() StatementKind { return KLoop }

// Exit breaks out of the nearest enclosing Loop when Cond is true.
type Exit struct {
	Cond Condition
}

func (Exit) Kind() StatementKind { return KExit }

// LogTimer, DebugInfo, LogSize and PrintSize are observability
// statements; all are semantically transparent (they never affect
// Body's result beyond propagating it).
type LogTimer struct {
	Label string
	Body  Statement
}
type DebugInfo struct {
	Label string
	Body  Statement
}
type LogSize struct {
	Rel   string
	Label string
}
type PrintSize struct {
	Rel string
}

func (LogTimer) Kind() StatementKind  { return KLogTimer }
func (DebugInfo) Kind() StatementKind { return KDebugInfo }
func (LogSize) Kind() StatementKind   { return KLogSize }
func (PrintSize) Kind() StatementKind { return KPrintSize }
