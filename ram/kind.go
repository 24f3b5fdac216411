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

// Package ram implements the relational-algebra intermediate
// representation: values, conditions, operations and
// statements, each a tagged sum of variants dispatched by Kind rather
// than a virtual-method class hierarchy.
package ram

// ValueKind tags the concrete type of a Value node.
type ValueKind uint8

const (
	KNumber ValueKind = iota
	KElementAccess
	KUnaryOp
	KBinaryOp
	KTernaryOp
	KAutoInc
	KPack
)

// UnaryOp identifies a unary value operator.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpBNot
	OpLNot
	OpOrd
	OpStrlen
	OpSin
	OpCos
	OpTan
	OpLog
	OpExpUnary
)

// BinaryOp identifies a binary value operator.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpBAnd
	OpBOr
	OpBXor
	OpLAnd
	OpLOr
	OpCat
)

// TernaryOp identifies a ternary value operator.
type TernaryOp uint8

const (
	OpSubstr TernaryOp = iota
)

// ConditionKind tags the concrete type of a Condition node.
type ConditionKind uint8

const (
	KAnd ConditionKind = iota
	KBinaryRel
	KEmpty
	KNotExists
)

// RelOp identifies a binary relational/condition operator.
type RelOp uint8

const (
	RelEQ RelOp = iota
	RelNE
	RelLT
	RelLE
	RelGT
	RelGE
	RelMatch
	RelNotMatch
	RelContains
	RelNotContains
)

// OperationKind tags the concrete type of an Operation node.
type OperationKind uint8

const (
	KScan OperationKind = iota
	KLookup
	KAggregate
	KProject
)

// AggFunc identifies an AGGREGATE node's reducer.
type AggFunc uint8

const (
	AggMin AggFunc = iota
	AggMax
	AggCount
	AggSum
)

// StatementKind tags the concrete type of a Statement node.
type StatementKind uint8

const (
	KCreate StatementKind = iota
	KClear
	KDrop
	KFact
	KLoad
	KStore
	KInsert
	KMerge
	KSwap
	KSequence
	KParallel
	KLoop
	KExit
	KLogTimer
	KDebugInfo
	KLogSize
	KPrintSize
)
