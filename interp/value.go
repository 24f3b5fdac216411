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

package interp

import (
	"fmt"
	"math"

	"github.com/ramdl/engine/diag"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/symtab"
)

func (in *Interp) evalValue(v ram.Value, scope []relation.Tuple) int32 {
	switch t := v.(type) {
	case ram.Number:
		return t.K
	case ram.ElementAccess:
		return scope[t.Level][t.Column]
	case ram.Unary:
		return in.evalUnary(t, scope)
	case ram.Binary:
		return in.evalBinary(t, scope)
	case ram.Ternary:
		return in.evalTernary(t, scope)
	case ram.AutoInc:
		return in.Env.NextAutoinc()
	case ram.Pack:
		cells := make([]int32, len(t.Values))
		for i, sub := range t.Values {
			cells[i] = in.evalValue(sub, scope)
		}
		return int32(in.Env.Records.Pack(cells))
	default:
		integrity("unexpected value kind %T", v)
		panic("unreachable")
	}
}

func (in *Interp) evalUnary(u ram.Unary, scope []relation.Tuple) int32 {
	x := in.evalValue(u.V, scope)
	switch u.Op {
	case ram.OpNeg:
		return -x
	case ram.OpBNot:
		return ^x
	case ram.OpLNot:
		if x == 0 {
			return 1
		}
		return 0
	case ram.OpOrd:
		// The ordinal of a value is its own raw cell: symbol and record
		// columns already store their table index.
		return x
	case ram.OpStrlen:
		s := in.mustResolve(x)
		return int32(len(s))
	case ram.OpSin:
		return round(math.Sin(float64(x)))
	case ram.OpCos:
		return round(math.Cos(float64(x)))
	case ram.OpTan:
		return round(math.Tan(float64(x)))
	case ram.OpLog:
		return round(math.Log(float64(x)))
	case ram.OpExpUnary:
		return round(math.Exp(float64(x)))
	default:
		integrity("unexpected unary op %v", u.Op)
		panic("unreachable")
	}
}

func (in *Interp) evalBinary(b ram.Binary, scope []relation.Tuple) int32 {
	l := in.evalValue(b.L, scope)
	switch b.Op {
	case ram.OpAdd:
		return l + in.evalValue(b.R, scope)
	case ram.OpSub:
		return l - in.evalValue(b.R, scope)
	case ram.OpMul:
		return l * in.evalValue(b.R, scope)
	case ram.OpDiv:
		r := in.evalValue(b.R, scope)
		if r == 0 {
			in.Sink.Warn(diag.Numeric, "division by zero")
			return 0
		}
		return l / r
	case ram.OpMod:
		r := in.evalValue(b.R, scope)
		if r == 0 {
			in.Sink.Warn(diag.Numeric, "modulo by zero")
			return 0
		}
		return l % r
	case ram.OpExp:
		r := in.evalValue(b.R, scope)
		return round(math.Pow(float64(l), float64(r)))
	case ram.OpBAnd:
		return l & in.evalValue(b.R, scope)
	case ram.OpBOr:
		return l | in.evalValue(b.R, scope)
	case ram.OpBXor:
		return l ^ in.evalValue(b.R, scope)
	case ram.OpLAnd:
		r := in.evalValue(b.R, scope)
		if l != 0 && r != 0 {
			return 1
		}
		return 0
	case ram.OpLOr:
		r := in.evalValue(b.R, scope)
		if l != 0 || r != 0 {
			return 1
		}
		return 0
	case ram.OpCat:
		r := in.evalValue(b.R, scope)
		ls, rs := in.mustResolve(l), in.mustResolve(r)
		return int32(in.Env.Symbols.Intern(ls + rs))
	default:
		integrity("unexpected binary op %v", b.Op)
		panic("unreachable")
	}
}

func (in *Interp) evalTernary(t ram.Ternary, scope []relation.Tuple) int32 {
	switch t.Op {
	case ram.OpSubstr:
		s := in.mustResolve(in.evalValue(t.S, scope))
		start := int(in.evalValue(t.I, scope))
		n := int(in.evalValue(t.N, scope))
		if start < 0 || start > len(s) || n < 0 {
			in.Sink.Warn(diag.UserRuntime, fmt.Sprintf("substr(%q, %d, %d) out of range", s, start, n))
			return int32(in.Env.Symbols.Intern(""))
		}
		end := start + n
		if end > len(s) {
			end = len(s)
		}
		return int32(in.Env.Symbols.Intern(s[start:end]))
	default:
		integrity("unexpected ternary op %v", t.Op)
		panic("unreachable")
	}
}

func (in *Interp) mustResolve(sym int32) string {
	return in.Env.Symbols.MustResolve(symtab.ID(sym))
}

func round(f float64) int32 { return int32(math.Round(f)) }
