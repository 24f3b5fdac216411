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
	"regexp"

	"github.com/ramdl/engine/diag"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
)

func (in *Interp) evalCondition(c ram.Condition, scope []relation.Tuple) bool {
	if c == nil {
		return true
	}
	switch v := c.(type) {
	case ram.And:
		return in.evalCondition(v.L, scope) && in.evalCondition(v.R, scope)
	case ram.BinaryRel:
		return in.evalBinaryRel(v, scope)
	case ram.Empty:
		return in.Env.MustGet(v.Rel).IsEmpty()
	case ram.NotExists:
		return in.evalNotExists(v, scope)
	default:
		integrity("unexpected condition kind %T", c)
		panic("unreachable")
	}
}

func (in *Interp) evalBinaryRel(v ram.BinaryRel, scope []relation.Tuple) bool {
	l := in.evalValue(v.L, scope)
	r := in.evalValue(v.R, scope)
	switch v.Op {
	case ram.RelEQ:
		return l == r
	case ram.RelNE:
		return l != r
	case ram.RelLT:
		return l < r
	case ram.RelLE:
		return l <= r
	case ram.RelGT:
		return l > r
	case ram.RelGE:
		return l >= r
	case ram.RelMatch, ram.RelNotMatch:
		ok := in.matches(l, r)
		if v.Op == ram.RelNotMatch {
			return !ok
		}
		return ok
	case ram.RelContains, ram.RelNotContains:
		s, sub := in.mustResolve(l), in.mustResolve(r)
		ok := false
		if re, err := regexp.Compile(sub); err != nil {
			in.Sink.Warn(diag.UserRuntime, fmt.Sprintf("malformed contains pattern %q: %s", sub, err))
		} else {
			ok = re.MatchString(s)
		}
		if v.Op == ram.RelNotContains {
			return !ok
		}
		return ok
	default:
		integrity("unexpected rel op %v", v.Op)
		panic("unreachable")
	}
}

// matches reports whether the string named by symbol l fully matches
// the RE2 regular expression named by symbol r. A malformed pattern is
// a user-runtime error: it is logged and MATCH evaluates
// to false (so NOT_MATCH becomes true).
func (in *Interp) matches(l, r int32) bool {
	s := in.mustResolve(l)
	pattern := in.mustResolve(r)
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		in.Sink.Warn(diag.UserRuntime, fmt.Sprintf("malformed match pattern %q: %s", pattern, err))
		return false
	}
	return re.MatchString(s)
}

func (in *Interp) evalNotExists(v ram.NotExists, scope []relation.Tuple) bool {
	rel := in.Env.MustGet(v.Rel)
	mask := relation.Mask(v.Pattern.Mask())
	pattern := in.buildPattern(v.Pattern, scope, rel.Arity())
	rg := rel.EqualRange(pattern, mask)
	return rg.Empty()
}

// buildPattern evaluates a Pattern's bound columns into a concrete
// search tuple; unconstrained columns are left zero and ignored by
// EqualRange via keymask.
func (in *Interp) buildPattern(p ram.Pattern, scope []relation.Tuple, arity int) relation.Tuple {
	out := make(relation.Tuple, arity)
	for i, v := range p {
		if v == nil {
			continue
		}
		out[i] = in.evalValue(v, scope)
	}
	return out
}
