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

// Package interp executes a RAM statement program against a relation
// environment. Operation dispatch is by node kind, per
// ram's tagged-sum-of-variants design; the "mutable cached index on a
// const node" the design notes warn against is avoided entirely,
// because relation.Relation already amortizes index selection inside
// its own index list (see relation.findOrBuildIndex) rather than
// needing a side table keyed by IR node identity.
package interp

import (
	"fmt"
	"time"

	"github.com/ramdl/engine/diag"
	"github.com/ramdl/engine/env"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/workerpool"
)

// Interp executes RAM statements against one environment.
type Interp struct {
	Env         *env.Env
	Descriptors map[string]relation.Descriptor
	Sink        *diag.Sink
	Pool        *workerpool.Pool
	IO          IO // optional external LOAD/STORE collaborator
	Profiler    *Profiler

	// ParallelOuterScan enables partitioning a full-scan INSERT's
	// outer relation across the worker pool. Requires
	// Pool to be non-nil.
	ParallelOuterScan bool

	// PlannedOrders is the auto-indexer's chosen column ordering set
	// per relation (translate.Result.IndexOrders). When set, CREATE
	// installs a relation's planned indices immediately, so its first
	// query never pays the cost of building one on demand.
	PlannedOrders map[string][][]int
}

// New returns an Interp with the given environment and descriptor
// registry. Sink and Pool default to no-ops if not set via the
// returned value's fields.
func New(e *env.Env, descriptors map[string]relation.Descriptor) *Interp {
	return &Interp{
		Env:         e,
		Descriptors: descriptors,
		Sink:        diag.New(nil),
	}
}

func integrity(format string, args ...any) {
	panic(&diag.IntegrityError{Msg: fmt.Sprintf(format, args...)})
}

// result is an execution outcome: ok is the statement's success flag;
// brk signals that an Exit fired and should be consumed
// by the nearest enclosing Loop.
type result struct {
	ok  bool
	brk bool
}

// Run executes s and returns its top-level success flag. Integrity
// panics raised during execution propagate to the caller; wrap Run in
// a recover boundary (see engine.Run) to convert them to errors.
func (in *Interp) Run(s ram.Statement) bool {
	return in.exec(s, nil).ok
}

func (in *Interp) exec(s ram.Statement, scope []relation.Tuple) result {
	switch v := s.(type) {
	case ram.Create:
		desc, ok := in.Descriptors[v.Rel]
		if !ok {
			integrity("CREATE of relation %q with no descriptor", v.Rel)
		}
		in.Env.Create(desc)
		if orders, ok := in.PlannedOrders[v.Rel]; ok {
			in.Env.MustGet(v.Rel).EnsureOrders(orders)
		}
		return result{ok: true}
	case ram.Clear:
		in.Env.MustGet(v.Rel).Purge()
		return result{ok: true}
	case ram.Drop:
		in.Env.Drop(v.Rel)
		return result{ok: true}
	case ram.Fact:
		in.Env.MustGet(v.Rel).Insert(relation.Tuple(v.Values))
		return result{ok: true}
	case ram.Load:
		return result{ok: in.execLoad(v)}
	case ram.Store:
		return result{ok: in.execStore(v)}
	case ram.Insert:
		in.execInsert(v)
		return result{ok: true}
	case ram.Merge:
		dst := in.Env.MustGet(v.Dst)
		src := in.Env.MustGet(v.Src)
		dst.InsertAll(src)
		return result{ok: true}
	case ram.Swap:
		if err := in.Env.Swap(v.A, v.B); err != nil {
			in.Sink.Warn(diag.External, err.Error())
			return result{ok: false}
		}
		return result{ok: true}
	case ram.Sequence:
		for _, st := range v.Stmts {
			r := in.exec(st, scope)
			if !r.ok || r.brk {
				return r
			}
		}
		return result{ok: true}
	case ram.Parallel:
		return in.execParallel(v, scope)
	case ram.Loop:
		for {
			r := in.exec(v.Body, scope)
			if !r.ok {
				return result{ok: false}
			}
			if r.brk {
				return result{ok: true}
			}
		}
	case ram.Exit:
		fire := in.evalCondition(v.Cond, scope)
		return result{ok: true, brk: fire}
	case ram.LogTimer:
		start := time.Now()
		r := in.exec(v.Body, scope)
		elapsed := time.Since(start)
		in.Sink.Trace(v.Label, fmt.Sprintf("elapsed=%s", elapsed))
		if in.Profiler != nil {
			in.Profiler.record(v.Label, elapsed)
		}
		return r
	case ram.DebugInfo:
		in.Sink.Trace(v.Label, "begin")
		r := in.exec(v.Body, scope)
		in.Sink.Trace(v.Label, "end")
		return r
	case ram.LogSize:
		rel := in.Env.MustGet(v.Rel)
		in.Sink.Trace(v.Label, fmt.Sprintf("%s size=%d", v.Rel, rel.Size()))
		return result{ok: true}
	case ram.PrintSize:
		rel := in.Env.MustGet(v.Rel)
		in.Sink.Report(fmt.Sprintf("%s: %d tuples", v.Rel, rel.Size()))
		return result{ok: true}
	default:
		integrity("unexpected statement kind %T", s)
		panic("unreachable")
	}
}

func (in *Interp) execParallel(v ram.Parallel, scope []relation.Tuple) result {
	if in.Pool == nil || len(v.Stmts) <= 1 {
		return in.exec(ram.Sequence{Stmts: v.Stmts}, scope)
	}
	results := make([]result, len(v.Stmts))
	fns := make([]func(), len(v.Stmts))
	for i, st := range v.Stmts {
		i, st := i, st
		fns[i] = func() { results[i] = in.exec(st, scope) }
	}
	in.Pool.Run(fns)
	out := result{ok: true}
	for _, r := range results {
		out.ok = out.ok && r.ok
		out.brk = out.brk || r.brk
	}
	return out
}
