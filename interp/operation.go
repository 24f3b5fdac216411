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
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/record"
	"github.com/ramdl/engine/relation"
)

// execInsert runs an INSERT statement's nested search tree. When
// ParallelOuterScan is enabled and the outermost operation is a full
// (wildcard) SCAN, the outer relation's tuples are partitioned across
// the worker pool and each partition's nested body runs on its own
// goroutine-local scope, one partition of a single SCAN per goroutine.
// Every inner relation mutated by Body is safe for this because
// Relation.Insert is serialized by its own mutex.
func (in *Interp) execInsert(v ram.Insert) {
	if scan, ok := v.Op.(ram.Scan); ok && in.ParallelOuterScan && in.Pool != nil &&
		scan.Pattern.IsWildcard() && !scan.PureExistence {
		in.execOuterScanParallel(scan)
		return
	}
	in.execOperation(v.Op, nil)
}

func (in *Interp) execOuterScanParallel(scan ram.Scan) {
	rel := in.Env.MustGet(scan.Rel)
	all := rel.All()
	if len(all) == 0 {
		return
	}
	if in.Profiler != nil {
		in.Profiler.addConsidered(scan.Rel, len(all))
	}
	const minPartition = 64
	workers := len(all)/minPartition + 1
	chunks := partition(all, workers)
	fns := make([]func(), 0, len(chunks))
	for _, chunk := range chunks {
		chunk := chunk
		fns = append(fns, func() {
			for _, tup := range chunk {
				scope := extend(nil, scan.LevelNum, tup)
				if scan.Cond != nil && !in.evalCondition(scan.Cond, scope) {
					continue
				}
				in.execOperation(scan.Body, scope)
			}
		})
	}
	in.Pool.Run(fns)
}

func partition(all []relation.Tuple, n int) [][]relation.Tuple {
	if n < 1 {
		n = 1
	}
	if n > len(all) {
		n = len(all)
	}
	chunks := make([][]relation.Tuple, 0, n)
	size := (len(all) + n - 1) / n
	for i := 0; i < len(all); i += size {
		end := i + size
		if end > len(all) {
			end = len(all)
		}
		chunks = append(chunks, all[i:end])
	}
	return chunks
}

func extend(scope []relation.Tuple, level int, t relation.Tuple) []relation.Tuple {
	out := make([]relation.Tuple, level+1)
	copy(out, scope)
	out[level] = t
	return out
}

func (in *Interp) execOperation(op ram.Operation, scope []relation.Tuple) {
	switch v := op.(type) {
	case ram.Scan:
		in.execScan(v, scope)
	case ram.Lookup:
		in.execLookup(v, scope)
	case ram.Aggregate:
		in.execAggregate(v, scope)
	case ram.Project:
		in.execProject(v, scope)
	default:
		integrity("unexpected operation kind %T", op)
	}
}

func (in *Interp) execScan(v ram.Scan, scope []relation.Tuple) {
	rel := in.Env.MustGet(v.Rel)
	mask := relation.Mask(v.Pattern.Mask())
	pattern := in.buildPattern(v.Pattern, scope, rel.Arity())
	rg := rel.EqualRange(pattern, mask)

	if v.PureExistence {
		if rg.Empty() {
			return
		}
		rg.Next()
		if in.Profiler != nil {
			in.Profiler.addConsidered(v.Rel, 1)
		}
		newScope := extend(scope, v.LevelNum, rg.Tuple())
		if v.Cond != nil && !in.evalCondition(v.Cond, newScope) {
			return
		}
		in.execOperation(v.Body, newScope)
		return
	}

	for rg.Next() {
		if in.Profiler != nil {
			in.Profiler.addConsidered(v.Rel, 1)
		}
		newScope := extend(scope, v.LevelNum, rg.Tuple())
		if v.Cond != nil && !in.evalCondition(v.Cond, newScope) {
			continue
		}
		in.execOperation(v.Body, newScope)
	}
}

func (in *Interp) execLookup(v ram.Lookup, scope []relation.Tuple) {
	ref := record.Ref(scope[v.RefLevel][v.RefPos])
	if record.IsNull(ref) {
		return
	}
	cells := in.Env.Records.Unpack(ref, v.Arity)
	newScope := extend(scope, v.LevelNum, relation.Tuple(cells))
	if v.Cond != nil && !in.evalCondition(v.Cond, newScope) {
		return
	}
	in.execOperation(v.Body, newScope)
}

func (in *Interp) execAggregate(v ram.Aggregate, scope []relation.Tuple) {
	rel := in.Env.MustGet(v.Rel)
	mask := relation.Mask(v.Pattern.Mask())

	if v.Fun == ram.AggCount && v.Pattern.IsWildcard() {
		newScope := extend(scope, v.LevelNum, relation.Tuple{int32(rel.Size())})
		in.runAggBody(v, newScope)
		return
	}

	pattern := in.buildPattern(v.Pattern, scope, rel.Arity())
	rg := rel.EqualRange(pattern, mask)

	switch v.Fun {
	case ram.AggCount:
		newScope := extend(scope, v.LevelNum, relation.Tuple{int32(rg.Len())})
		in.runAggBody(v, newScope)
	case ram.AggSum:
		var sum int32
		for rg.Next() {
			sum += in.evalValue(v.Target, extend(scope, v.LevelNum, rg.Tuple()))
		}
		in.runAggBody(v, extend(scope, v.LevelNum, relation.Tuple{sum}))
	case ram.AggMin, ram.AggMax:
		result, ok := in.aggregateMinMax(rel, rg, v, scope)
		if !ok {
			return
		}
		in.runAggBody(v, extend(scope, v.LevelNum, relation.Tuple{result}))
	default:
		integrity("unexpected aggregate function %v", v.Fun)
	}
}

func (in *Interp) runAggBody(v ram.Aggregate, scope []relation.Tuple) {
	if v.Cond != nil && !in.evalCondition(v.Cond, scope) {
		return
	}
	in.execOperation(v.Body, scope)
}

// aggregateMinMax computes MIN/MAX of v.Target over rg. When the scan
// is a full (wildcard) pattern and the target is a direct read of the
// aggregated level's first column, the relation's total index is
// already sorted ascending on that column (the index builder builds the
// total index over every column in declared order), so the extremum
// is the first (MIN) or last (MAX, via Range.Reverse) tuple with no
// further comparison needed. Otherwise it falls back to a linear scan
// comparing the evaluated target.
func (in *Interp) aggregateMinMax(rel *relation.Relation, rg *relation.Range, v ram.Aggregate, scope []relation.Tuple) (int32, bool) {
	if rg.Empty() {
		return 0, false
	}
	isMax := v.Fun == ram.AggMax
	if v.Pattern.IsWildcard() {
		if ea, ok := v.Target.(ram.ElementAccess); ok && ea.Level == v.LevelNum && ea.Column == 0 {
			if isMax {
				rev := rg.Reverse()
				rev.Next()
				return rev.Tuple()[0], true
			}
			rg.Next()
			return rg.Tuple()[0], true
		}
	}
	var best int32
	first := true
	for rg.Next() {
		val := in.evalValue(v.Target, extend(scope, v.LevelNum, rg.Tuple()))
		if first || (isMax && val > best) || (!isMax && val < best) {
			best = val
			first = false
		}
	}
	return best, true
}

func (in *Interp) execProject(v ram.Project, scope []relation.Tuple) {
	cells := make([]int32, len(v.Values))
	for i, val := range v.Values {
		cells[i] = in.evalValue(val, scope)
	}
	tuple := relation.Tuple(cells)
	if v.FilterRel != "" {
		filter := in.Env.MustGet(v.FilterRel)
		if filter.Contains(tuple) {
			return
		}
	}
	if in.Env.MustGet(v.Rel).Insert(tuple) && in.Profiler != nil {
		in.Profiler.addProjected(v.Rel)
	}
}
