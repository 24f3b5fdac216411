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

	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
)

// planIndexes statically analyzes a translated RAM program for every
// search mask used against each relation, runs relation.Planner over
// the masks it finds, and returns both the chosen column orderings
// per relation and a human-readable report of the choice. Patterns
// are fixed at translate time, so this never needs to execute the
// program first: every Scan, Aggregate and NotExists mask that will
// ever be queried already exists in the IR.
func planIndexes(prog ram.Statement, descriptors map[string]relation.Descriptor) (map[string][][]int, string) {
	planners := make(map[string]*relation.Planner, len(descriptors))
	planner := func(rel string) *relation.Planner {
		p, ok := planners[rel]
		if !ok {
			p = relation.NewPlanner(descriptors[rel].Arity)
			planners[rel] = p
		}
		return p
	}

	observeCond := func(cond ram.Condition) {
		var walk func(ram.Condition)
		walk = func(c ram.Condition) {
			switch v := c.(type) {
			case nil:
				return
			case ram.And:
				walk(v.L)
				walk(v.R)
			case ram.NotExists:
				planner(v.Rel).Observe(relation.Mask(v.Pattern.Mask()))
			}
		}
		walk(cond)
	}

	observeOp := func(op ram.Operation) {
		switch v := op.(type) {
		case ram.Scan:
			planner(v.Rel).Observe(relation.Mask(v.Pattern.Mask()))
			observeCond(v.Cond)
		case ram.Aggregate:
			planner(v.Rel).Observe(relation.Mask(v.Pattern.Mask()))
			observeCond(v.Cond)
		case ram.Lookup:
			observeCond(v.Cond)
		}
	}

	ram.WalkStatement(prog, func(s ram.Statement) {
		if ins, ok := s.(ram.Insert); ok {
			ram.WalkOperation(ins.Op, observeOp, nil)
		}
	}, nil)

	names := make([]string, 0, len(planners))
	for name := range planners {
		names = append(names, name)
	}
	sort.Strings(names)

	orders := make(map[string][][]int, len(names))
	report := ""
	for _, name := range names {
		o := planners[name].Plan()
		orders[name] = o
		report += planners[name].Report(name, o)
	}
	return orders, report
}
