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
	"sync"
	"time"
)

// Profiler accumulates per-label wall-clock time across LOG_TIMER
// regions and, per relation, the number of tuples an INSERT's search
// tree considered (every Scan match examined) versus
// actually projected (every successful Insert into that relation).
// Attaching one to an Interp turns every LOG_TIMER into both a
// diag.Sink trace line and a running total queryable after the run
// completes, and every INSERT into a pair of per-relation counters.
type Profiler struct {
	mu         sync.Mutex
	total      map[string]time.Duration
	calls      map[string]int
	considered map[string]int
	projected  map[string]int
}

// NewProfiler returns an empty Profiler.
func NewProfiler() *Profiler {
	return &Profiler{
		total:      make(map[string]time.Duration),
		calls:      make(map[string]int),
		considered: make(map[string]int),
		projected:  make(map[string]int),
	}
}

func (p *Profiler) record(label string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total[label] += d
	p.calls[label]++
}

func (p *Profiler) addConsidered(rel string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.considered[rel] += n
}

func (p *Profiler) addProjected(rel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projected[rel]++
}

// Report returns a snapshot of accumulated time, call count,
// considered-tuple count and projected-tuple count per label
// (LOG_TIMER labels and relation names share this one namespace,
// since neither collides with the other in practice), for
// diagnostics.
func (p *Profiler) Report() map[string]struct {
	Total      time.Duration
	Calls      int
	Considered int
	Projected  int
} {
	p.mu.Lock()
	defer p.mu.Unlock()
	type stats = struct {
		Total      time.Duration
		Calls      int
		Considered int
		Projected  int
	}
	out := make(map[string]stats, len(p.total)+len(p.considered)+len(p.projected))
	get := func(label string) stats { return out[label] }
	for label, d := range p.total {
		s := get(label)
		s.Total = d
		s.Calls = p.calls[label]
		out[label] = s
	}
	for label, n := range p.considered {
		s := get(label)
		s.Considered = n
		out[label] = s
	}
	for label, n := range p.projected {
		s := get(label)
		s.Projected = n
		out[label] = s
	}
	return out
}
