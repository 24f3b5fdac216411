package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramdl/engine/env"
	"github.com/ramdl/engine/interp"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/workerpool"
)

func newEnv(t *testing.T, descs ...relation.Descriptor) (*env.Env, map[string]relation.Descriptor) {
	t.Helper()
	e := env.New()
	m := make(map[string]relation.Descriptor, len(descs))
	for _, d := range descs {
		m[d.Name] = d
	}
	return e, m
}

func TestScanAndProjectCopiesTuples(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "edge", Arity: 2},
		relation.Descriptor{Name: "path", Arity: 2},
	)
	in := interp.New(e, descs)

	require.True(t, in.Run(ram.Create{Rel: "edge"}))
	require.True(t, in.Run(ram.Create{Rel: "path"}))
	require.True(t, in.Run(ram.Fact{Rel: "edge", Values: []int32{1, 2}}))
	require.True(t, in.Run(ram.Fact{Rel: "edge", Values: []int32{2, 3}}))

	prog := ram.Insert{Op: ram.Scan{
		Rel:      "edge",
		Pattern:  make(ram.Pattern, 2),
		LevelNum: 0,
		Body: ram.Project{
			Rel: "path",
			Values: []ram.Value{
				ram.ElementAccess{Level: 0, Column: 0},
				ram.ElementAccess{Level: 0, Column: 1},
			},
		},
	}}
	require.True(t, in.Run(prog))

	path, ok := e.Get("path")
	require.True(t, ok)
	require.Equal(t, 2, path.Size())
	require.True(t, path.Contains(relation.Tuple{1, 2}))
	require.True(t, path.Contains(relation.Tuple{2, 3}))
}

func TestScanConditionFilters(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "nums", Arity: 1},
		relation.Descriptor{Name: "big", Arity: 1},
	)
	in := interp.New(e, descs)
	require.True(t, in.Run(ram.Create{Rel: "nums"}))
	require.True(t, in.Run(ram.Create{Rel: "big"}))
	for _, n := range []int32{1, 5, 10, 20} {
		require.True(t, in.Run(ram.Fact{Rel: "nums", Values: []int32{n}}))
	}

	prog := ram.Insert{Op: ram.Scan{
		Rel:      "nums",
		Pattern:  make(ram.Pattern, 1),
		LevelNum: 0,
		Cond: ram.BinaryRel{
			Op: ram.RelGE,
			L:  ram.ElementAccess{Level: 0, Column: 0},
			R:  ram.Number{K: 10},
		},
		Body: ram.Project{Rel: "big", Values: []ram.Value{ram.ElementAccess{Level: 0, Column: 0}}},
	}}
	require.True(t, in.Run(prog))

	big, _ := e.Get("big")
	require.Equal(t, 2, big.Size())
	require.True(t, big.Contains(relation.Tuple{10}))
	require.True(t, big.Contains(relation.Tuple{20}))
}

func TestPackAndLookupRoundTrip(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "boxed", Arity: 1},
		relation.Descriptor{Name: "unboxed", Arity: 2},
	)
	in := interp.New(e, descs)
	require.True(t, in.Run(ram.Create{Rel: "boxed"}))
	require.True(t, in.Run(ram.Create{Rel: "unboxed"}))

	pack := ram.Insert{Op: ram.Project{
		Rel: "boxed",
		Values: []ram.Value{
			ram.Pack{Values: []ram.Value{ram.Number{K: 7}, ram.Number{K: 9}}},
		},
	}}
	require.True(t, in.Run(pack))

	unpack := ram.Insert{Op: ram.Scan{
		Rel:      "boxed",
		Pattern:  make(ram.Pattern, 1),
		LevelNum: 0,
		Body: ram.Lookup{
			RefLevel: 0,
			RefPos:   0,
			Arity:    2,
			LevelNum: 1,
			Body: ram.Project{
				Rel: "unboxed",
				Values: []ram.Value{
					ram.ElementAccess{Level: 1, Column: 0},
					ram.ElementAccess{Level: 1, Column: 1},
				},
			},
		},
	}}
	require.True(t, in.Run(unpack))

	unboxed, _ := e.Get("unboxed")
	require.True(t, unboxed.Contains(relation.Tuple{7, 9}))
}

func TestAggregateCountSumMinMax(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "nums", Arity: 1},
		relation.Descriptor{Name: "stats", Arity: 4},
	)
	in := interp.New(e, descs)
	require.True(t, in.Run(ram.Create{Rel: "nums"}))
	require.True(t, in.Run(ram.Create{Rel: "stats"}))
	// nums is set-semantics, so the repeated 1 collapses: distinct
	// values are {1, 3, 4, 5}.
	for _, n := range []int32{3, 1, 4, 1, 5} {
		in.Run(ram.Fact{Rel: "nums", Values: []int32{n}})
	}

	count := ram.Aggregate{Rel: "nums", Pattern: make(ram.Pattern, 1), Fun: ram.AggCount, LevelNum: 0}
	sum := ram.Aggregate{Rel: "nums", Pattern: make(ram.Pattern, 1), Fun: ram.AggSum,
		Target: ram.ElementAccess{Level: 1, Column: 0}, LevelNum: 1}
	min := ram.Aggregate{Rel: "nums", Pattern: make(ram.Pattern, 1), Fun: ram.AggMin,
		Target: ram.ElementAccess{Level: 2, Column: 0}, LevelNum: 2}
	max := ram.Aggregate{Rel: "nums", Pattern: make(ram.Pattern, 1), Fun: ram.AggMax,
		Target: ram.ElementAccess{Level: 3, Column: 0}, LevelNum: 3}

	// Operations are values, so chain them innermost first.
	max.Body = ram.Project{
		Rel: "stats",
		Values: []ram.Value{
			ram.ElementAccess{Level: 0, Column: 0},
			ram.ElementAccess{Level: 1, Column: 0},
			ram.ElementAccess{Level: 2, Column: 0},
			ram.ElementAccess{Level: 3, Column: 0},
		},
	}
	min.Body = max
	sum.Body = min
	count.Body = sum

	require.True(t, in.Run(ram.Insert{Op: count}))

	stats, _ := e.Get("stats")
	require.Equal(t, 1, stats.Size())
	require.True(t, stats.Contains(relation.Tuple{4, 13, 1, 5}))
}

func TestNotExistsCondition(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "people", Arity: 1},
		relation.Descriptor{Name: "banned", Arity: 1},
		relation.Descriptor{Name: "allowed", Arity: 1},
	)
	in := interp.New(e, descs)
	for _, r := range []string{"people", "banned", "allowed"} {
		require.True(t, in.Run(ram.Create{Rel: r}))
	}
	in.Run(ram.Fact{Rel: "people", Values: []int32{1}})
	in.Run(ram.Fact{Rel: "people", Values: []int32{2}})
	in.Run(ram.Fact{Rel: "banned", Values: []int32{2}})

	prog := ram.Insert{Op: ram.Scan{
		Rel:      "people",
		Pattern:  make(ram.Pattern, 1),
		LevelNum: 0,
		Cond: ram.NotExists{
			Rel:     "banned",
			Pattern: ram.Pattern{ram.ElementAccess{Level: 0, Column: 0}},
		},
		Body: ram.Project{Rel: "allowed", Values: []ram.Value{ram.ElementAccess{Level: 0, Column: 0}}},
	}}
	require.True(t, in.Run(prog))

	allowed, _ := e.Get("allowed")
	require.Equal(t, 1, allowed.Size())
	require.True(t, allowed.Contains(relation.Tuple{1}))
}

func TestDivisionByZeroWarnsAndYieldsZero(t *testing.T) {
	e, descs := newEnv(t, relation.Descriptor{Name: "out", Arity: 1})
	in := interp.New(e, descs)
	require.True(t, in.Run(ram.Create{Rel: "out"}))

	prog := ram.Insert{Op: ram.Project{
		Rel: "out",
		Values: []ram.Value{
			ram.Binary{Op: ram.OpDiv, L: ram.Number{K: 9}, R: ram.Number{K: 0}},
		},
	}}
	require.True(t, in.Run(prog))

	out, _ := e.Get("out")
	require.True(t, out.Contains(relation.Tuple{0}))
}

func TestSwapAndMergeStatements(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "a", Arity: 1},
		relation.Descriptor{Name: "b", Arity: 1},
		relation.Descriptor{Name: "all", Arity: 1},
	)
	in := interp.New(e, descs)
	for _, r := range []string{"a", "b", "all"} {
		require.True(t, in.Run(ram.Create{Rel: r}))
	}
	in.Run(ram.Fact{Rel: "a", Values: []int32{1}})
	in.Run(ram.Fact{Rel: "b", Values: []int32{2}})

	require.True(t, in.Run(ram.Swap{A: "a", B: "b"}))
	ra, _ := e.Get("a")
	require.True(t, ra.Contains(relation.Tuple{2}))

	require.True(t, in.Run(ram.Merge{Dst: "all", Src: "a"}))
	require.True(t, in.Run(ram.Merge{Dst: "all", Src: "b"}))
	all, _ := e.Get("all")
	require.Equal(t, 2, all.Size())
}

// TestLoopExitFixpoint drives a hand-built semi-naive reachability
// loop: each iteration extends frontier by one edge hop, merges newly
// reached nodes into reach, and exits once an iteration finds nothing
// new. This is the shape a translator generates for a
// recursive SCC (delta/new relations, Loop/Exit/Merge/Swap), built by
// hand here since it exercises the interpreter in isolation.
func TestLoopExitFixpoint(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "edge", Arity: 2},
		relation.Descriptor{Name: "reach", Arity: 1},
		relation.Descriptor{Name: "frontier", Arity: 1},
		relation.Descriptor{Name: "next", Arity: 1},
	)
	in := interp.New(e, descs)
	for _, r := range []string{"edge", "reach", "frontier", "next"} {
		require.True(t, in.Run(ram.Create{Rel: r}))
	}
	for _, hop := range [][2]int32{{1, 2}, {2, 3}, {3, 4}, {4, 5}} {
		require.True(t, in.Run(ram.Fact{Rel: "edge", Values: []int32{hop[0], hop[1]}}))
	}
	require.True(t, in.Run(ram.Fact{Rel: "frontier", Values: []int32{1}}))
	require.True(t, in.Run(ram.Merge{Dst: "reach", Src: "frontier"}))

	step := ram.Scan{
		Rel:      "frontier",
		Pattern:  make(ram.Pattern, 1),
		LevelNum: 0,
		Body: ram.Scan{
			Rel:      "edge",
			Pattern:  ram.Pattern{ram.ElementAccess{Level: 0, Column: 0}, nil},
			LevelNum: 1,
			Cond: ram.NotExists{
				Rel:     "reach",
				Pattern: ram.Pattern{ram.ElementAccess{Level: 1, Column: 1}},
			},
			Body: ram.Project{Rel: "next", Values: []ram.Value{ram.ElementAccess{Level: 1, Column: 1}}},
		},
	}
	loopBody := ram.Sequence{Stmts: []ram.Statement{
		ram.Clear{Rel: "next"},
		ram.Insert{Op: step},
		ram.Exit{Cond: ram.Empty{Rel: "next"}},
		ram.Merge{Dst: "reach", Src: "next"},
		ram.Swap{A: "frontier", B: "next"},
	}}

	require.True(t, in.Run(ram.Loop{Body: loopBody}))

	reach, _ := e.Get("reach")
	for _, n := range []int32{1, 2, 3, 4, 5} {
		require.True(t, reach.Contains(relation.Tuple{n}), "missing %d", n)
	}
	require.Equal(t, 5, reach.Size())
}

func TestParallelRunsAllChildren(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "a", Arity: 1},
		relation.Descriptor{Name: "b", Arity: 1},
	)
	in := interp.New(e, descs)
	in.Pool = workerpool.NewPool(2)
	defer in.Pool.Close()
	require.True(t, in.Run(ram.Create{Rel: "a"}))
	require.True(t, in.Run(ram.Create{Rel: "b"}))

	prog := ram.Parallel{Stmts: []ram.Statement{
		ram.Fact{Rel: "a", Values: []int32{1}},
		ram.Fact{Rel: "b", Values: []int32{2}},
	}}
	require.True(t, in.Run(prog))

	a, _ := e.Get("a")
	b, _ := e.Get("b")
	require.Equal(t, 1, a.Size())
	require.Equal(t, 1, b.Size())
}

type badOperation struct{}

func (badOperation) Kind() ram.OperationKind { return ram.OperationKind(99) }

func TestUnknownOperationKindPanicsIntegrity(t *testing.T) {
	e, descs := newEnv(t, relation.Descriptor{Name: "x", Arity: 1})
	in := interp.New(e, descs)
	require.True(t, in.Run(ram.Create{Rel: "x"}))
	require.Panics(t, func() {
		in.Run(ram.Insert{Op: badOperation{}})
	})
}

func TestLoadStoreWithoutIOCollaboratorFails(t *testing.T) {
	e, descs := newEnv(t, relation.Descriptor{Name: "x", Arity: 1})
	in := interp.New(e, descs)
	require.True(t, in.Run(ram.Create{Rel: "x"}))
	require.False(t, in.Run(ram.Load{Rel: "x"}))
	require.False(t, in.Run(ram.Store{Rel: "x"}))
}

// TestPureExistenceScanShortCircuits exercises Scan.PureExistence
// directly: a fully-keyed pattern against edge should run Body at
// most once, and not at all when no tuple matches.
func TestPureExistenceScanShortCircuits(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "edge", Arity: 2},
		relation.Descriptor{Name: "seen", Arity: 0},
	)
	in := interp.New(e, descs)
	require.True(t, in.Run(ram.Create{Rel: "edge"}))
	require.True(t, in.Run(ram.Create{Rel: "seen"}))
	require.True(t, in.Run(ram.Fact{Rel: "edge", Values: []int32{1, 2}}))

	hits := ram.Insert{Op: ram.Scan{
		Rel:           "edge",
		Pattern:       ram.Pattern{ram.Number{K: 1}, ram.Number{K: 2}},
		LevelNum:      0,
		PureExistence: true,
		Body:          ram.Project{Rel: "seen", Values: nil},
	}}
	require.True(t, in.Run(hits))
	seen, ok := e.Get("seen")
	require.True(t, ok)
	require.Equal(t, 1, seen.Size())

	e.Drop("seen")
	require.True(t, in.Run(ram.Create{Rel: "seen"}))
	miss := ram.Insert{Op: ram.Scan{
		Rel:           "edge",
		Pattern:       ram.Pattern{ram.Number{K: 9}, ram.Number{K: 9}},
		LevelNum:      0,
		PureExistence: true,
		Body:          ram.Project{Rel: "seen", Values: nil},
	}}
	require.True(t, in.Run(miss))
	seen, ok = e.Get("seen")
	require.True(t, ok)
	require.Equal(t, 0, seen.Size())
}

// TestProfilerTracksConsideredAndProjected checks that running an
// INSERT with a Profiler attached records one considered tuple per
// Scan match and one projected tuple per successful Insert.
func TestProfilerTracksConsideredAndProjected(t *testing.T) {
	e, descs := newEnv(t,
		relation.Descriptor{Name: "edge", Arity: 2},
		relation.Descriptor{Name: "path", Arity: 2},
	)
	in := interp.New(e, descs)
	in.Profiler = interp.NewProfiler()
	require.True(t, in.Run(ram.Create{Rel: "edge"}))
	require.True(t, in.Run(ram.Create{Rel: "path"}))
	require.True(t, in.Run(ram.Fact{Rel: "edge", Values: []int32{1, 2}}))
	require.True(t, in.Run(ram.Fact{Rel: "edge", Values: []int32{2, 3}}))

	prog := ram.Insert{Op: ram.Scan{
		Rel:      "edge",
		Pattern:  make(ram.Pattern, 2),
		LevelNum: 0,
		Body: ram.Project{
			Rel: "path",
			Values: []ram.Value{
				ram.ElementAccess{Level: 0, Column: 0},
				ram.ElementAccess{Level: 0, Column: 1},
			},
		},
	}}
	require.True(t, in.Run(prog))
	require.True(t, in.Run(prog)) // re-run: second pass should be re-considered but not re-projected

	report := in.Profiler.Report()
	require.Equal(t, 4, report["edge"].Considered)
	require.Equal(t, 2, report["path"].Projected)
}
