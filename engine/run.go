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

// Package engine wires config, env, translate and interp into one
// top-level Run: translate a program once, then execute its RAM
// statement tree against a fresh environment, converting an
// *diag.IntegrityError panic into an ordinary error at the boundary
// (integrity violations are bugs, not user errors, so
// the caller gets a typed error instead of a crashed process).
package engine

import (
	"fmt"

	"github.com/ramdl/engine/ast"
	"github.com/ramdl/engine/config"
	"github.com/ramdl/engine/diag"
	"github.com/ramdl/engine/env"
	"github.com/ramdl/engine/interp"
	"github.com/ramdl/engine/relation"
	"github.com/ramdl/engine/symtab"
	"github.com/ramdl/engine/translate"
	"github.com/ramdl/engine/workerpool"
	"go.uber.org/zap"
)

// Engine is a translated program bound to everything it needs to run
// repeatedly: a fresh Run call re-executes the same RAM program
// against whatever facts the caller has inserted into Env since the
// last run (the Sequence's Create/Merge/Drop statements are all
// idempotent or self-resetting, so re-running is safe).
type Engine struct {
	Env      *env.Env
	Interp   *interp.Interp
	Pool     *workerpool.Pool
	Sink     *diag.Sink
	Program  *translate.Result
	Profiler *interp.Profiler
}

// New translates prog against a fresh environment and wires an Interp
// per cfg. symbols, if non-nil, is shared with the caller (useful when
// the caller needs to intern LOAD/STORE column values with the same
// table the translator used for TSym literals); if nil, a fresh table
// is created. logger, if nil, discards every log record. Relations
// declared as Input are created here, so the caller can seed them
// before the first Run; every other relation is created by Run.
func New(prog *ast.Program, cfg config.Config, symbols *symtab.Table, logger *zap.Logger) (*Engine, error) {
	if symbols == nil {
		symbols = symtab.New()
	}
	result, err := translate.Translate(prog, symbols)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	e := env.New()
	e.Symbols = symbols
	for _, desc := range result.Descriptors {
		if desc.Input {
			e.Create(desc)
		}
	}

	sink := diag.New(logger)
	if cfg.Diagnostics.Path != "" {
		s, err := sink.WithFile(cfg.Diagnostics.Path, cfg.Diagnostics.Compress)
		if err != nil {
			return nil, fmt.Errorf("diagnostics: %w", err)
		}
		sink = s
	}

	pool := workerpool.NewPool(cfg.Engine.Workers)

	if result.IndexReport != "" {
		sink.Report(result.IndexReport)
	}

	in := interp.New(e, result.Descriptors)
	in.Sink = sink
	in.Pool = pool
	in.ParallelOuterScan = true
	in.PlannedOrders = result.IndexOrders
	var profiler *interp.Profiler
	if cfg.Engine.Profile {
		profiler = interp.NewProfiler()
		in.Profiler = profiler
	}

	return &Engine{
		Env:      e,
		Interp:   in,
		Pool:     pool,
		Sink:     sink,
		Program:  result,
		Profiler: profiler,
	}, nil
}

// Run executes the translated program once to fixpoint, recovering an
// integrity panic into a returned error rather than crashing.
func (en *Engine) Run() (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ierr, isIntegrity := r.(*diag.IntegrityError); isIntegrity {
				err = ierr
				return
			}
			panic(r)
		}
	}()
	ok = en.Interp.Run(en.Program.Program)
	return ok, nil
}

// SetIO installs the external LOAD/STORE collaborator.
func (en *Engine) SetIO(io interp.IO) { en.Interp.IO = io }

// Relation returns the named relation's current contents, or an error
// if no such relation was declared.
func (en *Engine) Relation(name string) ([]relation.Tuple, error) {
	r, ok := en.Env.Get(name)
	if !ok {
		return nil, fmt.Errorf("engine: no such relation %q", name)
	}
	return r.All(), nil
}

// Close releases the engine's worker pool and flushes its diagnostic
// sink. Safe to call once after the last Run.
func (en *Engine) Close() error {
	en.Pool.Close()
	return en.Sink.Close()
}
