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
	"io"

	"github.com/ramdl/engine/diag"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
)

// IO is the external collaborator behind LOAD/STORE: the
// core engine has no knowledge of any on-disk or wire format, it only
// asks for a RowReader/RowWriter keyed by a relation's descriptor and
// IODirectives (e.g. a file path, delimiter, column facts).
type IO interface {
	// symbolMask identifies which columns hold interned symbol ids
	// rather than raw numbers, so the collaborator knows whether to
	// resolve/intern through the environment's symbol table.
	Reader(desc relation.Descriptor, symbolMask uint64, directives ram.IODirectives) (RowReader, error)
	Writer(desc relation.Descriptor, symbolMask uint64, directives ram.IODirectives) (RowWriter, error)
}

// RowReader yields one tuple at a time for LOAD.
type RowReader interface {
	Read() (relation.Tuple, error) // io.EOF when exhausted
	io.Closer
}

// RowWriter accepts one tuple at a time for STORE.
type RowWriter interface {
	Write(relation.Tuple) error
	io.Closer
}

func (in *Interp) execLoad(v ram.Load) bool {
	if in.IO == nil {
		in.Sink.Warn(diag.External, fmt.Sprintf("LOAD %s: no I/O collaborator configured", v.Rel))
		return false
	}
	rel := in.Env.MustGet(v.Rel)
	r, err := in.IO.Reader(rel.Descriptor(), v.SymbolMask, v.Directives)
	if err != nil {
		in.Sink.Warn(diag.External, fmt.Sprintf("LOAD %s: %s", v.Rel, err))
		return false
	}
	defer r.Close()
	for {
		t, err := r.Read()
		if err == io.EOF {
			return true
		}
		if err != nil {
			in.Sink.Warn(diag.External, fmt.Sprintf("LOAD %s: %s", v.Rel, err))
			return false
		}
		rel.Insert(t)
	}
}

func (in *Interp) execStore(v ram.Store) bool {
	if in.IO == nil {
		in.Sink.Warn(diag.External, fmt.Sprintf("STORE %s: no I/O collaborator configured", v.Rel))
		return false
	}
	rel := in.Env.MustGet(v.Rel)
	w, err := in.IO.Writer(rel.Descriptor(), v.SymbolMask, v.Directives)
	if err != nil {
		in.Sink.Warn(diag.External, fmt.Sprintf("STORE %s: %s", v.Rel, err))
		return false
	}
	defer w.Close()
	for _, t := range rel.All() {
		if err := w.Write(t); err != nil {
			in.Sink.Warn(diag.External, fmt.Sprintf("STORE %s: %s", v.Rel, err))
			return false
		}
	}
	return true
}
