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

// Package diag provides the textual, append-only diagnostic sink
// used for auto-index reports and debug traces, plus
// an error-kind classification for runtime diagnostics.
package diag

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Kind classifies a diagnostic by its severity and origin.
type Kind uint8

const (
	// Integrity errors are bugs: an unexpected IR node kind, unpacking
	// a non-record reference, SWAP of mismatched arities. They must
	// not occur for any IR produced by the translator.
	Integrity Kind = iota
	// UserRuntime errors are malformed input the engine degrades
	// gracefully for: a bad regex, an out-of-range SUBSTR.
	UserRuntime
	// Numeric marks implementation-defined outcomes (div/mod by zero).
	Numeric
	// External marks LOAD/STORE failures from the I/O collaborator.
	External
)

func (k Kind) String() string {
	switch k {
	case Integrity:
		return "integrity"
	case UserRuntime:
		return "user"
	case Numeric:
		return "numeric"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// IntegrityError wraps an internal integrity violation. interp panics
// with this type; engine.Run recovers it at the top of one invocation
// and returns it as an ordinary error.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return "ram: integrity error: " + e.Msg }

// Sink is the append-only diagnostic channel. It
// records auto-index reports, debug traces and classified warnings,
// mirroring them to a *zap.Logger and, optionally, to a file that is
// zstd-compressed on Close.
type Sink struct {
	log    *zap.Logger
	runID  uuid.UUID
	mu       sync.Mutex
	buf      bytes.Buffer
	file     *os.File
	compress bool
}

// New returns a Sink backed by log. Every entry is tagged with a fresh
// run id so concurrent Sinks in the same process don't interleave
// ambiguously in shared log aggregation.
func New(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{log: log, runID: uuid.New()}
}

// WithFile mirrors every entry to path in addition to the logger. If
// compress is true, the file is rewritten as zstd on Close.
func (s *Sink) WithFile(path string, compress bool) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.file = f
	s.compress = compress
	s.mu.Unlock()
	return s, nil
}

// Trace appends a plain debug-trace line (LOG_TIMER, DEBUG_INFO,
// LOG_SIZE, PRINT_SIZE output).
func (s *Sink) Trace(label, msg string) {
	s.log.Debug(msg, zap.String("run", s.runID.String()), zap.String("label", label))
	s.appendFile(fmt.Sprintf("[%s] %s\n", label, msg))
}

// Warn records a classified warning.
func (s *Sink) Warn(kind Kind, msg string) {
	s.log.Warn(msg, zap.String("run", s.runID.String()), zap.String("kind", kind.String()))
	s.appendFile(fmt.Sprintf("[%s] %s\n", kind, msg))
}

// Report appends a multi-line diagnostic report (the auto-indexer's
// chosen-index-set report).
func (s *Sink) Report(msg string) {
	s.log.Info(msg, zap.String("run", s.runID.String()))
	s.appendFile(msg)
}

func (s *Sink) appendFile(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.WriteString(line)
	if s.file != nil {
		io.WriteString(s.file, line)
	}
}

// Close flushes and, if requested, recompresses the mirrored file as
// zstd.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	name := s.file.Name()
	if err := s.file.Close(); err != nil {
		return err
	}
	if !s.compress {
		return nil
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)
	return os.WriteFile(name+".zst", compressed, 0o644)
}
