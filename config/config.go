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

// Package config loads the engine's run configuration (worker pool
// size, profiling, diagnostics destination) from TOML, following the
// tagged-struct pattern of Pieczasz-smf's internal/parser/toml parser.
package config

import (
	"github.com/BurntSushi/toml"
)

// Config controls ambient engine behavior that is left to
// the host: parallelism, profiling, and where diagnostics go.
type Config struct {
	Engine struct {
		// Workers is the worker pool size backing PARALLEL statements
		// and outer-scan parallelism. 0 means "use
		// runtime.GOMAXPROCS(0)".
		Workers int `toml:"workers"`
		// Profile enables interp.Profiler per-INSERT tuple counting.
		Profile bool `toml:"profile"`
	} `toml:"engine"`

	Diagnostics struct {
		// Path, if non-empty, mirrors diag.Sink entries to a file.
		Path string `toml:"path"`
		// Compress zstd-compresses the mirrored file on Close.
		Compress bool `toml:"compress"`
	} `toml:"diagnostics"`
}

// Default returns a Config with the engine's built-in defaults.
func Default() Config {
	var c Config
	c.Engine.Workers = 0
	c.Engine.Profile = false
	return c
}

// Load reads and decodes a TOML config file at path, starting from
// Default() so unset fields keep their defaults.
func Load(path string) (Config, error) {
	c := Default()
	_, err := toml.DecodeFile(path, &c)
	return c, err
}

// Parse decodes TOML config text, starting from Default().
func Parse(text string) (Config, error) {
	c := Default()
	_, err := toml.Decode(text, &c)
	return c, err
}
