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

// Command ramrun drives the fixture transitive-closure program
// against the engine package. It is not a surface-language front
// end: the AST it runs is built in Go (fixture.go), standing in for
// whatever a real parser/optimiser would hand the translator.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramdl/engine/config"
	"github.com/ramdl/engine/engine"
	"github.com/ramdl/engine/ram"
	"github.com/ramdl/engine/relation"
)

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	return zap.Must(cfg.Build()).Named("ramrun")
}

func parseEdge(s string) (int32, int32, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("edge %q: want the form x:y", s)
	}
	x, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("edge %q: %w", s, err)
	}
	y, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("edge %q: %w", s, err)
	}
	return int32(x), int32(y), nil
}

func main() {
	var (
		configPath string
		workers    int
		profile    bool
		diagPath   string
		printIR    bool
		edgeFlags  []string
	)

	root := &cobra.Command{
		Use:   "ramrun",
		Short: "Run the fixture transitive-closure program to fixpoint",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Seed edge facts and run the recursive path rule to a fixpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync() //nolint:errcheck

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Engine.Workers = workers
			}
			if cmd.Flags().Changed("profile") {
				cfg.Engine.Profile = profile
			}
			if diagPath != "" {
				cfg.Diagnostics.Path = diagPath
			}

			en, err := engine.New(transitiveClosureProgram(), cfg, nil, log)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}
			defer func() {
				if cerr := en.Close(); cerr != nil {
					log.Warn("close failed", zap.Error(cerr))
				}
			}()

			if printIR {
				fmt.Println(ram.Print(en.Program.Program))
			}

			edgeRel, ok := en.Env.Get("edge")
			if !ok {
				return fmt.Errorf("ramrun: edge relation missing from fixture program")
			}
			for _, flag := range edgeFlags {
				x, y, err := parseEdge(flag)
				if err != nil {
					return err
				}
				edgeRel.Insert(relation.Tuple{x, y})
			}

			ok, err = en.Run()
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			if !ok {
				return fmt.Errorf("ramrun: program returned failure")
			}

			if en.Profiler != nil {
				for label, stats := range en.Profiler.Report() {
					log.Info("profile",
						zap.String("label", label),
						zap.Duration("total", stats.Total),
						zap.Int("calls", stats.Calls),
						zap.Int("considered", stats.Considered),
						zap.Int("projected", stats.Projected),
					)
				}
			}

			path, err := en.Relation("path")
			if err != nil {
				return err
			}
			for _, t := range path {
				fmt.Printf("path(%d, %d)\n", t[0], t[1])
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file (defaults to built-in defaults)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker pool size for PARALLEL/outer-scan parallelism (0 = GOMAXPROCS)")
	runCmd.Flags().BoolVar(&profile, "profile", false, "enable per-label LOG_TIMER profiling")
	runCmd.Flags().StringVar(&diagPath, "diagnostics", "", "mirror diagnostics to this file")
	runCmd.Flags().BoolVar(&printIR, "print-ir", false, "print the translated RAM program before running it")
	runCmd.Flags().StringArrayVar(&edgeFlags, "edge", nil, "seed an edge(x, y) fact, given as x:y (repeatable)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
