// Copyright the ctuscan authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ctuscan replays analysis records from a build directory and runs the
// whole-program checks over their combined facts.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctuscan/ctuscan/analysis"
	"github.com/ctuscan/ctuscan/analysis/checkers"
	"github.com/ctuscan/ctuscan/analysis/config"
	"github.com/ctuscan/ctuscan/analysis/ctu"
	"github.com/ctuscan/ctuscan/internal/formatutil"
	"github.com/ctuscan/ctuscan/internal/funcutil"
)

// flags
var (
	configPath   = ""
	buildDir     = ""
	maxCtuDepth  = 0
	inconclusive = false
	verbose      = false
)

func init() {
	flag.StringVar(&configPath, "config", "", "path to the yaml configuration file")
	flag.StringVar(&buildDir, "build-dir", "", "directory holding the analysis records")
	flag.IntVar(&maxCtuDepth, "max-ctu-depth", 0, "maximum whole-program search depth (overrides config)")
	flag.BoolVar(&inconclusive, "inconclusive", false, "report low-confidence findings")
	flag.BoolVar(&verbose, "verbose", false, "debug output")
}

const usage = `Run whole-program checks over analysis records.

Usage:
  ctuscan -build-dir DIR
  ctuscan record.json...

Use the -help flag to display the options.

Examples:
% ctuscan -build-dir .ctuscan
`

func main() {
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "ctuscan: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	flag.Parse()

	cfg := config.NewDefault()
	if configPath != "" {
		config.SetGlobalConfig(configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if buildDir != "" {
		cfg.BuildDir = buildDir
	}
	if maxCtuDepth > 0 {
		cfg.MaxCtuDepth = maxCtuDepth
	}
	if inconclusive {
		cfg.Inconclusive = true
	}
	if verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	logger := config.NewLogGroup(cfg)

	paths := flag.Args()
	if len(paths) == 0 && cfg.BuildDir != "" {
		var err error
		paths, err = filepath.Glob(filepath.Join(cfg.BuildDir, "*.json"))
		if err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, formatutil.Faint("Loading analysis records"))
	loaded := funcutil.MapParallel(paths, func(p string) *ctu.FileRecord {
		rec, err := ctu.LoadRecordFile(p, logger)
		if err != nil {
			logger.Warnf("skipping %s: %v", p, err)
			return nil
		}
		return rec
	}, cfg.Jobs)

	var records []*ctu.FileRecord
	for _, rec := range loaded {
		if rec != nil {
			records = append(records, rec)
		}
	}
	logger.Infof("loaded %d analysis records", len(records))

	s := analysis.NewState(cfg, logger, nil, analysis.ReporterFunc(printDiagnostic), checkers.All())

	// replay the cached per-file findings before the whole-program pass
	for _, rec := range records {
		for _, d := range rec.Diagnostics {
			s.Report(d)
		}
	}

	fmt.Fprintln(os.Stderr, formatutil.Faint("Analyzing"))
	if s.RunWholeProgram(records) {
		os.Exit(1)
	}
	return nil
}

func printDiagnostic(d ctu.Diagnostic) {
	color := formatutil.SeverityColor(d.Severity)
	fmt.Printf("%s: %s: %s %s\n", d.Loc.String(), color(d.Severity), formatutil.Sanitize(d.Message), formatutil.Faint("["+d.ID+"]"))
	for _, hop := range d.Path {
		fmt.Printf("  %s: %s\n", hop.Loc.String(), formatutil.Faint(formatutil.Sanitize(hop.Info)))
	}
}
