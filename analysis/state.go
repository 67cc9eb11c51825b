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

package analysis

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ctuscan/ctuscan/analysis/config"
	"github.com/ctuscan/ctuscan/analysis/ctu"
	"github.com/ctuscan/ctuscan/analysis/lang"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
)

// ParseResult is what the front end produces for one file. The analysis never
// mutates it.
type ParseResult struct {
	Arena  *lang.Arena
	Values valueflow.ValueMap
}

// FrontEnd turns source text into a syntax tree with attached values. It must
// be safe for concurrent use: every worker calls it.
type FrontEnd interface {
	Parse(ctx context.Context, file string, src []byte) (*ParseResult, error)
}

// Reporter is the diagnostic sink of a run. Report is only ever called from
// one goroutine at a time; State serializes the calls.
type Reporter interface {
	Report(d ctu.Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(d ctu.Diagnostic)

// Report calls f(d).
func (f ReporterFunc) Report(d ctu.Diagnostic) { f(d) }

// phase of the whole-program coordinator.
type phase int32

const (
	// collecting: per-file records are being populated concurrently.
	collecting phase = iota
	// merged: terminal, entered exactly once after every per-file check
	// completed.
	merged
)

// State carries everything shared by the workers of one run. The detectors
// and the reporter are fixed at construction; no global registry exists.
type State struct {
	Config   *config.Config
	Logger   *config.LogGroup
	FrontEnd FrontEnd

	detectors []Detector
	reporter  Reporter

	// reportMu serializes the reporter and guards reported.
	reportMu sync.Mutex
	// reported suppresses duplicate diagnostics, keyed by location, id and
	// message.
	reported map[string]bool

	phase      atomic.Int32
	terminated atomic.Bool
	defects    atomic.Bool
}

// NewState builds the shared state of one run. The detector list fixes both
// the set and the order in which whole-program checks execute.
func NewState(cfg *config.Config, logger *config.LogGroup, front FrontEnd, reporter Reporter, detectors []Detector) *State {
	var enabled []Detector
	for _, d := range detectors {
		if cfg.CheckerEnabled(d.Name()) {
			enabled = append(enabled, d)
		} else {
			logger.Debugf("detector %s disabled by configuration", d.Name())
		}
	}
	return &State{
		Config:    cfg,
		Logger:    logger,
		FrontEnd:  front,
		detectors: enabled,
		reporter:  reporter,
		reported:  map[string]bool{},
	}
}

// Terminate requests the run to stop. Workers observe the flag between files
// and between major phases within a file; already cached results stay valid.
func (s *State) Terminate() {
	s.terminated.Store(true)
}

// Terminated reports whether termination was requested.
func (s *State) Terminated() bool {
	return s.terminated.Load()
}

// DefectsFound reports whether any detector signaled defects.
func (s *State) DefectsFound() bool {
	return s.defects.Load()
}

// Report forwards a diagnostic to the sink, dropping duplicates and findings
// whose severity is not enabled. Safe for concurrent use.
func (s *State) Report(d ctu.Diagnostic) {
	if !s.Config.SeverityEnabled(d.Severity) {
		return
	}
	if d.Inconclusive && !s.Config.Inconclusive {
		return
	}
	key := fmt.Sprintf("%s|%s|%s", d.Loc.String(), d.ID, d.Message)
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	if s.reported[key] {
		return
	}
	s.reported[key] = true
	if s.reporter != nil {
		s.reporter.Report(d)
	}
}

// checkTerminate polls both the run's terminate flag and the context.
func (s *State) checkTerminate(ctx context.Context) bool {
	if s.Terminated() {
		return true
	}
	select {
	case <-ctx.Done():
		s.Terminate()
		return true
	default:
		return false
	}
}
