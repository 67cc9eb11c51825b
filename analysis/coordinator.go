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
	"strings"

	"github.com/ctuscan/ctuscan/analysis/ctu"
	"github.com/ctuscan/ctuscan/internal/funcutil"
	"github.com/ctuscan/ctuscan/internal/graphutil"
)

// Run checks every file and, once all per-file checks have completed, runs
// the whole-program pass over the union of their facts. It returns true when
// any detector found defects.
//
// The transition from collecting to merged is a hard barrier: the merge takes
// an atomic snapshot of every record, so no detector may observe a partial
// union. If termination was requested before all files completed, the merge
// is skipped entirely, never half-executed.
func (s *State) Run(ctx context.Context, files []string) bool {
	s.phase.Store(int32(collecting))
	results := s.runFiles(ctx, files)

	if s.Terminated() {
		s.Logger.Infof("terminated before all files completed, skipping whole-program analysis")
		return s.DefectsFound()
	}

	var records []*ctu.FileRecord
	for _, res := range results {
		if res != nil && res.complete {
			records = append(records, res.rec)
		}
	}
	combined := s.merge(records)
	s.runWholeProgram(combined)
	return s.DefectsFound()
}

// RunWholeProgram merges already collected records and runs only the
// whole-program pass. The replay tool uses it on records loaded from a build
// directory.
func (s *State) RunWholeProgram(records []*ctu.FileRecord) bool {
	combined := s.merge(records)
	s.runWholeProgram(combined)
	return s.DefectsFound()
}

// merge concatenates every record's facts into one combined record and enters
// the terminal merged phase.
func (s *State) merge(records []*ctu.FileRecord) *ctu.FileRecord {
	if !s.phase.CompareAndSwap(int32(collecting), int32(merged)) {
		// Merged is terminal; a second merge on the same State is a
		// programming error.
		panic("analysis: whole-program merge entered twice")
	}
	combined := &ctu.FileRecord{}
	for _, rec := range records {
		combined.Append(rec)
	}
	s.Logger.Debugf("merged %d records: %d function-call facts, %d nested-call facts",
		len(records), len(combined.FunctionCalls), len(combined.NestedCalls))
	s.logRecursion(combined)
	return combined
}

// runWholeProgram invokes each detector once, single-threaded, with the
// combined view. Whole-program diagnostics therefore always appear strictly
// after every per-file diagnostic.
func (s *State) runWholeProgram(combined *ctu.FileRecord) {
	for _, det := range s.detectors {
		if det.CheckWholeProgram(s, combined) {
			s.Logger.Debugf("detector %s found defects", det.Name())
			s.defects.Store(true)
		}
	}
}

// logRecursion reports the recursive groups of the pass-through graph. The
// path search depth cap makes them harmless, but they explain missing chains
// when debugging.
func (s *State) logRecursion(combined *ctu.FileRecord) {
	if !s.Config.Verbose() {
		return
	}
	adjacency := map[string][]string{}
	nodeSet := map[string]bool{}
	for i := range combined.NestedCalls {
		nc := &combined.NestedCalls[i]
		adjacency[nc.MyID] = append(adjacency[nc.MyID], nc.CalleeID)
		nodeSet[nc.MyID] = true
	}
	if len(adjacency) == 0 {
		return
	}

	// sorted roots keep the reported groups stable across runs
	nodes := funcutil.SetToOrderedSlice(nodeSet)
	sccs := graphutil.StronglyConnectedComponents(nodes, func(id string) []string {
		return adjacency[id]
	})
	for _, scc := range sccs {
		if len(scc) > 1 {
			s.Logger.Debugf("recursive pass-through group: %s", strings.Join(scc, " -> "))
		}
	}

	cg := graphutil.NewCGraph(adjacency)
	for _, cycle := range graphutil.CycleNames(cg, graphutil.FindAllElementaryCycles(cg)) {
		s.Logger.Tracef("pass-through cycle: %s", strings.Join(cycle, " -> "))
	}
}
