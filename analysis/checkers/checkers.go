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

// Package checkers implements the built-in detectors: null pointer
// dereference, uninitialized variable use, buffer overrun and unused
// functions. Each detector stores its per-file findings as an opaque payload
// on the file record and connects them across files in its whole-program
// pass.
package checkers

import (
	"github.com/ctuscan/ctuscan/analysis"
	"github.com/ctuscan/ctuscan/analysis/ctu"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
)

// All returns fresh instances of every built-in detector, in the order their
// whole-program passes run.
func All() []analysis.Detector {
	return []analysis.Detector{
		&NullPointer{},
		&UninitVar{},
		&BufferOverrun{},
		&UnusedFunctions{},
	}
}

// storeUsages records a detector's unsafe usages on the file record. The
// payload is a JSON array so the whole-program merge can concatenate the
// files' payloads.
func storeUsages(s *analysis.State, rec *ctu.FileRecord, checker string, usages []ctu.UnsafeUsage) {
	if len(usages) == 0 {
		return
	}
	if err := rec.SetCheckData(checker, usages); err != nil {
		s.Logger.Warnf("%s: cannot store check data for %s: %v", checker, rec.File, err)
	}
}

// searchUsages runs the cross-file path search for every unsafe usage a
// detector stored, invoking report for each usage reached by an invalid
// value. It returns true when anything was reported. A payload that fails to
// decode only loses that detector's cached state; analysis continues.
func searchUsages(s *analysis.State, combined *ctu.FileRecord, checker string, invalid ctu.InvalidValueKind, info string,
	report func(u ctu.UnsafeUsage, origin *ctu.FunctionCall, path []valueflow.ErrorPathItem)) bool {

	var usages []ctu.UnsafeUsage
	ok, err := combined.CheckDataFor(checker, &usages)
	if err != nil {
		s.Logger.Infof("%s: discarding undecodable check data: %v", checker, err)
		return false
	}
	if !ok || len(usages) == 0 {
		return false
	}

	warning := s.Config.SeverityEnabled("warning") || s.Config.Inconclusive
	callsMap := combined.CallsMap()
	found := false
	for _, u := range usages {
		path, origin := callsMap.ErrorPath(invalid, u, info, warning, s.Config.MaxCtuDepth)
		if origin == nil {
			continue
		}
		report(u, origin, path)
		found = true
	}
	return found
}

// severityFor maps a fact's confidence to a diagnostic severity.
func severityFor(origin *ctu.FunctionCall) string {
	if origin.Warning {
		return "warning"
	}
	return "error"
}
