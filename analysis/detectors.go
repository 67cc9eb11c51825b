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

import "github.com/ctuscan/ctuscan/analysis/ctu"

// Detector is one registered checker. Implementations live in
// analysis/checkers; the set running in a given State is fixed at
// construction time.
type Detector interface {
	// Name identifies the detector in configuration and cache payloads.
	Name() string

	// CheckFile runs the per-file logic. It records diagnostics and the
	// detector's whole-program payload (typically its unsafe usages) on
	// rec, and reports nothing directly. It runs concurrently across
	// files, one exclusive record per call.
	CheckFile(s *State, res *ParseResult, rec *ctu.FileRecord)

	// CheckWholeProgram runs once, single-threaded, over the combined
	// record of all files. It reports findings through s.Report and
	// returns true when it found defects.
	CheckWholeProgram(s *State, combined *ctu.FileRecord) bool
}
