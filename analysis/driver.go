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
	"os"

	"github.com/ctuscan/ctuscan/analysis/ctu"
)

// checkResult is the outcome of checking one file.
type checkResult struct {
	rec      *ctu.FileRecord
	cacheHit bool
	// complete is false when the file was abandoned mid-check, e.g. on
	// termination or a parse failure. Incomplete records never reach the
	// whole-program merge or the cache.
	complete bool
}

// checkFile runs the per-file pipeline: checksum, cache probe, parse, fact
// extraction, detectors, persist. The terminate flag is polled between major
// phases; an abandoned file yields an incomplete result.
func (s *State) checkFile(ctx context.Context, file string) *checkResult {
	logger := s.Logger
	res := &checkResult{rec: ctu.NewFileRecord(file, 0)}

	if s.Config.UserDefines != "" {
		logger.Infof("Checking %s: %s ...", file, s.Config.UserDefines)
	} else {
		logger.Infof("Checking %s ...", file)
	}

	src, err := os.ReadFile(file)
	if err != nil {
		logger.Errorf("cannot read %s: %v", file, err)
		return res
	}
	checksum := ctu.Checksum(src, s.Config.ToolInfo())
	res.rec.Checksum = checksum

	if res.rec.TryLoadFromCache(s.Config.BuildDir, checksum, logger) {
		logger.Debugf("cache hit for %s", file)
		for _, d := range res.rec.Diagnostics {
			s.Report(d)
		}
		res.cacheHit = true
		res.complete = true
		return res
	}

	if s.checkTerminate(ctx) {
		return res
	}

	parsed, err := s.FrontEnd.Parse(ctx, file, src)
	if err != nil {
		logger.Errorf("cannot parse %s: %v", file, err)
		return res
	}

	if s.checkTerminate(ctx) {
		return res
	}

	ctu.ExtractFacts(res.rec, parsed.Arena, parsed.Values)
	logger.Tracef("%s: %d function-call facts, %d nested-call facts",
		file, len(res.rec.FunctionCalls), len(res.rec.NestedCalls))

	for _, det := range s.detectors {
		if s.checkTerminate(ctx) {
			return res
		}
		det.CheckFile(s, parsed, res.rec)
	}
	res.complete = true

	for _, d := range res.rec.Diagnostics {
		s.Report(d)
	}

	if err := res.rec.Persist(s.Config.BuildDir); err != nil {
		// Caching is an optimization; a failed write only costs a
		// re-analysis next run.
		logger.Warnf("cannot persist analysis record for %s: %v", file, err)
	}
	return res
}
