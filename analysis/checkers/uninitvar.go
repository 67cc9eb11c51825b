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

package checkers

import (
	"fmt"

	"github.com/ctuscan/ctuscan/analysis"
	"github.com/ctuscan/ctuscan/analysis/ctu"
	"github.com/ctuscan/ctuscan/analysis/lang"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
)

// UninitVar finds pointer parameters that are read unguarded and can receive
// the address of uninitialized data from another file.
type UninitVar struct{}

const uninitVarName = "uninitvar"

// Name implements analysis.Detector.
func (*UninitVar) Name() string { return uninitVarName }

// CheckFile collects the parameters the file reads through unguarded. Unlike
// the null-pointer scan, a plain read through the pointer is enough: the
// pointee, not the pointer, is the uninitialized object.
func (*UninitVar) CheckFile(s *analysis.State, res *analysis.ParseResult, rec *ctu.FileRecord) {
	usages := ctu.GetUnsafeUsages(res.Arena, func(a *lang.Arena, n *lang.Node) (int64, bool) {
		switch n.Use {
		case lang.UseDeref, lang.UseIndex, lang.UseRead:
			return -1, true
		}
		return 0, false
	})
	storeUsages(s, rec, uninitVarName, usages)
}

// CheckWholeProgram connects addresses of uninitialized variables to
// unguarded reads.
func (*UninitVar) CheckWholeProgram(s *analysis.State, combined *ctu.FileRecord) bool {
	return searchUsages(s, combined, uninitVarName, ctu.InvalidUninit,
		"Using argument ARG that points at uninitialized variable",
		func(u ctu.UnsafeUsage, origin *ctu.FunctionCall, path []valueflow.ErrorPathItem) {
			s.Report(ctu.Diagnostic{
				ID:           "ctuuninitvar",
				Severity:     severityFor(origin),
				Message:      fmt.Sprintf("Using argument %s that points at uninitialized variable %s", u.ArgName, origin.ArgExpr),
				Loc:          u.Loc,
				CWE:          457,
				Inconclusive: origin.ArgValue.IsInconclusive(),
				Path:         path,
			})
		})
}
