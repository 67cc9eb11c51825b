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

// NullPointer finds pointer parameters that are dereferenced without a null
// check and are reachable by a null argument from another file.
type NullPointer struct{}

const nullPointerName = "nullpointer"

// Name implements analysis.Detector.
func (*NullPointer) Name() string { return nullPointerName }

// CheckFile collects the parameters the file dereferences unguarded.
func (*NullPointer) CheckFile(s *analysis.State, res *analysis.ParseResult, rec *ctu.FileRecord) {
	usages := ctu.GetUnsafeUsages(res.Arena, func(a *lang.Arena, n *lang.Node) (int64, bool) {
		switch n.Use {
		case lang.UseDeref, lang.UseIndex:
			return -1, true
		}
		return 0, false
	})
	storeUsages(s, rec, nullPointerName, usages)
}

// CheckWholeProgram connects null arguments to unguarded dereferences.
func (*NullPointer) CheckWholeProgram(s *analysis.State, combined *ctu.FileRecord) bool {
	return searchUsages(s, combined, nullPointerName, ctu.InvalidNull,
		"Dereferencing argument ARG that is null",
		func(u ctu.UnsafeUsage, origin *ctu.FunctionCall, path []valueflow.ErrorPathItem) {
			s.Report(ctu.Diagnostic{
				ID:           "ctunullpointer",
				Severity:     severityFor(origin),
				Message:      fmt.Sprintf("Null pointer dereference: %s", origin.ArgExpr),
				Loc:          u.Loc,
				CWE:          476,
				Inconclusive: origin.ArgValue.IsInconclusive(),
				Path:         path,
			})
		})
}
