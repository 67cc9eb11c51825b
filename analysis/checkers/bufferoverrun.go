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

// BufferOverrun finds parameters indexed with a constant offset that can
// receive a smaller buffer from another file.
type BufferOverrun struct{}

const bufferOverrunName = "bufferoverrun"

// Name implements analysis.Detector.
func (*BufferOverrun) Name() string { return bufferOverrunName }

// CheckFile collects unguarded indexed reads of parameters. The recorded
// magnitude is the byte offset of the access, so the whole-program pass can
// compare it against the size of the buffer actually passed.
func (*BufferOverrun) CheckFile(s *analysis.State, res *analysis.ParseResult, rec *ctu.FileRecord) {
	usages := ctu.GetUnsafeUsages(res.Arena, func(a *lang.Arena, n *lang.Node) (int64, bool) {
		if n.Use != lang.UseIndex || n.Index < 0 {
			return 0, false
		}
		v := a.Var(n.Var)
		if v == nil || v.ElemSize <= 0 {
			return 0, false
		}
		return n.Index * int64(v.ElemSize), true
	})
	storeUsages(s, rec, bufferOverrunName, usages)
}

// CheckWholeProgram connects undersized buffer arguments to indexed reads
// that need more.
func (*BufferOverrun) CheckWholeProgram(s *analysis.State, combined *ctu.FileRecord) bool {
	return searchUsages(s, combined, bufferOverrunName, ctu.InvalidBufferOverflow,
		"Buffer overrun reading argument ARG",
		func(u ctu.UnsafeUsage, origin *ctu.FunctionCall, path []valueflow.ErrorPathItem) {
			access := "it is read at an unknown offset"
			if u.Value >= 0 {
				access = fmt.Sprintf("it is read at byte offset %d", u.Value)
			}
			s.Report(ctu.Diagnostic{
				ID:       "ctubufferoverrun",
				Severity: severityFor(origin),
				Message: fmt.Sprintf("Buffer overrun: argument %s points at a buffer of %d bytes but %s",
					u.ArgName, origin.ArgValue.IntValue, access),
				Loc:          u.Loc,
				CWE:          788,
				Inconclusive: origin.ArgValue.IsInconclusive(),
				Path:         path,
			})
		})
}
