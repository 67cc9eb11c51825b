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

package ctu

import (
	"github.com/ctuscan/ctuscan/analysis/lang"
)

// UsageClassifier decides whether a read of a parameter variable is unsafe
// for one detector, e.g. a dereference for the null-pointer detector or an
// indexed read for the buffer detector. The returned magnitude is
// detector-specific (the byte offset of an indexed read); return a negative
// value when none applies.
type UsageClassifier func(a *lang.Arena, n *lang.Node) (value int64, unsafe bool)

// GetUnsafeUsages scans every function for pointer or array parameters that
// are used before anything could have written to them. The scan is
// conservative: any path that might modify the parameter or leave the
// function first makes the parameter "not unsafe". False negatives are
// accepted over false positives. At most one usage is recorded per parameter,
// the first one in source order.
func GetUnsafeUsages(a *lang.Arena, classify UsageClassifier) []UnsafeUsage {
	var usages []UnsafeUsage
	for i := range a.Functions() {
		fn := &a.Functions()[i]
		for paramNr := range fn.Params {
			p := &fn.Params[paramNr]
			if !p.Pointer && !p.Array {
				continue
			}
			if u, ok := scanParam(a, fn, paramNr, classify); ok {
				usages = append(usages, u)
			}
		}
	}
	return usages
}

func scanParam(a *lang.Arena, fn *lang.Function, paramNr int, classify UsageClassifier) (UnsafeUsage, bool) {
	p := &fn.Params[paramNr]
	for i := 0; i < len(fn.Body); i++ {
		n := a.Node(fn.Body[i])
		if n == nil {
			continue
		}
		switch n.Kind {
		case lang.KindBranch:
			// A branch that can leave the function, or whose body might
			// write the parameter, makes "used before written"
			// undecidable. Give up on this parameter.
			if n.Returns {
				return UnsafeUsage{}, false
			}
			if _, written := n.Writes[p.Var]; written {
				return UnsafeUsage{}, false
			}
			i = n.BodyEnd
		case lang.KindCondOp:
			// Short-circuit and ternary operands evaluate conditionally;
			// "before any write" is ambiguous inside them.
			i = n.SpanEnd
		case lang.KindVarRef:
			if n.Var != p.Var {
				continue
			}
			value, unsafe := classify(a, n)
			if !unsafe {
				return UnsafeUsage{}, false
			}
			return UnsafeUsage{
				MyID:    fn.ID(),
				MyArgNr: paramNr + 1,
				ArgName: p.Name,
				Loc:     n.Loc,
				Value:   value,
			}, true
		}
	}
	return UnsafeUsage{}, false
}
