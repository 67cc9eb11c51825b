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
	"github.com/ctuscan/ctuscan/analysis/valueflow"
)

// ExtractFacts scans a translation unit and records its function-call and
// nested-call facts into rec. The syntax tree and its attached values are
// read-only inputs; the front end owns them.
func ExtractFacts(rec *FileRecord, a *lang.Arena, values valueflow.ValueMap) {
	for i := range a.Functions() {
		fn := &a.Functions()[i]
		extractFunctionCalls(rec, a, values, fn)
		extractNestedCalls(rec, a, fn)
	}
}

// extractFunctionCalls records one fact per interesting value attached to a
// call argument: a possibly-null pointer, a buffer of known size, a local
// array or object passed by address, or the address of uninitialized data.
func extractFunctionCalls(rec *FileRecord, a *lang.Arena, values valueflow.ValueMap, fn *lang.Function) {
	for _, id := range fn.Body {
		call := a.Node(id)
		if call == nil || call.Kind != lang.KindCall || call.CalleeID == "" {
			continue
		}
		for argnr, argID := range call.Args {
			arg := a.Node(argID)
			if arg == nil {
				continue
			}
			newCall := func() Call {
				return Call{
					CalleeID:   call.CalleeID,
					CalleeName: call.CalleeName,
					ArgNr:      argnr + 1,
					Loc:        call.Loc,
				}
			}

			for _, v := range values.At(argID) {
				if (!v.IsIntValue() || v.IntValue != 0 || v.IsInconclusive()) && !v.IsBufferSizeValue() {
					continue
				}
				// Impossible values describe what cannot occur; they
				// never represent a concrete argument value.
				if v.IsImpossible() {
					continue
				}
				rec.AddFunctionCall(FunctionCall{
					Call:     newCall(),
					ArgExpr:  arg.Expr,
					ArgValue: v,
					Warning:  !v.ErrorSeverity() || !v.IsKnown(),
				})
			}

			// Fixed-size array argument: its byte size is a buffer fact.
			if arg.Kind == lang.KindVarRef {
				if av := a.Var(arg.Var); av != nil && av.Array && av.Dim > 0 && av.ElemSize > 0 {
					v := valueflow.NewIntValue(int64(av.Dim) * int64(av.ElemSize))
					v.Kind = valueflow.BufferSize
					v.SetKnown()
					rec.AddFunctionCall(FunctionCall{
						Call:     newCall(),
						ArgExpr:  arg.Expr,
						ArgValue: v,
					})
				}
			}

			if arg.Kind != lang.KindVarRef || arg.Use != lang.UseAddrOf {
				continue
			}
			av := a.Var(arg.Var)
			if av == nil || av.Pointer != 0 {
				continue
			}

			// &obj passes a buffer of the object's size.
			if !av.Array && av.ElemSize > 0 {
				v := valueflow.NewIntValue(int64(av.ElemSize))
				v.Kind = valueflow.BufferSize
				v.SetKnown()
				rec.AddFunctionCall(FunctionCall{
					Call:     newCall(),
					ArgExpr:  arg.Expr,
					ArgValue: v,
				})
			}

			// &x where x holds exactly one value and that value is
			// uninitialized.
			vs := values.At(argID)
			if len(vs) == 1 && vs[0].IsUninitValue() && !vs[0].IsInconclusive() {
				v := vs[0]
				rec.AddFunctionCall(FunctionCall{
					Call:     newCall(),
					ArgExpr:  arg.Expr,
					ArgValue: v,
				})
			}
		}
	}
}

// extractNestedCalls records, for each pointer parameter, the first call that
// forwards it untouched into another known function.
func extractNestedCalls(rec *FileRecord, a *lang.Arena, fn *lang.Function) {
	for paramNr := range fn.Params {
		p := &fn.Params[paramNr]
		if !p.Pointer && !p.Array {
			continue
		}
		callID, argnr2 := forwardedTo(a, fn, p.Var)
		if argnr2 <= 0 {
			continue
		}
		call := a.Node(callID)
		rec.AddNestedCall(NestedCall{
			Call: Call{
				CalleeID:   call.CalleeID,
				CalleeName: call.CalleeName,
				ArgNr:      argnr2,
				Loc:        call.Loc,
			},
			MyID:    fn.ID(),
			MyArgNr: paramNr + 1,
		})
	}
}

// forwardedTo finds the first call in fn's body that passes the variable
// directly as an argument and returns the call node with the 1-based argument
// position, or (NoNode, -1).
func forwardedTo(a *lang.Arena, fn *lang.Function, v lang.VarID) (lang.NodeID, int) {
	for _, id := range fn.Body {
		call := a.Node(id)
		if call == nil || call.Kind != lang.KindCall || call.CalleeID == "" {
			continue
		}
		for argnr, argID := range call.Args {
			arg := a.Node(argID)
			if arg == nil || arg.Kind != lang.KindVarRef || arg.Var != v {
				continue
			}
			// Only a bare reference counts; &v or v[i] is not a
			// pass-through.
			if arg.Use != lang.UseRead && arg.Use != lang.UseArg {
				continue
			}
			return id, argnr + 1
		}
	}
	return lang.NoNode, -1
}
