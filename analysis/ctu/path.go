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
	"fmt"
	"strings"

	"github.com/ctuscan/ctuscan/analysis/config"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
)

// FindPath searches the call facts for a chain that delivers an invalid value
// into the function identified by calleeID at the given 1-based argument
// position. unsafeValue is the magnitude associated with the unsafe usage
// (the byte offset of a buffer read; negative when unknown).
//
// The returned chain is ordered from the originating function call to the
// pass-through call nearest the unsafe usage; its first element is always a
// *FunctionCall. A nil result means no chain was found, which is never an
// error: the related diagnostic is simply suppressed.
//
// The search fails once depth reaches maxDepth or the hard ceiling
// config.MaxCtuDepthLimit, so mutually recursive call graphs terminate.
// Within one callee's fact list the first structural match wins.
func FindPath(calleeID string, argNr int, unsafeValue int64, invalid InvalidValueKind, calls CallsMap, depth int, warning bool, maxDepth int) []CallFact {
	if depth >= maxDepth || depth >= config.MaxCtuDepthLimit {
		return nil
	}
	for _, fact := range calls[calleeID] {
		if fact.base().ArgNr != argNr {
			continue
		}
		switch f := fact.(type) {
		case *FunctionCall:
			if f.Warning && !warning {
				continue
			}
			if !matchesInvalidValue(f, unsafeValue, invalid) {
				continue
			}
			return []CallFact{f}
		case *NestedCall:
			if sub := FindPath(f.MyID, f.MyArgNr, unsafeValue, invalid, calls, depth+1, warning, maxDepth); sub != nil {
				return append(sub, f)
			}
		}
	}
	return nil
}

func matchesInvalidValue(fc *FunctionCall, unsafeValue int64, invalid InvalidValueKind) bool {
	switch invalid {
	case InvalidNull:
		return fc.ArgValue.IsIntValue() && fc.ArgValue.IntValue == 0
	case InvalidUninit:
		return fc.ArgValue.IsUninitValue()
	case InvalidBufferOverflow:
		if !fc.ArgValue.IsBufferSizeValue() {
			return false
		}
		// The usage reads at byte offset unsafeValue; the argument
		// carries a buffer of ArgValue.IntValue bytes. An unknown
		// offset is treated as overflowing.
		return unsafeValue < 0 || unsafeValue >= fc.ArgValue.IntValue
	}
	return false
}

// ErrorPath runs FindPath for the given unsafe usage and flattens a found
// chain into the human-readable trace of a diagnostic: the originating call
// site first (prefixed by the trace of the value itself), one entry per
// pass-through hop, and the usage site last. info describes the usage; the
// placeholder "ARG" in it is replaced by the parameter name.
//
// The returned *FunctionCall is the fact that originated the value; it is nil
// when no chain exists, in which case the trace is nil too.
func (m CallsMap) ErrorPath(invalid InvalidValueKind, u UnsafeUsage, info string, warning bool, maxDepth int) ([]valueflow.ErrorPathItem, *FunctionCall) {
	chain := FindPath(u.MyID, u.MyArgNr, u.Value, invalid, m, 0, warning, maxDepth)
	if chain == nil {
		return nil, nil
	}

	value1 := "uninitialized"
	if invalid == InvalidNull {
		value1 = "null"
	}

	var path []valueflow.ErrorPathItem
	var origin *FunctionCall
	for _, fact := range chain {
		if fc, ok := fact.(*FunctionCall); ok {
			origin = fc
			path = append(path, fc.ArgValue.ErrorPath...)
		}
		c := fact.base()
		path = append(path, valueflow.ErrorPathItem{
			Loc:  c.Loc,
			Info: fmt.Sprintf("Calling function %s, %s argument is %s", c.CalleeName, ordinal(c.ArgNr), value1),
		})
	}
	path = append(path, valueflow.ErrorPathItem{
		Loc:  u.Loc,
		Info: strings.ReplaceAll(info, "ARG", u.ArgName),
	})
	return path, origin
}

// ordinal returns "1st", "2nd", "3rd", "4th", ...
func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
