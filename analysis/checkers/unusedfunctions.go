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
	"sort"

	"github.com/ctuscan/ctuscan/analysis"
	"github.com/ctuscan/ctuscan/analysis/ctu"
	"github.com/ctuscan/ctuscan/analysis/lang"
)

// UnusedFunctions reports functions that are defined but never called
// anywhere in the program. It is inherently a whole-program check: a function
// unused in its own file may well be called from another.
type UnusedFunctions struct{}

const unusedFunctionsName = "unusedfunctions"

// functionUse is the per-file payload: every definition and every resolved or
// named call in the file.
type functionUse struct {
	Defined []definedFunction `json:"defined,omitempty"`
	Called  []string          `json:"called,omitempty"`
}

type definedFunction struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Loc  lang.Location `json:"loc"`
}

// Name implements analysis.Detector.
func (*UnusedFunctions) Name() string { return unusedFunctionsName }

// CheckFile records the file's function definitions and call targets.
func (*UnusedFunctions) CheckFile(s *analysis.State, res *analysis.ParseResult, rec *ctu.FileRecord) {
	var data functionUse
	a := res.Arena
	for i := range a.Functions() {
		fn := &a.Functions()[i]
		data.Defined = append(data.Defined, definedFunction{ID: fn.ID(), Name: fn.Name, Loc: fn.Def})
		for _, id := range fn.Body {
			n := a.Node(id)
			if n == nil || n.Kind != lang.KindCall {
				continue
			}
			target := n.CalleeID
			if target == "" {
				// unresolved call, fall back to the spelled name
				target = n.CalleeName
			}
			if target != "" {
				data.Called = append(data.Called, target)
			}
		}
	}
	if len(data.Defined) == 0 && len(data.Called) == 0 {
		return
	}
	// one-element array: the whole-program merge concatenates the files'
	// payloads
	if err := rec.SetCheckData(unusedFunctionsName, []functionUse{data}); err != nil {
		s.Logger.Warnf("%s: cannot store check data for %s: %v", unusedFunctionsName, rec.File, err)
	}
}

// CheckWholeProgram subtracts every called target from the set of
// definitions. Style findings never fail the run.
func (*UnusedFunctions) CheckWholeProgram(s *analysis.State, combined *ctu.FileRecord) bool {
	if !s.Config.SeverityEnabled("style") {
		return false
	}
	var data []functionUse
	ok, err := combined.CheckDataFor(unusedFunctionsName, &data)
	if err != nil {
		s.Logger.Infof("%s: discarding undecodable check data: %v", unusedFunctionsName, err)
		return false
	}
	if !ok {
		return false
	}

	called := map[string]bool{}
	var defs []definedFunction
	for _, fu := range data {
		defs = append(defs, fu.Defined...)
		for _, target := range fu.Called {
			called[target] = true
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	for _, def := range defs {
		if def.Name == "main" || called[def.ID] || called[def.Name] {
			continue
		}
		s.Report(ctu.Diagnostic{
			ID:       "unusedFunction",
			Severity: "style",
			Message:  fmt.Sprintf("The function '%s' is never used.", def.Name),
			Loc:      def.Loc,
			CWE:      561,
		})
	}
	return false
}
