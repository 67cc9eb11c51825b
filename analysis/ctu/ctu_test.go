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
	"testing"
)

func TestCallsMapOrder(t *testing.T) {
	rec := &FileRecord{}
	rec.AddFunctionCall(nullCall("f", "f", 1, loc("a.c", 1)))
	rec.AddNestedCall(passThrough("g", 1, "f", "f", 1, loc("b.c", 1)))

	facts := rec.CallsMap()["f"]
	if len(facts) != 2 {
		t.Fatalf("got %d facts for f, want 2", len(facts))
	}
	if _, ok := facts[0].(*NestedCall); !ok {
		t.Errorf("facts[0] = %T, nested calls must come first", facts[0])
	}
	if _, ok := facts[1].(*FunctionCall); !ok {
		t.Errorf("facts[1] = %T, function calls come last", facts[1])
	}
}

func TestCallsMapFreshPerCall(t *testing.T) {
	rec := &FileRecord{}
	rec.AddFunctionCall(nullCall("f", "f", 1, loc("a.c", 1)))
	before := rec.CallsMap()
	rec.AddFunctionCall(nullCall("g", "g", 1, loc("a.c", 2)))
	if len(before["g"]) != 0 {
		t.Error("an already built map must not see later facts")
	}
	if len(rec.CallsMap()["g"]) != 1 {
		t.Error("a fresh map must see the new facts")
	}
}

func TestAppendConcatenatesFacts(t *testing.T) {
	a := &FileRecord{}
	a.AddNestedCall(passThrough("g", 1, "f", "f", 1, loc("a.c", 1)))
	b := &FileRecord{}
	b.AddFunctionCall(nullCall("g", "g", 1, loc("b.c", 1)))

	combined := &FileRecord{}
	combined.Append(a)
	combined.Append(b)
	if len(combined.NestedCalls) != 1 || len(combined.FunctionCalls) != 1 {
		t.Errorf("combined has %d nested and %d function calls, want 1 and 1",
			len(combined.NestedCalls), len(combined.FunctionCalls))
	}
}

func TestAppendMergesCheckData(t *testing.T) {
	a := &FileRecord{}
	if err := a.SetCheckData("det", []UnsafeUsage{{MyID: "f", MyArgNr: 1, ArgName: "p", Loc: loc("a.c", 1), Value: -1}}); err != nil {
		t.Fatal(err)
	}
	b := &FileRecord{}
	if err := b.SetCheckData("det", []UnsafeUsage{{MyID: "g", MyArgNr: 1, ArgName: "q", Loc: loc("b.c", 1), Value: -1}}); err != nil {
		t.Fatal(err)
	}

	combined := &FileRecord{}
	combined.Append(a)
	combined.Append(b)

	var usages []UnsafeUsage
	ok, err := combined.CheckDataFor("det", &usages)
	if err != nil || !ok {
		t.Fatalf("CheckDataFor: ok=%v err=%v", ok, err)
	}
	if len(usages) != 2 {
		t.Errorf("merged payload has %d usages, want 2", len(usages))
	}
}

func TestCheckDataForMissing(t *testing.T) {
	rec := &FileRecord{}
	var out []UnsafeUsage
	ok, err := rec.CheckDataFor("nothing", &out)
	if ok || err != nil {
		t.Errorf("missing payload: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{
		ID:       "ctunullpointer",
		Severity: "error",
		Message:  "Null pointer dereference: x",
		Loc:      loc("a.c", 7),
	}
	want := "a.c:7:3: error: Null pointer dereference: x [ctunullpointer]"
	if d.String() != want {
		t.Errorf("String() = %q, want %q", d.String(), want)
	}
}
