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

package checkers_test

import (
	"testing"

	"github.com/ctuscan/ctuscan/analysis"
	"github.com/ctuscan/ctuscan/analysis/checkers"
	"github.com/ctuscan/ctuscan/analysis/config"
	"github.com/ctuscan/ctuscan/analysis/ctu"
	"github.com/ctuscan/ctuscan/analysis/lang"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
	"github.com/ctuscan/ctuscan/internal/analysistest"
)

type collector struct {
	diags []ctu.Diagnostic
}

func (c *collector) Report(d ctu.Diagnostic) { c.diags = append(c.diags, d) }

// runDetector pushes each translation unit through the per-file pipeline and
// then runs the detector's whole-program pass on the merged record.
func runDetector(t *testing.T, cfg *config.Config, det analysis.Detector, tus ...*analysistest.TU) ([]ctu.Diagnostic, bool) {
	t.Helper()
	sink := &collector{}
	s := analysis.NewState(cfg, analysistest.NewLogger(), nil, sink, nil)
	combined := &ctu.FileRecord{}
	for _, tu := range tus {
		rec := ctu.NewFileRecord(tu.File, 0)
		ctu.ExtractFacts(rec, tu.Arena, tu.Values)
		det.CheckFile(s, tu.Result(), rec)
		combined.Append(rec)
	}
	found := det.CheckWholeProgram(s, combined)
	return sink.diags, found
}

func knownNull() valueflow.Value {
	v := valueflow.NewIntValue(0)
	v.SetKnown()
	return v
}

func TestNullPointerAcrossFiles(t *testing.T) {
	lib := analysistest.NewTU("lib.c")
	foo := lib.Func("foo", 1, "p")
	foo.Deref(2, 0)

	main := analysistest.NewTU("main.c")
	bar := main.Func("bar", 1)
	x := main.Arena.AddVar(lang.VarInfo{Name: "x", Pointer: 1, ElemSize: 8})
	_, args := bar.Call(2, foo, analysistest.Arg{Var: x})
	main.Values.Attach(args[0], knownNull())

	diags, found := runDetector(t, config.NewDefault(), &checkers.NullPointer{}, lib, main)
	if !found || len(diags) != 1 {
		t.Fatalf("found=%v diags=%+v, want one finding", found, diags)
	}
	d := diags[0]
	if d.ID != "ctunullpointer" || d.Severity != "error" || d.CWE != 476 {
		t.Errorf("diagnostic = %+v", d)
	}
	if d.Message != "Null pointer dereference: x" {
		t.Errorf("message = %q", d.Message)
	}
	if d.Loc.File != "lib.c" || d.Loc.Line != 2 {
		t.Errorf("diagnostic at %s, want the dereference in lib.c:2", d.Loc.String())
	}
	last := d.Path[len(d.Path)-1]
	if last.Info != "Dereferencing argument p that is null" {
		t.Errorf("path ends with %q", last.Info)
	}
}

func TestNullPointerPossibleNeedsWarnings(t *testing.T) {
	lib := analysistest.NewTU("lib.c")
	foo := lib.Func("foo", 1, "p")
	foo.Deref(2, 0)

	main := analysistest.NewTU("main.c")
	bar := main.Func("bar", 1)
	x := main.Arena.AddVar(lang.VarInfo{Name: "x", Pointer: 1, ElemSize: 8})
	_, args := bar.Call(2, foo, analysistest.Arg{Var: x})
	main.Values.Attach(args[0], valueflow.NewIntValue(0)) // possible, not known

	if diags, found := runDetector(t, config.NewDefault(), &checkers.NullPointer{}, lib, main); found || len(diags) != 0 {
		t.Errorf("possible-null finding reported without warnings enabled: %+v", diags)
	}

	cfg := config.NewDefault()
	cfg.Severities = []string{"warning"}
	diags, found := runDetector(t, cfg, &checkers.NullPointer{}, lib, main)
	if !found || len(diags) != 1 || diags[0].Severity != "warning" {
		t.Errorf("found=%v diags=%+v, want one warning finding", found, diags)
	}
}

func TestNullPointerGuardedDerefIgnored(t *testing.T) {
	lib := analysistest.NewTU("lib.c")
	foo := lib.Func("foo", 1, "p")
	foo.Branch(2, true) // if (!p) return;
	foo.Deref(3, 0)

	main := analysistest.NewTU("main.c")
	bar := main.Func("bar", 1)
	x := main.Arena.AddVar(lang.VarInfo{Name: "x", Pointer: 1, ElemSize: 8})
	_, args := bar.Call(2, foo, analysistest.Arg{Var: x})
	main.Values.Attach(args[0], knownNull())

	if diags, found := runDetector(t, config.NewDefault(), &checkers.NullPointer{}, lib, main); found || len(diags) != 0 {
		t.Errorf("guarded dereference reported: %+v", diags)
	}
}

func TestBufferOverrun(t *testing.T) {
	lib := analysistest.NewTU("lib.c")
	foo := lib.Func("foo", 1, "p")
	foo.IndexRead(2, 0, 2) // p[2], 8-byte elements: byte offset 16

	main := analysistest.NewTU("main.c")
	bar := main.Func("bar", 1)
	buf := main.Arena.AddVar(lang.VarInfo{Name: "buf", Array: true, Dim: 2, ElemSize: 8})
	bar.Call(2, foo, analysistest.Arg{Var: buf}) // 16-byte buffer

	diags, found := runDetector(t, config.NewDefault(), &checkers.BufferOverrun{}, lib, main)
	if !found || len(diags) != 1 {
		t.Fatalf("found=%v diags=%+v, want one finding", found, diags)
	}
	d := diags[0]
	if d.ID != "ctubufferoverrun" || d.CWE != 788 {
		t.Errorf("diagnostic = %+v", d)
	}
	want := "Buffer overrun: argument p points at a buffer of 16 bytes but it is read at byte offset 16"
	if d.Message != want {
		t.Errorf("message = %q, want %q", d.Message, want)
	}
}

func TestBufferOverrunInBoundsIgnored(t *testing.T) {
	lib := analysistest.NewTU("lib.c")
	foo := lib.Func("foo", 1, "p")
	foo.IndexRead(2, 0, 1) // p[1]: byte offset 8, the last valid element

	main := analysistest.NewTU("main.c")
	bar := main.Func("bar", 1)
	buf := main.Arena.AddVar(lang.VarInfo{Name: "buf", Array: true, Dim: 2, ElemSize: 8})
	bar.Call(2, foo, analysistest.Arg{Var: buf})

	if diags, found := runDetector(t, config.NewDefault(), &checkers.BufferOverrun{}, lib, main); found || len(diags) != 0 {
		t.Errorf("in-bounds read reported: %+v", diags)
	}
}

func TestUninitVarPlainReadCounts(t *testing.T) {
	lib := analysistest.NewTU("lib.c")
	foo := lib.Func("foo", 1, "p")
	foo.Use(2, foo.ParamVar(0), lang.UseRead) // reading *p is implied by any read through the parameter

	main := analysistest.NewTU("main.c")
	bar := main.Func("bar", 1)
	x := main.Arena.AddVar(lang.VarInfo{Name: "x"})
	_, args := bar.Call(2, foo, analysistest.Arg{Expr: "&x", Var: x, Use: lang.UseAddrOf})
	main.Values.Attach(args[0], valueflow.Value{Kind: valueflow.Uninit})

	diags, found := runDetector(t, config.NewDefault(), &checkers.UninitVar{}, lib, main)
	if !found || len(diags) != 1 {
		t.Fatalf("found=%v diags=%+v, want one finding", found, diags)
	}
	if diags[0].ID != "ctuuninitvar" || diags[0].CWE != 457 {
		t.Errorf("diagnostic = %+v", diags[0])
	}
}

func TestUnusedFunctions(t *testing.T) {
	one := analysistest.NewTU("one.c")
	f := one.Func("f", 1)
	g := one.Func("g", 5)
	f.Call(2, g)
	one.Func("orphan", 9)
	one.Func("main", 20)

	two := analysistest.NewTU("two.c")
	h := two.Func("h", 1)
	h.CallNamed(2, "f") // unresolved, matched by name

	cfg := config.NewDefault()
	cfg.Severities = []string{"style"}
	diags, found := runDetector(t, cfg, &checkers.UnusedFunctions{}, one, two)
	if found {
		t.Error("style findings must not fail the run")
	}
	// orphan and h are never called; f by name, g by id, main by convention.
	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2: %+v", len(diags), diags)
	}
	names := map[string]bool{}
	for _, d := range diags {
		if d.ID != "unusedFunction" || d.Severity != "style" {
			t.Errorf("diagnostic = %+v", d)
		}
		names[d.Message] = true
	}
	if !names["The function 'orphan' is never used."] || !names["The function 'h' is never used."] {
		t.Errorf("messages = %v", names)
	}
}

func TestUnusedFunctionsNeedsStyle(t *testing.T) {
	one := analysistest.NewTU("one.c")
	one.Func("orphan", 1)

	if diags, _ := runDetector(t, config.NewDefault(), &checkers.UnusedFunctions{}, one); len(diags) != 0 {
		t.Errorf("style disabled but got %+v", diags)
	}
}
