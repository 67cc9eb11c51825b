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
	"strings"
	"testing"

	"github.com/ctuscan/ctuscan/analysis/lang"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
)

func loc(file string, line int) lang.Location {
	return lang.Location{File: file, Line: line, Column: 3}
}

func nullCall(calleeID, calleeName string, argNr int, at lang.Location) FunctionCall {
	return FunctionCall{
		Call:     Call{CalleeID: calleeID, CalleeName: calleeName, ArgNr: argNr, Loc: at},
		ArgExpr:  "x",
		ArgValue: valueflow.NewIntValue(0),
	}
}

func passThrough(myID string, myArgNr int, calleeID, calleeName string, argNr int, at lang.Location) NestedCall {
	return NestedCall{
		Call:    Call{CalleeID: calleeID, CalleeName: calleeName, ArgNr: argNr, Loc: at},
		MyID:    myID,
		MyArgNr: myArgNr,
	}
}

// chainRecord builds the 5-function scenario: f calls g with a null argument,
// and g, h, i forward their parameter down to j, which contains the unsafe
// usage.
func chainRecord() *FileRecord {
	rec := &FileRecord{}
	g, h, i, j := "b.c:1:1", "c.c:1:1", "d.c:1:1", "e.c:1:1"
	rec.AddFunctionCall(nullCall(g, "g", 1, loc("a.c", 10)))
	rec.AddNestedCall(passThrough(g, 1, h, "h", 1, loc("b.c", 2)))
	rec.AddNestedCall(passThrough(h, 1, i, "i", 1, loc("c.c", 2)))
	rec.AddNestedCall(passThrough(i, 1, j, "j", 1, loc("d.c", 2)))
	return rec
}

func TestFindPathDirect(t *testing.T) {
	rec := &FileRecord{}
	rec.AddFunctionCall(nullCall("a.c:5:1", "foo", 1, loc("a.c", 12)))

	chain := FindPath("a.c:5:1", 1, -1, InvalidNull, rec.CallsMap(), 0, false, 2)
	if len(chain) != 1 {
		t.Fatalf("chain length = %d, want 1", len(chain))
	}
	if _, ok := chain[0].(*FunctionCall); !ok {
		t.Errorf("chain[0] = %T, want *FunctionCall", chain[0])
	}
}

func TestFindPathDepthBound(t *testing.T) {
	calls := chainRecord().CallsMap()
	j := "e.c:1:1"

	if chain := FindPath(j, 1, -1, InvalidNull, calls, 0, false, 2); chain != nil {
		t.Errorf("depth-2 search should fail on a 3-hop chain, got %d facts", len(chain))
	}
	chain := FindPath(j, 1, -1, InvalidNull, calls, 0, false, 4)
	if len(chain) != 4 {
		t.Fatalf("depth-4 search: chain length = %d, want 4", len(chain))
	}
	if _, ok := chain[0].(*FunctionCall); !ok {
		t.Errorf("chain must start with the originating call, got %T", chain[0])
	}
	for k, fact := range chain[1:] {
		if _, ok := fact.(*NestedCall); !ok {
			t.Errorf("chain[%d] = %T, want *NestedCall", k+1, fact)
		}
	}
}

func TestFindPathHardCap(t *testing.T) {
	rec := &FileRecord{}
	rec.AddFunctionCall(nullCall("a.c:5:1", "foo", 1, loc("a.c", 12)))
	calls := rec.CallsMap()

	if FindPath("a.c:5:1", 1, -1, InvalidNull, calls, 10, false, 100) != nil {
		t.Error("the hard depth ceiling must apply regardless of the configured maximum")
	}
	if FindPath("a.c:5:1", 1, -1, InvalidNull, calls, 9, false, 100) == nil {
		t.Error("depth 9 is still within the hard ceiling")
	}
}

func TestFindPathArgNrMustMatch(t *testing.T) {
	rec := &FileRecord{}
	rec.AddFunctionCall(nullCall("a.c:5:1", "foo", 2, loc("a.c", 12)))
	if FindPath("a.c:5:1", 1, -1, InvalidNull, rec.CallsMap(), 0, false, 2) != nil {
		t.Error("facts for another argument position must not match")
	}
}

func TestFindPathSkipsWarningFacts(t *testing.T) {
	rec := &FileRecord{}
	fc := nullCall("a.c:5:1", "foo", 1, loc("a.c", 12))
	fc.Warning = true
	rec.AddFunctionCall(fc)
	calls := rec.CallsMap()

	if FindPath("a.c:5:1", 1, -1, InvalidNull, calls, 0, false, 2) != nil {
		t.Error("low-confidence facts must be skipped unless allowed")
	}
	if FindPath("a.c:5:1", 1, -1, InvalidNull, calls, 0, true, 2) == nil {
		t.Error("low-confidence facts should match when explicitly allowed")
	}
}

func TestFindPathValueKinds(t *testing.T) {
	uninit := FunctionCall{
		Call:     Call{CalleeID: "u", ArgNr: 1, Loc: loc("a.c", 1)},
		ArgValue: valueflow.Value{Kind: valueflow.Uninit},
	}
	buffer := FunctionCall{
		Call: Call{CalleeID: "b", ArgNr: 1, Loc: loc("a.c", 2)},
	}
	buffer.ArgValue = valueflow.NewIntValue(8)
	buffer.ArgValue.Kind = valueflow.BufferSize
	rec := &FileRecord{}
	rec.AddFunctionCall(uninit)
	rec.AddFunctionCall(buffer)
	calls := rec.CallsMap()

	if FindPath("u", 1, -1, InvalidUninit, calls, 0, false, 2) == nil {
		t.Error("uninit fact should match an uninit search")
	}
	if FindPath("u", 1, -1, InvalidNull, calls, 0, false, 2) != nil {
		t.Error("uninit fact must not match a null search")
	}

	// the passed buffer holds 8 bytes
	tests := []struct {
		offset int64
		match  bool
	}{
		{16, true}, // reads past the end
		{8, true},  // first byte past the end
		{4, false}, // fits
		{-1, true}, // unknown offset is treated as overflowing
	}
	for _, test := range tests {
		got := FindPath("b", 1, test.offset, InvalidBufferOverflow, calls, 0, false, 2) != nil
		if got != test.match {
			t.Errorf("buffer search with offset=%d: match = %v, want %v", test.offset, got, test.match)
		}
	}
}

func TestFindPathFirstMatchWins(t *testing.T) {
	rec := &FileRecord{}
	first := nullCall("a.c:5:1", "foo", 1, loc("a.c", 10))
	second := nullCall("a.c:5:1", "foo", 1, loc("a.c", 20))
	rec.AddFunctionCall(first)
	rec.AddFunctionCall(second)

	chain := FindPath("a.c:5:1", 1, -1, InvalidNull, rec.CallsMap(), 0, false, 2)
	if len(chain) != 1 {
		t.Fatalf("chain length = %d, want 1", len(chain))
	}
	if got := chain[0].(*FunctionCall).Loc.Line; got != 10 {
		t.Errorf("matched the fact at line %d, want the first inserted (line 10)", got)
	}
}

func TestErrorPath(t *testing.T) {
	calls := chainRecord().CallsMap()
	u := UnsafeUsage{
		MyID:    "e.c:1:1",
		MyArgNr: 1,
		ArgName: "p",
		Loc:     loc("e.c", 3),
		Value:   -1,
	}

	path, origin := calls.ErrorPath(InvalidNull, u, "Dereferencing argument ARG that is null", false, 4)
	if origin == nil {
		t.Fatal("expected a chain")
	}
	if origin.CalleeName != "g" {
		t.Errorf("origin callee = %s, want g", origin.CalleeName)
	}
	if len(path) != 5 {
		t.Fatalf("path length = %d, want 5 (4 hops + usage)", len(path))
	}
	if path[0].Loc.File != "a.c" {
		t.Errorf("path starts at %s, want the originating call in a.c", path[0].Loc.File)
	}
	if !strings.Contains(path[0].Info, "Calling function g, 1st argument is null") {
		t.Errorf("unexpected first hop info: %q", path[0].Info)
	}
	last := path[len(path)-1]
	if last.Loc != u.Loc {
		t.Errorf("path must end at the usage site, got %v", last.Loc)
	}
	if last.Info != "Dereferencing argument p that is null" {
		t.Errorf("ARG placeholder not substituted: %q", last.Info)
	}
}

func TestErrorPathNoChain(t *testing.T) {
	calls := CallsMap{}
	u := UnsafeUsage{MyID: "x", MyArgNr: 1, ArgName: "p", Loc: loc("x.c", 1), Value: -1}
	path, origin := calls.ErrorPath(InvalidNull, u, "info", false, 2)
	if path != nil || origin != nil {
		t.Error("no chain should produce a nil trace and a nil origin")
	}
}

func TestErrorPathIncludesValueTrace(t *testing.T) {
	rec := &FileRecord{}
	fc := nullCall("a.c:5:1", "foo", 1, loc("a.c", 12))
	fc.ArgValue.ErrorPath = []valueflow.ErrorPathItem{
		{Loc: loc("a.c", 8), Info: "Assignment 'x=NULL'"},
	}
	rec.AddFunctionCall(fc)
	u := UnsafeUsage{MyID: "a.c:5:1", MyArgNr: 1, ArgName: "p", Loc: loc("a.c", 6), Value: -1}

	path, _ := rec.CallsMap().ErrorPath(InvalidNull, u, "Dereferencing argument ARG that is null", false, 2)
	if len(path) != 3 {
		t.Fatalf("path length = %d, want 3 (value trace + call + usage)", len(path))
	}
	if path[0].Info != "Assignment 'x=NULL'" {
		t.Errorf("the value's own trace must come first, got %q", path[0].Info)
	}
}

func TestOrdinal(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "1st"}, {2, "2nd"}, {3, "3rd"}, {4, "4th"},
		{11, "11th"}, {12, "12th"}, {13, "13th"}, {21, "21st"},
	}
	for _, test := range tests {
		if got := ordinal(test.n); got != test.want {
			t.Errorf("ordinal(%d) = %q, want %q", test.n, got, test.want)
		}
	}
}
