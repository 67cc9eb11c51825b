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

// Package analysistest provides the helpers the analysis tests share: a
// builder for small translation units, an in-memory front end, and txtar
// fixture extraction.
package analysistest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctuscan/ctuscan/analysis"
	"github.com/ctuscan/ctuscan/analysis/config"
	"github.com/ctuscan/ctuscan/analysis/lang"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
	"golang.org/x/tools/txtar"
)

// ExtractArchive materializes a txtar archive into a fresh temp directory and
// returns the directory. Fixtures for driver tests bundle source files,
// config.yaml and pre-built records this way.
func ExtractArchive(t *testing.T, archive []byte) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse(archive).Files {
		p := filepath.Join(dir, f.Name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("extracting %s: %v", f.Name, err)
		}
		if err := os.WriteFile(p, f.Data, 0o644); err != nil {
			t.Fatalf("extracting %s: %v", f.Name, err)
		}
	}
	return dir
}

// LoadConfig loads dir/config.yaml as the global configuration.
func LoadConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	config.SetGlobalConfig(filepath.Join(dir, "config.yaml"))
	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("error loading global config: %v", err)
	}
	return cfg
}

// NewLogger returns a log group that discards everything below errors, to
// keep test output quiet.
func NewLogger() *config.LogGroup {
	cfg := config.NewDefault()
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return logger
}

// FrontEnd is an in-memory front end: file path to pre-built parse result.
type FrontEnd struct {
	Results map[string]*analysis.ParseResult
}

// Parse implements analysis.FrontEnd.
func (fe FrontEnd) Parse(_ context.Context, file string, _ []byte) (*analysis.ParseResult, error) {
	res, ok := fe.Results[file]
	if !ok {
		return nil, fmt.Errorf("no parse result for %s", file)
	}
	return res, nil
}

// TU builds one translation unit: an arena plus its attached values.
type TU struct {
	File   string
	Arena  *lang.Arena
	Values valueflow.ValueMap
}

// NewTU returns an empty translation unit for the given file name.
func NewTU(file string) *TU {
	return &TU{File: file, Arena: lang.NewArena(), Values: valueflow.ValueMap{}}
}

// Result wraps the unit as a front-end parse result.
func (tu *TU) Result() *analysis.ParseResult {
	return &analysis.ParseResult{Arena: tu.Arena, Values: tu.Values}
}

// Func declares a function at the given line whose parameters are all
// pointers of 8-byte elements. Body nodes are added through the returned
// builder, in source order.
func (tu *TU) Func(name string, line int, params ...string) *FuncBuilder {
	fn := lang.Function{
		Name: name,
		Def:  lang.Location{File: tu.File, Line: line, Column: 1},
	}
	for _, p := range params {
		v := tu.Arena.AddVar(lang.VarInfo{Name: p, Pointer: 1, ElemSize: 8})
		fn.Params = append(fn.Params, lang.Param{Name: p, Var: v, Pointer: true, Indirect: 1})
	}
	tu.Arena.AddFunction(fn)
	return &FuncBuilder{tu: tu, idx: len(tu.Arena.Functions()) - 1}
}

// FuncBuilder appends body nodes to one declared function.
type FuncBuilder struct {
	tu  *TU
	idx int
}

func (f *FuncBuilder) fn() *lang.Function {
	return &f.tu.Arena.Functions()[f.idx]
}

// ID returns the function's cross-translation-unit identity.
func (f *FuncBuilder) ID() string { return f.fn().ID() }

// Name returns the function name.
func (f *FuncBuilder) Name() string { return f.fn().Name }

// ParamVar returns the variable of the i-th (0-based) parameter.
func (f *FuncBuilder) ParamVar(i int) lang.VarID { return f.fn().Params[i].Var }

func (f *FuncBuilder) loc(line int) lang.Location {
	return lang.Location{File: f.tu.File, Line: line, Column: 3}
}

func (f *FuncBuilder) add(n lang.Node) lang.NodeID {
	id := f.tu.Arena.AddNode(n)
	f.fn().Body = append(f.fn().Body, id)
	return id
}

// Use appends a reference to a variable with the given use kind.
func (f *FuncBuilder) Use(line int, v lang.VarID, use lang.VarUse) lang.NodeID {
	return f.add(lang.Node{
		Kind:  lang.KindVarRef,
		Loc:   f.loc(line),
		Var:   v,
		Use:   use,
		Index: -1,
		Expr:  f.tu.Arena.Var(v).Name,
	})
}

// Deref appends an unguarded dereference of the i-th parameter.
func (f *FuncBuilder) Deref(line int, i int) lang.NodeID {
	return f.Use(line, f.ParamVar(i), lang.UseDeref)
}

// IndexRead appends a read of param[index] on the i-th parameter.
func (f *FuncBuilder) IndexRead(line int, i int, index int64) lang.NodeID {
	v := f.ParamVar(i)
	id := f.add(lang.Node{
		Kind:  lang.KindVarRef,
		Loc:   f.loc(line),
		Var:   v,
		Use:   lang.UseIndex,
		Index: index,
		Expr:  fmt.Sprintf("%s[%d]", f.tu.Arena.Var(v).Name, index),
	})
	return id
}

// CondOp appends a conditional-operator marker whose span covers the next
// span body nodes added after it.
func (f *FuncBuilder) CondOp(line int, span int) lang.NodeID {
	id := f.add(lang.Node{
		Kind:  lang.KindCondOp,
		Loc:   f.loc(line),
		Index: -1,
	})
	f.tu.Arena.Node(id).SpanEnd = len(f.fn().Body) - 1 + span
	return id
}

// Branch appends a conditional block. returns marks a block that can leave
// the function; writes lists variables the block may modify.
func (f *FuncBuilder) Branch(line int, returns bool, writes ...lang.VarID) lang.NodeID {
	w := map[lang.VarID]int{}
	for _, v := range writes {
		w[v] = 0
	}
	id := f.add(lang.Node{
		Kind:    lang.KindBranch,
		Loc:     f.loc(line),
		Index:   -1,
		Returns: returns,
		Writes:  w,
	})
	// empty block: scanning resumes right after it
	f.tu.Arena.Node(id).BodyEnd = len(f.fn().Body) - 1
	return id
}

// Arg describes one call argument for the builder.
type Arg struct {
	// Expr is the argument expression text; derived from Var when empty.
	Expr string
	// Var is the referenced variable, lang.NoVar for a plain expression.
	Var lang.VarID
	// Use is how the argument uses Var; UseArg when zero-valued reads are
	// meant.
	Use lang.VarUse
}

// Call appends a call to the function defined by callee. It returns the call
// node and one node per argument, in order; values attach to the argument
// nodes.
func (f *FuncBuilder) Call(line int, callee *FuncBuilder, args ...Arg) (lang.NodeID, []lang.NodeID) {
	return f.callTo(line, callee.ID(), callee.Name(), args)
}

// CallNamed appends a call to an unresolved target known only by name.
func (f *FuncBuilder) CallNamed(line int, name string, args ...Arg) (lang.NodeID, []lang.NodeID) {
	return f.callTo(line, "", name, args)
}

func (f *FuncBuilder) callTo(line int, calleeID, calleeName string, args []Arg) (lang.NodeID, []lang.NodeID) {
	argIDs := make([]lang.NodeID, 0, len(args))
	for _, arg := range args {
		expr := arg.Expr
		if expr == "" && arg.Var != lang.NoVar {
			expr = f.tu.Arena.Var(arg.Var).Name
		}
		kind := lang.KindVarRef
		use := arg.Use
		if arg.Var == lang.NoVar {
			kind = lang.KindExpr
		} else if use == lang.UseRead {
			use = lang.UseArg
		}
		argIDs = append(argIDs, f.tu.Arena.AddNode(lang.Node{
			Kind:  kind,
			Loc:   f.loc(line),
			Var:   arg.Var,
			Use:   use,
			Index: -1,
			Expr:  expr,
		}))
	}
	callID := f.add(lang.Node{
		Kind:       lang.KindCall,
		Loc:        f.loc(line),
		Index:      -1,
		CalleeID:   calleeID,
		CalleeName: calleeName,
		Args:       argIDs,
	})
	for _, argID := range argIDs {
		f.tu.Arena.Node(argID).Parent = callID
	}
	return callID, argIDs
}
