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

// Package lang defines the syntax representation consumed by the analysis engine.
//
// The front end (preprocessor, parser, value-flow engine) is an external
// collaborator: it produces an Arena of nodes for one translation unit and the
// engine only ever reads it. Nodes are addressed by stable indices so that every
// cross-reference (parent links, call arguments, value origins) is an index
// lookup into the same arena and never an owning reference.
package lang

import "fmt"

// Location is a position in an analyzed source file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"col"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// NodeID is a stable index of a node in its arena.
type NodeID int32

// NoNode is the null node reference.
const NoNode NodeID = -1

// VarID identifies a variable within one translation unit. 0 means "no variable".
type VarID int32

// NoVar is the null variable reference.
const NoVar VarID = 0

// NodeKind discriminates the node shapes the engine cares about. Anything the
// engine does not inspect is a plain KindExpr.
type NodeKind uint8

const (
	// KindExpr is a generic expression node.
	KindExpr NodeKind = iota
	// KindVarRef is a use of a variable.
	KindVarRef
	// KindCall is a function call with resolved or unresolved target.
	KindCall
	// KindBranch marks the start of a conditional block. The front end
	// summarizes the block: whether it can return or throw, and which
	// variables it possibly writes.
	KindBranch
	// KindCondOp marks a short-circuit operator or ternary condition; its
	// operand span is skipped by the unsafe-usage scan.
	KindCondOp
	// KindReturn is a return statement.
	KindReturn
)

// VarUse describes how a KindVarRef node uses its variable.
type VarUse uint8

const (
	// UseRead is a plain read of the variable value.
	UseRead VarUse = iota
	// UseWrite assigns to the variable.
	UseWrite
	// UseDeref reads through the pointer.
	UseDeref
	// UseIndex subscripts the pointer or array.
	UseIndex
	// UseAddrOf takes the address of the variable.
	UseAddrOf
	// UseArg passes the variable, untouched, as a call argument.
	UseArg
)

// Node is one syntax node. Which fields are meaningful depends on Kind.
type Node struct {
	Kind   NodeKind
	Loc    Location
	Parent NodeID

	// Expr is the source text of the expression, kept for diagnostics.
	Expr string

	// KindVarRef
	Var VarID
	Use VarUse
	// Index is the constant subscript for UseIndex nodes, -1 when unknown.
	Index int64

	// KindCall. CalleeID is empty when the target could not be resolved.
	CalleeID   string
	CalleeName string
	Args       []NodeID

	// KindBranch. Returns reports whether the block can return or throw.
	// Writes maps possibly-written variables to the indirection level of the
	// write. BodyEnd is the body position just past the block.
	Returns bool
	Writes  map[VarID]int
	BodyEnd int

	// KindCondOp. SpanEnd is the body position just past the operand span.
	SpanEnd int
}

// VarInfo is the symbol information for one variable.
type VarInfo struct {
	Name string
	// Pointer is the pointer indirection level of the declared type.
	Pointer int
	Array   bool
	// Dim is the first array dimension when Array is set.
	Dim int
	// ElemSize is the byte size of the element or pointed-to type.
	ElemSize int
}

// Param is a function parameter.
type Param struct {
	Name string
	Var  VarID
	// Pointer reports whether the parameter is a pointer, Indirect its level.
	Pointer  bool
	Array    bool
	Indirect int
}

// Function is a function definition with its body in source order.
type Function struct {
	Name   string
	Def    Location
	Params []Param
	// Body lists every node of the function body in source order, including
	// nodes inside branch blocks.
	Body []NodeID
}

// ID returns the stable cross-translation-unit identity of the function.
// Names alone are not unique across overloads and translation units, so the
// identity is the definition position.
func (f *Function) ID() string {
	return FuncID(f.Def)
}

// FuncID formats a definition location as a function identity.
func FuncID(def Location) string {
	return fmt.Sprintf("%s:%d:%d", def.File, def.Line, def.Column)
}

// Arena owns every node, function and variable of one translation unit.
type Arena struct {
	nodes []Node
	funcs []Function
	vars  []VarInfo
}

// NewArena returns an empty arena. Variable index 0 is reserved as "no
// variable" so that the zero value of VarID is never a valid reference.
func NewArena() *Arena {
	return &Arena{vars: make([]VarInfo, 1)}
}

// AddNode appends a node and returns its index.
func (a *Arena) AddNode(n Node) NodeID {
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// AddVar appends a variable and returns its index.
func (a *Arena) AddVar(v VarInfo) VarID {
	a.vars = append(a.vars, v)
	return VarID(len(a.vars) - 1)
}

// AddFunction appends a function definition.
func (a *Arena) AddFunction(f Function) {
	a.funcs = append(a.funcs, f)
}

// Node returns the node at id, or nil for NoNode or an out-of-range index.
func (a *Arena) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(a.nodes) {
		return nil
	}
	return &a.nodes[id]
}

// Var returns the variable at id, or nil for NoVar or an out-of-range index.
func (a *Arena) Var(id VarID) *VarInfo {
	if id <= 0 || int(id) >= len(a.vars) {
		return nil
	}
	return &a.vars[id]
}

// Functions returns the function definitions of the translation unit.
func (a *Arena) Functions() []Function {
	return a.funcs
}

// NumNodes returns the number of nodes in the arena.
func (a *Arena) NumNodes() int {
	return len(a.nodes)
}
