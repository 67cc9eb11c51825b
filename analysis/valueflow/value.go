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

// Package valueflow defines the value abstraction produced by the value-flow
// engine: a tagged fact about a program quantity at one syntax node, with an
// explicit certainty level and the trace that justifies it.
package valueflow

import (
	"fmt"

	"github.com/ctuscan/ctuscan/analysis/lang"
)

// Kind is the tag of a Value. Exactly one payload is meaningful per tag.
type Kind uint8

const (
	// Int carries an integer magnitude.
	Int Kind = iota
	// Tok aliases another node (pointer aliases, string literals, ...).
	Tok
	// Float carries a floating point magnitude.
	Float
	// Moved carries a move kind.
	Moved
	// Uninit has no payload; the quantity is uninitialized.
	Uninit
	// ContainerSize carries a container element count.
	ContainerSize
	// Lifetime carries a lifetime descriptor and scope.
	Lifetime
	// BufferSize carries a byte size.
	BufferSize
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Tok:
		return "tok"
	case Float:
		return "float"
	case Moved:
		return "moved"
	case Uninit:
		return "uninit"
	case ContainerSize:
		return "container-size"
	case Lifetime:
		return "lifetime"
	case BufferSize:
		return "buffer-size"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Certainty classifies how confidently a Value applies.
type Certainty uint8

const (
	// Possible means this value is one of several candidates.
	Possible Certainty = iota
	// Known means this is the only candidate.
	Known
	// Inconclusive marks a heuristic result that may be wrong.
	Inconclusive
	// Impossible means the listed value cannot occur. An Impossible value
	// describes excluded states and must never be used as a concrete fact.
	Impossible
)

// Bound marks open-ended ranges versus exact points.
type Bound uint8

const (
	// Upper means the payload is an inclusive upper bound.
	Upper Bound = iota
	// Lower means the payload is an inclusive lower bound.
	Lower
	// Point means the payload is an exact value.
	Point
)

// MoveKind is the payload of a Moved value.
type MoveKind uint8

const (
	// NonMoved marks a variable that was not moved from.
	NonMoved MoveKind = iota
	// MovedVariable marks a variable whose contents were moved out.
	MovedVariable
	// ForwardedVariable marks a variable that was forwarded.
	ForwardedVariable
)

// LifetimeKind describes what a Lifetime value refers to.
type LifetimeKind uint8

const (
	LifetimeObject LifetimeKind = iota
	LifetimeSubObject
	LifetimeLambda
	LifetimeIterator
	LifetimeAddress
)

// LifetimeScope describes where the referenced object lives.
type LifetimeScope uint8

const (
	ScopeLocal LifetimeScope = iota
	ScopeArgument
)

// ErrorPathItem is one hop of the trace justifying a value.
type ErrorPathItem struct {
	Loc  lang.Location `json:"loc"`
	Info string        `json:"info"`
}

// Value is a fact about a scalar or symbolic quantity at one syntax node.
// It is a pure value type: no operation mutates anything outside the receiver.
type Value struct {
	Kind      Kind
	Bound     Bound
	Certainty Certainty

	// Safe reports that the value relies on safe checking.
	Safe bool
	// Conditional reports that the value depends on a condition.
	Conditional bool
	// DefaultArg reports that the value comes from a default argument.
	DefaultArg bool

	// IntValue is the payload for Int, ContainerSize and BufferSize.
	IntValue int64
	// FloatValue is the payload for Float.
	FloatValue float64
	// TokValue is the payload for Tok and Lifetime: the aliased node.
	TokValue lang.NodeID
	// MoveKind is the payload for Moved.
	MoveKind MoveKind

	// VarValue is the value of the variable a calculated value depends on.
	VarValue int64
	// VarID is the variable a calculated value depends on.
	VarID lang.VarID
	// Condition is the node of the condition this value depends on.
	Condition lang.NodeID
	// Indirect is the pointer indirection level the fact applies to.
	Indirect int
	// Path disambiguates values produced in mutually exclusive branches.
	Path int64

	LifetimeKind  LifetimeKind
	LifetimeScope LifetimeScope

	// ErrorPath is the trace justifying the value, ordered from origin to
	// the point the value is attached to.
	ErrorPath []ErrorPathItem
}

// NewIntValue returns an integer point value. Producers may override the
// certainty explicitly; construction always starts at Possible.
func NewIntValue(v int64) Value {
	return Value{
		Kind:      Int,
		Bound:     Point,
		Certainty: Possible,
		IntValue:  v,
		VarValue:  v,
		TokValue:  lang.NoNode,
		Condition: lang.NoNode,
	}
}

// EqualValue reports whether the two values carry the same fact: same tag and
// equal payload for that tag. Floats compare by numeric ordering, not
// bit-exactness; symbolic and lifetime payloads compare by node identity.
func (v *Value) EqualValue(rhs *Value) bool {
	if v.Kind != rhs.Kind {
		return false
	}
	switch v.Kind {
	case Int, BufferSize, ContainerSize:
		return v.IntValue == rhs.IntValue
	case Tok, Lifetime:
		return v.TokValue == rhs.TokValue
	case Float:
		return !(v.FloatValue > rhs.FloatValue || v.FloatValue < rhs.FloatValue)
	case Moved:
		return v.MoveKind == rhs.MoveKind
	case Uninit:
		return true
	}
	return true
}

// Equal is the deduplication equality: same fact plus equal origin metadata.
func (v *Value) Equal(rhs *Value) bool {
	if !v.EqualValue(rhs) {
		return false
	}
	return v.VarValue == rhs.VarValue &&
		v.Condition == rhs.Condition &&
		v.VarID == rhs.VarID &&
		v.Conditional == rhs.Conditional &&
		v.DefaultArg == rhs.DefaultArg &&
		v.Indirect == rhs.Indirect &&
		v.Certainty == rhs.Certainty
}

// Tag predicates.

func (v *Value) IsIntValue() bool           { return v.Kind == Int }
func (v *Value) IsTokValue() bool           { return v.Kind == Tok }
func (v *Value) IsFloatValue() bool         { return v.Kind == Float }
func (v *Value) IsMovedValue() bool         { return v.Kind == Moved }
func (v *Value) IsUninitValue() bool        { return v.Kind == Uninit }
func (v *Value) IsContainerSizeValue() bool { return v.Kind == ContainerSize }
func (v *Value) IsLifetimeValue() bool      { return v.Kind == Lifetime }
func (v *Value) IsBufferSizeValue() bool    { return v.Kind == BufferSize }

// IsLocalLifetimeValue reports a lifetime value scoped to a local object.
func (v *Value) IsLocalLifetimeValue() bool {
	return v.Kind == Lifetime && v.LifetimeScope == ScopeLocal
}

// IsArgumentLifetimeValue reports a lifetime value scoped to an argument.
func (v *Value) IsArgumentLifetimeValue() bool {
	return v.Kind == Lifetime && v.LifetimeScope == ScopeArgument
}

// IsNonValue reports whether the value describes a state rather than a
// magnitude.
func (v *Value) IsNonValue() bool {
	return v.IsMovedValue() || v.IsUninitValue() || v.IsLifetimeValue()
}

// Certainty predicates and explicit transitions. Only producers may upgrade
// certainty; no engine operation does it implicitly.

func (v *Value) IsKnown() bool        { return v.Certainty == Known }
func (v *Value) IsPossible() bool     { return v.Certainty == Possible }
func (v *Value) IsInconclusive() bool { return v.Certainty == Inconclusive }
func (v *Value) IsImpossible() bool   { return v.Certainty == Impossible }

func (v *Value) SetKnown()      { v.Certainty = Known }
func (v *Value) SetPossible()   { v.Certainty = Possible }
func (v *Value) SetImpossible() { v.Certainty = Impossible }

// SetInconclusive downgrades the value to Inconclusive when inconclusive is
// true, and otherwise leaves the certainty untouched.
func (v *Value) SetInconclusive(inconclusive bool) {
	if inconclusive {
		v.Certainty = Inconclusive
	}
}

// ChangeKnownToPossible downgrades a Known value to Possible.
func (v *Value) ChangeKnownToPossible() {
	if v.IsKnown() {
		v.Certainty = Possible
	}
}

// ErrorSeverity reports whether a diagnostic based on this value is an error
// rather than a warning: the value must not depend on a condition or a
// default argument.
func (v *Value) ErrorSeverity() bool {
	return v.Condition == lang.NoNode && !v.DefaultArg
}

// adjust shifts the numeric payload by d. Only Int-like and Float tags carry
// a numeric payload.
func (v *Value) adjust(d int64) {
	switch v.Kind {
	case Int, BufferSize, ContainerSize:
		v.IntValue += d
	case Float:
		v.FloatValue += float64(d)
	}
}

// InvertBound flips Lower to Upper and vice versa. Point bounds are left
// untouched.
func (v *Value) InvertBound() {
	switch v.Bound {
	case Lower:
		v.Bound = Upper
	case Upper:
		v.Bound = Lower
	}
}

// DecreaseRange moves the boundary one unit inward: a lower bound is
// incremented, an upper bound decremented. No-op for Point bounds.
func (v *Value) DecreaseRange() {
	switch v.Bound {
	case Lower:
		v.adjust(1)
	case Upper:
		v.adjust(-1)
	}
}

// InvertRange inverts the range described by the value, flipping the bound and
// adjusting the boundary by one unit to preserve exclusivity. Applying it twice
// restores the original value.
func (v *Value) InvertRange() {
	v.InvertBound()
	v.DecreaseRange()
}

// Description returns a one-line human readable rendition of the value for
// diagnostics.
func (v *Value) Description() string {
	var s string
	switch v.Kind {
	case Int:
		switch v.Bound {
		case Lower:
			s = fmt.Sprintf("value>=%d", v.IntValue)
		case Upper:
			s = fmt.Sprintf("value<=%d", v.IntValue)
		default:
			s = fmt.Sprintf("value=%d", v.IntValue)
		}
	case Tok:
		s = "symbolic alias"
	case Float:
		s = fmt.Sprintf("value=%g", v.FloatValue)
	case Moved:
		s = "moved-from"
	case Uninit:
		s = "uninitialized"
	case ContainerSize:
		s = fmt.Sprintf("container size=%d", v.IntValue)
	case Lifetime:
		s = "lifetime"
	case BufferSize:
		s = fmt.Sprintf("buffer size=%d", v.IntValue)
	}
	switch v.Certainty {
	case Known:
		return s + " (known)"
	case Inconclusive:
		return s + " (inconclusive)"
	case Impossible:
		return s + " (impossible)"
	default:
		return s
	}
}
