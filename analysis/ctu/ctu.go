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
	"encoding/json"
	"fmt"

	"github.com/ctuscan/ctuscan/analysis/lang"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
	"github.com/ctuscan/ctuscan/internal/funcutil"
)

// InvalidValueKind identifies the kind of invalid value a detector searches
// for across call chains.
type InvalidValueKind int

const (
	// InvalidNull matches integer zero (null pointer) argument values.
	InvalidNull InvalidValueKind = iota
	// InvalidUninit matches uninitialized argument values.
	InvalidUninit
	// InvalidBufferOverflow matches undersized buffer arguments.
	InvalidBufferOverflow
)

// Call is the part shared by every call fact: which callee, which argument
// position, and where the call happens. Callee identity is a
// "file:line:column" key of the callee definition; argument numbers are
// 1-based.
type Call struct {
	CalleeID   string        `json:"callee-id"`
	CalleeName string        `json:"callee-name"`
	ArgNr      int           `json:"arg-nr"`
	Loc        lang.Location `json:"loc"`
}

// CallFact is either a *FunctionCall or a *NestedCall. The set is closed.
type CallFact interface {
	base() *Call
}

// FunctionCall records a call site passing an interesting value: null,
// uninitialized data, or a buffer of known size. Warning marks low-confidence
// values; such facts only match when the caller opted in to inconclusive
// results.
type FunctionCall struct {
	Call
	ArgExpr  string
	ArgValue valueflow.Value
	Warning  bool
}

// NestedCall records a pass-through: the function identified by MyID forwards
// its MyArgNr-th parameter untouched into the callee at position ArgNr.
type NestedCall struct {
	Call
	MyID    string
	MyArgNr int
}

func (fc *FunctionCall) base() *Call { return &fc.Call }
func (nc *NestedCall) base() *Call   { return &nc.Call }

// UnsafeUsage records a function parameter that is read without a preceding
// guard. Value carries a detector-specific magnitude, e.g. the byte offset of
// an indexed read; it is negative when no magnitude applies.
type UnsafeUsage struct {
	MyID    string        `json:"my-id"`
	MyArgNr int           `json:"my-arg-nr"`
	ArgName string        `json:"arg-name"`
	Loc     lang.Location `json:"loc"`
	Value   int64         `json:"value"`
}

// Diagnostic is one reported finding.
type Diagnostic struct {
	ID           string                    `json:"id"`
	Severity     string                    `json:"severity"`
	Message      string                    `json:"message"`
	Loc          lang.Location             `json:"loc"`
	CWE          int                       `json:"cwe,omitempty"`
	Inconclusive bool                      `json:"inconclusive,omitempty"`
	Path         []valueflow.ErrorPathItem `json:"path,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Loc.String(), d.Severity, d.Message, d.ID)
}

// FileRecord is the per-file analysis record. One record exists per analyzed
// file while checks run; after the whole-program barrier the coordinator
// appends every record into a single combined one.
type FileRecord struct {
	// File is the path of the analyzed source file. Empty when analyzing a
	// memory buffer, which disables caching.
	File string

	// Checksum covers the source text and the effective tool
	// configuration.
	Checksum uint32

	FunctionCalls []FunctionCall
	NestedCalls   []NestedCall

	// Diagnostics collects the per-file findings so a cache hit can replay
	// them without re-analysis.
	Diagnostics []Diagnostic

	// checkData holds one opaque payload per detector. The core persists
	// and reloads these without interpreting them.
	checkData map[string]json.RawMessage
}

// NewFileRecord returns an empty record for the given source file.
func NewFileRecord(file string, checksum uint32) *FileRecord {
	return &FileRecord{File: file, Checksum: checksum}
}

// AddFunctionCall appends a function-call fact. Append-only, no
// deduplication: duplicate facts at worst produce duplicate diagnostics,
// which the reporting layer filters.
func (rec *FileRecord) AddFunctionCall(fc FunctionCall) {
	rec.FunctionCalls = append(rec.FunctionCalls, fc)
}

// AddNestedCall appends a nested-call fact.
func (rec *FileRecord) AddNestedCall(nc NestedCall) {
	rec.NestedCalls = append(rec.NestedCalls, nc)
}

// ReportDiagnostic records a finding on the file.
func (rec *FileRecord) ReportDiagnostic(d Diagnostic) {
	rec.Diagnostics = append(rec.Diagnostics, d)
}

// SetCheckData stores a detector's payload under its name. The payload must
// be JSON-marshalable; the core round-trips it through the cache without
// interpreting it.
func (rec *FileRecord) SetCheckData(checker string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s check data: %w", checker, err)
	}
	if rec.checkData == nil {
		rec.checkData = map[string]json.RawMessage{}
	}
	rec.checkData[checker] = b
	return nil
}

// CheckDataFor decodes the payload a detector stored under its name into out.
// It returns false when the detector stored nothing, and an error only when a
// stored payload fails to decode.
func (rec *FileRecord) CheckDataFor(checker string, out any) (bool, error) {
	raw, ok := rec.checkData[checker]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("unmarshaling %s check data: %w", checker, err)
	}
	return true, nil
}

// Append folds the facts and detector payloads of other into rec. Payloads
// stored under the same detector name are concatenated if both are JSON
// arrays, which is the layout every built-in detector uses.
func (rec *FileRecord) Append(other *FileRecord) {
	rec.FunctionCalls = append(rec.FunctionCalls, other.FunctionCalls...)
	rec.NestedCalls = append(rec.NestedCalls, other.NestedCalls...)
	if len(other.checkData) == 0 {
		return
	}
	if rec.checkData == nil {
		rec.checkData = map[string]json.RawMessage{}
	}
	funcutil.Merge(rec.checkData, other.checkData, func(a, b json.RawMessage) json.RawMessage {
		merged, err := mergeJSONArrays(a, b)
		if err != nil {
			// keep the first payload, the detector sees fewer facts
			return a
		}
		return merged
	})
}

func mergeJSONArrays(a, b json.RawMessage) (json.RawMessage, error) {
	var xs, ys []json.RawMessage
	if err := json.Unmarshal(a, &xs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &ys); err != nil {
		return nil, err
	}
	return json.Marshal(append(xs, ys...))
}

// CallsMap indexes call facts by callee identity. Within one callee's list
// insertion order is preserved: nested calls first, then function calls, and
// the path search takes the first structural match, so diagnostics are
// reproducible.
type CallsMap map[string][]CallFact

// CallsMap builds the adjacency structure for the path search. It is built
// fresh per search so incremental merges never leave it stale.
func (rec *FileRecord) CallsMap() CallsMap {
	m := make(CallsMap)
	for i := range rec.NestedCalls {
		nc := &rec.NestedCalls[i]
		m[nc.CalleeID] = append(m[nc.CalleeID], nc)
	}
	for i := range rec.FunctionCalls {
		fc := &rec.FunctionCalls[i]
		m[fc.CalleeID] = append(m[fc.CalleeID], fc)
	}
	return m
}
