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

/*
Package ctu implements the cross-translation-unit analysis core.

Each analyzed file produces a [FileRecord]: function-call facts ("f is called
with a null/uninitialized/undersized argument here"), nested-call facts ("g
forwards its parameter untouched into f"), per-detector unsafe usages ("f
dereferences its parameter without a guard") and opaque per-detector payloads.
Records are cached per file keyed by a checksum of the source text and the
effective tool configuration, and merged into one combined record after all
files have been checked.

Detectors connect the two ends with [CallsMap.ErrorPath]: a bounded
depth-first search over the combined facts that links an unsafe usage in one
file to a call site supplying the invalid value in another, possibly through a
chain of pass-through calls.
*/
package ctu
