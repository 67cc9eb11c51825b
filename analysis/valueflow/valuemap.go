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

package valueflow

import "github.com/ctuscan/ctuscan/analysis/lang"

// ValueMap attaches values to the nodes of an arena. It is the output side of
// the value-flow engine; the analysis engine only reads it.
type ValueMap map[lang.NodeID][]Value

// At returns the values attached to node id, nil when there are none.
func (m ValueMap) At(id lang.NodeID) []Value {
	if m == nil {
		return nil
	}
	return m[id]
}

// Attach appends v to the values of node id, skipping duplicates under the
// deduplication equality.
func (m ValueMap) Attach(id lang.NodeID, v Value) {
	for i := range m[id] {
		if m[id][i].Equal(&v) {
			return
		}
	}
	m[id] = append(m[id], v)
}
