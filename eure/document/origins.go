// Copyright 2024 The EURE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package document

import "eure.sh/eure/token"

// Origin ties a document node back to the source span that produced or
// last referenced it, feeding precise spans through to validator
// diagnostics.
type Origin struct {
	// Declared is the span where the node's value was first bound.
	Declared token.Pos
	// LastRef is the most recent span that pushed a path through this
	// node without rebinding it (e.g. a later section header).
	LastRef token.Pos
}

// Origins is the parallel NodeId -> []Origin table threaded through a
// DocumentConstructor.
type Origins struct {
	byNode map[NodeId][]Origin
}

// NewOrigins returns an empty origin table.
func NewOrigins() *Origins {
	return &Origins{byNode: make(map[NodeId][]Origin)}
}

// Record appends an origin for id, using pos as both the declared and
// last-reference span (callers that later re-reference the same node push
// an additional Origin with an updated LastRef).
func (o *Origins) Record(id NodeId, pos token.Pos) {
	o.byNode[id] = append(o.byNode[id], Origin{Declared: pos, LastRef: pos})
}

// Get returns the recorded origins for id, in recording order.
func (o *Origins) Get(id NodeId) []Origin {
	return o.byNode[id]
}
