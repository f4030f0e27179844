/*
 * Copyright 2026 The Quotesync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package time

import (
	"sort"
	"strconv"
	"strings"
)

// VersionVector records, per actor, the sequence number of the last change
// of that actor that has been applied.
type VersionVector map[ActorID]uint32

// NewVersionVector creates a new instance of VersionVector.
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// VersionOf returns the version of the given actor.
func (v VersionVector) VersionOf(id ActorID) uint32 {
	return v[id]
}

// Set sets the given actor's version.
func (v VersionVector) Set(id ActorID, seq uint32) {
	v[id] = seq
}

// Covers returns whether every version in other has already been reached here.
func (v VersionVector) Covers(other VersionVector) bool {
	for id, seq := range other {
		if v[id] < seq {
			return false
		}
	}
	return true
}

// DeepCopy creates a deep copy of this VersionVector.
func (v VersionVector) DeepCopy() VersionVector {
	copied := make(VersionVector, len(v))
	for id, seq := range v {
		copied[id] = seq
	}
	return copied
}

// Actors returns the actors of this vector sorted by ID.
func (v VersionVector) Actors() []ActorID {
	ids := make([]ActorID, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Compare(ids[j]) < 0
	})
	return ids
}

// Marshal returns a stable string representation of this VersionVector.
func (v VersionVector) Marshal() string {
	sb := strings.Builder{}
	sb.WriteRune('{')
	for i, id := range v.Actors() {
		if i > 0 {
			sb.WriteRune(',')
		}
		sb.WriteString(id.String())
		sb.WriteRune(':')
		sb.WriteString(strconv.FormatUint(uint64(v[id]), 10))
	}
	sb.WriteRune('}')
	return sb.String()
}
