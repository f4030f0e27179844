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

package types

// NullState is the state of a removed awareness slot.
const NullState = "null"

// AwarenessEntry is one slot of the awareness map as it travels on the wire.
type AwarenessEntry struct {
	// ClientID identifies the connection that owns the slot.
	ClientID uint64

	// Clock increases whenever the owner updates the slot. Receivers keep
	// the entry with the highest clock.
	Clock uint32

	// State is the JSON encoding of the slot, or NullState.
	State string
}

// IsRemoved returns whether the entry removes the slot.
func (e AwarenessEntry) IsRemoved() bool {
	return e.State == "" || e.State == NullState
}
