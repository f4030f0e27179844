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

package presence

import (
	gojson "encoding/json"
	"fmt"
	"math"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/identity"
)

// Heartbeat tells the others that a participant is still around.
type Heartbeat struct {
	// Timestamp is the time of the heartbeat in unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// IsActive is false while the participant's window is hidden.
	IsActive bool `json:"isActive"`
}

// Cursor is the pointer position of a participant. Either coordinate may be
// missing while the pointer is outside the form.
type Cursor struct {
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// NewCursor creates a cursor at the given position.
func NewCursor(x, y float64, timestamp int64) *Cursor {
	return &Cursor{X: &x, Y: &y, Timestamp: timestamp}
}

// HasPosition returns whether both coordinates are present and numeric.
func (c *Cursor) HasPosition() bool {
	if c == nil || c.X == nil || c.Y == nil {
		return false
	}
	return isNumber(*c.X) && isNumber(*c.Y)
}

func isNumber(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// State is the slot of one participant. Every field is optional: peers that
// just connected may not have published their identity yet.
type State struct {
	User      *identity.Identity `json:"user,omitempty"`
	Heartbeat *Heartbeat         `json:"heartbeat,omitempty"`
	Cursor    *Cursor            `json:"cursor,omitempty"`
}

// DeepCopy copies the state so the copy can be modified freely.
func (s *State) DeepCopy() *State {
	if s == nil {
		return nil
	}

	clone := &State{}
	if s.User != nil {
		user := *s.User
		clone.User = &user
	}
	if s.Heartbeat != nil {
		heartbeat := *s.Heartbeat
		clone.Heartbeat = &heartbeat
	}
	if s.Cursor != nil {
		cursor := Cursor{Timestamp: s.Cursor.Timestamp}
		if s.Cursor.X != nil {
			x := *s.Cursor.X
			cursor.X = &x
		}
		if s.Cursor.Y != nil {
			y := *s.Cursor.Y
			cursor.Y = &y
		}
		clone.Cursor = &cursor
	}
	return clone
}

// marshalState encodes the state, or NullState for a removed slot.
func marshalState(s *State) (string, error) {
	if s == nil {
		return types.NullState, nil
	}

	bytes, err := gojson.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(bytes), nil
}

// unmarshalState decodes the state; nil means the slot is removed.
func unmarshalState(entry types.AwarenessEntry) (*State, error) {
	if entry.IsRemoved() {
		return nil, nil
	}

	s := &State{}
	if err := gojson.Unmarshal([]byte(entry.State), s); err != nil {
		return nil, fmt.Errorf("unmarshal state of client %d: %w", entry.ClientID, err)
	}
	return s, nil
}
