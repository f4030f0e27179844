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
	"sort"
	gotime "time"

	"github.com/cova-team/quotesync/pkg/identity"
)

// Participant is another client that is currently in the room.
type Participant struct {
	ClientID uint64
	User     identity.Identity

	// LastSeen is the time of the last heartbeat in unix milliseconds.
	LastSeen int64

	// IsActive is false while the participant's window is hidden.
	IsActive bool

	Cursor *Cursor
}

// RemoteCursor is the cursor of a participant with a position.
type RemoteCursor struct {
	ClientID  uint64
	User      identity.Identity
	X         float64
	Y         float64
	Timestamp int64
}

// ComputeActiveParticipants returns the other clients whose identity is
// known and whose last heartbeat is at most timeout old, ordered by client
// id, and the cursors of those with a position. A slot without heartbeat
// counts as seen now.
func ComputeActiveParticipants(
	states map[uint64]*State,
	self uint64,
	now gotime.Time,
	timeout gotime.Duration,
) ([]Participant, map[uint64]RemoteCursor) {
	nowMillis := now.UnixMilli()
	timeoutMillis := timeout.Milliseconds()

	participants := []Participant{}
	cursors := make(map[uint64]RemoteCursor)
	for clientID, state := range states {
		if clientID == self || state == nil || state.User == nil {
			continue
		}

		lastSeen := nowMillis
		isActive := true
		if state.Heartbeat != nil {
			if state.Heartbeat.Timestamp != 0 {
				lastSeen = state.Heartbeat.Timestamp
			}
			isActive = state.Heartbeat.IsActive
		}
		if nowMillis-lastSeen > timeoutMillis {
			continue
		}

		p := Participant{
			ClientID: clientID,
			User:     *state.User,
			LastSeen: lastSeen,
			IsActive: isActive,
		}
		if state.Cursor.HasPosition() {
			p.Cursor = state.DeepCopy().Cursor
			cursors[clientID] = RemoteCursor{
				ClientID:  clientID,
				User:      *state.User,
				X:         *state.Cursor.X,
				Y:         *state.Cursor.Y,
				Timestamp: state.Cursor.Timestamp,
			}
		}
		participants = append(participants, p)
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ClientID < participants[j].ClientID
	})
	return participants, cursors
}

// IsLastParticipant returns whether nobody else is in the room.
func IsLastParticipant(participants []Participant) bool {
	return len(participants) == 0
}
