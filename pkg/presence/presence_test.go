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

package presence_test

import (
	"math"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/identity"
	"github.com/cova-team/quotesync/pkg/presence"
)

const timeout = 10 * gotime.Second

func user(name string) *identity.Identity {
	return &identity.Identity{ID: "user_" + name, Name: name, Color: identity.Palette[0]}
}

func TestAwareness(t *testing.T) {
	t.Run("local updates are handed out with increasing clocks", func(t *testing.T) {
		a := presence.New(1)

		var entries []types.AwarenessEntry
		a.OnChange(func(c presence.Change) {
			assert.True(t, c.Local)
			entries = append(entries, c.Entry)
		})

		require.NoError(t, a.SetUser(*user("Mèo Vui Vẻ")))
		require.NoError(t, a.SetHeartbeat(presence.Heartbeat{Timestamp: 1000, IsActive: true}))
		require.NoError(t, a.Clear())

		require.Len(t, entries, 3)
		assert.Equal(t, uint32(1), entries[0].Clock)
		assert.Equal(t, uint32(3), entries[2].Clock)
		assert.Equal(t, types.NullState, entries[2].State)
		assert.Nil(t, a.LocalState())
		assert.NotContains(t, a.States(), uint64(1))
	})

	t.Run("remote entries replicate slots", func(t *testing.T) {
		a, b := presence.New(1), presence.New(2)
		a.OnChange(func(c presence.Change) {
			if c.Local {
				require.NoError(t, b.Apply([]types.AwarenessEntry{c.Entry}))
			}
		})

		var changes []presence.Change
		b.OnChange(func(c presence.Change) { changes = append(changes, c) })

		require.NoError(t, a.SetUser(*user("Hổ")))
		require.NoError(t, a.SetCursor(presence.NewCursor(10, 20, 5)))
		assert.Equal(t, "Hổ", b.States()[1].User.Name)
		assert.Equal(t, 20.0, *b.States()[1].Cursor.Y)

		require.NoError(t, a.SetCursor(nil))
		assert.Nil(t, b.States()[1].Cursor)

		require.NoError(t, a.Clear())
		assert.NotContains(t, b.States(), uint64(1))

		require.Len(t, changes, 4)
		assert.Equal(t, []uint64{1}, changes[0].Added)
		assert.Equal(t, []uint64{1}, changes[1].Updated)
		assert.Equal(t, []uint64{1}, changes[3].Removed)
	})

	t.Run("stale and own entries are ignored", func(t *testing.T) {
		a := presence.New(1)
		require.NoError(t, a.Apply([]types.AwarenessEntry{
			{ClientID: 2, Clock: 5, State: `{"user":{"name":"new"}}`},
		}))
		require.NoError(t, a.Apply([]types.AwarenessEntry{
			{ClientID: 2, Clock: 4, State: `{"user":{"name":"old"}}`},
			{ClientID: 1, Clock: 99, State: types.NullState},
		}))
		assert.Equal(t, "new", a.States()[2].User.Name)
		assert.NotNil(t, a.LocalState())
	})

	t.Run("remotes are forgotten on disconnect", func(t *testing.T) {
		a := presence.New(1)
		require.NoError(t, a.SetUser(*user("me")))
		require.NoError(t, a.Apply([]types.AwarenessEntry{
			{ClientID: 3, Clock: 1, State: `{"user":{"name":"c"}}`},
			{ClientID: 2, Clock: 1, State: `{"user":{"name":"b"}}`},
		}))

		var removed []uint64
		a.OnChange(func(c presence.Change) { removed = append(removed, c.Removed...) })
		a.RemoveRemotes()
		a.RemoveRemotes()

		assert.Equal(t, []uint64{2, 3}, removed)
		assert.Len(t, a.States(), 1)
	})

	t.Run("malformed entries are reported and skipped", func(t *testing.T) {
		a := presence.New(1)
		err := a.Apply([]types.AwarenessEntry{
			{ClientID: 2, Clock: 1, State: `{broken`},
			{ClientID: 3, Clock: 1, State: `{"user":{"name":"ok"}}`},
		})
		assert.Error(t, err)
		assert.Contains(t, a.States(), uint64(3))
		assert.NotContains(t, a.States(), uint64(2))
	})
}

func TestComputeActiveParticipants(t *testing.T) {
	now := gotime.UnixMilli(1_700_000_000_000)
	heartbeatAgo := func(d gotime.Duration) *presence.Heartbeat {
		return &presence.Heartbeat{Timestamp: now.Add(-d).UnixMilli(), IsActive: true}
	}

	t.Run("heartbeat timeout bounds", func(t *testing.T) {
		states := map[uint64]*presence.State{
			1: {User: user("me"), Heartbeat: heartbeatAgo(0)},
			2: {User: user("fresh"), Heartbeat: heartbeatAgo(timeout - gotime.Millisecond)},
			3: {User: user("stale"), Heartbeat: heartbeatAgo(timeout + gotime.Millisecond)},
			4: {User: user("edge"), Heartbeat: heartbeatAgo(timeout)},
			5: {User: user("new")},
			6: {Heartbeat: heartbeatAgo(0)},
		}

		participants, _ := presence.ComputeActiveParticipants(states, 1, now, timeout)
		var names []string
		for _, p := range participants {
			names = append(names, p.User.Name)
		}
		assert.Equal(t, []string{"fresh", "edge", "new"}, names)
		assert.Equal(t, now.UnixMilli(), participants[2].LastSeen)
		assert.True(t, participants[2].IsActive)
	})

	t.Run("cursors need both coordinates", func(t *testing.T) {
		x := 3.0
		nan := math.NaN()
		states := map[uint64]*presence.State{
			2: {User: user("a"), Cursor: presence.NewCursor(1, 2, 7)},
			3: {User: user("b"), Cursor: &presence.Cursor{X: &x}},
			4: {User: user("c"), Cursor: &presence.Cursor{X: &x, Y: &nan}},
		}

		participants, cursors := presence.ComputeActiveParticipants(states, 1, now, timeout)
		require.Len(t, participants, 3)
		assert.NotNil(t, participants[0].Cursor)
		assert.Nil(t, participants[1].Cursor)
		assert.Nil(t, participants[2].Cursor)

		require.Len(t, cursors, 1)
		assert.Equal(t, presence.RemoteCursor{ClientID: 2, User: *user("a"), X: 1, Y: 2, Timestamp: 7}, cursors[2])
	})

	t.Run("last participant and idempotence", func(t *testing.T) {
		alone := map[uint64]*presence.State{1: {User: user("me")}}
		participants, _ := presence.ComputeActiveParticipants(alone, 1, now, timeout)
		assert.True(t, presence.IsLastParticipant(participants))

		together := map[uint64]*presence.State{
			1: {User: user("me")},
			2: {User: user("other"), Heartbeat: &presence.Heartbeat{Timestamp: now.UnixMilli()}},
		}
		first, _ := presence.ComputeActiveParticipants(together, 1, now, timeout)
		second, _ := presence.ComputeActiveParticipants(together, 1, now, timeout)
		assert.False(t, presence.IsLastParticipant(first))
		assert.Equal(t, first, second)
		assert.False(t, first[0].IsActive)
	})
}
