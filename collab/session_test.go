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

package collab_test

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/client"
	"github.com/cova-team/quotesync/collab"
	"github.com/cova-team/quotesync/pkg/identity"
	"github.com/cova-team/quotesync/pkg/lifecycle"
	"github.com/cova-team/quotesync/pkg/quotation"
	"github.com/cova-team/quotesync/pkg/roomcode"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
	"github.com/cova-team/quotesync/server/relay"
)

const (
	room    = "ABC1234"
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func newRelay(t *testing.T) string {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)
	ts := httptest.NewServer(relay.NewServer(relay.NewConfig(), metrics).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func testConfig(relayURL string) *collab.Config {
	conf := collab.NewConfig()
	conf.RelayURL = relayURL
	conf.HeartbeatInterval = 20 * time.Millisecond
	conf.PresenceCheckInterval = 50 * time.Millisecond
	conf.ConnectionTimeout = 500 * time.Millisecond
	conf.EditReleaseDelay = 20 * time.Millisecond
	return conf
}

func newSession(t *testing.T, relayURL, name string, opts ...collab.Option) *collab.Session {
	opts = append([]collab.Option{
		collab.WithConfig(testConfig(relayURL)),
		collab.WithIdentity(identity.Identity{ID: "user_" + name, Name: name, Color: identity.Palette[0]}),
	}, opts...)
	s, err := collab.New(room, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, s.Connected, waitFor, tick)
	return s
}

func participantNames(s *collab.Session) []string {
	var names []string
	for _, p := range s.State().Participants {
		names = append(names, p.User.Name)
	}
	return names
}

func TestSession(t *testing.T) {
	t.Run("participants see each other and edits", func(t *testing.T) {
		relayURL := newRelay(t)
		a := newSession(t, relayURL, "Mèo")
		assert.True(t, a.IsLastParticipant())

		b := newSession(t, relayURL, "Hổ")
		require.Eventually(t, func() bool {
			return assert.ObjectsAreEqual([]string{"Hổ"}, participantNames(a)) &&
				assert.ObjectsAreEqual([]string{"Mèo"}, participantNames(b))
		}, waitFor, tick)
		assert.False(t, a.State().IsLastParticipant)

		require.NoError(t, a.SetCustomerName("COVA"))
		id, err := b.AddRecord(quotation.QuotationItems, quotation.Record{
			Fields: map[string]interface{}{"name": "Website", "quantity": "2", "unitPrice": 1000.0},
		})
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			doc := a.State().Document
			return b.State().Document.CustomerName == "COVA" &&
				len(doc.QuotationItems) == 1 && doc.QuotationItems[0].ID == id
		}, waitFor, tick)
		assert.Equal(t, 2.0, a.Snapshot().QuotationItems[0].Quantity)

		require.NoError(t, b.UpdateUserName("  Hổ Vui  "))
		require.Eventually(t, func() bool {
			return assert.ObjectsAreEqual([]string{"Hổ Vui"}, participantNames(a))
		}, waitFor, tick)
		assert.True(t, b.CurrentUser().IsCustomName)

		require.NoError(t, b.Close())
		require.Eventually(t, a.IsLastParticipant, waitFor, tick)
	})

	t.Run("state is pushed to subscribers", func(t *testing.T) {
		relayURL := newRelay(t)
		a := newSession(t, relayURL, "a")

		var states int32
		unsubscribe := a.Subscribe(func(s collab.State) {
			assert.Equal(t, room, s.RoomCode)
			atomic.AddInt32(&states, 1)
		})
		require.NoError(t, a.SetProjectDescription("web"))
		require.Eventually(t, func() bool { return atomic.LoadInt32(&states) > 0 }, waitFor, tick)

		unsubscribe()
		state := a.State()
		assert.Equal(t, client.Connected, state.ConnectionStatus)
		assert.Equal(t, roomcode.ShareURL(collab.DefaultBaseURL, room), state.ShareURL)
		assert.Equal(t, "web", state.Document.ProjectDescription)
	})

	t.Run("cursor moves are throttled and the last one is kept", func(t *testing.T) {
		relayURL := newRelay(t)
		a := newSession(t, relayURL, "a")
		b := newSession(t, relayURL, "b")
		require.Eventually(t, func() bool { return len(b.State().Participants) == 1 }, waitFor, tick)

		for i := 0; i < 20; i++ {
			require.NoError(t, a.UpdateCursorPosition(float64(i), 5))
		}
		require.Eventually(t, func() bool {
			cursor, ok := b.State().RemoteCursors[a.ClientID()]
			return ok && cursor.X == 19 && cursor.Y == 5
		}, waitFor, tick)

		require.NoError(t, a.ClearCursorPosition())
		require.Eventually(t, func() bool {
			_, ok := b.State().RemoteCursors[a.ClientID()]
			return !ok
		}, waitFor, tick)
	})

	t.Run("edited field keeps its local value until released", func(t *testing.T) {
		relayURL := newRelay(t)
		a, b := newSession(t, relayURL, "a"), newSession(t, relayURL, "b")

		_, err := a.AddRecord(quotation.QuotationItems, quotation.Record{
			ID:     "r1",
			Fields: map[string]interface{}{"name": "Landing Pa"},
		})
		require.NoError(t, err)
		require.Eventually(t, func() bool { return len(b.Snapshot().QuotationItems) == 1 }, waitFor, tick)

		a.FocusField("r1", "name")
		require.NoError(t, b.SetRecordField(quotation.QuotationItems, "r1", "name", "Other"))
		require.NoError(t, b.SetRecordField(quotation.QuotationItems, "r1", "unitPrice", 8000000))

		require.Eventually(t, func() bool {
			return a.State().Document.QuotationItems[0].UnitPrice == 8000000
		}, waitFor, tick)
		assert.Equal(t, "Landing Pa", a.State().Document.QuotationItems[0].Name)
		assert.Equal(t, "Other", a.Snapshot().QuotationItems[0].Name)
		assert.NotNil(t, a.State().Editing)

		a.BlurField()
		require.Eventually(t, func() bool {
			return a.State().Document.QuotationItems[0].Name == "Other"
		}, waitFor, tick)
		assert.Nil(t, a.State().Editing)
	})

	t.Run("last participant confirms leaving", func(t *testing.T) {
		a := newSession(t, newRelay(t), "a")
		require.NoError(t, a.SetCustomerName("COVA"))
		assert.True(t, a.ShouldWarnOnTabClose())

		left := false
		ok, err := a.RequestLeave(lifecycle.Navigate, func() { left = true })
		require.NoError(t, err)
		assert.False(t, ok)
		require.NotNil(t, a.State().PendingLeaveAction)
		assert.Equal(t, lifecycle.Navigate, *a.State().PendingLeaveAction)

		require.NoError(t, a.CancelLeave())
		assert.Nil(t, a.State().PendingLeaveAction)
		assert.Equal(t, lifecycle.Normal, a.State().LeaveState)

		_, err = a.RequestLeave(lifecycle.TabClose, func() { left = true })
		require.NoError(t, err)
		kind, err := a.ConfirmLeave()
		require.NoError(t, err)
		assert.Equal(t, lifecycle.TabClose, kind)
		assert.True(t, left)
		assert.False(t, a.ShouldWarnOnTabClose())
	})

	t.Run("cancelling a leave sends a fresh heartbeat", func(t *testing.T) {
		relayURL := newRelay(t)
		conf := testConfig(relayURL)
		conf.HeartbeatInterval = time.Minute
		conf.PresenceCheckInterval = 2 * time.Minute
		conf.ConnectionTimeout = 5 * time.Minute

		var offset atomic.Int64
		clock := func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }
		a := newSession(t, relayURL, "a", collab.WithConfig(conf), collab.WithClock(clock))

		_, err := a.RequestLeave(lifecycle.Navigate, nil)
		require.NoError(t, err)
		require.Equal(t, lifecycle.AwaitingConfirmation, a.State().LeaveState)

		b := newSession(t, relayURL, "b", collab.WithConfig(conf))
		lastSeen := func() int64 {
			for _, p := range b.State().Participants {
				if p.ClientID == a.ClientID() {
					return p.LastSeen
				}
			}
			return 0
		}
		require.Eventually(t, func() bool { return lastSeen() > 0 }, waitFor, tick)
		before := lastSeen()

		offset.Store(int64(time.Hour))
		require.NoError(t, a.CancelLeave())
		require.Eventually(t, func() bool {
			return lastSeen() >= before+time.Hour.Milliseconds()
		}, waitFor, tick)
		assert.Equal(t, lifecycle.Normal, a.State().LeaveState)
	})

	t.Run("silent peers time out", func(t *testing.T) {
		relayURL := newRelay(t)
		var offset atomic.Int64
		clock := func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }

		a := newSession(t, relayURL, "a", collab.WithClock(clock))
		newSession(t, relayURL, "b")
		require.Eventually(t, func() bool { return !a.IsLastParticipant() }, waitFor, tick)

		offset.Store(int64(time.Hour))
		require.Eventually(t, func() bool { return a.State().IsLastParticipant }, waitFor, tick)
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		_, err := collab.New("abc")
		assert.ErrorIs(t, err, roomcode.ErrInvalidRoomCode)

		conf := collab.NewConfig()
		conf.HeartbeatInterval = time.Minute
		_, err = collab.New(room, collab.WithConfig(conf))
		assert.ErrorIs(t, err, collab.ErrInvalidConfig)

		s, err := collab.New("abc1234")
		require.NoError(t, err)
		defer func() { _ = s.Close() }()
		assert.Equal(t, room, s.RoomCode())
		assert.ErrorIs(t, s.UpdateUserName("A"), identity.ErrInvalidName)

		before := s.CurrentUser()
		require.NoError(t, s.RegenerateName())
		assert.Equal(t, before.ID, s.CurrentUser().ID)
		assert.False(t, s.CurrentUser().IsCustomName)

		require.NoError(t, s.Close())
		assert.ErrorIs(t, s.Start(context.Background()), collab.ErrSessionClosed)
	})
}
