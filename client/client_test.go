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

package client_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	gotime "time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/api/converter"
	"github.com/cova-team/quotesync/client"
	"github.com/cova-team/quotesync/pkg/document/time"
	"github.com/cova-team/quotesync/pkg/identity"
	"github.com/cova-team/quotesync/pkg/presence"
	"github.com/cova-team/quotesync/pkg/quotation"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
	"github.com/cova-team/quotesync/server/relay"
)

const (
	channel = "baogia-cova-ABC1234"
	waitFor = 5 * gotime.Second
	tick    = 10 * gotime.Millisecond
)

type peer struct {
	quotation *quotation.Quotation
	awareness *presence.Awareness
	client    *client.Client
}

func newRelay(t *testing.T) *httptest.Server {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)
	ts := httptest.NewServer(relay.NewServer(relay.NewConfig(), metrics).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// lossyRelay forwards binary frames like the relay but loses the first
// Update frame it sees.
type lossyRelay struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[*websocket.Conn]*sync.Mutex
	dropped bool
}

func newLossyRelay(t *testing.T) *httptest.Server {
	r := &lossyRelay{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:    make(map[*websocket.Conn]*sync.Mutex),
	}
	ts := httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(ts.Close)
	return ts
}

func (r *lossyRelay) serve(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.conns[conn] = &sync.Mutex{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.conns, conn)
		r.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage || r.lose(data) {
			continue
		}

		r.mu.Lock()
		for other, writeMu := range r.conns {
			if other == conn {
				continue
			}
			writeMu.Lock()
			_ = other.WriteMessage(websocket.BinaryMessage, data)
			writeMu.Unlock()
		}
		r.mu.Unlock()
	}
}

func (r *lossyRelay) lose(data []byte) bool {
	f, err := converter.BytesToFrame(data)
	if err != nil || f.Type != converter.Update {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped {
		return false
	}
	r.dropped = true
	return true
}

func newPeer(t *testing.T, relayURL string, clientID uint64, opts ...client.Option) *peer {
	q, err := quotation.New("ABC1234", time.NewActorID())
	require.NoError(t, err)
	awareness := presence.New(clientID)

	c, err := client.New(relayURL, channel, q.Document(), awareness, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &peer{quotation: q, awareness: awareness, client: c}
}

func (p *peer) start(t *testing.T) {
	require.NoError(t, p.client.Start(context.Background()))
	require.Eventually(t, p.client.Connected, waitFor, tick)
}

func TestClient(t *testing.T) {
	t.Run("peers converge through the relay", func(t *testing.T) {
		ts := newRelay(t)
		a, b := newPeer(t, ts.URL, 1), newPeer(t, ts.URL, 2)
		a.start(t)
		b.start(t)

		require.NoError(t, a.quotation.SetText(quotation.CustomerName, "COVA"))
		_, err := b.quotation.AddRecord(quotation.QuotationItems, quotation.Record{
			ID:     "r1",
			Fields: map[string]interface{}{"name": "Landing Page", "quantity": 2.0},
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			sa, sb := a.quotation.Snapshot(), b.quotation.Snapshot()
			return sb.CustomerName == "COVA" && len(sa.QuotationItems) == 1
		}, waitFor, tick)
		assert.Equal(t, a.quotation.Document().Marshal(), b.quotation.Document().Marshal())

		require.NoError(t, a.awareness.SetUser(identity.Identity{ID: "user_a", Name: "Mèo", Color: identity.Palette[0]}))
		require.Eventually(t, func() bool {
			state, ok := b.awareness.States()[1]
			return ok && state.User != nil && state.User.Name == "Mèo"
		}, waitFor, tick)

		require.NoError(t, a.client.Close())
		assert.Equal(t, client.Closed, a.client.Status())
		require.Eventually(t, func() bool {
			_, ok := b.awareness.States()[1]
			return !ok
		}, waitFor, tick)
	})

	t.Run("a late joiner catches up", func(t *testing.T) {
		ts := newRelay(t)
		a := newPeer(t, ts.URL, 1)
		a.start(t)
		require.NoError(t, a.awareness.SetUser(identity.Identity{ID: "user_a", Name: "Hổ"}))
		require.NoError(t, a.quotation.SetText(quotation.ProjectDescription, "web"))
		require.NoError(t, a.quotation.SetCompanyInfo(map[string]string{"phone": "0123"}))

		b := newPeer(t, ts.URL, 2)
		b.start(t)
		require.Eventually(t, func() bool {
			s := b.quotation.Snapshot()
			return s.ProjectDescription == "web" && s.CompanyInfo["phone"] == "0123"
		}, waitFor, tick)
		require.Eventually(t, func() bool {
			_, ok := b.awareness.States()[1]
			return ok
		}, waitFor, tick)
	})

	t.Run("force reconnect", func(t *testing.T) {
		ts := newRelay(t)
		a := newPeer(t, ts.URL, 1)

		var connects int32
		a.client.OnStatus(func(s client.Status) {
			if s == client.Connected {
				atomic.AddInt32(&connects, 1)
			}
		})
		a.start(t)
		require.NoError(t, a.client.ForceReconnect())
		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&connects) == 2 && a.client.Connected()
		}, waitFor, tick)
		assert.Equal(t, 0, a.client.Transport().Attempts())
	})

	t.Run("gives up after the attempts", func(t *testing.T) {
		a := newPeer(t, "ws://127.0.0.1:1", 1,
			client.WithConnectTimeout(200*gotime.Millisecond),
			client.WithBackoff(client.Backoff{Base: 10 * gotime.Millisecond, Multiplier: 1, Max: 10 * gotime.Millisecond}),
			client.WithMaxReconnectAttempts(2),
		)
		require.NoError(t, a.client.Start(context.Background()))
		require.Eventually(t, func() bool {
			return a.client.Err() != nil
		}, waitFor, tick)
		assert.ErrorIs(t, a.client.Err(), client.ErrTransportUnavailable)
		assert.Equal(t, client.Disconnected, a.client.Status())

		require.NoError(t, a.client.Close())
		assert.ErrorIs(t, a.client.ForceReconnect(), client.ErrClosed)
	})
}

func TestClientRecovery(t *testing.T) {
	t.Run("a lost update is recovered by resync", func(t *testing.T) {
		ts := newLossyRelay(t)
		a := newPeer(t, ts.URL, 1, client.WithResyncDelay(50*gotime.Millisecond))
		b := newPeer(t, ts.URL, 2, client.WithResyncDelay(50*gotime.Millisecond))
		a.start(t)
		b.start(t)

		for i := 0; i < 4; i++ {
			require.NoError(t, a.quotation.SetText(quotation.CustomerName, fmt.Sprintf("COVA %d", i)))
		}

		require.Eventually(t, func() bool {
			return b.quotation.Snapshot().CustomerName == "COVA 3"
		}, waitFor, tick)
		assert.Equal(t, a.quotation.Document().Marshal(), b.quotation.Document().Marshal())
		assert.Equal(t, 0, b.quotation.Document().PendingLen())
	})

	t.Run("backoff grows while the relay is down and resets on reconnect", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()

		serve := func(listener net.Listener) (context.CancelFunc, chan error) {
			metrics, err := prometheus.NewMetrics()
			require.NoError(t, err)
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				done <- relay.NewServer(relay.NewConfig(), metrics).ServeListener(ctx, listener)
			}()
			return cancel, done
		}
		stop, done := serve(listener)

		backoff := client.Backoff{Base: 20 * gotime.Millisecond, Multiplier: 2, Max: 100 * gotime.Millisecond}
		a := newPeer(t, "ws://"+addr, 1,
			client.WithConnectTimeout(200*gotime.Millisecond),
			client.WithBackoff(backoff),
			client.WithMaxReconnectAttempts(1000),
		)
		a.start(t)

		stop()
		require.NoError(t, <-done)
		dropped := gotime.Now()

		require.Eventually(t, func() bool {
			return a.client.Transport().Attempts() >= 4
		}, waitFor, tick)
		assert.GreaterOrEqual(t, gotime.Since(dropped), backoff.Delay(1)+backoff.Delay(2))
		assert.False(t, a.client.Connected())

		listener, err = net.Listen("tcp", addr)
		require.NoError(t, err)
		stop, done = serve(listener)
		defer func() {
			stop()
			<-done
		}()

		require.Eventually(t, func() bool {
			return a.client.Connected() && a.client.Transport().Attempts() == 0
		}, waitFor, tick)
		assert.NoError(t, a.client.Err())
	})
}

func TestBackoff(t *testing.T) {
	backoff := client.Backoff{
		Base:       client.DefaultReconnectDelay,
		Multiplier: client.DefaultReconnectMultiplier,
		Max:        client.DefaultMaxReconnectDelay,
	}
	tests := []struct {
		attempt int
		delay   gotime.Duration
	}{
		{-1, 3 * gotime.Second},
		{0, 3 * gotime.Second},
		{1, 4500 * gotime.Millisecond},
		{2, 6750 * gotime.Millisecond},
		{3, 10 * gotime.Second},
		{20, 10 * gotime.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.delay, backoff.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestChannelURL(t *testing.T) {
	tests := []struct {
		relayURL string
		want     string
		fails    bool
	}{
		{"ws://localhost:1234", "ws://localhost:1234/" + channel, false},
		{"http://localhost:1234/", "ws://localhost:1234/" + channel, false},
		{"https://relay.example.com/yjs", "wss://relay.example.com/yjs/" + channel, false},
		{"ftp://relay.example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.relayURL, func(t *testing.T) {
			got, err := client.ChannelURL(tt.relayURL, channel)
			if tt.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
