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

package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"golang.org/x/time/rate"

	"github.com/cova-team/quotesync/server/logging"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
)

var errSubscriberClosed = errors.New("subscriber closed")

// subscriber is a connection subscribed to a channel.
type subscriber struct {
	id      string
	channel string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	done      chan struct{}
	closeOnce sync.Once
}

func newSubscriber(channel string, conn *websocket.Conn, conf *Config) *subscriber {
	return &subscriber{
		id:      xid.New().String(),
		channel: channel,
		conn:    conn,
		send:    make(chan []byte, conf.SendBufferSize),
		limiter: rate.NewLimiter(rate.Limit(conf.FramesPerSecond), conf.FrameBurst),
		done:    make(chan struct{}),
	}
}

// enqueue queues the frame without blocking. It returns false if the queue
// is full.
func (s *subscriber) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return true
	default:
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// readPump reads the frames of the subscriber and broadcasts them until the
// connection fails.
func (s *subscriber) readPump(ctx context.Context, hub *Hub, conf *Config) {
	_, readTimeout, _ := conf.durations()
	logger := logging.From(ctx)
	defer func() {
		hub.unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(conf.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		typ, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("read: %v", err)
			}
			if err == websocket.ErrReadLimit {
				hub.metrics.AddDroppedFrame(prometheus.DropTooLarge)
			}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		if err := s.pace(ctx, hub.metrics); err != nil {
			return
		}
		hub.broadcast(ctx, s, frame)
	}
}

// pace waits until the rate limit lets the next frame through. Frames are
// never dropped here: a lost update would stall the causal queue of every
// peer, so a fast sender is slowed down instead.
func (s *subscriber) pace(ctx context.Context, metrics *prometheus.Metrics) error {
	r := s.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	metrics.AddPacedFrame()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-s.done:
		r.Cancel()
		return errSubscriberClosed
	}
}

// writePump writes the queued frames and the keepalive pings.
func (s *subscriber) writePump(conf *Config) {
	ping, _, write := conf.durations()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(write))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(write))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(write))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
