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

package client

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/cova-team/quotesync/server/logging"
)

const (
	// DefaultConnectTimeout is how long a dial may take.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultReconnectDelay is the delay before the first reconnect.
	DefaultReconnectDelay = 3 * time.Second

	// DefaultReconnectMultiplier is the growth of the delay per attempt.
	DefaultReconnectMultiplier = 1.5

	// DefaultMaxReconnectDelay is the ceiling of the delay.
	DefaultMaxReconnectDelay = 10 * time.Second

	// DefaultMaxReconnectAttempts is how many times in a row the client
	// tries to reach the relay before giving up.
	DefaultMaxReconnectAttempts = 9

	// DefaultPingInterval is the interval of keepalive pings.
	DefaultPingInterval = 20 * time.Second

	// DefaultReadTimeout is how long the connection may stay silent,
	// pongs included.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout is the deadline of a single write.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultSendBufferSize is the capacity of the send queue.
	DefaultSendBufferSize = 256

	// DefaultMaxMessageSize is the largest frame accepted from the relay.
	DefaultMaxMessageSize = 16 << 20

	// DefaultResyncDelay is how long changes may wait for their
	// dependencies before the client asks its peers again.
	DefaultResyncDelay = 2 * time.Second
)

// Option configures Options.
type Option func(*Options)

// Options configures how we set up the client.
type Options struct {
	// Logger is the logger of the client.
	Logger logging.Logger

	// Dialer dials the relay.
	Dialer *websocket.Dialer

	// ConnectTimeout is how long a dial may take.
	ConnectTimeout time.Duration

	// Backoff computes the delays between reconnects.
	Backoff Backoff

	// MaxReconnectAttempts is how many failed attempts in a row are
	// tolerated before the client gives up.
	MaxReconnectAttempts int

	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBufferSize int
	MaxMessageSize int64

	// ResyncDelay is how long received changes may stay pending before
	// the client sends its version vector again.
	ResyncDelay time.Duration
}

func newOptions(opts ...Option) *Options {
	options := &Options{
		Dialer:         websocket.DefaultDialer,
		ConnectTimeout: DefaultConnectTimeout,
		Backoff: Backoff{
			Base:       DefaultReconnectDelay,
			Multiplier: DefaultReconnectMultiplier,
			Max:        DefaultMaxReconnectDelay,
		},
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		PingInterval:         DefaultPingInterval,
		ReadTimeout:          DefaultReadTimeout,
		WriteTimeout:         DefaultWriteTimeout,
		SendBufferSize:       DefaultSendBufferSize,
		MaxMessageSize:       DefaultMaxMessageSize,
		ResyncDelay:          DefaultResyncDelay,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = logging.DefaultLogger()
	}
	return options
}

// WithLogger configures the logger of the client.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithDialer configures the dialer of the client.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(o *Options) { o.Dialer = dialer }
}

// WithConnectTimeout configures how long a dial may take.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = timeout }
}

// WithBackoff configures the delays between reconnects.
func WithBackoff(backoff Backoff) Option {
	return func(o *Options) { o.Backoff = backoff }
}

// WithMaxReconnectAttempts configures how many failed attempts in a row are
// tolerated.
func WithMaxReconnectAttempts(attempts int) Option {
	return func(o *Options) { o.MaxReconnectAttempts = attempts }
}

// WithKeepalive configures the ping interval and the read timeout.
func WithKeepalive(pingInterval, readTimeout time.Duration) Option {
	return func(o *Options) {
		o.PingInterval = pingInterval
		o.ReadTimeout = readTimeout
	}
}

// WithSendBufferSize configures the capacity of the send queue.
func WithSendBufferSize(size int) Option {
	return func(o *Options) { o.SendBufferSize = size }
}

// WithResyncDelay configures how long received changes may stay pending
// before the client asks its peers for what it lacks.
func WithResyncDelay(delay time.Duration) Option {
	return func(o *Options) { o.ResyncDelay = delay }
}
