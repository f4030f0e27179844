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

// Package server provides the quotesync server which runs the relay and
// the metrics server.
package server

import (
	gosync "sync"

	"github.com/cova-team/quotesync/server/logging"
	"github.com/cova-team/quotesync/server/profiling"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
	"github.com/cova-team/quotesync/server/relay"
)

// Quotesync is a server of quotesync. It forwards the frames of each
// channel between the participants of the channel.
type Quotesync struct {
	lock gosync.Mutex

	conf            *Config
	relayServer     *relay.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Quotesync. The bus may be nil.
func New(conf *Config, bus relay.Bus) (*Quotesync, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	opts := []relay.Option{relay.WithLogger(logging.New("relay"))}
	if bus != nil {
		opts = append(opts, relay.WithBus(bus))
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Quotesync{
		conf:            conf,
		relayServer:     relay.NewServer(conf.Relay, metrics, opts...),
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the relay port.
func (q *Quotesync) Start() error {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.profilingServer != nil {
		if err := q.profilingServer.Start(); err != nil {
			return err
		}
	}

	if err := q.relayServer.Start(); err != nil {
		if q.profilingServer != nil {
			q.profilingServer.Shutdown(false)
		}
		return err
	}
	return nil
}

// Shutdown shuts down this server.
func (q *Quotesync) Shutdown(graceful bool) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.shutdown {
		return nil
	}

	if err := q.relayServer.Shutdown(); err != nil {
		return err
	}
	if q.profilingServer != nil {
		q.profilingServer.Shutdown(graceful)
	}

	close(q.shutdownCh)
	q.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (q *Quotesync) ShutdownCh() <-chan struct{} {
	return q.shutdownCh
}

// RelayAddr returns the address of the relay.
func (q *Quotesync) RelayAddr() string {
	return q.conf.RelayAddr()
}

// Relay returns the relay server.
func (q *Quotesync) Relay() *relay.Server {
	return q.relayServer
}
