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

// Package relay is the WebSocket relay of quotesync. A connection to
// "/<channel>" subscribes to the channel; every binary frame received is
// forwarded as is to the other subscribers of the channel. The relay keeps
// no document state.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/cova-team/quotesync/internal/validation"
	"github.com/cova-team/quotesync/server/logging"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
)

const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithBus fans frames out across relay instances through the bus.
func WithBus(bus Bus) Option {
	return func(s *Server) { s.bus = bus }
}

// WithLogger sets the logger of the server.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server is the relay server.
type Server struct {
	conf     *Config
	metrics  *prometheus.Metrics
	bus      Bus
	logger   logging.Logger
	hub      *Hub
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	done     chan error
}

// NewServer creates a relay server. The config must be valid.
func NewServer(conf *Config, metrics *prometheus.Metrics, opts ...Option) *Server {
	s := &Server{
		conf:    conf,
		metrics: metrics,
		logger:  logging.DefaultLogger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.bus, metrics, s.logger)
	return s
}

// Hub returns the hub of the server.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler of the relay.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", s.serveChannel)
	return mux
}

func (s *Server) serveChannel(w http.ResponseWriter, r *http.Request) {
	channel := strings.TrimPrefix(r.URL.Path, "/")
	if err := validation.ValidateValue(channel, "required,channel"); err != nil {
		http.Error(w, fmt.Sprintf("invalid channel %q", channel), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugf("upgrade %s: %v", channel, err)
		return
	}

	sub := newSubscriber(channel, conn, s.conf)
	logger := s.logger.With("channel", channel, "subscriber", sub.id)
	ctx := logging.With(context.Background(), logger)

	s.metrics.AddConnection()
	s.hub.register(sub)

	go sub.writePump(s.conf)
	go func() {
		defer s.metrics.RemoveConnection()
		sub.readPump(ctx, s.hub, s.conf)
	}()
}

// Serve listens on the configured port and serves until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.conf.Port))
	if err != nil {
		return fmt.Errorf("listen on %d: %w", s.conf.Port, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves on the given listener until ctx is done.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	httpServer := &http.Server{Handler: s.Handler()}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.logger.Infof("serving relay on %s", listener.Addr())
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve relay: %w", err)
		}
		return nil
	})

	if s.bus != nil {
		group.Go(func() error {
			return s.bus.Subscribe(ctx, s.hub.deliverRemote)
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.closeAll()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown relay: %w", err)
		}
		return nil
	})

	return group.Wait()
}

// Addr returns the address the server listens on, once serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start starts serving in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.conf.Port))
	if err != nil {
		return fmt.Errorf("listen on %d: %w", s.conf.Port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		done <- s.ServeListener(ctx, listener)
	}()
	return nil
}

// Shutdown stops the server started by Start. Open connections are closed
// and the bus is closed.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	err := <-done
	if s.bus != nil {
		if closeErr := s.bus.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
