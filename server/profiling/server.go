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

package profiling

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cova-team/quotesync/server/logging"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
)

const (
	metricsPath = "/metrics"
	pprofPath   = "/debug/pprof/"
)

// profiles are the runtime profiles served by name when pprof is enabled.
var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Server serves the metrics of the relay, and pprof if enabled.
type Server struct {
	conf       *Config
	serveMux   *http.ServeMux
	httpServer *http.Server
	logger     logging.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates an instance of Server. Metrics may be nil, in which case
// only pprof is served.
func NewServer(conf *Config, metrics *prometheus.Metrics) *Server {
	serveMux := http.NewServeMux()
	if conf.EnablePprof {
		serveMux.HandleFunc(pprofPath, pprof.Index)
		serveMux.HandleFunc(pprofPath+"cmdline", pprof.Cmdline)
		serveMux.HandleFunc(pprofPath+"profile", pprof.Profile)
		serveMux.HandleFunc(pprofPath+"symbol", pprof.Symbol)
		serveMux.HandleFunc(pprofPath+"trace", pprof.Trace)
		for _, name := range profiles {
			serveMux.Handle(pprofPath+name, pprof.Handler(name))
		}
	}
	if metrics != nil {
		serveMux.Handle(metricsPath, promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	}

	return &Server{
		conf:       conf,
		serveMux:   serveMux,
		httpServer: &http.Server{Addr: fmt.Sprintf(":%d", conf.Port), Handler: serveMux},
		logger:     logging.New("profiling"),
	}
}

// Handle registers an extra handler on the server.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.serveMux.Handle(pattern, handler)
}

// Addr returns the address the server listens on, or the configured one
// before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Handler returns the handler of the server.
func (s *Server) Handler() http.Handler {
	return s.serveMux
}

// Start binds the port and serves in the background. A port already in use
// is reported here.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		s.logger.Infof("serving metrics on %s", listener.Addr())
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.logger.Errorf("serve metrics: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the server. A graceful shutdown lets running scrapes end.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("shutdown metrics server: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		s.logger.Errorf("close metrics server: %v", err)
	}
}
