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

package profiling_test

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/server/profiling"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
)

func TestServer(t *testing.T) {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)
	metrics.AddConnection()
	metrics.AddRelayedFrame(42)
	metrics.AddDroppedFrame(prometheus.DropSlowConsumer)

	server := profiling.NewServer(&profiling.Config{Port: 8081}, metrics)
	assert.Equal(t, ":8081", server.Addr())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "quotesync_server_version")
	assert.Contains(t, body, "quotesync_relay_connections 1")
	assert.Contains(t, body, "quotesync_relay_frame_bytes_total 42")
	assert.Contains(t, body, `quotesync_relay_dropped_frames_total{reason="slow_consumer"} 1`)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	t.Run("pprof is served when enabled", func(t *testing.T) {
		server := profiling.NewServer(&profiling.Config{Port: 8081, EnablePprof: true}, nil)

		for _, path := range []string{"/debug/pprof/", "/debug/pprof/heap", "/debug/pprof/goroutine"} {
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}

		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("start reports a port in use", func(t *testing.T) {
		listener, err := net.Listen("tcp", ":0")
		require.NoError(t, err)
		defer func() { _ = listener.Close() }()

		port := listener.Addr().(*net.TCPAddr).Port
		server := profiling.NewServer(&profiling.Config{Port: port}, nil)
		assert.Error(t, server.Start())
	})

	t.Run("serves until shutdown", func(t *testing.T) {
		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)

		listener, err := net.Listen("tcp", ":0")
		require.NoError(t, err)
		port := listener.Addr().(*net.TCPAddr).Port
		require.NoError(t, listener.Close())

		server := profiling.NewServer(&profiling.Config{Port: port}, metrics)
		require.NoError(t, server.Start())
		assert.Contains(t, server.Addr(), fmt.Sprintf(":%d", port))

		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())

		server.Shutdown(true)
		_, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
		assert.Error(t, err)
	})
}
