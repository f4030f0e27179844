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

package server_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/server"
	"github.com/cova-team/quotesync/server/relay"
)

func TestNewConfigFromFile(t *testing.T) {
	t.Run("fail read config file test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.Equal(t, "localhost:1234", conf.RelayAddr())
		assert.NoError(t, conf.Validate())

		_, err := server.NewConfigFromFile("nowhere.yml")
		assert.Error(t, err)
	})

	t.Run("read config file test", func(t *testing.T) {
		conf, err := server.NewConfigFromFile("config.sample.yml")
		require.NoError(t, err)
		assert.NoError(t, conf.Validate())

		assert.Equal(t, server.DefaultRelayPort, conf.Relay.Port)
		assert.Equal(t, "20s", conf.Relay.PingInterval)
		assert.Equal(t, int64(relay.DefaultMaxMessageSize), conf.Relay.MaxMessageSize)
		assert.Nil(t, conf.Relay.Redis)
		assert.Equal(t, server.DefaultProfilingPort, conf.Profiling.Port)
	})

	t.Run("missing values take defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.yml")
		require.NoError(t, os.WriteFile(path, []byte("Relay:\n  Port: 4321\n  Redis:\n    Addr: localhost:6379\n"), 0o600))

		conf, err := server.NewConfigFromFile(path)
		require.NoError(t, err)
		assert.NoError(t, conf.Validate())
		assert.Equal(t, 4321, conf.Relay.Port)
		assert.Equal(t, relay.DefaultRedisChannelPrefix, conf.Relay.Redis.ChannelPrefix)
		assert.Equal(t, relay.DefaultFrameBurst, conf.Relay.FrameBurst)
		assert.Nil(t, conf.Profiling)
	})

	t.Run("invalid config file test", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.yml")
		require.NoError(t, os.WriteFile(path, []byte("Relay:\n  ReadTimeout: 1s\n"), 0o600))

		conf, err := server.NewConfigFromFile(path)
		require.NoError(t, err)
		assert.ErrorIs(t, conf.Validate(), relay.ErrInvalidDuration)
	})
}

func TestQuotesync(t *testing.T) {
	conf := server.NewConfig()
	conf.Relay.Port = 21234
	conf.Profiling = nil

	q, err := server.New(conf, nil)
	require.NoError(t, err)
	require.NoError(t, q.Start())

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + q.RelayAddr() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, q.Shutdown(true))
	require.NoError(t, q.Shutdown(true))
	select {
	case <-q.ShutdownCh():
	default:
		t.Fatal("shutdown channel is not closed")
	}
}
