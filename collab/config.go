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

package collab

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cova-team/quotesync/client"
	"github.com/cova-team/quotesync/pkg/errors"
	"github.com/cova-team/quotesync/pkg/fieldrouter"
	"github.com/cova-team/quotesync/pkg/roomcode"
)

// EnvRelayURL is the environment variable that overrides the relay URL.
const EnvRelayURL = "QUOTESYNC_RELAY_URL"

// Below are the default values of the collaboration config.
const (
	DefaultRelayURL = "ws://localhost:1234"
	DefaultBaseURL  = "http://localhost:5173/"

	DefaultHeartbeatInterval     = 3 * time.Second
	DefaultPresenceCheckInterval = 5 * time.Second
	DefaultConnectionTimeout     = 10 * time.Second

	DefaultConnectTimeout       = client.DefaultConnectTimeout
	DefaultReconnectDelay       = client.DefaultReconnectDelay
	DefaultReconnectMultiplier  = client.DefaultReconnectMultiplier
	DefaultMaxReconnectDelay    = client.DefaultMaxReconnectDelay
	DefaultMaxReconnectAttempts = client.DefaultMaxReconnectAttempts

	DefaultEditReleaseDelay = fieldrouter.DefaultReleaseDelay
	DefaultCursorThrottle   = 30 * time.Millisecond
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.InvalidArgument("invalid collaboration config").WithCode("ErrInvalidConfig")

// Config is the configuration of a Session.
type Config struct {
	// RelayURL is the ws, wss, http or https URL of the relay.
	RelayURL string

	// ChannelPrefix namespaces the relay channels of rooms.
	ChannelPrefix string

	// BaseURL is the address of the app, used to build share links.
	BaseURL string

	// HeartbeatInterval is how often the local heartbeat is published.
	HeartbeatInterval time.Duration

	// PresenceCheckInterval is how often the participants are recomputed.
	PresenceCheckInterval time.Duration

	// ConnectionTimeout is the age after which a heartbeat is stale.
	ConnectionTimeout time.Duration

	ConnectTimeout       time.Duration
	ReconnectDelay       time.Duration
	ReconnectMultiplier  float64
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int

	// EditReleaseDelay is how long a field stays marked as edited after it
	// loses focus.
	EditReleaseDelay time.Duration

	// CursorThrottle is the minimum time between two published cursor
	// positions. Zero publishes every position.
	CursorThrottle time.Duration
}

// NewConfig returns a config with the default values. The relay URL is
// read from EnvRelayURL if set.
func NewConfig() *Config {
	conf := &Config{
		RelayURL:              DefaultRelayURL,
		ChannelPrefix:         roomcode.DefaultChannelPrefix,
		BaseURL:               DefaultBaseURL,
		HeartbeatInterval:     DefaultHeartbeatInterval,
		PresenceCheckInterval: DefaultPresenceCheckInterval,
		ConnectionTimeout:     DefaultConnectionTimeout,
		ConnectTimeout:        DefaultConnectTimeout,
		ReconnectDelay:        DefaultReconnectDelay,
		ReconnectMultiplier:   DefaultReconnectMultiplier,
		MaxReconnectDelay:     DefaultMaxReconnectDelay,
		MaxReconnectAttempts:  DefaultMaxReconnectAttempts,
		EditReleaseDelay:      DefaultEditReleaseDelay,
		CursorThrottle:        DefaultCursorThrottle,
	}
	if url := strings.TrimSpace(os.Getenv(EnvRelayURL)); url != "" {
		conf.RelayURL = url
	}
	return conf
}

// Validate checks the config. Heartbeats must be more frequent than the
// presence checks, which must be more frequent than the timeout, and the
// timeout must tolerate at least three heartbeats.
func (c *Config) Validate() error {
	if c.RelayURL == "" {
		return fmt.Errorf("RelayURL is empty: %w", ErrInvalidConfig)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HeartbeatInterval %s: %w", c.HeartbeatInterval, ErrInvalidConfig)
	}
	if c.HeartbeatInterval >= c.PresenceCheckInterval || c.PresenceCheckInterval >= c.ConnectionTimeout {
		return fmt.Errorf("HeartbeatInterval %s, PresenceCheckInterval %s, ConnectionTimeout %s must increase: %w",
			c.HeartbeatInterval, c.PresenceCheckInterval, c.ConnectionTimeout, ErrInvalidConfig)
	}
	if c.ConnectionTimeout < 3*c.HeartbeatInterval {
		return fmt.Errorf("ConnectionTimeout %s is shorter than 3 heartbeats of %s: %w",
			c.ConnectionTimeout, c.HeartbeatInterval, ErrInvalidConfig)
	}
	if c.ConnectTimeout <= 0 || c.ReconnectDelay <= 0 || c.MaxReconnectDelay < c.ReconnectDelay {
		return fmt.Errorf("ConnectTimeout %s, ReconnectDelay %s, MaxReconnectDelay %s: %w",
			c.ConnectTimeout, c.ReconnectDelay, c.MaxReconnectDelay, ErrInvalidConfig)
	}
	if c.ReconnectMultiplier < 1 || c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("ReconnectMultiplier %v, MaxReconnectAttempts %d: %w",
			c.ReconnectMultiplier, c.MaxReconnectAttempts, ErrInvalidConfig)
	}
	if c.EditReleaseDelay < 0 {
		return fmt.Errorf("EditReleaseDelay %s: %w", c.EditReleaseDelay, ErrInvalidConfig)
	}
	if c.CursorThrottle < 0 {
		return fmt.Errorf("CursorThrottle %s: %w", c.CursorThrottle, ErrInvalidConfig)
	}
	return nil
}

func (c *Config) clientOptions() []client.Option {
	return []client.Option{
		client.WithConnectTimeout(c.ConnectTimeout),
		client.WithBackoff(client.Backoff{
			Base:       c.ReconnectDelay,
			Multiplier: c.ReconnectMultiplier,
			Max:        c.MaxReconnectDelay,
		}),
		client.WithMaxReconnectAttempts(c.MaxReconnectAttempts),
	}
}
