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
	"errors"
	"fmt"
	"time"

	"github.com/cova-team/quotesync/internal/validation"
)

// Below are the default values of the relay config.
const (
	DefaultPort           = 1234
	DefaultPingInterval   = 20 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultSendBufferSize = 256
	DefaultMaxMessageSize = 16 << 20
	DefaultFramesPerSec   = 200
	DefaultFrameBurst     = 400

	DefaultRedisChannelPrefix = "quotesync:relay:"
)

var (
	// ErrInvalidPort occurs when the port in the config is invalid.
	ErrInvalidPort = errors.New("invalid port number for relay server")

	// ErrInvalidDuration occurs when a duration in the config is invalid.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidLimit occurs when a size or a rate in the config is invalid.
	ErrInvalidLimit = errors.New("invalid limit")
)

// Config is the configuration for creating a relay Server.
type Config struct {
	// Port is the port the relay listens on.
	Port int `yaml:"Port"`

	// PingInterval is the interval of keepalive pings to subscribers.
	PingInterval string `yaml:"PingInterval"`

	// ReadTimeout is how long a subscriber may stay silent, pongs included.
	ReadTimeout string `yaml:"ReadTimeout"`

	// WriteTimeout is the deadline of a single write.
	WriteTimeout string `yaml:"WriteTimeout"`

	// SendBufferSize is how many frames may be queued for a subscriber
	// before it is considered too slow and disconnected.
	SendBufferSize int `yaml:"SendBufferSize"`

	// MaxMessageSize is the largest frame accepted from a subscriber.
	MaxMessageSize int64 `yaml:"MaxMessageSize"`

	// FramesPerSecond and FrameBurst limit the frames of one subscriber.
	// Frames above the limit are held back until the limit allows them.
	FramesPerSecond float64 `yaml:"FramesPerSecond"`
	FrameBurst      int     `yaml:"FrameBurst"`

	// Redis is set to fan frames out across relay instances.
	Redis *RedisConfig `yaml:"Redis"`
}

// RedisConfig is the configuration of the Redis bus.
type RedisConfig struct {
	// Addr is "host:port" or a redis:// URL.
	Addr string `yaml:"Addr"`

	// ChannelPrefix is prepended to relay channels to get Redis channels.
	ChannelPrefix string `yaml:"ChannelPrefix"`
}

// NewConfig returns a config with the default values.
func NewConfig() *Config {
	conf := &Config{}
	conf.EnsureDefaultValue()
	return conf
}

// EnsureDefaultValue sets the default value of every option left empty.
func (c *Config) EnsureDefaultValue() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PingInterval == "" {
		c.PingInterval = DefaultPingInterval.String()
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = DefaultReadTimeout.String()
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = DefaultWriteTimeout.String()
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = DefaultSendBufferSize
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.FramesPerSecond == 0 {
		c.FramesPerSecond = DefaultFramesPerSec
	}
	if c.FrameBurst == 0 {
		c.FrameBurst = DefaultFrameBurst
	}
	if c.Redis != nil && c.Redis.ChannelPrefix == "" {
		c.Redis.ChannelPrefix = DefaultRedisChannelPrefix
	}
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidPort)
	}

	for _, d := range []struct{ name, value string }{
		{"PingInterval", c.PingInterval},
		{"ReadTimeout", c.ReadTimeout},
		{"WriteTimeout", c.WriteTimeout},
	} {
		if err := validation.ValidateValue(d.value, "required,duration"); err != nil {
			return fmt.Errorf("%s %q: %w", d.name, d.value, ErrInvalidDuration)
		}
	}

	ping, _ := parseDuration(c.PingInterval)
	read, _ := parseDuration(c.ReadTimeout)
	if ping >= read {
		return fmt.Errorf("PingInterval %s must be shorter than ReadTimeout %s: %w",
			c.PingInterval, c.ReadTimeout, ErrInvalidDuration)
	}

	if c.SendBufferSize < 1 {
		return fmt.Errorf("SendBufferSize %d: %w", c.SendBufferSize, ErrInvalidLimit)
	}
	if c.MaxMessageSize < 1 {
		return fmt.Errorf("MaxMessageSize %d: %w", c.MaxMessageSize, ErrInvalidLimit)
	}
	if c.FramesPerSecond <= 0 || c.FrameBurst < 1 {
		return fmt.Errorf("FramesPerSecond %v, FrameBurst %d: %w", c.FramesPerSecond, c.FrameBurst, ErrInvalidLimit)
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		return fmt.Errorf("Redis.Addr is empty: %w", ErrInvalidLimit)
	}

	return nil
}

func parseDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", value, ErrInvalidDuration)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%q is not positive: %w", value, ErrInvalidDuration)
	}
	return d, nil
}

// durations returns the parsed durations; the config must be valid.
func (c *Config) durations() (ping, read, write time.Duration) {
	ping, _ = parseDuration(c.PingInterval)
	read, _ = parseDuration(c.ReadTimeout)
	write, _ = parseDuration(c.WriteTimeout)
	return ping, read, write
}
