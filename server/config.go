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

package server

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cova-team/quotesync/server/profiling"
	"github.com/cova-team/quotesync/server/relay"
)

// Below are the values of the default values of quotesync config.
const (
	DefaultRelayPort     = relay.DefaultPort
	DefaultProfilingPort = 8081
)

// Config is the configuration for creating a Quotesync instance.
type Config struct {
	Relay     *relay.Config     `yaml:"Relay"`
	Profiling *profiling.Config `yaml:"Profiling"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRelayPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RelayAddr returns the address of the relay.
func (c *Config) RelayAddr() string {
	return fmt.Sprintf("localhost:%d", c.Relay.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.Relay.Validate(); err != nil {
		return err
	}

	if c.Profiling != nil {
		if err := c.Profiling.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.Relay == nil {
		c.Relay = &relay.Config{}
	}
	c.Relay.EnsureDefaultValue()

	if c.Profiling != nil && c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}
}

func newConfig(port int, profilingPort int) *Config {
	conf := &Config{
		Relay:     &relay.Config{Port: port},
		Profiling: &profiling.Config{Port: profilingPort},
	}
	conf.ensureDefaultValue()
	return conf
}
