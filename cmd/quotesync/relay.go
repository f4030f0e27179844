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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cova-team/quotesync/server"
	"github.com/cova-team/quotesync/server/logging"
	"github.com/cova-team/quotesync/server/relay"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath  string
	flagLogLevel  string
	flagLogFormat string
	flagRedisAddr string
	flagNoMetrics bool

	conf = server.NewConfig()
)

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay [options]",
		Short: "Start the websocket relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagRedisAddr != "" {
				conf.Relay.Redis = &relay.RedisConfig{Addr: flagRedisAddr}
				conf.Relay.EnsureDefaultValue()
			}
			if flagNoMetrics {
				conf.Profiling = nil
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetFormat(flagLogFormat); err != nil {
				return err
			}
			if err := conf.Validate(); err != nil {
				return err
			}

			var bus relay.Bus
			if conf.Relay.Redis != nil {
				redisBus, err := relay.NewRedisBus(context.Background(), conf.Relay.Redis, logging.New("bus"))
				if err != nil {
					return err
				}
				bus = redisBus
			}

			q, err := server.New(conf, bus)
			if err != nil {
				return err
			}

			if err := q.Start(); err != nil {
				return err
			}

			if code := handleSignal(q); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(q *server.Quotesync) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-q.ShutdownCh():
		// the server is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := q.Shutdown(graceful); err != nil {
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newRelayCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		string(logging.ConsoleFormat),
		"Log format: console, json",
	)
	cmd.Flags().IntVar(
		&conf.Relay.Port,
		"port",
		server.DefaultRelayPort,
		"Relay port",
	)
	cmd.Flags().StringVar(
		&conf.Relay.PingInterval,
		"ping-interval",
		relay.DefaultPingInterval.String(),
		"Interval of keepalive pings to subscribers",
	)
	cmd.Flags().StringVar(
		&conf.Relay.ReadTimeout,
		"read-timeout",
		relay.DefaultReadTimeout.String(),
		"How long a subscriber may stay silent",
	)
	cmd.Flags().IntVar(
		&conf.Relay.SendBufferSize,
		"send-buffer-size",
		relay.DefaultSendBufferSize,
		"Frames queued per subscriber before it is disconnected",
	)
	cmd.Flags().Float64Var(
		&conf.Relay.FramesPerSecond,
		"frames-per-second",
		relay.DefaultFramesPerSec,
		"Frames accepted per second from one subscriber",
	)
	cmd.Flags().StringVar(
		&flagRedisAddr,
		"redis-addr",
		"",
		"Redis address or URL to share channels with other relays",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"metrics-port",
		server.DefaultProfilingPort,
		"Metrics port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().BoolVar(
		&flagNoMetrics,
		"no-metrics",
		false,
		"Do not serve metrics",
	)

	rootCmd.AddCommand(cmd)
}
