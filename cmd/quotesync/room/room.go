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

// Package room provides the room commands of the CLI.
package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cova-team/quotesync/client"
	"github.com/cova-team/quotesync/collab"
	"github.com/cova-team/quotesync/pkg/roomcode"
	"github.com/cova-team/quotesync/server/logging"
)

var (
	relayURL string
	baseURL  string
	userName string
	syncWait time.Duration
)

// SubCmd represents the room command
var SubCmd = &cobra.Command{
	Use:   "room",
	Short: "Create, join and share rooms",
}

// parseRoom accepts a room code or a share link.
func parseRoom(arg string) (string, error) {
	if strings.Contains(arg, "#/room/") {
		return roomcode.FromShareURL(arg)
	}
	return roomcode.Normalize(arg)
}

func newConfig() *collab.Config {
	conf := collab.NewConfig()
	if relayURL != "" {
		conf.RelayURL = relayURL
	}
	if baseURL != "" {
		conf.BaseURL = baseURL
	}
	return conf
}

// openSession starts a session in the given room and waits until it is
// connected and had syncWait to catch up with the others.
func openSession(ctx context.Context, arg string, opts ...collab.Option) (*collab.Session, error) {
	code, err := parseRoom(arg)
	if err != nil {
		return nil, err
	}

	opts = append([]collab.Option{
		collab.WithConfig(newConfig()),
		collab.WithLogger(logging.New("room", logging.NewField("room", code))),
	}, opts...)
	session, err := collab.New(code, opts...)
	if err != nil {
		return nil, err
	}
	if userName != "" {
		if err := session.UpdateUserName(userName); err != nil {
			return nil, err
		}
	}

	connected := make(chan struct{})
	unsubscribe := session.Subscribe(func(state collab.State) {
		if state.ConnectionStatus == client.Connected || state.Err != nil {
			select {
			case <-connected:
			default:
				close(connected)
			}
		}
	})
	defer unsubscribe()

	if err := session.Start(ctx); err != nil {
		return nil, err
	}

	select {
	case <-connected:
	case <-ctx.Done():
		_ = session.Close()
		return nil, ctx.Err()
	}
	if err := session.State().Err; err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("join room %s: %w", code, err)
	}

	select {
	case <-time.After(syncWait):
	case <-ctx.Done():
	}
	return session, nil
}

func init() {
	SubCmd.PersistentFlags().StringVar(
		&relayURL,
		"relay",
		"",
		"Relay URL, defaults to $"+collab.EnvRelayURL+" or "+collab.DefaultRelayURL,
	)
	SubCmd.PersistentFlags().StringVar(
		&baseURL,
		"base-url",
		"",
		"Base URL of share links",
	)
	SubCmd.PersistentFlags().StringVar(
		&userName,
		"name",
		"",
		"Display name, a random one if empty",
	)
	SubCmd.PersistentFlags().DurationVar(
		&syncWait,
		"sync-wait",
		2*time.Second,
		"How long to wait for the others after connecting",
	)
}
