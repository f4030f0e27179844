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

package room

import (
	"github.com/spf13/cobra"

	"github.com/cova-team/quotesync/pkg/roomcode"
)

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Generate a new room code and its share link",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := newConfig()
			code := roomcode.New()

			cmd.Printf("Room: %s\n", code)
			cmd.Printf("Link: %s\n", roomcode.ShareURL(conf.BaseURL, code))
			cmd.Printf("Channel: %s\n", roomcode.Channel(conf.ChannelPrefix, code))
			return nil
		},
	}
}

func init() {
	SubCmd.AddCommand(newNewCmd())
}
