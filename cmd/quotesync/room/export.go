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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var output string

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export [room code or link]",
		Short:   "Print the quotation of a room",
		Example: "quotesync room export ABC1234 -o yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return errors.New(`--output must be 'yaml' or 'json'`)
			}

			session, err := openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = session.Close()
			}()

			snapshot := session.Snapshot()
			var marshalled []byte
			switch output {
			case "yaml":
				marshalled, err = yaml.Marshal(snapshot)
			case "json":
				marshalled, err = json.MarshalIndent(snapshot, "", "  ")
			}
			if err != nil {
				return fmt.Errorf("marshal quotation: %w", err)
			}
			cmd.Println(string(marshalled))

			if session.IsLastParticipant() {
				cmd.PrintErrln("Nobody else is in the room.")
			}
			return nil
		},
	}
}

func init() {
	cmd := newExportCmd()
	cmd.Flags().StringVarP(
		&output,
		"output",
		"o",
		"json",
		"One of 'yaml' or 'json'.",
	)
	SubCmd.AddCommand(cmd)
}
