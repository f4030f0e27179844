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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cova-team/quotesync/api/types"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "import [room code or link] [file]",
		Short:   "Replace the quotation of a room with the content of a file",
		Example: "quotesync room import ABC1234 quotation.yaml",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(args[1])
			if err != nil {
				return err
			}

			session, err := openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := session.Populate(snapshot); err != nil {
				_ = session.Close()
				return err
			}
			if session.IsLastParticipant() {
				cmd.PrintErrln("Nobody else is in the room, the quotation is lost once you leave.")
			}

			if err := session.Close(); err != nil {
				return err
			}
			cmd.Printf("Imported %d items and %d payment terms into %s\n",
				len(snapshot.QuotationItems), len(snapshot.PaymentTerms), session.RoomCode())
			return nil
		},
	}
}

func readSnapshot(path string) (*types.Snapshot, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	snapshot := &types.Snapshot{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, snapshot)
	default:
		err = json.Unmarshal(data, snapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return snapshot, nil
}

func init() {
	SubCmd.AddCommand(newImportCmd())
}
