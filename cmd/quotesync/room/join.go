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
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cova-team/quotesync/collab"
	"github.com/cova-team/quotesync/pkg/lifecycle"
	"github.com/cova-team/quotesync/pkg/presence"
)

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "join [room code or link]",
		Short:   "Join a room and watch who is in it",
		Example: "quotesync room join ABC1234 --name \"Mèo Vui Vẻ\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = session.Close()
			}()

			user := session.CurrentUser()
			cmd.Printf("Joined %s as %s\n", session.RoomCode(), user.Name)
			cmd.Printf("Link: %s\n", session.ShareURL())

			changed := make(chan []presence.Participant, 1)
			unsubscribe := session.Subscribe(func(state collab.State) {
				for {
					select {
					case changed <- state.Participants:
						return
					default:
					}
					select {
					case <-changed:
					default:
					}
				}
			})
			defer unsubscribe()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			var shown []presence.Participant
			printParticipants(cmd, session.State().Participants)
			for {
				select {
				case participants := <-changed:
					if reflect.DeepEqual(participants, shown) {
						continue
					}
					shown = participants
					printParticipants(cmd, participants)
				case <-sigCh:
					left, err := leave(cmd, session)
					if err != nil || left {
						return err
					}
				case <-cmd.Context().Done():
					return nil
				}
			}
		},
	}
}

// leave asks the last participant to confirm before leaving the room.
func leave(cmd *cobra.Command, session *collab.Session) (bool, error) {
	ok, err := session.RequestLeave(lifecycle.Explicit, nil)
	if err != nil || ok {
		return true, err
	}

	cmd.Print("You are the last one in the room, the quotation will be lost. Leave? [y/N] ")
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && answer == "" {
		answer = "n"
	}
	if strings.EqualFold(strings.TrimSpace(answer), "y") {
		if _, err := session.ConfirmLeave(); err != nil {
			return true, err
		}
		return true, nil
	}

	if err := session.CancelLeave(); err != nil {
		return false, err
	}
	return false, nil
}

func printParticipants(cmd *cobra.Command, participants []presence.Participant) {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	tw.AppendHeader(table.Row{
		"CLIENT ID",
		"NAME",
		"COLOR",
		"ACTIVE",
		"LAST SEEN",
	})
	for _, p := range participants {
		tw.AppendRow(table.Row{
			p.ClientID,
			p.User.Name,
			p.User.Color,
			p.IsActive,
			lastSeen(p.LastSeen),
		})
	}
	cmd.Printf("%s\n", tw.Render())
	if len(participants) == 0 {
		cmd.Println("Nobody else is in the room.")
	}
}

func lastSeen(millis int64) string {
	ago := time.Since(time.UnixMilli(millis)).Round(time.Second)
	if ago <= 0 {
		return "now"
	}
	return fmt.Sprintf("%s ago", ago)
}

func init() {
	SubCmd.AddCommand(newJoinCmd())
}
