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
	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/client"
	"github.com/cova-team/quotesync/pkg/fieldrouter"
	"github.com/cova-team/quotesync/pkg/identity"
	"github.com/cova-team/quotesync/pkg/lifecycle"
	"github.com/cova-team/quotesync/pkg/presence"
	"github.com/cova-team/quotesync/pkg/quotation"
)

// State is what the UI renders.
type State struct {
	RoomCode string
	ShareURL string

	ConnectionStatus client.Status

	// Err is set once the client gave up reaching the relay.
	Err error

	CurrentUser       identity.Identity
	Participants      []presence.Participant
	RemoteCursors     map[uint64]presence.RemoteCursor
	IsLastParticipant bool

	LeaveState lifecycle.State

	// PendingLeaveAction is the action waiting for confirmation, if any.
	PendingLeaveAction *lifecycle.ActionKind

	// Document is the view of the quotation. While a field is being
	// edited it keeps the local value of that field.
	Document *types.Snapshot

	// Editing is the field being edited, if any.
	Editing *fieldrouter.Field
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	state := State{
		RoomCode:          s.roomCode,
		CurrentUser:       s.user,
		Participants:      append([]presence.Participant(nil), s.participants...),
		RemoteCursors:     make(map[uint64]presence.RemoteCursor, len(s.cursors)),
		IsLastParticipant: presence.IsLastParticipant(s.participants),
		Document:          s.view,
	}
	for id, cursor := range s.cursors {
		state.RemoteCursors[id] = cursor
	}
	s.mu.Unlock()

	state.ShareURL = s.ShareURL()
	state.ConnectionStatus = s.client.Status()
	state.Err = s.client.Err()
	state.LeaveState = s.policy.State()
	if action, ok := s.policy.PendingAction(); ok {
		kind := action.Kind
		state.PendingLeaveAction = &kind
	}
	if field, ok := s.tracker.Editing(); ok {
		state.Editing = &field
	}
	return state
}

// SetCustomerName replaces the customer name.
func (s *Session) SetCustomerName(value string) error {
	return s.quotation.SetText(quotation.CustomerName, value)
}

// SetProjectDescription replaces the project description.
func (s *Session) SetProjectDescription(value string) error {
	return s.quotation.SetText(quotation.ProjectDescription, value)
}

// SetText replaces the text field.
func (s *Session) SetText(field, value string) error {
	return s.quotation.SetText(field, value)
}

// SetRecordField sets one field of one record. Records removed
// concurrently are ignored.
func (s *Session) SetRecordField(collection, recordID, field string, value interface{}) error {
	return s.quotation.SetRecordField(collection, recordID, field, value)
}

// ReplaceCollection makes the records and the order of the collection those
// of the given list. Fields of existing records are kept.
func (s *Session) ReplaceCollection(collection string, records []quotation.Record) error {
	return s.quotation.ReplaceCollection(collection, records)
}

// AddRecord appends the record to the collection and returns its id.
func (s *Session) AddRecord(collection string, record quotation.Record) (string, error) {
	return s.quotation.AddRecord(collection, record)
}

// RemoveRecord removes the record from the collection.
func (s *Session) RemoveRecord(collection, recordID string) error {
	return s.quotation.RemoveRecord(collection, recordID)
}

// SetCompanyInfo sets the given keys of the company info.
func (s *Session) SetCompanyInfo(info map[string]string) error {
	return s.quotation.SetCompanyInfo(info)
}

// Populate loads the snapshot into the quotation in one change.
func (s *Session) Populate(snapshot *types.Snapshot) error {
	return s.quotation.Populate(snapshot)
}

// FocusField marks the field as being edited by the participant.
func (s *Session) FocusField(recordID, field string) {
	s.tracker.Focus(recordID, field)
}

// BlurField releases the edited field after the release delay.
func (s *Session) BlurField() {
	s.tracker.Blur()
}

// UpdateCursorPosition publishes the pointer position. Positions are sent at
// most once per CursorThrottle; the last one is always sent.
func (s *Session) UpdateCursorPosition(x, y float64) error {
	if s.policy.IsLeaving() {
		return nil
	}
	cursor := presence.NewCursor(x, y, s.now().UnixMilli())
	s.cursorThrottle.ExecuteOrSchedule(func() {
		if s.policy.IsLeaving() {
			return
		}
		if err := s.awareness.SetCursor(cursor); err != nil {
			s.logger.Warnf("publish cursor: %v", err)
		}
	})
	return nil
}

// ClearCursorPosition withdraws the pointer, such as when it leaves the
// window. A position still waiting to be sent is dropped.
func (s *Session) ClearCursorPosition() error {
	s.cursorThrottle.Cancel()
	if s.policy.IsLeaving() {
		return nil
	}
	return s.awareness.SetCursor(nil)
}

// SetVisible records whether the window is visible. Becoming visible sends
// a heartbeat and rechecks the participants at once.
func (s *Session) SetVisible(visible bool) error {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()

	if !visible {
		return nil
	}
	if err := s.sendHeartbeat(); err != nil {
		return err
	}
	s.refreshParticipants()
	s.notify()
	return nil
}

// RequestLeave handles a leave-triggering action. It returns true if the
// action proceeded. The last participant must confirm first: the action is
// held back until ConfirmLeave or CancelLeave.
func (s *Session) RequestLeave(kind lifecycle.ActionKind, proceed func()) (bool, error) {
	ok, err := s.policy.RequestLeave(lifecycle.Action{Kind: kind, Proceed: proceed})
	s.notify()
	return ok, err
}

// ConfirmLeave lets the pending action proceed after clearing the presence.
func (s *Session) ConfirmLeave() (lifecycle.ActionKind, error) {
	action, err := s.policy.Confirm()
	s.notify()
	return action.Kind, err
}

// CancelLeave discards the pending action and sends a heartbeat.
func (s *Session) CancelLeave() error {
	err := s.policy.Cancel()
	s.notify()
	return err
}

// ShouldWarnOnTabClose returns whether closing the tab now needs the
// browser's prompt: the participant is the last one, or the quotation is
// not empty. A participant that is leaving is never held back.
func (s *Session) ShouldWarnOnTabClose() bool {
	if s.policy.IsLeaving() {
		return false
	}
	return s.policy.ShouldPromptOnTabClose() || lifecycle.HasUnsavedChanges(s.quotation.Snapshot())
}
