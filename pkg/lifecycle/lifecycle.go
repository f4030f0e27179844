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

// Package lifecycle decides what happens when a participant tries to leave.
// Rooms are not stored anywhere, so the last participant to leave takes the
// quotation with them and must confirm first.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/errors"
)

// ErrNoPendingAction is returned when a leave is confirmed or cancelled
// while nothing waits for confirmation.
var ErrNoPendingAction = errors.FailedPrecond("no pending leave action").WithCode("ErrNoPendingAction")

// ActionKind is what made the participant leave.
type ActionKind int

const (
	// TabClose is an attempt to close the tab or the window.
	TabClose ActionKind = iota

	// Navigate is a navigation away from the room.
	Navigate

	// Explicit is the "leave room" action.
	Explicit
)

// String returns the name of the kind.
func (k ActionKind) String() string {
	switch k {
	case TabClose:
		return "tab_close"
	case Navigate:
		return "navigate"
	case Explicit:
		return "explicit"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Action is a leave-triggering action. Proceed, if set, carries out the
// default effect of the action once leaving is allowed.
type Action struct {
	Kind    ActionKind
	Proceed func()
}

// State is the state of the policy.
type State int

const (
	// Normal is the state of a participant that is not leaving.
	Normal State = iota

	// AwaitingConfirmation is the state while the last participant is asked
	// whether to leave.
	AwaitingConfirmation

	// Leaving is the state of a participant that is leaving. It is final.
	Leaving
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case Leaving:
		return "leaving"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Presence is what the policy needs from the presence of the participant.
type Presence interface {
	// IsLastParticipant returns whether nobody else is in the room.
	IsLastParticipant() bool

	// ClearPresence removes the slot of the participant.
	ClearPresence() error

	// SendHeartbeat publishes a fresh heartbeat.
	SendHeartbeat() error
}

// Policy is the room lifecycle policy of one participant.
type Policy struct {
	mu       sync.Mutex
	presence Presence
	state    State
	pending  *Action
}

// NewPolicy creates a policy in the Normal state.
func NewPolicy(presence Presence) *Policy {
	return &Policy{presence: presence}
}

// State returns the current state.
func (p *Policy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// PendingAction returns the action waiting for confirmation.
func (p *Policy) PendingAction() (Action, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return Action{}, false
	}
	return *p.pending, true
}

// IsLeaving returns whether the participant is leaving. Protective prompts
// and heartbeats stop once it is.
func (p *Policy) IsLeaving() bool {
	return p.State() == Leaving
}

// RequestLeave handles a leave-triggering action. It returns true if the
// action may proceed now; in that case Proceed has been called. The last
// participant is asked first: the action is held back and false returned.
func (p *Policy) RequestLeave(action Action) (bool, error) {
	p.mu.Lock()
	switch p.state {
	case Leaving:
		p.mu.Unlock()
		proceed(action)
		return true, nil
	case AwaitingConfirmation:
		p.pending = &action
		p.mu.Unlock()
		return false, nil
	}

	if p.presence.IsLastParticipant() {
		p.state = AwaitingConfirmation
		p.pending = &action
		p.mu.Unlock()
		return false, nil
	}

	p.state = Leaving
	p.mu.Unlock()

	if err := p.presence.ClearPresence(); err != nil {
		return true, fmt.Errorf("leave on %s: %w", action.Kind, err)
	}
	proceed(action)
	return true, nil
}

// Confirm lets the pending action proceed: the participant is marked as
// leaving and its presence is cleared before Proceed is called.
func (p *Policy) Confirm() (Action, error) {
	p.mu.Lock()
	if p.state != AwaitingConfirmation || p.pending == nil {
		p.mu.Unlock()
		return Action{}, ErrNoPendingAction
	}
	action := *p.pending
	p.pending = nil
	p.state = Leaving
	p.mu.Unlock()

	if err := p.presence.ClearPresence(); err != nil {
		return action, fmt.Errorf("confirm %s: %w", action.Kind, err)
	}
	proceed(action)
	return action, nil
}

// Cancel discards the pending action and sends a heartbeat, so the others
// don't time the participant out while it was asked.
func (p *Policy) Cancel() error {
	p.mu.Lock()
	if p.state != AwaitingConfirmation {
		p.mu.Unlock()
		return ErrNoPendingAction
	}
	p.pending = nil
	p.state = Normal
	p.mu.Unlock()

	if err := p.presence.SendHeartbeat(); err != nil {
		return fmt.Errorf("cancel leave: %w", err)
	}
	return nil
}

// ShouldPromptOnTabClose returns whether closing the tab now needs the
// browser's native prompt: the participant is the last one and has not
// confirmed leaving.
func (p *Policy) ShouldPromptOnTabClose() bool {
	if p.IsLeaving() {
		return false
	}
	return p.presence.IsLastParticipant()
}

func proceed(action Action) {
	if action.Proceed != nil {
		action.Proceed()
	}
}

// HasUnsavedChanges returns whether closing the tab would lose input,
// regardless of who else is in the room.
func HasUnsavedChanges(snapshot *types.Snapshot) bool {
	return snapshot != nil && !snapshot.IsEmpty()
}
