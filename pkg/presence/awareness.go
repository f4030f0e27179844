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

// Package presence tracks who is in a room. Every connection owns one slot
// of an ephemeral map that is gossiped through the relay and never stored
// in the document.
package presence

import (
	"errors"
	"sort"
	"sync"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/identity"
)

// Change describes the slots touched by an update.
type Change struct {
	Added   []uint64
	Updated []uint64
	Removed []uint64

	// Local is true when the update was made by this client. Local changes
	// carry the entry to broadcast.
	Local bool
	Entry types.AwarenessEntry
}

type slot struct {
	clock uint32
	state *State
}

// Awareness is the slot map seen by one client.
type Awareness struct {
	mu sync.Mutex

	clientID uint64
	clock    uint32
	local    *State
	remotes  map[uint64]slot

	nextHandlerID int
	handlers      map[int]func(Change)
}

// New creates the awareness of the given client with an empty local slot.
func New(clientID uint64) *Awareness {
	return &Awareness{
		clientID: clientID,
		local:    &State{},
		remotes:  make(map[uint64]slot),
		handlers: make(map[int]func(Change)),
	}
}

// ClientID returns the id of the local client.
func (a *Awareness) ClientID() uint64 {
	return a.clientID
}

// LocalState returns a copy of the local slot, or nil after it was cleared.
func (a *Awareness) LocalState() *State {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.local.DeepCopy()
}

// SetUser publishes the identity of the local client.
func (a *Awareness) SetUser(user identity.Identity) error {
	return a.update(func(s *State) { s.User = &user })
}

// SetHeartbeat publishes a heartbeat of the local client.
func (a *Awareness) SetHeartbeat(heartbeat Heartbeat) error {
	return a.update(func(s *State) { s.Heartbeat = &heartbeat })
}

// SetCursor publishes the cursor of the local client. A nil cursor clears
// it.
func (a *Awareness) SetCursor(cursor *Cursor) error {
	return a.update(func(s *State) { s.Cursor = cursor })
}

// Clear removes the local slot, so the others see the client leave at once.
func (a *Awareness) Clear() error {
	a.mu.Lock()
	if a.local == nil {
		a.mu.Unlock()
		return nil
	}
	a.local = nil
	return a.publishLocal()
}

func (a *Awareness) update(fn func(s *State)) error {
	a.mu.Lock()
	if a.local == nil {
		a.local = &State{}
	}
	fn(a.local)
	return a.publishLocal()
}

// publishLocal must be called with the lock held; it releases it.
func (a *Awareness) publishLocal() error {
	a.clock++
	state, err := marshalState(a.local)
	if err != nil {
		a.mu.Unlock()
		return err
	}

	change := Change{
		Updated: []uint64{a.clientID},
		Local:   true,
		Entry:   types.AwarenessEntry{ClientID: a.clientID, Clock: a.clock, State: state},
	}
	handlers := a.sortedHandlers()
	a.mu.Unlock()

	for _, handler := range handlers {
		handler(change)
	}
	return nil
}

// LocalEntry returns the local slot as it travels on the wire.
func (a *Awareness) LocalEntry() (types.AwarenessEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, err := marshalState(a.local)
	if err != nil {
		return types.AwarenessEntry{}, err
	}
	return types.AwarenessEntry{ClientID: a.clientID, Clock: a.clock, State: state}, nil
}

// Apply merges the given remote entries. An entry replaces the slot if its
// clock is newer; a removed state deletes the slot. Entries that can't be
// decoded are skipped and reported in the returned error.
func (a *Awareness) Apply(entries []types.AwarenessEntry) error {
	a.mu.Lock()

	var change Change
	var errs []error
	for _, entry := range entries {
		if entry.ClientID == a.clientID {
			continue
		}

		state, err := unmarshalState(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		current, exists := a.remotes[entry.ClientID]
		if exists && entry.Clock < current.clock {
			continue
		}
		if exists && entry.Clock == current.clock && state != nil {
			continue
		}

		switch {
		case state == nil && exists:
			delete(a.remotes, entry.ClientID)
			change.Removed = append(change.Removed, entry.ClientID)
		case state == nil:
		case exists:
			a.remotes[entry.ClientID] = slot{clock: entry.Clock, state: state}
			change.Updated = append(change.Updated, entry.ClientID)
		default:
			a.remotes[entry.ClientID] = slot{clock: entry.Clock, state: state}
			change.Added = append(change.Added, entry.ClientID)
		}
	}

	if len(change.Added)+len(change.Updated)+len(change.Removed) == 0 {
		a.mu.Unlock()
		return errors.Join(errs...)
	}

	handlers := a.sortedHandlers()
	a.mu.Unlock()

	for _, handler := range handlers {
		handler(change)
	}
	return errors.Join(errs...)
}

// RemoveRemotes forgets the slots of every other client. It is called when
// the connection drops: the slots come back with the next updates.
func (a *Awareness) RemoveRemotes() {
	a.mu.Lock()
	if len(a.remotes) == 0 {
		a.mu.Unlock()
		return
	}

	var change Change
	for clientID := range a.remotes {
		change.Removed = append(change.Removed, clientID)
	}
	sort.Slice(change.Removed, func(i, j int) bool { return change.Removed[i] < change.Removed[j] })
	a.remotes = make(map[uint64]slot)
	handlers := a.sortedHandlers()
	a.mu.Unlock()

	for _, handler := range handlers {
		handler(change)
	}
}

// States returns copies of every slot, including the local one unless it
// was cleared.
func (a *Awareness) States() map[uint64]*State {
	a.mu.Lock()
	defer a.mu.Unlock()

	states := make(map[uint64]*State, len(a.remotes)+1)
	for clientID, s := range a.remotes {
		states[clientID] = s.state.DeepCopy()
	}
	if a.local != nil {
		states[a.clientID] = a.local.DeepCopy()
	}
	return states
}

// OnChange registers the function to be called after any slot changes. It
// returns a function that unregisters it.
func (a *Awareness) OnChange(fn func(Change)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextHandlerID
	a.nextHandlerID++
	a.handlers[id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.handlers, id)
	}
}

func (a *Awareness) sortedHandlers() []func(Change) {
	ids := make([]int, 0, len(a.handlers))
	for id := range a.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	handlers := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, a.handlers[id])
	}
	return handlers
}
