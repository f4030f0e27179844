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

// Package document provides a replicated JSON-like document. Replicas exchange
// changes in any order and converge to the same content.
package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/json"
	"github.com/cova-team/quotesync/pkg/document/time"
)

// EventType represents the type of the event that a document publishes.
type EventType string

const (
	// LocalChangeEvent is published when the document is modified by Update.
	LocalChangeEvent EventType = "local-change"

	// RemoteChangeEvent is published when changes of other replicas are
	// applied.
	RemoteChangeEvent EventType = "remote-change"
)

// Event describes the paths touched by a change.
type Event struct {
	Type  EventType
	Actor time.ActorID
	Paths []string
}

// Option configures Document.
type Option func(*Options)

// Options are the options of Document.
type Options struct {
	// Schema creates the elements every replica starts with. They are issued
	// tickets of the initial actor, so they are identical everywhere and are
	// never sent over the wire.
	Schema func(root *json.Object) error
}

// WithSchema configures the initial structure of the document.
func WithSchema(schema func(root *json.Object) error) Option {
	return func(o *Options) { o.Schema = schema }
}

type subscription struct {
	path string
	fn   func(Event)
}

// Document is a replica of a shared document. It is safe for concurrent use;
// subscribers are called after the internal lock is released.
type Document struct {
	mu sync.Mutex

	key      string
	actorID  time.ActorID
	root     *crdt.Root
	changeID change.ID
	vv       time.VersionVector

	// history holds every applied change in the order it was applied, which
	// is a causal order. It is used to catch up replicas that join late.
	history []*change.Change

	// pending holds remote changes whose dependencies are not applied yet.
	pending map[string]*change.Change

	nextSubID    int
	subs         map[int]subscription
	localChanges map[int]func(*change.Change)
}

// New creates a new instance of Document.
func New(key string, actorID time.ActorID, opts ...Option) (*Document, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	root := crdt.NewRoot(crdt.NewObject(crdt.NewElementRHT(), time.InitialTicket))
	if options.Schema != nil {
		ctx := change.NewContext(change.InitialID, "", root)
		if err := options.Schema(json.NewObject(ctx, root.Object())); err != nil {
			return nil, fmt.Errorf("initialize schema of %s: %w", key, err)
		}
	}

	return &Document{
		key:          key,
		actorID:      actorID,
		root:         root,
		changeID:     change.InitialID.SetActor(actorID),
		vv:           time.NewVersionVector(),
		pending:      make(map[string]*change.Change),
		subs:         make(map[int]subscription),
		localChanges: make(map[int]func(*change.Change)),
	}, nil
}

// Key returns the key of this document.
func (d *Document) Key() string {
	return d.key
}

// ActorID returns the actor of this replica.
func (d *Document) ActorID() time.ActorID {
	return d.actorID
}

// Update executes the given updater against a working copy of the document.
// If the updater succeeds, the copy replaces the document and the recorded
// operations become one change; otherwise nothing is modified.
func (d *Document) Update(
	updater func(root *json.Object) error,
	msgAndArgs ...interface{},
) error {
	d.mu.Lock()

	clone := d.root.DeepCopy()
	ctx := change.NewContext(d.changeID.Next(), messageFromMsgAndArgs(msgAndArgs...), clone)
	if err := updater(json.NewObject(ctx, clone.Object())); err != nil {
		d.mu.Unlock()
		return err
	}
	if !ctx.HasChange() {
		d.mu.Unlock()
		return nil
	}

	c := ctx.ToChange(d.vv.DeepCopy())
	d.root = clone
	d.changeID = ctx.ID()
	d.vv.Set(d.actorID, c.ID().ClientSeq())
	d.history = append(d.history, c)

	event := Event{Type: LocalChangeEvent, Actor: d.actorID, Paths: d.pathsOf(c)}
	subs, handlers := d.listeners()
	d.mu.Unlock()

	for _, handler := range handlers {
		handler(c)
	}
	publish(subs, event)
	return nil
}

// ApplyChanges applies the given remote changes. Changes already applied are
// ignored, and changes whose dependencies are missing are held back until
// those arrive, so the order of delivery does not matter. A change that fails
// to execute stays pending, together with the changes that depend on it, and
// its error is returned; it is tried again on the next call.
func (d *Document) ApplyChanges(changes ...*change.Change) error {
	d.mu.Lock()

	for _, c := range changes {
		if c.AppliedIn(d.vv) {
			continue
		}
		d.pending[c.Key()] = c
	}

	working := d.root.DeepCopy()
	var applied []*change.Change
	var errs []error
	failed := make(map[string]bool)
	for {
		c := d.nextReady(failed)
		if c == nil {
			break
		}

		if err := c.Execute(working); err != nil {
			// The failed change may have been partly executed; rebuild the
			// copy from the changes that succeeded.
			failed[c.Key()] = true
			errs = append(errs, err)
			working = d.root.DeepCopy()
			for _, a := range applied {
				_ = a.Execute(working)
			}
			continue
		}

		delete(d.pending, c.Key())
		applied = append(applied, c)
		d.vv.Set(c.ID().Actor(), c.ID().ClientSeq())
		d.changeID = d.changeID.SyncLamport(c.ID().Lamport())
		d.history = append(d.history, c)
	}

	if len(applied) == 0 {
		d.mu.Unlock()
		return errors.Join(errs...)
	}

	d.root = working
	events := make([]Event, 0, len(applied))
	for _, c := range applied {
		events = append(events, Event{Type: RemoteChangeEvent, Actor: c.ID().Actor(), Paths: d.pathsOf(c)})
	}
	subs, _ := d.listeners()
	d.mu.Unlock()

	for _, event := range events {
		publish(subs, event)
	}
	return errors.Join(errs...)
}

// ChangesSince returns the changes that a replica at the given versions has
// not applied yet, in causal order.
func (d *Document) ChangesSince(vv time.VersionVector) []*change.Change {
	d.mu.Lock()
	defer d.mu.Unlock()

	var changes []*change.Change
	for _, c := range d.history {
		if !c.AppliedIn(vv) {
			changes = append(changes, c)
		}
	}
	return changes
}

// VersionVector returns a copy of the versions applied on this replica.
func (d *Document) VersionVector() time.VersionVector {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.vv.DeepCopy()
}

// PendingLen returns the number of remote changes waiting for dependencies.
func (d *Document) PendingLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.pending)
}

// Lamport returns the current lamport clock of this replica.
func (d *Document) Lamport() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.changeID.Lamport()
}

// View calls the given function with the root object of the document. The
// root must not be modified or retained.
func (d *Document) View(fn func(root *crdt.Object)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fn(d.root.Object())
}

// Marshal returns the JSON encoding of this document.
func (d *Document) Marshal() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.root.Object().Marshal()
}

// Subscribe registers the function to be called after a change touches the
// given path, its ancestors or its descendants. Use "$" for every change.
func (d *Document) Subscribe(path string, fn func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSubID
	d.nextSubID++
	d.subs[id] = subscription{path: path, fn: fn}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// SubscribeLocalChanges registers the function to be called with every
// change made by Update, before path subscribers are notified.
func (d *Document) SubscribeLocalChanges(fn func(*change.Change)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSubID
	d.nextSubID++
	d.localChanges[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.localChanges, id)
	}
}

// nextReady returns a pending change that can be applied now, leaving out
// the keys in skip. Among several, the one with the smallest lamport is taken
// so the result is deterministic.
func (d *Document) nextReady(skip map[string]bool) *change.Change {
	var ready *change.Change
	for key, c := range d.pending {
		if skip[key] || !c.ReadyFor(d.vv) {
			continue
		}
		if ready == nil || c.ID().Lamport() < ready.ID().Lamport() ||
			(c.ID().Lamport() == ready.ID().Lamport() && c.ID().Actor().Compare(ready.ID().Actor()) < 0) {
			ready = c
		}
	}
	return ready
}

func (d *Document) pathsOf(c *change.Change) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, op := range c.Operations() {
		path, err := d.root.CreatePath(op.AffectedCreatedAt())
		if err != nil || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (d *Document) listeners() ([]subscription, []func(*change.Change)) {
	ids := make([]int, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]subscription, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, d.subs[id])
	}

	ids = ids[:0]
	for id := range d.localChanges {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(*change.Change), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, d.localChanges[id])
	}

	return subs, handlers
}

func publish(subs []subscription, event Event) {
	for _, sub := range subs {
		var matched []string
		for _, path := range event.Paths {
			if pathMatches(sub.path, path) {
				matched = append(matched, path)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sub.fn(Event{Type: event.Type, Actor: event.Actor, Paths: matched})
	}
}

// pathMatches returns whether a change of path concerns a subscriber of
// target: the same element, something inside it, or one of its containers.
func pathMatches(target, path string) bool {
	return target == path ||
		strings.HasPrefix(path, target+".") ||
		strings.HasPrefix(target, path+".")
}

func messageFromMsgAndArgs(msgAndArgs ...interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if len(msgAndArgs) == 1 {
		msg := msgAndArgs[0]
		if msgAsStr, ok := msg.(string); ok {
			return msgAsStr
		}
		return fmt.Sprintf("%+v", msg)
	}
	if len(msgAndArgs) > 1 {
		return fmt.Sprintf(msgAndArgs[0].(string), msgAndArgs[1:]...)
	}
	return ""
}
