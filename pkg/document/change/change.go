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

// Package change provides the implementation of Change. Change is a unit of
// modification in the document.
package change

import (
	"fmt"

	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/operations"
	"github.com/cova-team/quotesync/pkg/document/time"
)

// Change represents a unit of modification in the document. It carries the
// versions its author had applied, so receivers can hold it back until they
// have caught up.
type Change struct {
	// id is the unique identifier of the change.
	id ID

	// message is used to save a description of the change.
	message string

	// operations represent a series of user edits.
	operations []operations.Operation

	// deps is the version vector of the author when the change was made.
	deps time.VersionVector
}

// New creates a new instance of Change.
func New(id ID, message string, ops []operations.Operation, deps time.VersionVector) *Change {
	if deps == nil {
		deps = time.NewVersionVector()
	}
	return &Change{
		id:         id,
		message:    message,
		operations: ops,
		deps:       deps,
	}
}

// Execute applies this change to the given JSON root.
func (c *Change) Execute(root *crdt.Root) error {
	for _, op := range c.operations {
		if err := op.Execute(root); err != nil {
			return fmt.Errorf("execute change %s: %w", c.Key(), err)
		}
	}
	return nil
}

// ID returns the ID of this change.
func (c *Change) ID() ID {
	return c.id
}

// Message returns the message of this change.
func (c *Change) Message() string {
	return c.message
}

// Operations returns the operations of this change.
func (c *Change) Operations() []operations.Operation {
	return c.operations
}

// Deps returns the version vector the change depends on.
func (c *Change) Deps() time.VersionVector {
	return c.deps
}

// Key returns a key that identifies the change among all actors.
func (c *Change) Key() string {
	return fmt.Sprintf("%s:%d", c.id.actor.String(), c.id.clientSeq)
}

// ReadyFor returns whether the change can be applied on a replica that has
// reached the given versions: it must be the next change of its actor and
// every dependency must be covered.
func (c *Change) ReadyFor(vv time.VersionVector) bool {
	if vv.VersionOf(c.id.actor) != c.id.clientSeq-1 {
		return false
	}

	for actor, seq := range c.deps {
		if actor == c.id.actor {
			continue
		}
		if vv.VersionOf(actor) < seq {
			return false
		}
	}
	return true
}

// AppliedIn returns whether the change is already reflected in the given
// versions.
func (c *Change) AppliedIn(vv time.VersionVector) bool {
	return vv.VersionOf(c.id.actor) >= c.id.clientSeq
}
