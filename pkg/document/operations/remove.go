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

package operations

import (
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/time"
)

// Remove is an operation that removes an element from a container. The target
// is addressed by its creation time, so a concurrent set under the same key
// is left alone.
type Remove struct {
	// parentCreatedAt is the creation time of the Container that executes
	// Remove.
	parentCreatedAt *time.Ticket

	// createdAt is the creation time of the target element to remove.
	createdAt *time.Ticket

	// executedAt is the time the operation was executed.
	executedAt *time.Ticket
}

// NewRemove creates a new instance of Remove.
func NewRemove(
	parentCreatedAt *time.Ticket,
	createdAt *time.Ticket,
	executedAt *time.Ticket,
) *Remove {
	return &Remove{
		parentCreatedAt: parentCreatedAt,
		createdAt:       createdAt,
		executedAt:      executedAt,
	}
}

// Execute executes this operation on the given document(`root`).
func (o *Remove) Execute(root *crdt.Root) error {
	container, ok := root.FindByCreatedAt(o.parentCreatedAt).(crdt.Container)
	if !ok {
		return ErrNotApplicableDataType
	}

	_, err := container.DeleteByCreatedAt(o.createdAt, o.executedAt)
	return err
}

// ParentCreatedAt returns the creation time of the Container.
func (o *Remove) ParentCreatedAt() *time.Ticket {
	return o.parentCreatedAt
}

// AffectedCreatedAt returns the creation time of the removed element.
func (o *Remove) AffectedCreatedAt() *time.Ticket {
	return o.createdAt
}

// ExecutedAt returns execution time of this operation.
func (o *Remove) ExecutedAt() *time.Ticket {
	return o.executedAt
}

// CreatedAt returns the creation time of the target element.
func (o *Remove) CreatedAt() *time.Ticket {
	return o.createdAt
}
