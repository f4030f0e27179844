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

// Increase represents an operation that increments a numeric value to Counter.
type Increase struct {
	parentCreatedAt *time.Ticket
	delta           int64
	executedAt      *time.Ticket
}

// NewIncrease creates the increase instance.
func NewIncrease(parentCreatedAt *time.Ticket, delta int64, executedAt *time.Ticket) *Increase {
	return &Increase{
		parentCreatedAt: parentCreatedAt,
		delta:           delta,
		executedAt:      executedAt,
	}
}

// Execute executes this operation on the given document(`root`).
func (o *Increase) Execute(root *crdt.Root) error {
	counter, ok := root.FindByCreatedAt(o.parentCreatedAt).(*crdt.Counter)
	if !ok {
		return ErrNotApplicableDataType
	}

	counter.Increase(o.delta)
	return nil
}

// Delta returns the value of the increment.
func (o *Increase) Delta() int64 {
	return o.delta
}

// ParentCreatedAt returns the creation time of the Counter.
func (o *Increase) ParentCreatedAt() *time.Ticket {
	return o.parentCreatedAt
}

// AffectedCreatedAt returns the creation time of the Counter.
func (o *Increase) AffectedCreatedAt() *time.Ticket {
	return o.parentCreatedAt
}

// ExecutedAt returns execution time of this operation.
func (o *Increase) ExecutedAt() *time.Ticket {
	return o.executedAt
}
