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

package crdt

import (
	"strconv"

	"github.com/cova-team/quotesync/pkg/document/time"
)

// Counter represents a number that replicas change by increments. Increments
// commute, so concurrent increases are all kept.
type Counter struct {
	value     int64
	createdAt *time.Ticket
	removedAt *time.Ticket
}

// NewCounter creates a new instance of Counter.
func NewCounter(value int64, createdAt *time.Ticket) *Counter {
	return &Counter{
		value:     value,
		createdAt: createdAt,
	}
}

// Value returns the value of this counter.
func (c *Counter) Value() int64 {
	return c.value
}

// Increase adds the given delta to the value.
func (c *Counter) Increase(delta int64) *Counter {
	c.value += delta
	return c
}

// Marshal returns the JSON encoding of the value.
func (c *Counter) Marshal() string {
	return strconv.FormatInt(c.value, 10)
}

// DeepCopy copies itself deeply.
func (c *Counter) DeepCopy() Element {
	counter := *c
	return &counter
}

// CreatedAt returns the creation time.
func (c *Counter) CreatedAt() *time.Ticket {
	return c.createdAt
}

// RemovedAt returns the removal time of this element.
func (c *Counter) RemovedAt() *time.Ticket {
	return c.removedAt
}

// Remove removes this element.
func (c *Counter) Remove(removedAt *time.Ticket) bool {
	if removeElement(c.createdAt, c.removedAt, removedAt) {
		c.removedAt = removedAt
		return true
	}
	return false
}
