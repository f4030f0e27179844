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
	"errors"

	"github.com/cova-team/quotesync/pkg/document/time"
)

var (
	// ErrChildNotFound is returned when the child is not found in the container.
	ErrChildNotFound = errors.New("child not found")

	// ErrIndexOutOfRange is returned when the given index is out of range.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Element represents a JSON element.
type Element interface {
	// Marshal returns the JSON encoding of this element.
	Marshal() string

	// DeepCopy copies itself deeply.
	DeepCopy() Element

	// CreatedAt returns the creation time of this element.
	CreatedAt() *time.Ticket

	// RemovedAt returns the removal time of this element.
	RemovedAt() *time.Ticket

	// Remove removes this element. It only marks the removal time.
	Remove(*time.Ticket) bool
}

// Container represents Array or Object.
type Container interface {
	Element

	// Descendants traverses all descendants of this container. Traversal
	// stops when the callback returns true.
	Descendants(callback func(elem Element, parent Container) bool)

	// DeleteByCreatedAt removes the child created at the given time.
	DeleteByCreatedAt(createdAt *time.Ticket, deletedAt *time.Ticket) (Element, error)

	// SubPathOf returns the key or index of the direct child created at the
	// given time.
	SubPathOf(createdAt *time.Ticket) (string, bool)
}

// removeElement is the common tombstone rule for elements: a later removal
// wins, and nothing can be removed before it was created.
func removeElement(createdAt, current, removedAt *time.Ticket) bool {
	if removedAt == nil || !removedAt.After(createdAt) {
		return false
	}
	return current == nil || removedAt.After(current)
}
