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

// Array represents JSON array data structure including logical clock.
type Array struct {
	elements  *RGATreeList
	createdAt *time.Ticket
	removedAt *time.Ticket
}

// NewArray creates a new instance of Array.
func NewArray(elements *RGATreeList, createdAt *time.Ticket) *Array {
	return &Array{
		elements:  elements,
		createdAt: createdAt,
	}
}

// InsertAfter inserts the given element after the given previous element.
func (a *Array) InsertAfter(prevCreatedAt *time.Ticket, element Element) error {
	return a.elements.InsertAfter(prevCreatedAt, element)
}

// Get returns the element of the given index.
func (a *Array) Get(idx int) (Element, error) {
	node, err := a.elements.Get(idx)
	if err != nil {
		return nil, err
	}
	return node.elem, nil
}

// Elements returns the live elements in order.
func (a *Array) Elements() []Element {
	var elements []Element
	for _, node := range a.elements.Nodes() {
		elements = append(elements, node.elem)
	}
	return elements
}

// LastCreatedAt returns the creation time of the last element.
func (a *Array) LastCreatedAt() *time.Ticket {
	return a.elements.LastCreatedAt()
}

// Len returns length of this Array.
func (a *Array) Len() int {
	return a.elements.Len()
}

// DeleteByCreatedAt deletes the element of the given creation time.
func (a *Array) DeleteByCreatedAt(createdAt *time.Ticket, deletedAt *time.Ticket) (Element, error) {
	node, err := a.elements.DeleteByCreatedAt(createdAt, deletedAt)
	if err != nil {
		return nil, err
	}
	return node.elem, nil
}

// SubPathOf returns the index of the element created at the given time.
func (a *Array) SubPathOf(createdAt *time.Ticket) (string, bool) {
	idx, ok := a.elements.IndexOf(createdAt)
	if !ok {
		return "", false
	}
	return strconv.Itoa(idx), true
}

// Descendants traverses the descendants of this array.
func (a *Array) Descendants(callback func(elem Element, parent Container) bool) {
	for node := a.elements.dummyHead.next; node != nil; node = node.next {
		if callback(node.elem, a) {
			return
		}

		if container, ok := node.elem.(Container); ok {
			container.Descendants(callback)
		}
	}
}

// Marshal returns the JSON encoding of this Array.
func (a *Array) Marshal() string {
	return a.elements.Marshal()
}

// DeepCopy copies itself deeply.
func (a *Array) DeepCopy() Element {
	return &Array{
		elements:  a.elements.DeepCopy(),
		createdAt: a.createdAt,
		removedAt: a.removedAt,
	}
}

// CreatedAt returns the creation time of this array.
func (a *Array) CreatedAt() *time.Ticket {
	return a.createdAt
}

// RemovedAt returns the removal time of this array.
func (a *Array) RemovedAt() *time.Ticket {
	return a.removedAt
}

// Remove removes this array.
func (a *Array) Remove(removedAt *time.Ticket) bool {
	if removeElement(a.createdAt, a.removedAt, removedAt) {
		a.removedAt = removedAt
		return true
	}
	return false
}
