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
	"fmt"

	"github.com/cova-team/quotesync/pkg/document/time"
)

// Object represents a JSON object, but unlike regular JSON, it has time
// tickets created by a logical clock to resolve conflicts.
type Object struct {
	memberNodes *ElementRHT
	createdAt   *time.Ticket
	removedAt   *time.Ticket
}

// NewObject creates a new instance of Object.
func NewObject(memberNodes *ElementRHT, createdAt *time.Ticket) *Object {
	return &Object{
		memberNodes: memberNodes,
		createdAt:   createdAt,
	}
}

// Set sets the given element of the given key and returns the element it
// replaced.
func (o *Object) Set(k string, v Element) Element {
	return o.memberNodes.Set(k, v)
}

// Get returns the live element of the given key.
func (o *Object) Get(k string) Element {
	return o.memberNodes.Get(k)
}

// Has returns whether the element exists of the given key or not.
func (o *Object) Has(k string) bool {
	return o.memberNodes.Has(k)
}

// Keys returns the keys of live members in ascending order.
func (o *Object) Keys() []string {
	return o.memberNodes.Keys()
}

// DeleteByCreatedAt deletes the element of the given creation time.
func (o *Object) DeleteByCreatedAt(createdAt *time.Ticket, deletedAt *time.Ticket) (Element, error) {
	if _, ok := o.memberNodes.KeyOf(createdAt); !ok {
		return nil, fmt.Errorf("delete %s: %w", createdAt.Key(), ErrChildNotFound)
	}
	return o.memberNodes.DeleteByCreatedAt(createdAt, deletedAt), nil
}

// SubPathOf returns the key of the member created at the given time.
func (o *Object) SubPathOf(createdAt *time.Ticket) (string, bool) {
	return o.memberNodes.KeyOf(createdAt)
}

// Descendants traverses the descendants of this object.
func (o *Object) Descendants(callback func(elem Element, parent Container) bool) {
	for _, node := range o.memberNodes.Nodes() {
		if callback(node.elem, o) {
			return
		}

		if container, ok := node.elem.(Container); ok {
			container.Descendants(callback)
		}
	}
}

// Marshal returns the JSON encoding of this object.
func (o *Object) Marshal() string {
	return o.memberNodes.Marshal()
}

// DeepCopy copies itself deeply.
func (o *Object) DeepCopy() Element {
	return &Object{
		memberNodes: o.memberNodes.DeepCopy(),
		createdAt:   o.createdAt,
		removedAt:   o.removedAt,
	}
}

// CreatedAt returns the creation time of this object.
func (o *Object) CreatedAt() *time.Ticket {
	return o.createdAt
}

// RemovedAt returns the removal time of this object.
func (o *Object) RemovedAt() *time.Ticket {
	return o.removedAt
}

// Remove removes this object.
func (o *Object) Remove(removedAt *time.Ticket) bool {
	if removeElement(o.createdAt, o.removedAt, removedAt) {
		o.removedAt = removedAt
		return true
	}
	return false
}
