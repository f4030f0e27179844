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

package json

import (
	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/operations"
)

// Array represents an array in the document.
type Array struct {
	arr     *crdt.Array
	context *change.Context
}

// NewArray creates a new instance of Array.
func NewArray(ctx *change.Context, arr *crdt.Array) *Array {
	return &Array{
		arr:     arr,
		context: ctx,
	}
}

// AddValue appends the given scalar to the end of the array.
func (p *Array) AddValue(v interface{}) error {
	primitive, err := crdt.NewPrimitive(v, p.context.IssueTimeTicket())
	if err != nil {
		return err
	}
	return p.addInternal(primitive)
}

// AddString appends the given string to the end of the array.
func (p *Array) AddString(values ...string) error {
	for _, v := range values {
		if err := p.AddValue(v); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the element of the given index.
func (p *Array) Delete(idx int) (crdt.Element, error) {
	elem, err := p.arr.Get(idx)
	if err != nil {
		return nil, err
	}

	ticket := p.context.IssueTimeTicket()
	if _, err := p.arr.DeleteByCreatedAt(elem.CreatedAt(), ticket); err != nil {
		return nil, err
	}
	p.context.Push(operations.NewRemove(p.arr.CreatedAt(), elem.CreatedAt(), ticket))
	return elem, nil
}

// Clear removes every element of the array.
func (p *Array) Clear() error {
	for p.arr.Len() > 0 {
		if _, err := p.Delete(0); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of live elements.
func (p *Array) Len() int {
	return p.arr.Len()
}

// Elements returns the live elements in order.
func (p *Array) Elements() []crdt.Element {
	return p.arr.Elements()
}

func (p *Array) addInternal(elem crdt.Element) error {
	prevCreatedAt := p.arr.LastCreatedAt()
	if err := p.arr.InsertAfter(prevCreatedAt, elem); err != nil {
		return err
	}
	p.context.Push(operations.NewAdd(p.arr.CreatedAt(), prevCreatedAt, elem.DeepCopy(), elem.CreatedAt()))
	p.context.RegisterElement(elem, p.arr)
	return nil
}
