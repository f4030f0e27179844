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

// Package json provides the proxies that an updater uses to modify a
// document. Every modification is applied to the working copy of the root
// and recorded as an operation of the change being built.
package json

import (
	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/operations"
	"github.com/cova-team/quotesync/pkg/document/time"
)

// Object represents an object in the document.
type Object struct {
	obj     *crdt.Object
	context *change.Context
}

// NewObject creates a new instance of Object.
func NewObject(ctx *change.Context, obj *crdt.Object) *Object {
	return &Object{
		obj:     obj,
		context: ctx,
	}
}

// CreatedAt returns the creation time of the underlying object.
func (p *Object) CreatedAt() *time.Ticket {
	return p.obj.CreatedAt()
}

// SetValue sets the given scalar under the key. The value must be nil, a
// bool, an integer, a float or a string.
func (p *Object) SetValue(k string, v interface{}) error {
	ticket := p.context.IssueTimeTicket()
	primitive, err := crdt.NewPrimitive(v, ticket)
	if err != nil {
		return err
	}
	p.setInternal(k, primitive)
	return nil
}

// SetString sets the given string under the key.
func (p *Object) SetString(k, v string) *Object {
	primitive, _ := crdt.NewPrimitive(v, p.context.IssueTimeTicket())
	p.setInternal(k, primitive)
	return p
}

// SetNewObject sets a new empty Object under the key.
func (p *Object) SetNewObject(k string) *Object {
	obj := crdt.NewObject(crdt.NewElementRHT(), p.context.IssueTimeTicket())
	p.setInternal(k, obj)
	return NewObject(p.context, obj)
}

// SetNewArray sets a new empty Array under the key.
func (p *Object) SetNewArray(k string) *Array {
	arr := crdt.NewArray(crdt.NewRGATreeList(), p.context.IssueTimeTicket())
	p.setInternal(k, arr)
	return NewArray(p.context, arr)
}

// SetNewText sets a new empty Text under the key.
func (p *Object) SetNewText(k string) *Text {
	text := crdt.NewText(crdt.NewRGATreeSplit(), p.context.IssueTimeTicket())
	p.setInternal(k, text)
	return NewText(p.context, text)
}

// SetNewCounter sets a new Counter with the initial value under the key.
func (p *Object) SetNewCounter(k string, initial int64) *Counter {
	counter := crdt.NewCounter(initial, p.context.IssueTimeTicket())
	p.setInternal(k, counter)
	return NewCounter(p.context, counter)
}

// Delete removes the element of the given key.
func (p *Object) Delete(k string) crdt.Element {
	elem := p.obj.Get(k)
	if elem == nil {
		return nil
	}

	ticket := p.context.IssueTimeTicket()
	if _, err := p.obj.DeleteByCreatedAt(elem.CreatedAt(), ticket); err != nil {
		return nil
	}
	p.context.Push(operations.NewRemove(p.obj.CreatedAt(), elem.CreatedAt(), ticket))
	return elem
}

// Has returns whether a live element exists for the key.
func (p *Object) Has(k string) bool {
	return p.obj.Has(k)
}

// Keys returns the keys of live members in ascending order.
func (p *Object) Keys() []string {
	return p.obj.Keys()
}

// Get returns the element of the given key.
func (p *Object) Get(k string) crdt.Element {
	return p.obj.Get(k)
}

// GetObject returns the Object of the given key, or nil when absent or of
// another type.
func (p *Object) GetObject(k string) *Object {
	obj, ok := p.obj.Get(k).(*crdt.Object)
	if !ok {
		return nil
	}
	return NewObject(p.context, obj)
}

// GetArray returns the Array of the given key.
func (p *Object) GetArray(k string) *Array {
	arr, ok := p.obj.Get(k).(*crdt.Array)
	if !ok {
		return nil
	}
	return NewArray(p.context, arr)
}

// GetText returns the Text of the given key.
func (p *Object) GetText(k string) *Text {
	text, ok := p.obj.Get(k).(*crdt.Text)
	if !ok {
		return nil
	}
	return NewText(p.context, text)
}

// GetCounter returns the Counter of the given key.
func (p *Object) GetCounter(k string) *Counter {
	counter, ok := p.obj.Get(k).(*crdt.Counter)
	if !ok {
		return nil
	}
	return NewCounter(p.context, counter)
}

func (p *Object) setInternal(k string, elem crdt.Element) {
	p.context.Push(operations.NewSet(p.obj.CreatedAt(), k, elem.DeepCopy(), elem.CreatedAt()))
	p.obj.Set(k, elem)
	p.context.RegisterElement(elem, p.obj)
}
