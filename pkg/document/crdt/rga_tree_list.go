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
	"strings"

	"github.com/cova-team/quotesync/pkg/document/time"
)

// RGATreeListNode is a node of RGATreeList.
type RGATreeListNode struct {
	elem Element
	prev *RGATreeListNode
	next *RGATreeListNode
}

// Element returns the element of this node.
func (n *RGATreeListNode) Element() Element {
	return n.elem
}

// CreatedAt returns the creation time of this element.
func (n *RGATreeListNode) CreatedAt() *time.Ticket {
	return n.elem.CreatedAt()
}

func (n *RGATreeListNode) isRemoved() bool {
	return n.elem.RemovedAt() != nil
}

// RGATreeList is a list of elements ordered by the RGA rule: an element is
// placed right after its reference, skipping over the neighbors inserted
// later than itself. Removed elements stay in the list as tombstones so that
// later inserts can still refer to them.
type RGATreeList struct {
	dummyHead          *RGATreeListNode
	last               *RGATreeListNode
	size               int
	nodeMapByCreatedAt map[string]*RGATreeListNode
}

// NewRGATreeList creates a new instance of RGATreeList.
func NewRGATreeList() *RGATreeList {
	dummyValue, _ := NewPrimitive(nil, time.InitialTicket)
	dummyValue.removedAt = time.InitialTicket
	dummyHead := &RGATreeListNode{elem: dummyValue}

	return &RGATreeList{
		dummyHead:          dummyHead,
		last:               dummyHead,
		nodeMapByCreatedAt: map[string]*RGATreeListNode{dummyValue.CreatedAt().Key(): dummyHead},
	}
}

// Len returns the number of live elements.
func (a *RGATreeList) Len() int {
	return a.size
}

// LastCreatedAt returns the creation time of the last element, live or not.
func (a *RGATreeList) LastCreatedAt() *time.Ticket {
	return a.last.CreatedAt()
}

// Nodes returns the live nodes in order.
func (a *RGATreeList) Nodes() []*RGATreeListNode {
	var nodes []*RGATreeListNode
	for node := a.dummyHead.next; node != nil; node = node.next {
		if !node.isRemoved() {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// InsertAfter inserts the given element after the element created at
// prevCreatedAt.
func (a *RGATreeList) InsertAfter(prevCreatedAt *time.Ticket, elem Element) error {
	prev, err := a.findNextBeforeExecutedAt(prevCreatedAt, elem.CreatedAt())
	if err != nil {
		return fmt.Errorf("insert after: %w", err)
	}

	node := &RGATreeListNode{elem: elem, prev: prev, next: prev.next}
	if prev.next != nil {
		prev.next.prev = node
	}
	prev.next = node
	if prev == a.last {
		a.last = node
	}

	a.nodeMapByCreatedAt[elem.CreatedAt().Key()] = node
	if !node.isRemoved() {
		a.size++
	}
	return nil
}

// Get returns the live node at the given index.
func (a *RGATreeList) Get(idx int) (*RGATreeListNode, error) {
	if idx < 0 || idx >= a.size {
		return nil, fmt.Errorf("get %d of %d: %w", idx, a.size, ErrIndexOutOfRange)
	}

	i := 0
	for node := a.dummyHead.next; node != nil; node = node.next {
		if node.isRemoved() {
			continue
		}
		if i == idx {
			return node, nil
		}
		i++
	}

	return nil, fmt.Errorf("get %d: %w", idx, ErrIndexOutOfRange)
}

// IndexOf returns the position of the element created at the given time
// among live elements. Tombstones report the position they would take.
func (a *RGATreeList) IndexOf(createdAt *time.Ticket) (int, bool) {
	target, ok := a.nodeMapByCreatedAt[createdAt.Key()]
	if !ok {
		return 0, false
	}

	i := 0
	for node := a.dummyHead.next; node != nil && node != target; node = node.next {
		if !node.isRemoved() {
			i++
		}
	}
	return i, true
}

// DeleteByCreatedAt marks the element created at the given time as removed.
func (a *RGATreeList) DeleteByCreatedAt(createdAt *time.Ticket, deletedAt *time.Ticket) (*RGATreeListNode, error) {
	node, ok := a.nodeMapByCreatedAt[createdAt.Key()]
	if !ok {
		return nil, fmt.Errorf("delete %s: %w", createdAt.Key(), ErrChildNotFound)
	}

	alreadyRemoved := node.isRemoved()
	if node.elem.Remove(deletedAt) && !alreadyRemoved {
		a.size--
	}
	return node, nil
}

// DeepCopy copies the list and every element in it.
func (a *RGATreeList) DeepCopy() *RGATreeList {
	copied := NewRGATreeList()
	for node := a.dummyHead.next; node != nil; node = node.next {
		copiedNode := &RGATreeListNode{elem: node.elem.DeepCopy(), prev: copied.last}
		copied.last.next = copiedNode
		copied.last = copiedNode
		copied.nodeMapByCreatedAt[node.CreatedAt().Key()] = copiedNode
	}
	copied.size = a.size
	return copied
}

// Marshal returns the JSON encoding of this list.
func (a *RGATreeList) Marshal() string {
	sb := strings.Builder{}
	sb.WriteString("[")
	for i, node := range a.Nodes() {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(node.elem.Marshal())
	}
	sb.WriteString("]")
	return sb.String()
}

func (a *RGATreeList) findNextBeforeExecutedAt(
	createdAt *time.Ticket,
	executedAt *time.Ticket,
) (*RGATreeListNode, error) {
	node, ok := a.nodeMapByCreatedAt[createdAt.Key()]
	if !ok {
		return nil, fmt.Errorf("find %s: %w", createdAt.Key(), ErrChildNotFound)
	}

	for node.next != nil && node.next.CreatedAt().After(executedAt) {
		node = node.next
	}

	return node, nil
}
