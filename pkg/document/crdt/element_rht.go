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
	"sort"
	"strings"

	"github.com/cova-team/quotesync/pkg/document/time"
)

// ElementRHTNode is a node of ElementRHT.
type ElementRHTNode struct {
	key  string
	elem Element
}

// Key returns the key of this node.
func (n *ElementRHTNode) Key() string {
	return n.key
}

// Element returns the element of this node.
func (n *ElementRHTNode) Element() Element {
	return n.elem
}

func (n *ElementRHTNode) isRemoved() bool {
	return n.elem.RemovedAt() != nil
}

// ElementRHT is a replicated hashtable whose keys are last-writer-wins
// registers ordered by the creation time of their elements.
type ElementRHT struct {
	// nodeMapByKey holds the winning node of each key.
	nodeMapByKey map[string]*ElementRHTNode

	// nodeMapByCreatedAt holds every node ever stored, including the ones
	// that lost or were removed.
	nodeMapByCreatedAt map[string]*ElementRHTNode
}

// NewElementRHT creates a new instance of ElementRHT.
func NewElementRHT() *ElementRHT {
	return &ElementRHT{
		nodeMapByKey:       make(map[string]*ElementRHTNode),
		nodeMapByCreatedAt: make(map[string]*ElementRHTNode),
	}
}

// Get returns the live element of the given key.
func (rht *ElementRHT) Get(key string) Element {
	node, ok := rht.nodeMapByKey[key]
	if !ok || node.isRemoved() {
		return nil
	}
	return node.elem
}

// Has returns whether a live element exists for the given key.
func (rht *ElementRHT) Has(key string) bool {
	return rht.Get(key) != nil
}

// Set stores the element under the given key and returns the element it
// replaced, if any. Whichever element was created later wins the key, so
// replicas agree regardless of the order sets arrive in.
func (rht *ElementRHT) Set(key string, elem Element) Element {
	node := &ElementRHTNode{key: key, elem: elem}
	rht.nodeMapByCreatedAt[elem.CreatedAt().Key()] = node

	current, ok := rht.nodeMapByKey[key]
	if !ok {
		rht.nodeMapByKey[key] = node
		return nil
	}

	if !elem.CreatedAt().After(current.elem.CreatedAt()) {
		elem.Remove(current.elem.CreatedAt())
		return nil
	}

	rht.nodeMapByKey[key] = node
	if current.elem.Remove(elem.CreatedAt()) {
		return current.elem
	}
	return nil
}

// DeleteByCreatedAt removes the element created at the given time.
func (rht *ElementRHT) DeleteByCreatedAt(createdAt *time.Ticket, deletedAt *time.Ticket) Element {
	node, ok := rht.nodeMapByCreatedAt[createdAt.Key()]
	if !ok || !node.elem.Remove(deletedAt) {
		return nil
	}
	return node.elem
}

// KeyOf returns the key under which the element created at the given time
// was stored.
func (rht *ElementRHT) KeyOf(createdAt *time.Ticket) (string, bool) {
	node, ok := rht.nodeMapByCreatedAt[createdAt.Key()]
	if !ok {
		return "", false
	}
	return node.key, true
}

// Keys returns the keys of live elements in ascending order.
func (rht *ElementRHT) Keys() []string {
	keys := make([]string, 0, len(rht.nodeMapByKey))
	for key, node := range rht.nodeMapByKey {
		if !node.isRemoved() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Nodes returns every node including tombstones.
func (rht *ElementRHT) Nodes() []*ElementRHTNode {
	nodes := make([]*ElementRHTNode, 0, len(rht.nodeMapByCreatedAt))
	for _, node := range rht.nodeMapByCreatedAt {
		nodes = append(nodes, node)
	}
	return nodes
}

// DeepCopy copies the hashtable and every element in it.
func (rht *ElementRHT) DeepCopy() *ElementRHT {
	copied := NewElementRHT()
	for createdAt, node := range rht.nodeMapByCreatedAt {
		copiedNode := &ElementRHTNode{key: node.key, elem: node.elem.DeepCopy()}
		copied.nodeMapByCreatedAt[createdAt] = copiedNode
		if rht.nodeMapByKey[node.key] == node {
			copied.nodeMapByKey[node.key] = copiedNode
		}
	}
	return copied
}

// Marshal returns the JSON encoding of this map.
func (rht *ElementRHT) Marshal() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for idx, key := range rht.Keys() {
		if idx > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`"` + EscapeString(key) + `":`)
		sb.WriteString(rht.nodeMapByKey[key].elem.Marshal())
	}
	sb.WriteString("}")
	return sb.String()
}
