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

// Package crdt provides the conflict-free replicated data types a document
// is made of.
package crdt

import (
	"fmt"
	"strings"

	"github.com/cova-team/quotesync/pkg/document/time"
)

// ElementPair holds an element and the container it belongs to.
type ElementPair struct {
	parent Container
	elem   Element
}

// Root is the root of a document. It indexes every element by its creation
// time so that remote operations can find their targets.
type Root struct {
	object                *Object
	elementMapByCreatedAt map[string]ElementPair
}

// NewRoot creates a new instance of Root.
func NewRoot(root *Object) *Root {
	r := &Root{
		object:                root,
		elementMapByCreatedAt: make(map[string]ElementPair),
	}
	r.RegisterElement(root, nil)
	return r
}

// Object returns the root object of the document.
func (r *Root) Object() *Object {
	return r.object
}

// FindByCreatedAt returns the element of given creation time.
func (r *Root) FindByCreatedAt(createdAt *time.Ticket) Element {
	pair, ok := r.elementMapByCreatedAt[createdAt.Key()]
	if !ok {
		return nil
	}
	return pair.elem
}

// RegisterElement registers the given element and its descendants.
func (r *Root) RegisterElement(elem Element, parent Container) {
	r.elementMapByCreatedAt[elem.CreatedAt().Key()] = ElementPair{parent: parent, elem: elem}

	if container, ok := elem.(Container); ok {
		container.Descendants(func(child Element, parent Container) bool {
			r.elementMapByCreatedAt[child.CreatedAt().Key()] = ElementPair{parent: parent, elem: child}
			return false
		})
	}
}

// CreatePath returns the JSON path of the element created at the given time,
// such as `$.quotationItems.records.x1.name`.
func (r *Root) CreatePath(createdAt *time.Ticket) (string, error) {
	pair, ok := r.elementMapByCreatedAt[createdAt.Key()]
	if !ok {
		return "", fmt.Errorf("path of %s: %w", createdAt.Key(), ErrChildNotFound)
	}

	var subPaths []string
	for pair.parent != nil {
		subPath, ok := pair.parent.SubPathOf(pair.elem.CreatedAt())
		if !ok {
			return "", fmt.Errorf("sub path of %s: %w", pair.elem.CreatedAt().Key(), ErrChildNotFound)
		}
		subPaths = append(subPaths, subPath)

		pair, ok = r.elementMapByCreatedAt[pair.parent.CreatedAt().Key()]
		if !ok {
			return "", fmt.Errorf("parent of %s: %w", subPath, ErrChildNotFound)
		}
	}
	subPaths = append(subPaths, "$")

	for i, j := 0, len(subPaths)-1; i < j; i, j = i+1, j-1 {
		subPaths[i], subPaths[j] = subPaths[j], subPaths[i]
	}
	return strings.Join(subPaths, "."), nil
}

// ElementMapLen returns the number of registered elements, tombstones included.
func (r *Root) ElementMapLen() int {
	return len(r.elementMapByCreatedAt)
}

// DeepCopy copies itself deeply.
func (r *Root) DeepCopy() *Root {
	return NewRoot(r.object.DeepCopy().(*Object))
}
