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
	"github.com/cova-team/quotesync/pkg/document/time"
)

// Text is an extended data type for the contents of a text field. Concurrent
// insertions interleave deterministically instead of overwriting each other.
type Text struct {
	rgaTreeSplit *RGATreeSplit
	createdAt    *time.Ticket
	removedAt    *time.Ticket
}

// NewText creates a new instance of Text.
func NewText(elements *RGATreeSplit, createdAt *time.Ticket) *Text {
	return &Text{
		rgaTreeSplit: elements,
		createdAt:    createdAt,
	}
}

// CreateRange returns the positions of the given index range.
func (t *Text) CreateRange(from, to int) (*RGATreeSplitNodePos, *RGATreeSplitNodePos, error) {
	return t.rgaTreeSplit.createRange(from, to)
}

// Edit replaces the text between the given positions with the content. It
// returns, per actor, the latest creation time of the nodes it removed so that
// remote replicas can leave alone what this editor had not seen.
func (t *Text) Edit(
	from, to *RGATreeSplitNodePos,
	latestCreatedAtMapByActor map[string]*time.Ticket,
	content string,
	executedAt *time.Ticket,
) (map[string]*time.Ticket, error) {
	return t.rgaTreeSplit.edit(from, to, latestCreatedAtMapByActor, content, executedAt)
}

// Len returns the number of characters of this text.
func (t *Text) Len() int {
	return t.rgaTreeSplit.len()
}

// String returns the string representation of this text.
func (t *Text) String() string {
	return t.rgaTreeSplit.string()
}

// StructureAsString returns the node structure for debugging.
func (t *Text) StructureAsString() string {
	return t.rgaTreeSplit.StructureAsString()
}

// Marshal returns the JSON encoding of this text.
func (t *Text) Marshal() string {
	return `"` + EscapeString(t.String()) + `"`
}

// DeepCopy copies itself deeply.
func (t *Text) DeepCopy() Element {
	return &Text{
		rgaTreeSplit: t.rgaTreeSplit.deepCopy(),
		createdAt:    t.createdAt,
		removedAt:    t.removedAt,
	}
}

// CreatedAt returns the creation time of this Text.
func (t *Text) CreatedAt() *time.Ticket {
	return t.createdAt
}

// RemovedAt returns the removal time of this Text.
func (t *Text) RemovedAt() *time.Ticket {
	return t.removedAt
}

// Remove removes this Text.
func (t *Text) Remove(removedAt *time.Ticket) bool {
	if removeElement(t.createdAt, t.removedAt, removedAt) {
		t.removedAt = removedAt
		return true
	}
	return false
}
