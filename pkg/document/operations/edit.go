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

package operations

import (
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/time"
)

// Edit is an operation representing editing Text.
type Edit struct {
	// parentCreatedAt is the creation time of the Text that executes Edit.
	parentCreatedAt *time.Ticket

	// from represents the start point of the editing range.
	from *crdt.RGATreeSplitNodePos

	// to represents the end point of the editing range.
	to *crdt.RGATreeSplitNodePos

	// latestCreatedAtMapByActor stores, per actor, the latest creation time of
	// the nodes the editor removed.
	latestCreatedAtMapByActor map[string]*time.Ticket

	// content is the content of text added when editing.
	content string

	// executedAt is the time the operation was executed.
	executedAt *time.Ticket
}

// NewEdit creates a new instance of Edit.
func NewEdit(
	parentCreatedAt *time.Ticket,
	from *crdt.RGATreeSplitNodePos,
	to *crdt.RGATreeSplitNodePos,
	latestCreatedAtMapByActor map[string]*time.Ticket,
	content string,
	executedAt *time.Ticket,
) *Edit {
	return &Edit{
		parentCreatedAt:           parentCreatedAt,
		from:                      from,
		to:                        to,
		latestCreatedAtMapByActor: latestCreatedAtMapByActor,
		content:                   content,
		executedAt:                executedAt,
	}
}

// Execute executes this operation on the given document(`root`).
func (e *Edit) Execute(root *crdt.Root) error {
	text, ok := root.FindByCreatedAt(e.parentCreatedAt).(*crdt.Text)
	if !ok {
		return ErrNotApplicableDataType
	}

	latest := e.latestCreatedAtMapByActor
	if latest == nil {
		latest = map[string]*time.Ticket{}
	}
	_, err := text.Edit(e.from, e.to, latest, e.content, e.executedAt)
	return err
}

// From returns the start point of the editing range.
func (e *Edit) From() *crdt.RGATreeSplitNodePos {
	return e.from
}

// To returns the end point of the editing range.
func (e *Edit) To() *crdt.RGATreeSplitNodePos {
	return e.to
}

// ExecutedAt returns execution time of this operation.
func (e *Edit) ExecutedAt() *time.Ticket {
	return e.executedAt
}

// ParentCreatedAt returns the creation time of the Text.
func (e *Edit) ParentCreatedAt() *time.Ticket {
	return e.parentCreatedAt
}

// AffectedCreatedAt returns the creation time of the Text.
func (e *Edit) AffectedCreatedAt() *time.Ticket {
	return e.parentCreatedAt
}

// Content returns the content of Edit.
func (e *Edit) Content() string {
	return e.content
}

// LatestCreatedAtMapByActor returns the latest creation time by actor of the
// nodes removed by this edit.
func (e *Edit) LatestCreatedAtMapByActor() map[string]*time.Ticket {
	return e.latestCreatedAtMapByActor
}
