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

// Text represents a text in the document.
type Text struct {
	text    *crdt.Text
	context *change.Context
}

// NewText creates a new instance of Text.
func NewText(ctx *change.Context, text *crdt.Text) *Text {
	return &Text{
		text:    text,
		context: ctx,
	}
}

// Edit replaces the characters in [from, to) with the content.
func (p *Text) Edit(from, to int, content string) error {
	fromPos, toPos, err := p.text.CreateRange(from, to)
	if err != nil {
		return err
	}

	ticket := p.context.IssueTimeTicket()
	latestCreatedAtMap, err := p.text.Edit(fromPos, toPos, nil, content, ticket)
	if err != nil {
		return err
	}

	p.context.Push(operations.NewEdit(
		p.text.CreatedAt(),
		fromPos,
		toPos,
		latestCreatedAtMap,
		content,
		ticket,
	))
	return nil
}

// Replace deletes the whole content and inserts the given one in a single
// edit. Nothing is recorded when the content is unchanged.
func (p *Text) Replace(content string) error {
	if p.text.String() == content {
		return nil
	}
	return p.Edit(0, p.text.Len(), content)
}

// Len returns the number of characters.
func (p *Text) Len() int {
	return p.text.Len()
}

// String returns the content of the text.
func (p *Text) String() string {
	return p.text.String()
}
