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

// Counter represents a counter in the document.
type Counter struct {
	counter *crdt.Counter
	context *change.Context
}

// NewCounter creates a new instance of Counter.
func NewCounter(ctx *change.Context, counter *crdt.Counter) *Counter {
	return &Counter{
		counter: counter,
		context: ctx,
	}
}

// Increase adds the given delta to the counter.
func (p *Counter) Increase(delta int64) *Counter {
	ticket := p.context.IssueTimeTicket()
	p.counter.Increase(delta)
	p.context.Push(operations.NewIncrease(p.counter.CreatedAt(), delta, ticket))
	return p
}

// Value returns the value of the counter.
func (p *Counter) Value() int64 {
	return p.counter.Value()
}
