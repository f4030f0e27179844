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

package converter

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/operations"
	"github.com/cova-team/quotesync/pkg/document/time"
)

// Field numbers of the messages below the frame.
const (
	ticketLamport   protowire.Number = 1
	ticketDelimiter protowire.Number = 2
	ticketActor     protowire.Number = 3

	vvEntry      protowire.Number = 1
	vvEntryActor protowire.Number = 1
	vvEntrySeq   protowire.Number = 2

	packChange protowire.Number = 1

	changeID        protowire.Number = 1
	changeMessage   protowire.Number = 2
	changeOperation protowire.Number = 3
	changeDeps      protowire.Number = 4

	idClientSeq protowire.Number = 1
	idLamport   protowire.Number = 2
	idActor     protowire.Number = 3

	opSet      protowire.Number = 1
	opAdd      protowire.Number = 2
	opRemove   protowire.Number = 3
	opEdit     protowire.Number = 4
	opIncrease protowire.Number = 5

	// Fields shared by every operation.
	opParentCreatedAt protowire.Number = 1
	opExecutedAt      protowire.Number = 2

	setKey   protowire.Number = 3
	setValue protowire.Number = 4

	addPrevCreatedAt protowire.Number = 3
	addValue         protowire.Number = 4

	removeCreatedAt protowire.Number = 3

	editFrom    protowire.Number = 3
	editTo      protowire.Number = 4
	editLatest  protowire.Number = 5
	editContent protowire.Number = 6

	latestActor   protowire.Number = 1
	latestCreated protowire.Number = 2

	increaseDelta protowire.Number = 3

	posCreatedAt      protowire.Number = 1
	posOffset         protowire.Number = 2
	posRelativeOffset protowire.Number = 3

	elemObject    protowire.Number = 1
	elemArray     protowire.Number = 2
	elemPrimitive protowire.Number = 3
	elemText      protowire.Number = 4
	elemCounter   protowire.Number = 5

	// Fields shared by every element.
	elemCreatedAt protowire.Number = 1

	objectMember protowire.Number = 2
	memberKey    protowire.Number = 1
	memberValue  protowire.Number = 2

	arrayElement protowire.Number = 2

	primitiveType  protowire.Number = 2
	primitiveValue protowire.Number = 3

	counterValue protowire.Number = 2

	awarenessEntry    protowire.Number = 1
	awarenessClientID protowire.Number = 1
	awarenessClock    protowire.Number = 2
	awarenessState    protowire.Number = 3
)

// VersionVectorToBytes encodes the given version vector.
func VersionVectorToBytes(vv time.VersionVector) []byte {
	var b []byte
	for _, actor := range vv.Actors() {
		var entry []byte
		entry = appendBytes(entry, vvEntryActor, actor.Bytes())
		entry = appendVarint(entry, vvEntrySeq, uint64(vv.VersionOf(actor)))
		b = appendBytes(b, vvEntry, entry)
	}
	return b
}

// ChangesToBytes encodes the given changes as a change pack.
func ChangesToBytes(changes []*change.Change) ([]byte, error) {
	var b []byte
	for _, c := range changes {
		encoded, err := changeToBytes(c)
		if err != nil {
			return nil, err
		}
		b = appendBytes(b, packChange, encoded)
	}
	return b, nil
}

// AwarenessToBytes encodes the given awareness entries.
func AwarenessToBytes(entries []types.AwarenessEntry) []byte {
	var b []byte
	for _, e := range entries {
		var entry []byte
		entry = appendVarint(entry, awarenessClientID, e.ClientID)
		entry = appendVarint(entry, awarenessClock, uint64(e.Clock))
		entry = appendString(entry, awarenessState, e.State)
		b = appendBytes(b, awarenessEntry, entry)
	}
	return b
}

func changeToBytes(c *change.Change) ([]byte, error) {
	var id []byte
	id = appendVarint(id, idClientSeq, uint64(c.ID().ClientSeq()))
	id = appendVarint(id, idLamport, uint64(c.ID().Lamport()))
	id = appendBytes(id, idActor, c.ID().Actor().Bytes())

	var b []byte
	b = appendBytes(b, changeID, id)
	if c.Message() != "" {
		b = appendString(b, changeMessage, c.Message())
	}
	for _, op := range c.Operations() {
		encoded, err := operationToBytes(op)
		if err != nil {
			return nil, err
		}
		b = appendBytes(b, changeOperation, encoded)
	}
	b = appendBytes(b, changeDeps, VersionVectorToBytes(c.Deps()))
	return b, nil
}

func operationToBytes(op operations.Operation) ([]byte, error) {
	var b []byte
	b = appendBytes(b, opParentCreatedAt, ticketToBytes(op.ParentCreatedAt()))
	b = appendBytes(b, opExecutedAt, ticketToBytes(op.ExecutedAt()))

	var kind protowire.Number
	switch op := op.(type) {
	case *operations.Set:
		kind = opSet
		value, err := elementToBytes(op.Value())
		if err != nil {
			return nil, err
		}
		b = appendString(b, setKey, op.Key())
		b = appendBytes(b, setValue, value)
	case *operations.Add:
		kind = opAdd
		value, err := elementToBytes(op.Value())
		if err != nil {
			return nil, err
		}
		b = appendBytes(b, addPrevCreatedAt, ticketToBytes(op.PrevCreatedAt()))
		b = appendBytes(b, addValue, value)
	case *operations.Remove:
		kind = opRemove
		b = appendBytes(b, removeCreatedAt, ticketToBytes(op.CreatedAt()))
	case *operations.Edit:
		kind = opEdit
		b = appendBytes(b, editFrom, nodePosToBytes(op.From()))
		b = appendBytes(b, editTo, nodePosToBytes(op.To()))
		for actor, createdAt := range op.LatestCreatedAtMapByActor() {
			var entry []byte
			entry = appendString(entry, latestActor, actor)
			entry = appendBytes(entry, latestCreated, ticketToBytes(createdAt))
			b = appendBytes(b, editLatest, entry)
		}
		if op.Content() != "" {
			b = appendString(b, editContent, op.Content())
		}
	case *operations.Increase:
		kind = opIncrease
		b = appendVarint(b, increaseDelta, protowire.EncodeZigZag(op.Delta()))
	default:
		return nil, fmt.Errorf("%T: %w", op, ErrUnsupportedOperation)
	}

	return appendBytes(nil, kind, b), nil
}

// elementToBytes encodes the value of Set and Add. Values are recorded when
// they are created, so containers only hold live members and texts are
// empty.
func elementToBytes(elem crdt.Element) ([]byte, error) {
	var b []byte
	b = appendBytes(b, elemCreatedAt, ticketToBytes(elem.CreatedAt()))

	var kind protowire.Number
	switch elem := elem.(type) {
	case *crdt.Object:
		kind = elemObject
		for _, key := range elem.Keys() {
			value, err := elementToBytes(elem.Get(key))
			if err != nil {
				return nil, err
			}
			var member []byte
			member = appendString(member, memberKey, key)
			member = appendBytes(member, memberValue, value)
			b = appendBytes(b, objectMember, member)
		}
	case *crdt.Array:
		kind = elemArray
		for _, child := range elem.Elements() {
			value, err := elementToBytes(child)
			if err != nil {
				return nil, err
			}
			b = appendBytes(b, arrayElement, value)
		}
	case *crdt.Primitive:
		kind = elemPrimitive
		b = appendVarint(b, primitiveType, uint64(elem.ValueType()))
		b = appendBytes(b, primitiveValue, elem.Bytes())
	case *crdt.Text:
		if elem.Len() > 0 {
			return nil, fmt.Errorf("text with content: %w", ErrUnsupportedElement)
		}
		kind = elemText
	case *crdt.Counter:
		kind = elemCounter
		b = appendVarint(b, counterValue, protowire.EncodeZigZag(elem.Value()))
	default:
		return nil, fmt.Errorf("%T: %w", elem, ErrUnsupportedElement)
	}

	return appendBytes(nil, kind, b), nil
}

func nodePosToBytes(pos *crdt.RGATreeSplitNodePos) []byte {
	var b []byte
	b = appendBytes(b, posCreatedAt, ticketToBytes(pos.ID().CreatedAt()))
	b = appendVarint(b, posOffset, uint64(pos.ID().Offset()))
	b = appendVarint(b, posRelativeOffset, uint64(pos.RelativeOffset()))
	return b
}

func ticketToBytes(ticket *time.Ticket) []byte {
	var b []byte
	b = appendVarint(b, ticketLamport, uint64(ticket.Lamport()))
	b = appendVarint(b, ticketDelimiter, uint64(ticket.Delimiter()))
	b = appendBytes(b, ticketActor, ticket.ActorID().Bytes())
	return b
}
