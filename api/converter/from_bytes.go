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
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/operations"
	"github.com/cova-team/quotesync/pkg/document/time"
)

// BytesToVersionVector decodes the given bytes into a version vector.
func BytesToVersionVector(b []byte) (time.VersionVector, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}

	vv := time.NewVersionVector()
	for _, f := range fields {
		if f.num != vvEntry {
			continue
		}
		entry, err := parseFields(f.bytes)
		if err != nil {
			return nil, err
		}

		var actor time.ActorID
		var seq uint64
		for _, e := range entry {
			switch e.num {
			case vvEntryActor:
				if actor, err = time.ActorIDFromBytes(e.bytes); err != nil {
					return nil, fmt.Errorf("version vector: %v: %w", err, ErrInvalidFrame)
				}
			case vvEntrySeq:
				seq = e.varint
			}
		}
		if seq > math.MaxUint32 {
			return nil, fmt.Errorf("version vector seq %d: %w", seq, ErrInvalidFrame)
		}
		vv.Set(actor, uint32(seq))
	}
	return vv, nil
}

// BytesToChanges decodes the given change pack.
func BytesToChanges(b []byte) ([]*change.Change, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}

	var changes []*change.Change
	for _, f := range fields {
		if f.num != packChange {
			continue
		}
		c, err := bytesToChange(f.bytes)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// BytesToAwareness decodes the given awareness entries.
func BytesToAwareness(b []byte) ([]types.AwarenessEntry, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}

	var entries []types.AwarenessEntry
	for _, f := range fields {
		if f.num != awarenessEntry {
			continue
		}
		entryFields, err := parseFields(f.bytes)
		if err != nil {
			return nil, err
		}

		var entry types.AwarenessEntry
		for _, e := range entryFields {
			switch e.num {
			case awarenessClientID:
				entry.ClientID = e.varint
			case awarenessClock:
				entry.Clock = uint32(e.varint)
			case awarenessState:
				entry.State = string(e.bytes)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func bytesToChange(b []byte) (*change.Change, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}

	var id *change.ID
	var message string
	var ops []operations.Operation
	deps := time.NewVersionVector()
	for _, f := range fields {
		switch f.num {
		case changeID:
			decoded, err := bytesToChangeID(f.bytes)
			if err != nil {
				return nil, err
			}
			id = &decoded
		case changeMessage:
			message = string(f.bytes)
		case changeOperation:
			op, err := bytesToOperation(f.bytes)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		case changeDeps:
			if deps, err = BytesToVersionVector(f.bytes); err != nil {
				return nil, err
			}
		}
	}

	if id == nil {
		return nil, fmt.Errorf("change without id: %w", ErrInvalidFrame)
	}
	return change.New(*id, message, ops, deps), nil
}

func bytesToChangeID(b []byte) (change.ID, error) {
	fields, err := parseFields(b)
	if err != nil {
		return change.ID{}, err
	}

	var clientSeq, lamport uint64
	var actor time.ActorID
	hasActor := false
	for _, f := range fields {
		switch f.num {
		case idClientSeq:
			clientSeq = f.varint
		case idLamport:
			lamport = f.varint
		case idActor:
			if actor, err = time.ActorIDFromBytes(f.bytes); err != nil {
				return change.ID{}, fmt.Errorf("change id: %v: %w", err, ErrInvalidFrame)
			}
			hasActor = true
		}
	}

	if !hasActor || clientSeq == 0 || clientSeq > math.MaxUint32 || lamport > math.MaxInt64 {
		return change.ID{}, fmt.Errorf("change id seq %d lamport %d: %w", clientSeq, lamport, ErrInvalidFrame)
	}
	return change.NewID(uint32(clientSeq), int64(lamport), actor), nil
}

func bytesToOperation(b []byte) (operations.Operation, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("operation with %d bodies: %w", len(fields), ErrInvalidFrame)
	}
	kind := fields[0].num

	body, err := parseFields(fields[0].bytes)
	if err != nil {
		return nil, err
	}

	var parentCreatedAt, executedAt, prevCreatedAt, createdAt *time.Ticket
	var from, to *crdt.RGATreeSplitNodePos
	var key, content string
	var value crdt.Element
	var delta int64
	latest := make(map[string]*time.Ticket)

	for _, f := range body {
		var err error
		switch {
		case f.num == opParentCreatedAt:
			parentCreatedAt, err = bytesToTicket(f.bytes)
		case f.num == opExecutedAt:
			executedAt, err = bytesToTicket(f.bytes)
		case kind == opSet && f.num == setKey:
			key = string(f.bytes)
		case kind == opSet && f.num == setValue,
			kind == opAdd && f.num == addValue:
			value, err = bytesToElement(f.bytes)
		case kind == opAdd && f.num == addPrevCreatedAt:
			prevCreatedAt, err = bytesToTicket(f.bytes)
		case kind == opRemove && f.num == removeCreatedAt:
			createdAt, err = bytesToTicket(f.bytes)
		case kind == opEdit && f.num == editFrom:
			from, err = bytesToNodePos(f.bytes)
		case kind == opEdit && f.num == editTo:
			to, err = bytesToNodePos(f.bytes)
		case kind == opEdit && f.num == editLatest:
			err = bytesToLatestEntry(f.bytes, latest)
		case kind == opEdit && f.num == editContent:
			content = string(f.bytes)
		case kind == opIncrease && f.num == increaseDelta:
			delta = protowire.DecodeZigZag(f.varint)
		}
		if err != nil {
			return nil, err
		}
	}

	if parentCreatedAt == nil || executedAt == nil {
		return nil, fmt.Errorf("operation without tickets: %w", ErrInvalidFrame)
	}

	switch kind {
	case opSet:
		if value == nil {
			return nil, fmt.Errorf("set without value: %w", ErrInvalidFrame)
		}
		return operations.NewSet(parentCreatedAt, key, value, executedAt), nil
	case opAdd:
		if value == nil || prevCreatedAt == nil {
			return nil, fmt.Errorf("add without value: %w", ErrInvalidFrame)
		}
		return operations.NewAdd(parentCreatedAt, prevCreatedAt, value, executedAt), nil
	case opRemove:
		if createdAt == nil {
			return nil, fmt.Errorf("remove without target: %w", ErrInvalidFrame)
		}
		return operations.NewRemove(parentCreatedAt, createdAt, executedAt), nil
	case opEdit:
		if from == nil || to == nil {
			return nil, fmt.Errorf("edit without range: %w", ErrInvalidFrame)
		}
		return operations.NewEdit(parentCreatedAt, from, to, latest, content, executedAt), nil
	case opIncrease:
		return operations.NewIncrease(parentCreatedAt, delta, executedAt), nil
	}

	return nil, fmt.Errorf("operation kind %d: %w", kind, ErrInvalidFrame)
}

func bytesToLatestEntry(b []byte, latest map[string]*time.Ticket) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}

	var actor string
	var createdAt *time.Ticket
	for _, f := range fields {
		switch f.num {
		case latestActor:
			actor = string(f.bytes)
		case latestCreated:
			if createdAt, err = bytesToTicket(f.bytes); err != nil {
				return err
			}
		}
	}
	if createdAt == nil {
		return fmt.Errorf("latest entry of %q without ticket: %w", actor, ErrInvalidFrame)
	}
	latest[actor] = createdAt
	return nil
}

func bytesToElement(b []byte) (crdt.Element, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("element with %d bodies: %w", len(fields), ErrInvalidFrame)
	}
	kind := fields[0].num

	body, err := parseFields(fields[0].bytes)
	if err != nil {
		return nil, err
	}

	var createdAt *time.Ticket
	for _, f := range body {
		if f.num == elemCreatedAt {
			if createdAt, err = bytesToTicket(f.bytes); err != nil {
				return nil, err
			}
		}
	}
	if createdAt == nil {
		return nil, fmt.Errorf("element without ticket: %w", ErrInvalidFrame)
	}

	switch kind {
	case elemObject:
		obj := crdt.NewObject(crdt.NewElementRHT(), createdAt)
		for _, f := range body {
			if f.num != objectMember {
				continue
			}
			key, value, err := bytesToMember(f.bytes)
			if err != nil {
				return nil, err
			}
			obj.Set(key, value)
		}
		return obj, nil
	case elemArray:
		arr := crdt.NewArray(crdt.NewRGATreeList(), createdAt)
		for _, f := range body {
			if f.num != arrayElement {
				continue
			}
			value, err := bytesToElement(f.bytes)
			if err != nil {
				return nil, err
			}
			if err := arr.InsertAfter(arr.LastCreatedAt(), value); err != nil {
				return nil, fmt.Errorf("array element: %v: %w", err, ErrInvalidFrame)
			}
		}
		return arr, nil
	case elemPrimitive:
		return bytesToPrimitive(body, createdAt)
	case elemText:
		return crdt.NewText(crdt.NewRGATreeSplit(), createdAt), nil
	case elemCounter:
		var value int64
		for _, f := range body {
			if f.num == counterValue {
				value = protowire.DecodeZigZag(f.varint)
			}
		}
		return crdt.NewCounter(value, createdAt), nil
	}

	return nil, fmt.Errorf("element kind %d: %w", kind, ErrInvalidFrame)
}

func bytesToMember(b []byte) (string, crdt.Element, error) {
	fields, err := parseFields(b)
	if err != nil {
		return "", nil, err
	}

	var key string
	var value crdt.Element
	for _, f := range fields {
		switch f.num {
		case memberKey:
			key = string(f.bytes)
		case memberValue:
			if value, err = bytesToElement(f.bytes); err != nil {
				return "", nil, err
			}
		}
	}
	if value == nil {
		return "", nil, fmt.Errorf("member %q without value: %w", key, ErrInvalidFrame)
	}
	return key, value, nil
}

func bytesToPrimitive(body []field, createdAt *time.Ticket) (*crdt.Primitive, error) {
	var valueType crdt.ValueType
	var raw []byte
	for _, f := range body {
		switch f.num {
		case primitiveType:
			valueType = crdt.ValueType(f.varint)
		case primitiveValue:
			raw = f.bytes
		}
	}

	value, err := crdt.ValueFromBytes(valueType, raw)
	if err != nil {
		return nil, fmt.Errorf("primitive: %v: %w", err, ErrInvalidFrame)
	}
	primitive, err := crdt.NewPrimitive(value, createdAt)
	if err != nil {
		return nil, fmt.Errorf("primitive: %v: %w", err, ErrInvalidFrame)
	}
	return primitive, nil
}

func bytesToNodePos(b []byte) (*crdt.RGATreeSplitNodePos, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}

	var createdAt *time.Ticket
	var offset, relativeOffset uint64
	for _, f := range fields {
		switch f.num {
		case posCreatedAt:
			if createdAt, err = bytesToTicket(f.bytes); err != nil {
				return nil, err
			}
		case posOffset:
			offset = f.varint
		case posRelativeOffset:
			relativeOffset = f.varint
		}
	}
	if createdAt == nil || offset > math.MaxInt32 || relativeOffset > math.MaxInt32 {
		return nil, fmt.Errorf("node position: %w", ErrInvalidFrame)
	}

	return crdt.NewRGATreeSplitNodePos(
		crdt.NewRGATreeSplitNodeID(createdAt, int(offset)),
		int(relativeOffset),
	), nil
}

func bytesToTicket(b []byte) (*time.Ticket, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}

	var lamport, delimiter uint64
	var actor time.ActorID
	for _, f := range fields {
		switch f.num {
		case ticketLamport:
			lamport = f.varint
		case ticketDelimiter:
			delimiter = f.varint
		case ticketActor:
			if actor, err = time.ActorIDFromBytes(f.bytes); err != nil {
				return nil, fmt.Errorf("ticket: %v: %w", err, ErrInvalidFrame)
			}
		}
	}
	if lamport > math.MaxInt64 || delimiter > math.MaxUint32 {
		return nil, fmt.Errorf("ticket lamport %d delimiter %d: %w", lamport, delimiter, ErrInvalidFrame)
	}
	return time.NewTicket(int64(lamport), uint32(delimiter), actor), nil
}
