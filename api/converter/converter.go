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

// Package converter provides the binary codec of the messages exchanged
// through the relay. Messages use the protobuf wire format so they stay
// compact and tolerate unknown fields.
package converter

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrInvalidFrame is returned when the given bytes can't be decoded.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrUnsupportedElement is returned when the element can't be encoded.
	ErrUnsupportedElement = errors.New("unsupported element")

	// ErrUnsupportedOperation is returned when the operation can't be encoded.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// FrameType is the type of a frame.
type FrameType int32

const (
	// SyncStep1 carries the version vector of the sender.
	SyncStep1 FrameType = iota + 1

	// SyncStep2 carries the changes the receiver of a SyncStep1 lacks.
	SyncStep2

	// Update carries the changes of a local transaction.
	Update

	// Awareness carries awareness slots.
	Awareness

	// QueryAwareness asks the receivers to send their awareness slots.
	QueryAwareness
)

// String returns the name of the frame type.
func (t FrameType) String() string {
	switch t {
	case SyncStep1:
		return "sync-step-1"
	case SyncStep2:
		return "sync-step-2"
	case Update:
		return "update"
	case Awareness:
		return "awareness"
	case QueryAwareness:
		return "query-awareness"
	}
	return fmt.Sprintf("unknown(%d)", int32(t))
}

// Frame is a message sent through the relay.
type Frame struct {
	Type     FrameType
	ClientID uint64
	Payload  []byte

	// Reply asks the receivers of a SyncStep1 to answer with their own
	// SyncStep1 as well.
	Reply bool
}

const (
	frameType     protowire.Number = 1
	frameClientID protowire.Number = 2
	framePayload  protowire.Number = 3
	frameReply    protowire.Number = 4
)

// FrameToBytes encodes the given frame.
func FrameToBytes(f *Frame) []byte {
	var b []byte
	b = appendVarint(b, frameType, uint64(f.Type))
	b = appendVarint(b, frameClientID, f.ClientID)
	if len(f.Payload) > 0 {
		b = appendBytes(b, framePayload, f.Payload)
	}
	if f.Reply {
		b = appendVarint(b, frameReply, protowire.EncodeBool(true))
	}
	return b
}

// BytesToFrame decodes the given bytes into a frame.
func BytesToFrame(b []byte) (*Frame, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}

	f := &Frame{}
	for _, field := range fields {
		switch field.num {
		case frameType:
			f.Type = FrameType(field.varint)
		case frameClientID:
			f.ClientID = field.varint
		case framePayload:
			f.Payload = field.bytes
		case frameReply:
			f.Reply = protowire.DecodeBool(field.varint)
		}
	}

	if f.Type < SyncStep1 || f.Type > QueryAwareness {
		return nil, fmt.Errorf("frame type %d: %w", f.Type, ErrInvalidFrame)
	}
	return f, nil
}

// field is a decoded field of a message. Only varint and length-delimited
// fields are kept; the rest are skipped.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func parseFields(b []byte) ([]field, error) {
	var fields []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("tag: %v: %w", protowire.ParseError(n), ErrInvalidFrame)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %v: %w", num, protowire.ParseError(n), ErrInvalidFrame)
			}
			f.varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %v: %w", num, protowire.ParseError(n), ErrInvalidFrame)
			}
			f.bytes = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %v: %w", num, protowire.ParseError(n), ErrInvalidFrame)
			}
			b = b[n:]
			continue
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}
