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
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cova-team/quotesync/pkg/document/time"
)

// ErrUnsupportedType is returned when a value can't be stored in a Primitive.
var ErrUnsupportedType = errors.New("unsupported type")

// ValueType represents the type of Primitive value.
type ValueType int

// Primitive can have the following types:
const (
	Null ValueType = iota
	Boolean
	Long
	Double
	String
)

// ValueFromBytes parses the given bytes into value.
func ValueFromBytes(valueType ValueType, value []byte) (interface{}, error) {
	switch valueType {
	case Null:
		return nil, nil
	case Boolean:
		return len(value) == 1 && value[0] == 1, nil
	case Long:
		if len(value) != 8 {
			return nil, fmt.Errorf("long of %d bytes: %w", len(value), ErrUnsupportedType)
		}
		return int64(binary.LittleEndian.Uint64(value)), nil
	case Double:
		if len(value) != 8 {
			return nil, fmt.Errorf("double of %d bytes: %w", len(value), ErrUnsupportedType)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(value)), nil
	case String:
		return string(value), nil
	}

	return nil, fmt.Errorf("value type %d: %w", valueType, ErrUnsupportedType)
}

// Primitive represents JSON primitive data type including logical clock.
type Primitive struct {
	valueType ValueType
	value     interface{}
	createdAt *time.Ticket
	removedAt *time.Ticket
}

// NewPrimitive creates a new instance of Primitive.
func NewPrimitive(value interface{}, createdAt *time.Ticket) (*Primitive, error) {
	p := &Primitive{createdAt: createdAt}

	switch val := value.(type) {
	case nil:
		p.valueType = Null
	case bool:
		p.valueType, p.value = Boolean, val
	case int:
		p.valueType, p.value = Long, int64(val)
	case int32:
		p.valueType, p.value = Long, int64(val)
	case int64:
		p.valueType, p.value = Long, val
	case float32:
		p.valueType, p.value = Double, float64(val)
	case float64:
		p.valueType, p.value = Double, val
	case string:
		p.valueType, p.value = String, val
	default:
		return nil, fmt.Errorf("%T: %w", value, ErrUnsupportedType)
	}

	return p, nil
}

// ValueType returns the type of the value.
func (p *Primitive) ValueType() ValueType {
	return p.valueType
}

// Value returns the value of Primitive.
func (p *Primitive) Value() interface{} {
	return p.value
}

// Bytes creates an array representing the value.
func (p *Primitive) Bytes() []byte {
	switch val := p.value.(type) {
	case bool:
		if val {
			return []byte{1}
		}
		return []byte{0}
	case int64:
		bytes := [8]byte{}
		binary.LittleEndian.PutUint64(bytes[:], uint64(val))
		return bytes[:]
	case float64:
		bytes := [8]byte{}
		binary.LittleEndian.PutUint64(bytes[:], math.Float64bits(val))
		return bytes[:]
	case string:
		return []byte(val)
	}

	return nil
}

// Marshal returns the JSON encoding of the value.
func (p *Primitive) Marshal() string {
	switch p.valueType {
	case Boolean:
		return strconv.FormatBool(p.value.(bool))
	case Long:
		return strconv.FormatInt(p.value.(int64), 10)
	case Double:
		v := p.value.(float64)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "null"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case String:
		return `"` + EscapeString(p.value.(string)) + `"`
	}

	return "null"
}

// DeepCopy copies itself deeply.
func (p *Primitive) DeepCopy() Element {
	primitive := *p
	return &primitive
}

// CreatedAt returns the creation time.
func (p *Primitive) CreatedAt() *time.Ticket {
	return p.createdAt
}

// RemovedAt returns the removal time of this element.
func (p *Primitive) RemovedAt() *time.Ticket {
	return p.removedAt
}

// Remove removes this element.
func (p *Primitive) Remove(removedAt *time.Ticket) bool {
	if removeElement(p.createdAt, p.removedAt, removedAt) {
		p.removedAt = removedAt
		return true
	}
	return false
}
