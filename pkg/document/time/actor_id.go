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

package time

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/rs/xid"
)

const actorIDSize = 12

var (
	// InitialActorID is the actor that owns the elements every replica creates
	// identically, such as the schema of a document.
	InitialActorID = ActorID{}

	// MaxActorID is the largest possible ActorID.
	MaxActorID = ActorID{bytes: [actorIDSize]byte{
		math.MaxUint8, math.MaxUint8, math.MaxUint8, math.MaxUint8,
		math.MaxUint8, math.MaxUint8, math.MaxUint8, math.MaxUint8,
		math.MaxUint8, math.MaxUint8, math.MaxUint8, math.MaxUint8,
	}}

	// ErrInvalidHexString is returned when the given string is not valid hex.
	ErrInvalidHexString = errors.New("invalid hex string")

	// ErrInvalidActorID is returned when the given bytes are not a valid ID.
	ErrInvalidActorID = errors.New("invalid actor id")
)

// ActorID identifies a replica of a document. It is composed of 12 bytes and
// is comparable, so it can be used as a map key.
type ActorID struct {
	bytes [actorIDSize]byte
}

// NewActorID creates a new ActorID. IDs are generated from xid, so they are
// unique across processes without coordination.
func NewActorID() ActorID {
	return ActorID{bytes: xid.New()}
}

// ActorIDFromHex returns the ActorID represented by the hexadecimal string.
func ActorIDFromHex(str string) (ActorID, error) {
	if str == "" {
		return ActorID{}, fmt.Errorf("empty string: %w", ErrInvalidHexString)
	}

	decoded, err := hex.DecodeString(str)
	if err != nil {
		return ActorID{}, fmt.Errorf("%s: %w", str, ErrInvalidHexString)
	}
	if len(decoded) != actorIDSize {
		return ActorID{}, fmt.Errorf("decoded length %d: %w", len(decoded), ErrInvalidHexString)
	}

	return ActorIDFromBytes(decoded)
}

// ActorIDFromBytes returns the ActorID made of the given bytes.
func ActorIDFromBytes(b []byte) (ActorID, error) {
	if len(b) != actorIDSize {
		return ActorID{}, fmt.Errorf("bytes length %d: %w", len(b), ErrInvalidActorID)
	}

	id := ActorID{}
	copy(id.bytes[:], b)
	return id, nil
}

// String returns the hexadecimal encoding of ActorID.
func (id ActorID) String() string {
	return hex.EncodeToString(id.bytes[:])
}

// Bytes returns a copy of the bytes of ActorID.
func (id ActorID) Bytes() []byte {
	b := make([]byte, actorIDSize)
	copy(b, id.bytes[:])
	return b
}

// Compare returns an integer comparing two ActorIDs lexicographically.
func (id ActorID) Compare(other ActorID) int {
	return bytes.Compare(id.bytes[:], other.bytes[:])
}
