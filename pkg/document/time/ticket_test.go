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

package time_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/pkg/document/time"
)

func TestTicket(t *testing.T) {
	t.Run("constructor and getter method test", func(t *testing.T) {
		actorID, err := time.ActorIDFromHex("0123456789abcdef01234567")
		require.NoError(t, err)

		ticket := time.NewTicket(0, 1, actorID)
		assert.Equal(t, int64(0), ticket.Lamport())
		assert.Equal(t, uint32(1), ticket.Delimiter())
		assert.Equal(t, actorID, ticket.ActorID())
		assert.Equal(t, "0:1:0123456789abcdef01234567", ticket.Key())
		assert.Equal(t, "0:1:67", ticket.ToTestString())
	})

	t.Run("ticket comparing test", func(t *testing.T) {
		beforeActorID, _ := time.ActorIDFromHex("0000000000abcdef01234567")
		afterActorID, _ := time.ActorIDFromHex("0123456789abcdef01234567")

		before := time.NewTicket(0, 0, afterActorID)
		after := time.NewTicket(1, 0, beforeActorID)
		assert.True(t, after.After(before))
		assert.False(t, before.After(after))

		before = time.NewTicket(0, 0, beforeActorID)
		after = time.NewTicket(0, 0, afterActorID)
		assert.True(t, after.After(before))

		before = time.NewTicket(0, 0, beforeActorID)
		after = time.NewTicket(0, 1, beforeActorID)
		assert.True(t, after.After(before))

		assert.False(t, before.After(before))
		assert.Equal(t, 0, before.Compare(time.NewTicket(0, 0, beforeActorID)))
	})

	t.Run("max ticket is after every ticket", func(t *testing.T) {
		ticket := time.NewTicket(100, 3, time.NewActorID())
		assert.True(t, time.MaxTicket.After(ticket))
		assert.True(t, ticket.After(time.InitialTicket))
	})
}

func TestActorID(t *testing.T) {
	t.Run("hex round trip test", func(t *testing.T) {
		id := time.NewActorID()
		parsed, err := time.ActorIDFromHex(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.Equal(t, 0, id.Compare(parsed))
	})

	t.Run("invalid input test", func(t *testing.T) {
		_, err := time.ActorIDFromHex("")
		assert.ErrorIs(t, err, time.ErrInvalidHexString)

		_, err = time.ActorIDFromHex("zz")
		assert.ErrorIs(t, err, time.ErrInvalidHexString)

		_, err = time.ActorIDFromHex("0123")
		assert.ErrorIs(t, err, time.ErrInvalidHexString)

		_, err = time.ActorIDFromBytes([]byte{1, 2, 3})
		assert.ErrorIs(t, err, time.ErrInvalidActorID)
	})
}

func TestVersionVector(t *testing.T) {
	a, _ := time.ActorIDFromHex("000000000000000000000001")
	b, _ := time.ActorIDFromHex("000000000000000000000002")

	vv := time.NewVersionVector()
	vv.Set(a, 3)
	vv.Set(b, 1)

	other := time.NewVersionVector()
	other.Set(a, 2)
	assert.True(t, vv.Covers(other))

	other.Set(b, 2)
	assert.False(t, vv.Covers(other))

	copied := vv.DeepCopy()
	copied.Set(a, 10)
	assert.Equal(t, uint32(3), vv.VersionOf(a))
	assert.Equal(t, "{000000000000000000000001:3,000000000000000000000002:1}", vv.Marshal())
}
