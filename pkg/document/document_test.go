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

package document_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/pkg/document"
	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/json"
	"github.com/cova-team/quotesync/pkg/document/operations"
	"github.com/cova-team/quotesync/pkg/document/time"
)

func schema(root *json.Object) error {
	root.SetNewText("title")
	root.SetNewArray("list")
	root.SetNewObject("info")
	return nil
}

func newDoc(t *testing.T) *document.Document {
	doc, err := document.New("room", time.NewActorID(), document.WithSchema(schema))
	require.NoError(t, err)
	return doc
}

func TestDocument(t *testing.T) {
	t.Run("schema is identical on every replica", func(t *testing.T) {
		d1, d2 := newDoc(t), newDoc(t)
		assert.Equal(t, `{"info":{},"list":[],"title":""}`, d1.Marshal())
		assert.Equal(t, d1.Marshal(), d2.Marshal())
		assert.Empty(t, d1.ChangesSince(time.NewVersionVector()))
	})

	t.Run("failed update is rolled back", func(t *testing.T) {
		doc := newDoc(t)
		errDummy := errors.New("dummy")
		err := doc.Update(func(root *json.Object) error {
			root.GetObject("info").SetString("k", "v")
			return errDummy
		})
		assert.ErrorIs(t, err, errDummy)
		assert.Equal(t, `{"info":{},"list":[],"title":""}`, doc.Marshal())
		assert.Empty(t, doc.ChangesSince(time.NewVersionVector()))
	})

	t.Run("update message is formatted from its arguments", func(t *testing.T) {
		doc := newDoc(t)
		require.NoError(t, doc.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("a")
		}, "set %s", "title"))
		require.NoError(t, doc.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("b")
		}, "plain"))
		require.NoError(t, doc.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("c")
		}))

		changes := doc.ChangesSince(time.NewVersionVector())
		require.Len(t, changes, 3)
		assert.Equal(t, "set title", changes[0].Message())
		assert.Equal(t, "plain", changes[1].Message())
		assert.Equal(t, "", changes[2].Message())
	})

	t.Run("update without operations records nothing", func(t *testing.T) {
		doc := newDoc(t)
		require.NoError(t, doc.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("")
		}))
		assert.Empty(t, doc.ChangesSince(time.NewVersionVector()))
	})

	t.Run("changes converge regardless of delivery order", func(t *testing.T) {
		d1, d2 := newDoc(t), newDoc(t)

		require.NoError(t, d1.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("Báo giá")
		}, "set title"))
		require.NoError(t, d1.Update(func(root *json.Object) error {
			return root.GetArray("list").AddString("a", "b")
		}))
		require.NoError(t, d2.Update(func(root *json.Object) error {
			root.GetObject("info").SetString("company", "COVA")
			return root.GetArray("list").AddString("c")
		}))

		c1 := d1.ChangesSince(time.NewVersionVector())
		c2 := d2.ChangesSince(time.NewVersionVector())
		require.Len(t, c1, 2)
		assert.Equal(t, "set title", c1[0].Message())

		// Deliver out of order: the second change waits for the first.
		require.NoError(t, d2.ApplyChanges(c1[1]))
		assert.Equal(t, 1, d2.PendingLen())
		require.NoError(t, d2.ApplyChanges(c1[0]))
		assert.Equal(t, 0, d2.PendingLen())

		require.NoError(t, d1.ApplyChanges(c2...))
		assert.Equal(t, d1.Marshal(), d2.Marshal())

		// Duplicates are ignored.
		require.NoError(t, d1.ApplyChanges(c2...))
		assert.Equal(t, d1.Marshal(), d2.Marshal())
		assert.Equal(t, d1.VersionVector(), d2.VersionVector())
	})

	t.Run("changes since skips what the peer has", func(t *testing.T) {
		d1, d2 := newDoc(t), newDoc(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, d1.Update(func(root *json.Object) error {
				return root.GetArray("list").AddValue(i)
			}))
		}
		require.NoError(t, d2.ApplyChanges(d1.ChangesSince(d2.VersionVector())[:2]...))
		missing := d1.ChangesSince(d2.VersionVector())
		require.Len(t, missing, 1)
		assert.Equal(t, uint32(3), missing[0].ID().ClientSeq())
	})

	t.Run("lamport is synced with remote changes", func(t *testing.T) {
		d1, d2 := newDoc(t), newDoc(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, d1.Update(func(root *json.Object) error {
				return root.GetArray("list").AddValue(i)
			}))
		}
		require.NoError(t, d2.ApplyChanges(d1.ChangesSince(d2.VersionVector())...))
		assert.Equal(t, int64(5), d2.Lamport())

		require.NoError(t, d2.Update(func(root *json.Object) error {
			root.GetObject("info").SetString("k", "v")
			return nil
		}))
		assert.Equal(t, int64(6), d2.Lamport())
	})

	t.Run("change that fails to execute stays pending", func(t *testing.T) {
		doc, other := newDoc(t), newDoc(t)
		before := doc.Marshal()

		actor := time.NewActorID()
		prim, err := crdt.NewPrimitive("v", time.NewTicket(1, 1, actor))
		require.NoError(t, err)
		bad := change.New(change.NewID(1, 1, actor), "bad", []operations.Operation{
			operations.NewSet(time.NewTicket(99, 1, actor), "k", prim, time.NewTicket(1, 1, actor)),
		}, nil)

		require.NoError(t, other.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("ok")
		}))
		good := other.ChangesSince(doc.VersionVector())
		require.Len(t, good, 1)

		err = doc.ApplyChanges(append([]*change.Change{bad}, good...)...)
		assert.ErrorIs(t, err, operations.ErrNotApplicableDataType)
		assert.Equal(t, 1, doc.PendingLen())
		assert.Equal(t, uint32(0), doc.VersionVector().VersionOf(actor))
		assert.NotEqual(t, before, doc.Marshal())
		assert.Equal(t, other.Marshal(), doc.Marshal())

		// Redelivery tries the change again.
		after := doc.Marshal()
		err = doc.ApplyChanges(bad)
		assert.ErrorIs(t, err, operations.ErrNotApplicableDataType)
		assert.Equal(t, 1, doc.PendingLen())
		assert.Equal(t, after, doc.Marshal())
	})

	t.Run("failed change alone leaves the document untouched", func(t *testing.T) {
		doc := newDoc(t)
		before := doc.Marshal()

		actor := time.NewActorID()
		prim, err := crdt.NewPrimitive("v", time.NewTicket(1, 1, actor))
		require.NoError(t, err)
		bad := change.New(change.NewID(1, 1, actor), "bad", []operations.Operation{
			operations.NewSet(time.NewTicket(99, 1, actor), "k", prim, time.NewTicket(1, 1, actor)),
		}, nil)

		assert.ErrorIs(t, doc.ApplyChanges(bad), operations.ErrNotApplicableDataType)
		assert.Equal(t, 1, doc.PendingLen())
		assert.Equal(t, before, doc.Marshal())
		assert.Empty(t, doc.ChangesSince(time.NewVersionVector()))
	})
}

func TestDocumentSubscription(t *testing.T) {
	t.Run("subscribers receive matching paths", func(t *testing.T) {
		d1, d2 := newDoc(t), newDoc(t)

		var infoEvents, titleEvents []document.Event
		unsubscribe := d2.Subscribe("$.info", func(e document.Event) {
			infoEvents = append(infoEvents, e)
		})
		d2.Subscribe("$.title", func(e document.Event) {
			titleEvents = append(titleEvents, e)
		})

		require.NoError(t, d1.Update(func(root *json.Object) error {
			root.GetObject("info").SetString("company", "COVA")
			return nil
		}))
		require.NoError(t, d2.ApplyChanges(d1.ChangesSince(d2.VersionVector())...))

		require.Len(t, infoEvents, 1)
		assert.Equal(t, document.RemoteChangeEvent, infoEvents[0].Type)
		assert.Equal(t, []string{"$.info.company"}, infoEvents[0].Paths)
		assert.Equal(t, d1.ActorID(), infoEvents[0].Actor)
		assert.Empty(t, titleEvents)

		unsubscribe()
		require.NoError(t, d2.Update(func(root *json.Object) error {
			root.GetObject("info").SetString("company", "COVA 2")
			return nil
		}))
		assert.Len(t, infoEvents, 1)
	})

	t.Run("local changes are handed out before path subscribers", func(t *testing.T) {
		doc := newDoc(t)

		var order []string
		doc.SubscribeLocalChanges(func(c *change.Change) {
			order = append(order, "change")
		})
		doc.Subscribe("$", func(e document.Event) {
			assert.Equal(t, document.LocalChangeEvent, e.Type)
			order = append(order, "event")
		})

		require.NoError(t, doc.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("x")
		}))
		assert.Equal(t, []string{"change", "event"}, order)
	})

	t.Run("subscriber may update the document", func(t *testing.T) {
		doc := newDoc(t)
		doc.Subscribe("$.title", func(e document.Event) {
			if e.Type != document.LocalChangeEvent {
				return
			}
			_ = doc.Update(func(root *json.Object) error {
				if root.GetObject("info").Has("touched") {
					return nil
				}
				root.GetObject("info").SetString("touched", "yes")
				return nil
			})
		})

		require.NoError(t, doc.Update(func(root *json.Object) error {
			return root.GetText("title").Replace("x")
		}))
		assert.Equal(t, `{"info":{"touched":"yes"},"list":[],"title":"x"}`, doc.Marshal())
	})
}
