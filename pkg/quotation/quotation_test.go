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

package quotation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/document/time"
	"github.com/cova-team/quotesync/pkg/errors"
	"github.com/cova-team/quotesync/pkg/quotation"
)

const room = "ABC1234"

func newReplica(t *testing.T, editor string) *quotation.Quotation {
	q, err := quotation.New(room, time.NewActorID(), quotation.WithEditor(func() string { return editor }))
	require.NoError(t, err)
	return q
}

// syncFrom applies the changes of src that dst lacks.
func syncFrom(t *testing.T, dst, src *quotation.Quotation) {
	changes := src.Document().ChangesSince(dst.Document().VersionVector())
	require.NoError(t, dst.Document().ApplyChanges(changes...))
}

func changesOf(q *quotation.Quotation) []*change.Change {
	return q.Document().ChangesSince(time.NewVersionVector())
}

func TestConvergence(t *testing.T) {
	t.Run("delivery order does not matter", func(t *testing.T) {
		a, b, c := newReplica(t, "a"), newReplica(t, "b"), newReplica(t, "c")
		require.NoError(t, a.SetText(quotation.CustomerName, "COVA"))
		_, err := b.AddRecord(quotation.QuotationItems, quotation.Record{
			ID:     "r1",
			Fields: map[string]interface{}{"name": "Website", "quantity": 1.0},
		})
		require.NoError(t, err)
		_, err = c.AddRecord(quotation.QuotationItems, quotation.Record{
			ID:     "r2",
			Fields: map[string]interface{}{"name": "Hosting", "unitPrice": "500000"},
		})
		require.NoError(t, err)
		require.NoError(t, c.SetCompanyInfo(map[string]string{"name": "COVA", "phone": "0900"}))

		x, y := newReplica(t, "x"), newReplica(t, "y")
		for _, q := range []*quotation.Quotation{a, b, c} {
			require.NoError(t, x.Document().ApplyChanges(changesOf(q)...))
		}
		for _, q := range []*quotation.Quotation{c, a, b} {
			require.NoError(t, y.Document().ApplyChanges(changesOf(q)...))
		}

		sx, sy := x.Snapshot(), y.Snapshot()
		assert.Equal(t, sx, sy)
		assert.Equal(t, "COVA", sx.CustomerName)
		assert.Equal(t, map[string]string{"name": "COVA", "phone": "0900"}, sx.CompanyInfo)
		require.Len(t, sx.QuotationItems, 2)
		assert.ElementsMatch(t, []string{"r1", "r2"}, []string{sx.QuotationItems[0].ID, sx.QuotationItems[1].ID})
		assert.Equal(t, x.Document().Marshal(), y.Document().Marshal())
	})

	t.Run("concurrent edits of different fields of a record", func(t *testing.T) {
		x, y := newReplica(t, "user_x"), newReplica(t, "user_y")
		_, err := x.AddRecord(quotation.QuotationItems, quotation.Record{
			ID:     "item1",
			Fields: map[string]interface{}{"name": "Landing", "unit": "trang", "quantity": 1.0},
		})
		require.NoError(t, err)
		syncFrom(t, y, x)

		require.NoError(t, x.SetRecordField(quotation.QuotationItems, "item1", "name", "Landing Page"))
		require.NoError(t, y.SetRecordField(quotation.QuotationItems, "item1", "unitPrice", 8000000))
		syncFrom(t, y, x)
		syncFrom(t, x, y)

		want := types.QuotationItem{ID: "item1", Name: "Landing Page", Unit: "trang", Quantity: 1, UnitPrice: 8000000}
		assert.Equal(t, []types.QuotationItem{want}, x.Snapshot().QuotationItems)
		assert.Equal(t, x.Snapshot(), y.Snapshot())

		version, editor, ok := x.Version(quotation.QuotationItems, "item1")
		assert.True(t, ok)
		assert.Equal(t, int64(2), version)
		assert.Contains(t, []string{"user_x", "user_y"}, editor)
	})

	t.Run("bulk replace does not revert field edits", func(t *testing.T) {
		x, y := newReplica(t, "x"), newReplica(t, "y")
		require.NoError(t, x.ReplaceCollection(quotation.QuotationItems, []quotation.Record{
			{ID: "r1", Fields: map[string]interface{}{"name": "Old"}},
			{ID: "r2", Fields: map[string]interface{}{"name": "Second"}},
		}))
		syncFrom(t, y, x)

		require.NoError(t, y.SetRecordField(quotation.QuotationItems, "r1", "name", "New"))

		before := len(changesOf(x))
		require.NoError(t, x.ReplaceCollection(quotation.QuotationItems, []quotation.Record{
			{ID: "r1", Fields: map[string]interface{}{"name": "Old"}},
			{ID: "r2", Fields: map[string]interface{}{"name": "Second"}},
		}))
		assert.Len(t, changesOf(x), before, "unchanged structure records nothing")

		require.NoError(t, x.ReplaceCollection(quotation.QuotationItems, []quotation.Record{
			{ID: "r2", Fields: map[string]interface{}{"name": "Second"}},
			{ID: "r1", Fields: map[string]interface{}{"name": "Old"}},
		}))
		syncFrom(t, y, x)
		syncFrom(t, x, y)

		items := x.Snapshot().QuotationItems
		require.Len(t, items, 2)
		assert.Equal(t, "r2", items[0].ID)
		assert.Equal(t, "New", items[1].Name)
		assert.Equal(t, x.Snapshot(), y.Snapshot())
	})

	t.Run("concurrent structural changes keep ids unique", func(t *testing.T) {
		x, y := newReplica(t, "x"), newReplica(t, "y")
		require.NoError(t, x.ReplaceCollection(quotation.PaymentTerms, []quotation.Record{{ID: "t1"}}))
		syncFrom(t, y, x)

		require.NoError(t, x.ReplaceCollection(quotation.PaymentTerms, []quotation.Record{{ID: "t1"}, {ID: "t2"}}))
		require.NoError(t, y.ReplaceCollection(quotation.PaymentTerms, []quotation.Record{{ID: "t1"}, {ID: "t3"}}))
		syncFrom(t, y, x)
		syncFrom(t, x, y)

		terms := x.Snapshot().PaymentTerms
		var ids []string
		for _, term := range terms {
			ids = append(ids, term.ID)
		}
		assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, ids)
		assert.Equal(t, x.Snapshot(), y.Snapshot())
	})
}

func TestRecords(t *testing.T) {
	t.Run("edit of a removed record is a no-op", func(t *testing.T) {
		q := newReplica(t, "x")
		id, err := q.AddRecord(quotation.QuotationItems, quotation.Record{})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		require.NoError(t, q.RemoveRecord(quotation.QuotationItems, id))

		before := len(changesOf(q))
		assert.NoError(t, q.SetRecordField(quotation.QuotationItems, id, "name", "late"))
		assert.NoError(t, q.RemoveRecord(quotation.QuotationItems, id))
		assert.Len(t, changesOf(q), before)
		assert.Empty(t, q.Snapshot().QuotationItems)
	})

	t.Run("numeric fields are coerced", func(t *testing.T) {
		q := newReplica(t, "x")
		id, err := q.AddRecord(quotation.QuotationItems, quotation.Record{
			Fields: map[string]interface{}{"quantity": "abc", "unitPrice": ""},
		})
		require.NoError(t, err)
		item := q.Snapshot().QuotationItems[0]
		assert.Equal(t, 0.0, item.Quantity)
		assert.Equal(t, 0.0, item.UnitPrice)

		require.NoError(t, q.SetRecordField(quotation.QuotationItems, id, "quantity", "12"))
		require.NoError(t, q.SetRecordField(quotation.QuotationItems, id, "unitPrice", "1.5"))
		item = q.Snapshot().QuotationItems[0]
		assert.Equal(t, 12.0, item.Quantity)
		assert.Equal(t, 18.0, quotation.TotalAmount(q.Snapshot().QuotationItems))
	})

	t.Run("same value records nothing", func(t *testing.T) {
		q := newReplica(t, "x")
		id, err := q.AddRecord(quotation.PaymentTerms, quotation.Record{
			Fields: map[string]interface{}{"percentage": 30.0},
		})
		require.NoError(t, err)

		before := len(changesOf(q))
		require.NoError(t, q.SetRecordField(quotation.PaymentTerms, id, "percentage", "30"))
		assert.Len(t, changesOf(q), before)
	})

	t.Run("unknown names are rejected", func(t *testing.T) {
		q := newReplica(t, "x")
		err := q.SetText("notes", "x")
		assert.ErrorIs(t, err, quotation.ErrUnknownField)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))

		assert.ErrorIs(t, q.SetRecordField("rows", "r1", "name", "x"), quotation.ErrUnknownCollection)
		assert.ErrorIs(t, q.SetRecordField(quotation.PaymentTerms, "r1", "name", "x"), quotation.ErrUnknownField)
		assert.ErrorIs(t, q.ReplaceCollection(quotation.QuotationItems, []quotation.Record{{}}), quotation.ErrInvalidRecord)
	})
}

func TestPopulate(t *testing.T) {
	snapshot := &types.Snapshot{
		CustomerName:       "Công ty ABC",
		ProjectDescription: "Website bán hàng",
		QuotationItems: []types.QuotationItem{
			{Name: "Thiết kế", Quantity: 1, UnitPrice: 5000000},
			{ID: "given", Name: "Lập trình", Quantity: 2, UnitPrice: 10000000},
		},
		PaymentTerms: []types.PaymentTerm{
			{ID: "t1", Milestone: "Ký hợp đồng", Percentage: 50},
			{ID: "t2", Milestone: "Bàn giao", Percentage: 50},
		},
		CompanyInfo: map[string]string{"name": "COVA"},
	}

	x, y := newReplica(t, "x"), newReplica(t, "y")
	before := len(changesOf(x))
	require.NoError(t, x.Populate(snapshot))
	assert.Len(t, changesOf(x), before+1)
	syncFrom(t, y, x)

	got := y.Snapshot()
	assert.Equal(t, x.Snapshot(), got)
	assert.Equal(t, snapshot.CustomerName, got.CustomerName)
	require.Len(t, got.QuotationItems, 2)
	assert.NotEmpty(t, got.QuotationItems[0].ID)
	assert.Equal(t, "Thiết kế", got.QuotationItems[0].Name)
	assert.Equal(t, "given", got.QuotationItems[1].ID)
	assert.Equal(t, 25000000.0, quotation.TotalAmount(got.QuotationItems))
	assert.Equal(t, 100.0, quotation.TotalPaymentPercentage(got.PaymentTerms))

	require.NoError(t, y.Populate(&types.Snapshot{CustomerName: "Công ty ABC"}))
	assert.Empty(t, y.Snapshot().QuotationItems)
	assert.Empty(t, y.Snapshot().PaymentTerms)
	assert.Equal(t, "COVA", y.Snapshot().CompanyInfo["name"])
}

func TestObserve(t *testing.T) {
	x, y := newReplica(t, "x"), newReplica(t, "y")

	var local, remote []quotation.Event
	stop := x.Observe(quotation.Path(quotation.CustomerName), func(e quotation.Event) { local = append(local, e) })
	defer stop()
	y.Observe(quotation.Path(quotation.QuotationItems), func(e quotation.Event) { remote = append(remote, e) })

	require.NoError(t, x.SetText(quotation.CustomerName, "COVA"))
	_, err := x.AddRecord(quotation.QuotationItems, quotation.Record{ID: "r1"})
	require.NoError(t, err)
	require.NoError(t, x.SetRecordField(quotation.QuotationItems, "r1", "name", "Website"))
	syncFrom(t, y, x)

	require.Len(t, local, 1)
	assert.True(t, local[0].Local)
	assert.Equal(t, []string{"$.customerName"}, local[0].Paths)

	require.Len(t, remote, 2)
	assert.False(t, remote[1].Local)
	assert.Contains(t, remote[1].Paths, quotation.RecordPath(quotation.QuotationItems, "r1", "name"))
}
