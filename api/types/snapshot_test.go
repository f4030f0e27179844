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

package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cova-team/quotesync/api/types"
)

func TestSnapshot(t *testing.T) {
	t.Run("item fields round trip", func(t *testing.T) {
		item := types.QuotationItem{
			ID:        "r1",
			Name:      "Landing Page",
			Unit:      "Trang",
			Quantity:  2,
			UnitPrice: 8000000,
		}
		assert.Equal(t, item, types.QuotationItemFromFields("r1", item.Fields()))
		assert.Equal(t, float64(16000000), item.Amount())
	})

	t.Run("mistyped fields are coerced", func(t *testing.T) {
		term := types.PaymentTermFromFields("p1", map[string]interface{}{
			"time":       int64(3),
			"percentage": "30",
			"milestone":  nil,
		})
		assert.Equal(t, "3", term.Time)
		assert.Equal(t, float64(30), term.Percentage)
		assert.Equal(t, "", term.Milestone)

		term = types.PaymentTermFromFields("p2", map[string]interface{}{"percentage": "abc"})
		assert.Equal(t, float64(0), term.Percentage)
	})

	t.Run("empty snapshot", func(t *testing.T) {
		s := &types.Snapshot{PaymentTerms: []types.PaymentTerm{{ID: "p1"}}}
		assert.True(t, s.IsEmpty())
		s.QuotationItems = []types.QuotationItem{{ID: "r1"}}
		assert.False(t, s.IsEmpty())
	})

	t.Run("null awareness state", func(t *testing.T) {
		assert.True(t, types.AwarenessEntry{State: types.NullState}.IsRemoved())
		assert.False(t, types.AwarenessEntry{State: "{}"}.IsRemoved())
	})
}
