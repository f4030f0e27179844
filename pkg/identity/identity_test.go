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

package identity_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cova-team/quotesync/pkg/errors"
	"github.com/cova-team/quotesync/pkg/identity"
)

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// splitName splits a generated name into its animal and adjectives.
func splitName(t *testing.T, name string) (string, []string) {
	for _, animal := range identity.Animals {
		if rest, ok := strings.CutPrefix(name, animal+" "); ok {
			for _, primary := range identity.AdjectivesPrimary {
				if rest == primary {
					return animal, []string{primary}
				}
				if secondary, ok := strings.CutSuffix(rest, " "+primary); ok && contains(identity.AdjectivesSecondary, secondary) {
					return animal, []string{secondary, primary}
				}
			}
		}
	}
	t.Fatalf("name %q does not follow the grammar", name)
	return "", nil
}

func TestGenerate(t *testing.T) {
	t.Run("generated names follow the grammar", func(t *testing.T) {
		gen := identity.NewGenerator(rand.NewPCG(1, 2))

		withSecondary := 0
		const n = 2000
		for i := 0; i < n; i++ {
			id := gen.Generate()
			assert.True(t, strings.HasPrefix(id.ID, "user_"))
			assert.True(t, contains(identity.Palette, id.Color))
			assert.False(t, id.IsCustomName)

			_, adjectives := splitName(t, id.Name)
			if len(adjectives) == 2 {
				withSecondary++
			}
		}

		ratio := float64(withSecondary) / n
		assert.InDelta(t, identity.SecondaryAdjectiveChance, ratio, 0.05)
	})

	t.Run("same seed yields the same names", func(t *testing.T) {
		g1 := identity.NewGenerator(rand.NewPCG(7, 7))
		g2 := identity.NewGenerator(rand.NewPCG(7, 7))
		for i := 0; i < 20; i++ {
			assert.Equal(t, g1.RandomName(), g2.RandomName())
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id := identity.Generate()
			assert.False(t, seen[id.ID])
			seen[id.ID] = true
		}
	})

	t.Run("regenerate keeps id and colour", func(t *testing.T) {
		id, err := identity.SetCustomName(identity.Generate(), "Minh")
		require.NoError(t, err)

		regenerated := identity.Regenerate(id)
		assert.Equal(t, id.ID, regenerated.ID)
		assert.Equal(t, id.Color, regenerated.Color)
		assert.False(t, regenerated.IsCustomName)
		splitName(t, regenerated.Name)
	})
}

func TestCustomName(t *testing.T) {
	t.Run("validation bounds", func(t *testing.T) {
		tests := []struct {
			name  string
			valid bool
		}{
			{"", false},
			{"A", false},
			{"  A  ", false},
			{"Ab", true},
			{"Trần Thị Bảo Ngọc", true},
			{strings.Repeat("a", 30), true},
			{strings.Repeat("a", 31), false},
			{strings.Repeat("ữ", 30), true},
		}
		for _, test := range tests {
			assert.Equal(t, test.valid, identity.IsValidCustomName(test.name), test.name)
		}
	})

	t.Run("invalid name is rejected without change", func(t *testing.T) {
		id := identity.Generate()
		renamed, err := identity.SetCustomName(id, "A")
		assert.ErrorIs(t, err, identity.ErrInvalidName)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))
		assert.Equal(t, id, renamed)
	})

	t.Run("valid name round trips", func(t *testing.T) {
		id, err := identity.SetCustomName(identity.Generate(), "  Ab  ")
		require.NoError(t, err)
		assert.Equal(t, "Ab", id.Name)
		assert.True(t, id.IsCustomName)
		assert.Equal(t, "AB", identity.Initials(id.Name))
	})
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name     string
		initials string
	}{
		{"", "?"},
		{"   ", "?"},
		{"minh", "MI"},
		{"Ý", "Ý"},
		{"Sư Tử Dũng Mãnh", "SM"},
		{"đại bàng", "ĐB"},
	}
	for _, test := range tests {
		assert.Equal(t, test.initials, identity.Initials(test.name), test.name)
	}
}
