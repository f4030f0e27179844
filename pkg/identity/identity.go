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

// Package identity generates the display identities of anonymous
// participants: a readable Vietnamese name and a colour.
package identity

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/cova-team/quotesync/internal/validation"
	"github.com/cova-team/quotesync/pkg/errors"
)

const (
	// MinNameLen is the minimum length of a custom name, after trimming.
	MinNameLen = 2

	// MaxNameLen is the maximum length of a custom name, after trimming.
	MaxNameLen = 30

	// SecondaryAdjectiveChance is the probability that a generated name
	// carries a secondary adjective.
	SecondaryAdjectiveChance = 0.3
)

// ErrInvalidName is returned when a custom name is too short or too long.
var ErrInvalidName = errors.InvalidArgument(
	fmt.Sprintf("name must be %d to %d characters", MinNameLen, MaxNameLen),
).WithCode("ErrInvalidName")

// Identity is how a participant is shown to the others.
type Identity struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	IsCustomName bool   `json:"isCustomName"`
}

// Generator generates identities. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates a generator drawing from the given source.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

var defaultGenerator = NewGenerator(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

// Generate creates a new identity with a random name and colour.
func Generate() Identity {
	return defaultGenerator.Generate()
}

// Regenerate returns the identity with a new random name.
func Regenerate(id Identity) Identity {
	return defaultGenerator.Regenerate(id)
}

// Generate creates a new identity with a random name and colour.
func (g *Generator) Generate() Identity {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Identity{
		ID:    "user_" + uuid.NewString(),
		Name:  g.name(),
		Color: Palette[g.rnd.IntN(len(Palette))],
	}
}

// Regenerate returns the identity with a new random name. The id and the
// colour are kept.
func (g *Generator) Regenerate(id Identity) Identity {
	g.mu.Lock()
	defer g.mu.Unlock()

	id.Name = g.name()
	id.IsCustomName = false
	return id
}

// RandomName returns a new random name.
func (g *Generator) RandomName() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.name()
}

// name composes "Animal Primary" or, sometimes, "Animal Secondary Primary".
func (g *Generator) name() string {
	animal := Animals[g.rnd.IntN(len(Animals))]
	primary := AdjectivesPrimary[g.rnd.IntN(len(AdjectivesPrimary))]
	if g.rnd.Float64() < SecondaryAdjectiveChance {
		secondary := AdjectivesSecondary[g.rnd.IntN(len(AdjectivesSecondary))]
		return animal + " " + secondary + " " + primary
	}
	return animal + " " + primary
}

// IsValidCustomName returns whether the given name can be used as is.
func IsValidCustomName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return validation.ValidateValue(trimmed, fmt.Sprintf("min=%d,max=%d", MinNameLen, MaxNameLen)) == nil
}

// SetCustomName returns the identity renamed to the trimmed name.
func SetCustomName(id Identity, name string) (Identity, error) {
	if !IsValidCustomName(name) {
		return id, fmt.Errorf("set custom name %q: %w", name, ErrInvalidName)
	}

	id.Name = strings.TrimSpace(name)
	id.IsCustomName = true
	return id, nil
}

// Initials returns the letters shown on the avatar of the given name.
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "?"
	}

	if len(words) == 1 {
		runes := []rune(words[0])
		if len(runes) > 2 {
			runes = runes[:2]
		}
		return strings.ToUpper(string(runes))
	}

	first := []rune(words[0])[0]
	last := []rune(words[len(words)-1])[0]
	return string([]rune{unicode.ToUpper(first), unicode.ToUpper(last)})
}
