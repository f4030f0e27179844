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

// Package roomcode provides the short codes that address rooms. There is no
// registry of codes: every well-formed code is a room, possibly empty.
package roomcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/cova-team/quotesync/internal/validation"
	"github.com/cova-team/quotesync/pkg/errors"
)

const (
	// Alphabet is the set of characters of a room code.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Length is the number of characters of a room code.
	Length = 7

	// DefaultChannelPrefix is the namespace of the relay channels of rooms.
	DefaultChannelPrefix = "baogia-cova-"
)

// ErrInvalidRoomCode is returned when a room code is malformed.
var ErrInvalidRoomCode = errors.InvalidArgument(
	fmt.Sprintf("room code must be %d characters of A-Z and 0-9", Length),
).WithCode("ErrInvalidRoomCode")

// New returns a random room code.
func New() string {
	max := big.NewInt(int64(len(Alphabet)))
	code := make([]byte, Length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("read random: %v", err))
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code)
}

// Normalize trims and uppercases the given code and checks it.
func Normalize(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := validation.ValidateValue(normalized, "required,room_code"); err != nil {
		return "", fmt.Errorf("%q: %w", code, ErrInvalidRoomCode)
	}
	return normalized, nil
}

// Channel returns the name of the relay channel of the room.
func Channel(prefix, code string) string {
	return prefix + code
}

// ShareURL returns the link that opens the room from the given base URL.
func ShareURL(baseURL, code string) string {
	base := baseURL
	if i := strings.Index(base, "#"); i >= 0 {
		base = base[:i]
	}
	return base + "#/room/" + code
}

// FromShareURL extracts the room code from a link made by ShareURL.
func FromShareURL(url string) (string, error) {
	i := strings.LastIndex(url, "#/room/")
	if i < 0 {
		return "", fmt.Errorf("%q: %w", url, ErrInvalidRoomCode)
	}
	return Normalize(url[i+len("#/room/"):])
}
