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

package client

import (
	"fmt"
	"math"
	"time"
)

// Status is the status of the connection to the relay.
type Status int

const (
	// Connecting is the status while dialing.
	Connecting Status = iota

	// Connected is the status while the connection is up.
	Connected

	// Disconnected is the status while waiting to reconnect, and the final
	// status once the client gave up.
	Disconnected

	// Closed is the status after Close.
	Closed
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Backoff computes the delay before a reconnect attempt.
type Backoff struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

// Delay returns Base * Multiplier^attempt, capped at Max. The first attempt
// is 0.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := float64(b.Base) * math.Pow(multiplier, float64(attempt))
	if b.Max > 0 && (delay > float64(b.Max) || math.IsInf(delay, 0)) {
		return b.Max
	}
	return time.Duration(delay)
}
