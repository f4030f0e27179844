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

// Package limit provides event timing control components.
package limit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttler runs at most one callback per window. A callback that comes in
// too early replaces the pending one, which runs once the window has passed,
// so the last callback always runs.
type Throttler struct {
	lim *rate.Limiter

	mu      sync.Mutex
	pending func()
	timer   *time.Timer
	stopped bool
}

// New creates a new instance with the specified throttle window.
func New(window time.Duration) *Throttler {
	return &Throttler{
		lim: rate.NewLimiter(rate.Every(window), 1),
	}
}

// ExecuteOrSchedule runs the callback now if the window allows it.
// Otherwise it keeps the callback as the trailing one and returns.
func (t *Throttler) ExecuteOrSchedule(callback func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if t.timer == nil && t.lim.Allow() {
		t.mu.Unlock()
		callback()
		return
	}

	t.pending = callback
	if t.timer == nil {
		t.timer = time.AfterFunc(t.lim.Reserve().Delay(), t.flush)
	}
	t.mu.Unlock()
}

// Cancel drops the trailing callback, if any.
func (t *Throttler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = nil
}

// Stop drops the trailing callback and ignores further ones.
func (t *Throttler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Throttler) flush() {
	t.mu.Lock()
	callback := t.pending
	t.pending = nil
	t.timer = nil
	t.mu.Unlock()

	if callback != nil {
		callback()
	}
}
