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

// Package fieldrouter keeps a field the local user is typing into from being
// overwritten by remote collection updates, and coerces numeric input before
// it is written to the document.
package fieldrouter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	gotime "time"
)

// DefaultReleaseDelay is how long a field stays marked after focus-out, so
// the trailing sync of the edit lands before remote values win again.
const DefaultReleaseDelay = 100 * gotime.Millisecond

// NumericFields are the record fields holding numbers.
var NumericFields = map[string]bool{
	"quantity":   true,
	"unitPrice":  true,
	"percentage": true,
}

// Field identifies one field of one record.
type Field struct {
	RecordID string
	Name     string
}

// Tracker tracks the one field of the session that is being edited.
type Tracker struct {
	mu        sync.Mutex
	delay     gotime.Duration
	editing   *Field
	release   *gotime.Timer
	gen       uint64
	onRelease func(Field)
}

// NewTracker creates a tracker releasing fields after the given delay. A
// non-positive delay releases them at once.
func NewTracker(delay gotime.Duration) *Tracker {
	return &Tracker{delay: delay, onRelease: func(Field) {}}
}

// OnRelease sets the function called after a blurred field is released.
func (t *Tracker) OnRelease(fn func(Field)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onRelease = fn
}

// Focus marks the field as being edited. A pending release is cancelled.
func (t *Tracker) Focus(recordID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopRelease()
	t.editing = &Field{RecordID: recordID, Name: name}
}

// Blur schedules the release of the edited field.
func (t *Tracker) Blur() {
	t.mu.Lock()
	t.stopRelease()
	if t.editing == nil {
		t.mu.Unlock()
		return
	}
	if t.delay <= 0 {
		released, onRelease := *t.editing, t.onRelease
		t.editing = nil
		t.mu.Unlock()
		onRelease(released)
		return
	}

	gen := t.gen
	t.release = gotime.AfterFunc(t.delay, func() {
		t.mu.Lock()
		// a refocus after the timer fired but before we got the lock wins
		if t.gen != gen || t.editing == nil {
			t.mu.Unlock()
			return
		}
		released, onRelease := *t.editing, t.onRelease
		t.editing = nil
		t.release = nil
		t.mu.Unlock()
		onRelease(released)
	})
	t.mu.Unlock()
}

// Editing returns the field being edited, if any.
func (t *Tracker) Editing() (Field, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.editing == nil {
		return Field{}, false
	}
	return *t.editing, true
}

// IsEditing returns whether the given field is being edited.
func (t *Tracker) IsEditing(recordID, name string) bool {
	f, ok := t.Editing()
	return ok && f.RecordID == recordID && f.Name == name
}

// Stop cancels a pending release and forgets the edited field.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopRelease()
	t.editing = nil
}

func (t *Tracker) stopRelease() {
	t.gen++
	if t.release != nil {
		t.release.Stop()
		t.release = nil
	}
}

// Record is a record of a collection as the UI holds it.
type Record interface {
	RecordID() string
	Fields() map[string]interface{}
}

// MergeRemote returns the remote records, except that the record being
// edited keeps the local value of the edited field. build makes a record of
// the collection's type from an id and its fields.
func MergeRemote[T Record](
	tracker *Tracker,
	local, remote []T,
	build func(id string, fields map[string]interface{}) T,
) []T {
	merged := make([]T, len(remote))
	copy(merged, remote)

	editing, ok := tracker.Editing()
	if !ok {
		return merged
	}

	var localRecord T
	found := false
	for _, r := range local {
		if r.RecordID() == editing.RecordID {
			localRecord, found = r, true
			break
		}
	}
	if !found {
		return merged
	}

	localValue, has := localRecord.Fields()[editing.Name]
	if !has {
		return merged
	}

	for i, r := range merged {
		if r.RecordID() != editing.RecordID {
			continue
		}
		fields := r.Fields()
		fields[editing.Name] = localValue
		merged[i] = build(r.RecordID(), fields)
	}
	return merged
}

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber parses the leading number of the input the way form inputs
// are read: "12abc" is 12. Anything without a finite leading number is 0.
func ParseNumber(s string) float64 {
	prefix := numberPrefix.FindString(strings.TrimSpace(s))
	if prefix == "" {
		return 0
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Coerce returns the value to write for the given field: numeric fields
// become a finite float64, others are passed as-is.
func Coerce(name string, value interface{}) interface{} {
	if !NumericFields[name] {
		return value
	}

	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0.0
		}
		return v
	case float32:
		return Coerce(name, float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return ParseNumber(v)
	}
	return 0.0
}
