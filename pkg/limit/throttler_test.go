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

package limit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cova-team/quotesync/pkg/limit"
)

func TestThrottler(t *testing.T) {
	const window = 100 * time.Millisecond

	t.Run("first call runs at once", func(t *testing.T) {
		th := limit.New(window)
		var calls int32
		th.ExecuteOrSchedule(func() { atomic.AddInt32(&calls, 1) })
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("burst runs the first and the last", func(t *testing.T) {
		th := limit.New(window)

		var mu sync.Mutex
		var got []int
		for i := 0; i < 100; i++ {
			i := i
			th.ExecuteOrSchedule(func() {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, i)
			})
		}

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 2
		}, time.Second, 5*time.Millisecond)
		time.Sleep(2 * window)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []int{0, 99}, got)
	})

	t.Run("concurrent calls keep the window", func(t *testing.T) {
		th := limit.New(window)
		var calls int32

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				th.ExecuteOrSchedule(func() { atomic.AddInt32(&calls, 1) })
			}()
		}
		wg.Wait()
		time.Sleep(2 * window)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("cancel and stop drop the trailing call", func(t *testing.T) {
		th := limit.New(window)
		var calls int32
		inc := func() { atomic.AddInt32(&calls, 1) }

		th.ExecuteOrSchedule(inc)
		th.ExecuteOrSchedule(inc)
		th.Cancel()
		time.Sleep(2 * window)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

		th.ExecuteOrSchedule(inc)
		th.ExecuteOrSchedule(inc)
		th.Stop()
		th.ExecuteOrSchedule(inc)
		time.Sleep(2 * window)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})
}
