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

package profiling_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cova-team/quotesync/pkg/errors"
	"github.com/cova-team/quotesync/server/profiling"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		port    int
		invalid bool
	}{
		{port: -1, invalid: true},
		{port: 0, invalid: true},
		{port: 65536, invalid: true},
		{port: 8081},
	}
	for _, test := range tests {
		conf := &profiling.Config{Port: test.port}
		err := conf.Validate()
		if !test.invalid {
			assert.NoError(t, err)
			continue
		}
		assert.ErrorIs(t, err, profiling.ErrInvalidProfilingPort, "port %d", test.port)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))
	}
}
