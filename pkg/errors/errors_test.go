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

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	errs "github.com/cova-team/quotesync/pkg/errors"
)

func TestStatusError(t *testing.T) {
	t.Run("status survives wrapping", func(t *testing.T) {
		errInvalidName := errs.InvalidArgument("invalid name").WithCode("ErrInvalidName")
		wrapped := fmt.Errorf("set custom name: %w", errInvalidName)

		assert.ErrorIs(t, wrapped, errInvalidName)
		assert.True(t, errs.IsStatus(wrapped, errs.ErrCodeInvalidArgument))
		assert.Equal(t, errs.ErrCodeInvalidArgument, errs.StatusOf(wrapped))
	})

	t.Run("plain errors have no status", func(t *testing.T) {
		assert.Equal(t, errs.StatusCode(0), errs.StatusOf(errors.New("plain")))
		assert.Equal(t, errs.StatusCode(0), errs.StatusOf(nil))
		assert.Equal(t, errs.ErrorInfo{}, errs.ErrorInfoOf(nil))
	})

	t.Run("error info", func(t *testing.T) {
		tests := []struct {
			err      error
			status   string
			code     string
			isClient bool
		}{
			{errs.NotFound("record not found").WithCode("ErrStaleRecordReference"), "not_found", "ErrStaleRecordReference", true},
			{errs.FailedPrecond("nothing pending"), "failed_precondition", "", true},
			{errs.Unavailable("relay unreachable"), "unavailable", "", false},
			{errs.Internal("broken"), "internal", "", false},
		}
		for _, test := range tests {
			t.Run(test.status, func(t *testing.T) {
				info := errs.ErrorInfoOf(fmt.Errorf("wrap: %w", test.err))
				assert.Equal(t, test.status, info.StatusString)
				assert.Equal(t, test.code, info.Code)
				assert.Equal(t, test.isClient, info.IsClient)
				assert.Contains(t, info.Message, test.err.Error())
			})
		}
	})
}
