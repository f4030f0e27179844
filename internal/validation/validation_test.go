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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Run("ValidateValue test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("ABC1234", "required,room_code"))

		err := ValidateValue("abc1234", "required,room_code")
		assert.Equal(t, "room_code", err.(Violation).Tag)

		err = ValidateValue("ABC123", "required,room_code")
		assert.Equal(t, "room_code", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("baogia-cova-ABC1234", "required,channel"))
		err = ValidateValue("bad channel", "required,channel")
		assert.Equal(t, "channel", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("1m30s", "duration"))
		err = ValidateValue("one hour", "duration")
		assert.Equal(t, "duration", err.(Violation).Tag)
		err = ValidateValue("0s", "duration")
		assert.Equal(t, "duration", err.(Violation).Tag)
	})

	t.Run("rune length test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("Mèo", "min=2,max=30"))
		assert.Error(t, ValidateValue("M", "min=2,max=30"))
		assert.Equal(t, "max", ValidateValue("Hổ Vui Vẻ Hổ Vui Vẻ Hổ Vui Vẻ Hổ", "min=2,max=30").(Violation).Tag)
	})

	t.Run("ValidateStruct test", func(t *testing.T) {
		type Config struct {
			Port         int    `validate:"min=1,max=65535"`
			PingInterval string `validate:"required,duration"`
		}

		err := ValidateStruct(Config{Port: 0, PingInterval: "soon"})
		structError := err.(*StructError)
		assert.Len(t, structError.Violations, 2)
		assert.Contains(t, structError.Error(), "PingInterval must be a valid time duration string format")

		assert.NoError(t, ValidateStruct(Config{Port: 8080, PingInterval: "30s"}))
	})
}
