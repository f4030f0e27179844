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

package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cova-team/quotesync/server/logging"
)

func TestLogging(t *testing.T) {
	t.Run("set log level", func(t *testing.T) {
		defer func() { assert.NoError(t, logging.SetLogLevel("info")) }()

		assert.NoError(t, logging.SetLogLevel("DEBUG"))
		assert.True(t, logging.Enabled(zapcore.DebugLevel))

		assert.NoError(t, logging.SetLogLevel("warn"))
		assert.False(t, logging.Enabled(zapcore.InfoLevel))
		assert.True(t, logging.Enabled(zapcore.ErrorLevel))

		assert.Error(t, logging.SetLogLevel("verbose"))
		assert.Error(t, logging.SetLogLevel("dpanic"))
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetOutput(&buf)
		defer logging.SetOutput(os.Stderr)
		assert.NoError(t, logging.SetFormat("JSON"))
		defer func() { assert.NoError(t, logging.SetFormat("console")) }()

		logging.New("relay", logging.NewField("channel", "baogia-cova-ABC1234")).Info("subscribed")

		entry := map[string]interface{}{}
		assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "subscribed", entry["msg"])
		assert.Equal(t, "relay", entry["logger"])
		assert.Equal(t, "baogia-cova-ABC1234", entry["channel"])

		assert.Error(t, logging.SetFormat("xml"))
	})

	t.Run("logger in context", func(t *testing.T) {
		assert.Equal(t, logging.DefaultLogger(), logging.From(context.Background()))

		logger := zap.NewNop().Sugar()
		ctx := logging.With(context.Background(), logger)
		assert.Equal(t, logger, logging.From(ctx))
	})

	t.Run("new logger with fields", func(t *testing.T) {
		logger := logging.New("relay", logging.NewField("channel", "baogia-cova-ABC1234"))
		assert.NotNil(t, logger)
	})
}
