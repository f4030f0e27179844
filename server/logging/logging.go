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

// Package logging provides the loggers of the relay and the clients.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper of zap.SugaredLogger.
type Logger = *zap.SugaredLogger

// Field is a wrapper of zap.Field.
type Field = zap.Field

// Format is the encoding of log entries.
type Format string

const (
	// ConsoleFormat writes colored lines for humans.
	ConsoleFormat Format = "console"

	// JSONFormat writes one JSON object per entry, for log collectors.
	JSONFormat Format = "json"
)

var (
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	mu            sync.RWMutex
	output        io.Writer = os.Stderr
	format                  = ConsoleFormat
	defaultLogger Logger
)

// SetLogLevel sets the level of every logger with ["debug", "info", "warn",
// "error", "panic", "fatal"].
func SetLogLevel(level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zapcore.DPanicLevel {
		return fmt.Errorf("invalid log level: %s", level)
	}
	logLevel.SetLevel(lvl)
	return nil
}

// SetFormat sets the encoding of the loggers created afterwards.
func SetFormat(f string) error {
	switch Format(strings.ToLower(f)) {
	case ConsoleFormat:
		setFormat(ConsoleFormat)
	case JSONFormat:
		setFormat(JSONFormat)
	default:
		return fmt.Errorf("invalid log format: %s", f)
	}
	return nil
}

func setFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()

	format = f
	defaultLogger = nil
}

// SetOutput sets where the loggers created afterwards write. Loggers write
// to stderr by default; stdout is kept for the output of the CLI.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	defaultLogger = nil
}

// New creates a new logger with the given name and fields.
func New(name string, fields ...Field) Logger {
	logger := newLogger(name)
	if len(fields) == 0 {
		return logger
	}

	args := make([]interface{}, len(fields))
	for i, field := range fields {
		args[i] = field
	}
	return logger.With(args...)
}

// NewField creates a new field with the given key and value.
func NewField(key string, value string) Field {
	return zap.String(key, value)
}

// DefaultLogger returns the default logger.
func DefaultLogger() Logger {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()
	if logger != nil {
		return logger
	}

	logger = newLogger("default")
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = logger
	}
	return defaultLogger
}

// Enabled returns true if the given level is enabled.
func Enabled(level zapcore.Level) bool {
	return logLevel.Enabled(level)
}

func newLogger(name string) Logger {
	mu.RLock()
	w, f := output, format
	mu.RUnlock()

	var encoder zapcore.Encoder
	if f == JSONFormat {
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(humanEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), logLevel)
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel)).Named(name).Sugar()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func humanEncoderConfig() zapcore.EncoderConfig {
	cfg := encoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}
