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

package relay

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/cova-team/quotesync/server/logging"
)

// Bus carries frames between relay instances, so that subscribers of one
// channel may be connected to different instances.
type Bus interface {
	// Publish sends the frame of the channel to the other instances.
	Publish(ctx context.Context, channel string, frame []byte) error

	// Subscribe calls fn with the frames published by the other instances
	// until ctx is done.
	Subscribe(ctx context.Context, fn func(channel string, frame []byte)) error

	// Close closes the bus.
	Close() error
}

// instanceIDLen is the length of the id heading every message on the bus.
const instanceIDLen = 12

// RedisBus is a Bus on Redis pub/sub. Each message is the id of the
// publishing instance followed by the frame.
type RedisBus struct {
	client     *redis.Client
	prefix     string
	instanceID []byte
	logger     logging.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

// NewRedisBus connects to the Redis of the given config.
func NewRedisBus(ctx context.Context, conf *RedisConfig, logger logging.Logger) (*RedisBus, error) {
	var opts *redis.Options
	if strings.Contains(conf.Addr, "://") {
		parsed, err := redis.ParseURL(conf.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: conf.Addr}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBusWithClient(client, conf.ChannelPrefix, logger), nil
}

// NewRedisBusWithClient creates a bus from an existing Redis client.
func NewRedisBusWithClient(client *redis.Client, prefix string, logger logging.Logger) *RedisBus {
	return &RedisBus{
		client:     client,
		prefix:     prefix,
		instanceID: xid.New().Bytes(),
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Publish sends the frame of the channel to the other instances.
func (b *RedisBus) Publish(ctx context.Context, channel string, frame []byte) error {
	msg := make([]byte, 0, instanceIDLen+len(frame))
	msg = append(msg, b.instanceID...)
	msg = append(msg, frame...)

	if err := b.client.Publish(ctx, b.prefix+channel, msg).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe calls fn with the frames published by the other instances until
// ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(channel string, frame []byte)) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+"*")
	defer func() {
		_ = pubsub.Close()
	}()

	// wait for the confirmation so that no publish after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s*: %w", b.prefix, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			payload := []byte(msg.Payload)
			if len(payload) < instanceIDLen {
				b.logger.Warnf("drop bus message of %d bytes on %s", len(payload), msg.Channel)
				continue
			}
			if bytes.Equal(payload[:instanceIDLen], b.instanceID) {
				continue
			}
			fn(strings.TrimPrefix(msg.Channel, b.prefix), payload[instanceIDLen:])
		}
	}
}

// Ready is closed once Subscribe listens.
func (b *RedisBus) Ready() <-chan struct{} {
	return b.ready
}

// Close closes the Redis client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
