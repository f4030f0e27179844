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
	"context"
	"sync"

	"github.com/cova-team/quotesync/server/logging"
	"github.com/cova-team/quotesync/server/profiling/prometheus"
)

// Hub keeps the subscribers of every channel. Channels are created with
// their first subscriber and deleted with their last.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*subscriber]struct{}

	bus     Bus
	metrics *prometheus.Metrics
	logger  logging.Logger
}

// NewHub creates a hub. The bus may be nil.
func NewHub(bus Bus, metrics *prometheus.Metrics, logger logging.Logger) *Hub {
	return &Hub{
		channels: make(map[string]map[*subscriber]struct{}),
		bus:      bus,
		metrics:  metrics,
		logger:   logger,
	}
}

// Len returns the number of subscribers of the channel.
func (h *Hub) Len(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.channels[channel])
}

// ChannelCount returns the number of live channels.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.channels)
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	subs, ok := h.channels[sub.channel]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.channels[sub.channel] = subs
	}
	subs[sub] = struct{}{}
	size, count := len(subs), len(h.channels)
	h.mu.Unlock()

	h.metrics.SetChannels(count)
	h.logger.Infof("subscriber %s joined %s, %d in channel", sub.id, sub.channel, size)
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	subs, ok := h.channels[sub.channel]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := subs[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, sub)
	size := len(subs)
	if size == 0 {
		delete(h.channels, sub.channel)
	}
	count := len(h.channels)
	h.mu.Unlock()

	sub.close()
	h.metrics.SetChannels(count)
	h.logger.Infof("subscriber %s left %s, %d in channel", sub.id, sub.channel, size)
	if size == 0 {
		h.logger.Debugf("channel %s deleted", sub.channel)
	}
}

// broadcast delivers the frame of the sender to the other local subscribers
// of its channel and publishes it to the bus.
func (h *Hub) broadcast(ctx context.Context, from *subscriber, frame []byte) {
	h.metrics.AddRelayedFrame(len(frame))
	h.deliver(from.channel, from, frame)

	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(ctx, from.channel, frame); err != nil {
		h.metrics.AddDroppedFrame(prometheus.DropBus)
		h.logger.Warnf("publish frame of %s: %v", from.channel, err)
		return
	}
	h.metrics.AddBusFrame("out")
}

// deliverRemote delivers a frame received from the bus to every local
// subscriber of the channel.
func (h *Hub) deliverRemote(channel string, frame []byte) {
	h.metrics.AddBusFrame("in")
	h.deliver(channel, nil, frame)
}

// deliver queues the frame to the subscribers of the channel but the
// sender. A subscriber whose queue is full is disconnected.
func (h *Hub) deliver(channel string, from *subscriber, frame []byte) {
	h.mu.RLock()
	var slow []*subscriber
	for sub := range h.channels[channel] {
		if sub == from {
			continue
		}
		if !sub.enqueue(frame) {
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.metrics.AddDroppedFrame(prometheus.DropSlowConsumer)
		h.logger.Warnf("subscriber %s of %s is too slow, disconnecting", sub.id, channel)
		h.unregister(sub)
	}
}

// closeAll disconnects every subscriber.
func (h *Hub) closeAll() {
	h.mu.RLock()
	var subs []*subscriber
	for _, channel := range h.channels {
		for sub := range channel {
			subs = append(subs, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.unregister(sub)
	}
}
